package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/cli/go-gh/v2/pkg/repository"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kyleking/gh-runtail/internal/config"
	"github.com/kyleking/gh-runtail/internal/exec"
	"github.com/kyleking/gh-runtail/internal/github"
	"github.com/kyleking/gh-runtail/internal/server"
)

func serveCmd(st *state) *cobra.Command {
	var skipVerify bool
	defaults := config.Default().Server
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC and log stream server in front of GitHub Actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			return runServer(ctx, st, skipVerify)
		},
	}
	flags := cmd.Flags()
	flags.String("server-addr", defaults.Addr, "listen address")
	flags.String("server-owner", defaults.Owner, "repository owner, defaults to the current repository")
	flags.String("server-repo", defaults.Repo, "repository name, defaults to the current repository")
	flags.String("server-host", defaults.Host, "GitHub host")
	flags.String("server-log-source", defaults.LogSource, "where run logs come from: api or gh")
	flags.BoolVar(&skipVerify, "skip-verify", false, "start without checking repository access")
	return cmd
}

func runServer(ctx context.Context, st *state, skipVerify bool) error {
	cfg := st.cfg.Server
	if cfg.Owner == "" || cfg.Repo == "" {
		if repo, err := repository.Current(); err == nil {
			cfg.Owner, cfg.Repo, cfg.Host = repo.Owner, repo.Name, repo.Host
		}
	}

	client, err := github.NewClient(github.Options{
		Token:  cfg.GitHubToken,
		Host:   cfg.Host,
		Owner:  cfg.Owner,
		Repo:   cfg.Repo,
		Logger: st.logger,
	})
	if err != nil {
		return err
	}
	if !skipVerify {
		if err := client.Verify(ctx); err != nil {
			return fmt.Errorf("verify %s: %w", client.Repo(), err)
		}
	}

	var provider server.Provider = client
	if cfg.LogSource == "gh" {
		if err := exec.LookPath("gh"); err != nil {
			return fmt.Errorf("log_source gh requires the gh CLI on PATH: %w", err)
		}
		provider = server.WithLogs(client, github.NewCLILogs(exec.NewRealExecutor(), client.Repo()))
	}

	if st.logger.GetLevel() != log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(server.Options{
		Providers:       map[string]server.Provider{st.cfg.Namespace: provider},
		StreamNamespace: st.cfg.Namespace,
		RPCPath:         st.cfg.RPCPath,
		StreamPath:      st.cfg.StreamPath,
		Logger:          st.logger,
	})
	st.logger.Info("serving repository", "repo", client.Repo(), "logs", cfg.LogSource)
	return srv.ListenAndServe(ctx, cfg.Addr)
}
