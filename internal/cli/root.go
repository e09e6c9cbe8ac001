// Package cli wires configuration, logging and the engine into cobra
// commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/kyleking/gh-runtail/internal/config"
	"github.com/kyleking/gh-runtail/internal/logger"
)

// state is shared by every subcommand of one invocation.
type state struct {
	cfg    config.Config
	logger *log.Logger
	closer io.Closer

	configFile string
	envFile    string
	stdout     io.Writer
	stderr     io.Writer
}

// RootCmd builds the command tree. Running it without a subcommand starts the
// terminal UI.
func RootCmd(version string) *cobra.Command {
	return newRoot(version, &state{stdout: os.Stdout, stderr: os.Stderr})
}

func newRoot(version string, st *state) *cobra.Command {
	root := &cobra.Command{
		Use:           "gh-runtail",
		Short:         "Trigger CI workflows and follow their logs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if st.closer != nil {
				_ = st.closer.Close()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, st)
		},
	}

	defaults := config.Default()
	flags := root.PersistentFlags()
	flags.StringVar(&st.configFile, "config", config.DefaultPath(), "config file")
	flags.StringVar(&st.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("endpoint", defaults.Endpoint, "base URL of the JSON-RPC server")
	flags.String("namespace", defaults.Namespace, "method namespace of the server")
	flags.Duration("poll-interval", defaults.PollInterval, "delay between run lookups after a trigger")
	flags.Int("poll-attempts", defaults.PollAttempts, "run lookups before giving up")
	flags.Bool("new-runs-only", defaults.NewRunsOnly, "only follow runs that were not listed before the trigger")
	flags.Duration("call-timeout", defaults.CallTimeout, "timeout of a single RPC call")
	flags.String("export-dir", defaults.ExportDir, "directory log exports are written to")
	flags.String("history-file", defaults.HistoryFile, "trigger history file")
	flags.String("log-level", defaults.LogLevel, "debug, info, warn or error")
	flags.String("log-file", defaults.LogFile, "write logs to this file instead of stderr")

	root.AddCommand(
		resourcesCmd(st),
		triggerCmd(st),
		logsCmd(st),
		runActionCmd(st, "cancel", "Cancel a workflow run"),
		runActionCmd(st, "rerun", "Re-run a workflow run"),
		tuiCmd(st),
		serveCmd(st),
		configCmd(st),
	)
	return root
}

// Execute runs the command tree and reports a failure on stderr.
func Execute(version string) int {
	if err := RootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func (st *state) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{
		File:     st.configFile,
		Required: cmd.Flags().Changed("config") && !writesConfig(cmd),
		EnvFile:  st.envFile,
		Flags:    cmd.Flags(),
	})
	if err != nil {
		return err
	}

	logFile := cfg.LogFile
	if logFile == "" && isTUI(cmd) {
		// The terminal belongs to bubbletea.
		logFile = filepath.Join(filepath.Dir(cfg.HistoryFile), "gh-runtail.log")
	}

	l, closer, err := logger.Setup(logger.Config{
		Level:  cfg.LogLevel,
		Output: st.stderr,
		File:   logFile,
	})
	if err != nil {
		return err
	}
	st.cfg = cfg
	st.logger = l
	st.closer = closer
	l.Debug("configuration loaded", "endpoint", cfg.Endpoint, "namespace", cfg.Namespace, "config", st.configFile)
	return nil
}

func isTUI(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}
