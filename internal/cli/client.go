package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/cli/go-gh/v2/pkg/repository"

	"github.com/kyleking/gh-runtail/internal/engine"
	"github.com/kyleking/gh-runtail/internal/frecency"
	"github.com/kyleking/gh-runtail/internal/github"
	"github.com/kyleking/gh-runtail/internal/rpc"
	"github.com/kyleking/gh-runtail/internal/stream"
)

// newEngine connects an engine to the configured endpoint.
func (st *state) newEngine(observer engine.Observer) (*engine.Engine, *frecency.Store) {
	history, err := frecency.Load(st.cfg.HistoryFile)
	if err != nil {
		st.logger.Warn("ignoring unreadable trigger history", "path", st.cfg.HistoryFile, "err", err)
		history = frecency.NewStore()
	}

	caller := rpc.NewClient(rpc.ClientOptions{
		BaseURL: st.cfg.Endpoint,
		Path:    st.cfg.RPCPath,
		Timeout: st.cfg.CallTimeout,
		Logger:  st.logger,
	})
	source := stream.NewClient(stream.Options{
		BaseURL:    st.cfg.Endpoint,
		Path:       st.cfg.StreamPath,
		HTTPClient: caller.HTTPClient(),
		Logger:     st.logger,
	})

	eng := engine.New(engine.Options{
		Caller:       caller,
		Methods:      rpc.Methods{Namespace: st.cfg.Namespace},
		Source:       source,
		Observer:     observer,
		Logger:       st.logger,
		PollInterval: st.cfg.PollInterval,
		PollAttempts: st.cfg.PollAttempts,
		NewRunsOnly:  st.cfg.NewRunsOnly,
		History:      history,
	})
	return eng, history
}

func (st *state) saveHistory(history *frecency.Store) {
	if err := history.Save(st.cfg.HistoryFile); err != nil {
		st.logger.Warn("could not save trigger history", "path", st.cfg.HistoryFile, "err", err)
	}
}

// repoURL is the web address of the configured repository, falling back to
// the repository of the working directory.
func (st *state) repoURL() string {
	host, owner, name := st.cfg.Server.Host, st.cfg.Server.Owner, st.cfg.Server.Repo
	if owner == "" || name == "" {
		repo, err := repository.Current()
		if err != nil {
			return ""
		}
		host, owner, name = repo.Host, repo.Owner, repo.Name
	}
	if host == "" {
		host = github.DefaultHost
	}
	return fmt.Sprintf("https://%s/%s/%s", host, owner, name)
}

// statusPrinter reports engine status lines on w.
type statusPrinter struct {
	engine.NopObserver
	w io.Writer
}

func (p statusPrinter) OnStatusChange(message string, isError bool) {
	if isError {
		message = "error: " + message
	}
	fmt.Fprintln(p.w, strings.TrimSpace(message))
}
