package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kyleking/gh-runtail/internal/app"
)

func tuiCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse workflows and runs interactively (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, st)
		},
	}
}

func runTUI(cmd *cobra.Command, st *state) error {
	bridge := app.NewBridge()
	eng, history := st.newEngine(bridge)
	defer eng.Close()
	defer bridge.Close()

	model := app.New(app.Options{
		Engine:      eng,
		Bridge:      bridge,
		History:     history,
		HistoryFile: st.cfg.HistoryFile,
		ExportDir:   st.cfg.ExportDir,
		RepoURL:     st.repoURL(),
		CallTimeout: st.cfg.CallTimeout,
		Logger:      st.logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return err
	}
	st.saveHistory(history)
	return nil
}
