package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kyleking/gh-runtail/internal/engine"
	"github.com/kyleking/gh-runtail/internal/logs"
	"github.com/kyleking/gh-runtail/internal/resource"
	"github.com/kyleking/gh-runtail/internal/ui"
	"github.com/kyleking/gh-runtail/internal/ui/modal"
)

// signalContext is cancelled on interrupt so a follow can be abandoned.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func resourcesCmd(st *state) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List workflows, runs and runners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _ := st.newEngine(nil)
			defer eng.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), st.cfg.CallTimeout)
			defer cancel()
			list, err := eng.RefreshResources(ctx)
			if err != nil {
				return err
			}
			printResources(st.stdout, list, resource.Type(kind))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", "", "only list one type: workflow, workflow_run or other")
	return cmd
}

func printResources(w io.Writer, list []resource.Resource, kind resource.Type) {
	header := lipgloss.NewStyle().Bold(true)
	fmt.Fprintln(w, header.Render(ui.PadRight("TYPE", 14)+ui.PadRight("ID", 14)+ui.PadRight("REF", 20)+"NAME"))
	for _, r := range list {
		t := resource.Classify(r.Type)
		if kind != "" && t != kind {
			continue
		}
		fmt.Fprintln(w, ui.PadRight(string(t), 14)+
			ui.PadRight(ui.TruncateWithEllipsis(r.BareID(), 13), 14)+
			ui.PadRight(ui.TruncateWithEllipsis(r.Ref, 19), 20)+
			r.DisplayName())
	}
}

func triggerCmd(st *state) *cobra.Command {
	var (
		ref    string
		inputs string
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "trigger <workflow-id>",
		Short: "Dispatch a workflow and optionally follow the run it starts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := modal.ParseInputs(inputs)
			if err != nil {
				return err
			}
			workflowID := resource.StripPrefix(args[0])

			eng, history := st.newEngine(statusPrinter{w: st.stderr})
			defer eng.Close()
			defer st.saveHistory(history)

			ctx, cancel := signalContext(cmd)
			defer cancel()

			callCtx, callCancel := context.WithTimeout(ctx, st.cfg.CallTimeout)
			defer callCancel()
			if !follow {
				result, err := eng.Trigger(callCtx, workflowID, ref, parsed)
				if err != nil {
					return err
				}
				return printJSON(st.stdout, result)
			}
			if _, err := eng.TriggerAndFollow(callCtx, workflowID, ref, parsed); err != nil {
				return err
			}
			return waitAndPrint(ctx, st, eng)
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "main", "branch or tag to run the workflow on")
	cmd.Flags().StringVarP(&inputs, "input", "i", "", "workflow inputs as key=value, comma separated")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "wait for the run and print its logs")
	return cmd
}

func logsCmd(st *state) *cobra.Command {
	var (
		search     string
		label      string
		unlabelled bool
		export     bool
	)
	cmd := &cobra.Command{
		Use:   "logs <run-id>",
		Short: "Follow the logs of a run until it completes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _ := st.newEngine(statusPrinter{w: st.stderr})
			defer eng.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if err := eng.Watch(resource.StripPrefix(args[0])); err != nil {
				return err
			}
			if unlabelled {
				label = logs.NoLabel
			}
			eng.SetSearch(search)
			eng.SetLabelFilter(label)
			if err := waitAndPrint(ctx, st, eng); err != nil {
				return err
			}
			if export {
				path, err := eng.Export().WriteFile(st.cfg.ExportDir)
				if err != nil {
					return err
				}
				fmt.Fprintln(st.stderr, "Logs written to", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only print lines containing this text")
	cmd.Flags().StringVarP(&label, "label", "l", "", "only print lines from this step")
	cmd.Flags().BoolVar(&unlabelled, "unlabelled", false, "only print lines without a step label")
	cmd.MarkFlagsMutuallyExclusive("label", "unlabelled")
	cmd.Flags().BoolVarP(&export, "export", "e", false, "also write the printed lines to the export directory")
	return cmd
}

// waitAndPrint blocks until the followed session ends and prints the
// filtered view.
func waitAndPrint(ctx context.Context, st *state, eng *engine.Engine) error {
	_, err := eng.Wait(ctx)
	if text := eng.ViewText(); text != "" {
		fmt.Fprintln(st.stdout, text)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runActionCmd(st *state, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <run-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _ := st.newEngine(statusPrinter{w: st.stderr})
			defer eng.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), st.cfg.CallTimeout)
			defer cancel()

			runID := resource.StripPrefix(args[0])
			var (
				result json.RawMessage
				err    error
			)
			if action == "cancel" {
				result, err = eng.Cancel(ctx, runID)
			} else {
				result, err = eng.Rerun(ctx, runID)
			}
			if err != nil {
				return err
			}
			return printJSON(st.stdout, result)
		},
	}
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Fprintln(w, strings.TrimSpace(string(raw)))
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}
