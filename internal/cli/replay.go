package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/herbtrace/ledger/internal/harness"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay a scenario file on a fresh in-memory ledger",
		Long: `Replay a YAML scenario file against a fresh deterministic ledger
and print the resulting trace. The archive flag is ignored: replays
never touch persisted state.

Example:
  herbtrace replay scenarios/daily-ceiling.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, args[0], cmd)
		},
	}
}

func runReplay(rootOpts *RootOptions, path string, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	f := newFormatter(rootOpts, cmd.OutOrStdout())

	result, err := harness.Run(scenario)
	if err != nil {
		if ferr := f.Failure("REPLAY_FAILED", err.Error(), ""); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, err.Error())
	}

	if f.JSON() {
		return f.Success(map[string]any{
			"scenario": scenario.Name,
			"trace":    result.Trace,
			"stats":    result.Ledger.Stats(),
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "scenario %s: %d step(s) replayed\n", scenario.Name, len(result.Trace))
	for _, event := range result.Trace {
		fmt.Fprintf(&b, "  %s\n", formatTraceEvent(event))
	}
	stats := result.Ledger.Stats()
	fmt.Fprintf(&b, "final: %d block(s), %d pending, valid=%t", stats.Blocks, stats.Pending, stats.Valid)
	return f.Success(b.String())
}

func formatTraceEvent(e harness.TraceEvent) string {
	switch e.Type {
	case "register":
		return fmt.Sprintf("register %s as %s", e.Node, e.Role)
	case "submit":
		if e.Result == harness.ExpectRejected {
			return fmt.Sprintf("submit %s by %s: rejected (%s)", e.Kind, e.Node, e.Rule)
		}
		return fmt.Sprintf("submit %s by %s: admitted as %s", e.Kind, e.Node, e.EventID)
	case "seal":
		if e.Result == "empty" {
			return fmt.Sprintf("seal by %s: pool empty", e.Sealer)
		}
		return fmt.Sprintf("seal by %s: block %d (%d event(s))", e.Sealer, e.Block, e.Events)
	case "deactivate":
		return fmt.Sprintf("deactivate %s", e.Node)
	default:
		return e.Type
	}
}
