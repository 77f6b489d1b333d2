package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/herbtrace/ledger/internal/record"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Summarize ledger state",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, archive, err := openLedger(rootOpts)
			if err != nil {
				return err
			}
			defer archive.Close()

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			stats := ledger.Stats()
			if f.JSON() {
				return f.Success(stats)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "blocks:  %d\n", stats.Blocks)
			fmt.Fprintf(&b, "events:  %d\n", stats.Events)

			kinds := make([]string, 0, len(stats.EventsByKind))
			for kind := range stats.EventsByKind {
				kinds = append(kinds, string(kind))
			}
			sort.Strings(kinds)
			for _, kind := range kinds {
				fmt.Fprintf(&b, "  %s: %d\n", kind, stats.EventsByKind[record.EventKind(kind)])
			}

			fmt.Fprintf(&b, "nodes:   %d\n", stats.Nodes)
			fmt.Fprintf(&b, "pending: %d\n", stats.Pending)
			fmt.Fprintf(&b, "valid:   %t\n", stats.Valid)
			fmt.Fprintf(&b, "latest:  %s", stats.LatestBlockTime.Format("2006-01-02T15:04:05Z07:00"))
			return f.Success(b.String())
		},
	}
}
