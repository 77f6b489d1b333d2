package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/herbtrace/ledger/internal/record"
)

// NewQueryCommand creates the query command group.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query chain, block, event, batch, pending, and node state",
	}

	cmd.AddCommand(newQueryChainCommand(rootOpts))
	cmd.AddCommand(newQueryBlockCommand(rootOpts))
	cmd.AddCommand(newQueryEventCommand(rootOpts))
	cmd.AddCommand(newQueryBatchCommand(rootOpts))
	cmd.AddCommand(newQueryPendingCommand(rootOpts))
	cmd.AddCommand(newQueryNodesCommand(rootOpts))

	return cmd
}

func newQueryChainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "chain",
		Short:         "List every block in order",
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
			blocks := ledger.GetChain()
			if f.JSON() {
				return f.Success(blocks)
			}
			var b strings.Builder
			for _, block := range blocks {
				fmt.Fprintf(&b, "%s\n", formatBlock(block))
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}

func newQueryBlockCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "block <index>",
		Short:         "Show one block with its events",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid block index", err)
			}

			ledger, archive, err := openLedger(rootOpts)
			if err != nil {
				return err
			}
			defer archive.Close()

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			block, err := ledger.GetBlock(index)
			if err != nil {
				return reportLedgerError(f, err)
			}
			if f.JSON() {
				return f.Success(block)
			}
			var b strings.Builder
			fmt.Fprintf(&b, "%s\n", formatBlock(block))
			for _, e := range block.Events {
				fmt.Fprintf(&b, "  %s\n", formatEvent(e))
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}

func newQueryEventCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "event <event-id>",
		Short:         "Find an event among sealed blocks and the pending pool",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, archive, err := openLedger(rootOpts)
			if err != nil {
				return err
			}
			defer archive.Close()

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			event, err := ledger.GetEventByID(args[0])
			if err != nil {
				return reportLedgerError(f, err)
			}
			if f.JSON() {
				return f.Success(event)
			}
			return f.Success(formatEvent(event))
		},
	}
}

func newQueryBatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "batch <batch-id>",
		Short:         "Trace every event recorded for a batch",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, archive, err := openLedger(rootOpts)
			if err != nil {
				return err
			}
			defer archive.Close()

			f := newFormatter(rootOpts, cmd.OutOrStdout())
			events, err := ledger.GetEventsByBatch(args[0])
			if err != nil {
				return reportLedgerError(f, err)
			}
			if f.JSON() {
				return f.Success(events)
			}
			var b strings.Builder
			for _, e := range events {
				fmt.Fprintf(&b, "%s\n", formatEvent(e))
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}

func newQueryPendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "pending",
		Short:         "List the pending pool in admission order",
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
			pending := ledger.PendingEvents()
			if f.JSON() {
				return f.Success(pending)
			}
			if len(pending) == 0 {
				return f.Success("pending pool is empty")
			}
			var b strings.Builder
			for _, e := range pending {
				fmt.Fprintf(&b, "%s\n", formatEvent(e))
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}

func newQueryNodesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "nodes",
		Short:         "List registered nodes ordered by id",
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
			nodes := ledger.Nodes()
			if f.JSON() {
				return f.Success(nodes)
			}
			if len(nodes) == 0 {
				return f.Success("no nodes registered")
			}
			var b strings.Builder
			for _, n := range nodes {
				state := "active"
				if !n.Active {
					state = "inactive"
				}
				fmt.Fprintf(&b, "%s  %s  %s\n", n.ID, n.Role, state)
			}
			return f.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}

func formatBlock(b record.Block) string {
	return fmt.Sprintf("block %d  %s  events=%d  sealer=%s  digest=%s",
		b.Index, b.Timestamp.Format("2006-01-02T15:04:05Z07:00"), len(b.Events), b.SealerID, shortDigest(b.Digest))
}

func formatEvent(e record.Event) string {
	verdict := "pending"
	if e.Outcome != nil {
		if e.Outcome.Passed {
			verdict = "passed"
		} else {
			verdict = "failed"
		}
	}
	return fmt.Sprintf("%s  %s  node=%s  %s", e.ID, e.Kind, e.NodeID, verdict)
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12] + "…"
	}
	return digest
}
