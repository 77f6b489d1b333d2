package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SealOptions holds flags for the seal command.
type SealOptions struct {
	*RootOptions
	Sealer string
}

// NewSealCommand creates the seal command.
func NewSealCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SealOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Seal the pending pool into a new block",
		Long: `Drain the pending pool into a new block, run the proof-of-work
search, and append the block to the chain. Fails when the pool is
empty. Interrupting the search (Ctrl-C) restores the drained events.

Example:
  herbtrace seal --sealer authority-01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSealCmd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Sealer, "sealer", "", "identifier recorded as the block's sealer")
	cmd.MarkFlagRequired("sealer")

	return cmd
}

func runSealCmd(opts *SealOptions, cmd *cobra.Command) error {
	ledger, archive, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer archive.Close()

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	block, err := ledger.SealBlock(cmd.Context(), opts.Sealer)
	if err != nil {
		return reportLedgerError(f, err)
	}

	if f.JSON() {
		return f.Success(block)
	}
	return f.Success(fmt.Sprintf("sealed block %d with %d event(s), nonce %d, digest %s",
		block.Index, len(block.Events), block.Nonce, block.Digest))
}
