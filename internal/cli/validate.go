package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Verify chain digests and linkage",
		Long: `Recompute every block digest and check previous-digest linkage
across the whole chain. Exits 0 when the chain verifies, 1 when any
block fails.`,
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
			valid := ledger.ValidateChain()
			blocks := len(ledger.GetChain())

			if f.JSON() {
				if err := f.Success(map[string]any{"valid": valid, "blocks": blocks}); err != nil {
					return err
				}
			} else if valid {
				if err := f.Success(fmt.Sprintf("chain valid (%d blocks)", blocks)); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "chain INVALID (%d blocks)\n", blocks)
			}

			if !valid {
				return NewExitError(ExitFailure, "chain validation failed")
			}
			return nil
		},
	}
}
