package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/herbtrace/ledger/internal/record"
)

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	*RootOptions
	Role      string
	PublicKey string
	Meta      []string
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register <node-id>",
		Short: "Register a participant node",
		Long: `Register a participant node with a fixed role. The node's
capability set is derived from the role at registration and never
changes afterward.

Example:
  herbtrace register farm-raj-042 --role harvester --meta region=rajasthan`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Role, "role", "", "node role (harvester|processor|tester|manufacturer|regulator)")
	cmd.Flags().StringVar(&opts.PublicKey, "public-key", "", "public key material (placeholder, never verified)")
	cmd.Flags().StringArrayVar(&opts.Meta, "meta", nil, "metadata entry as key=value (repeatable)")
	cmd.MarkFlagRequired("role")

	return cmd
}

func runRegister(opts *RegisterOptions, nodeID string, cmd *cobra.Command) error {
	metadata, err := parseMeta(opts.Meta)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --meta", err)
	}

	ledger, archive, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer archive.Close()

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	node, err := ledger.RegisterNode(nodeID, record.Role(opts.Role), opts.PublicKey, metadata)
	if err != nil {
		return reportLedgerError(f, err)
	}

	if f.JSON() {
		return f.Success(node)
	}
	return f.Success(fmt.Sprintf("registered %s as %s (capabilities: %s)",
		node.ID, node.Role, joinCapabilities(node.Capabilities)))
}

func parseMeta(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%q is not key=value", entry)
		}
		metadata[key] = value
	}
	return metadata, nil
}

func joinCapabilities(caps []record.Capability) string {
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
