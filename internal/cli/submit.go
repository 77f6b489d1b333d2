package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/herbtrace/ledger/internal/record"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Kind    string
	Payload string
	File    string
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <node-id>",
		Short: "Submit an event for admission",
		Long: `Submit an event on behalf of a registered node. The event passes
capability checks and the rule engine before it enters the pending
pool; a rejected event leaves no trace.

The payload is given inline as JSON or loaded from a YAML/JSON file.

Examples:
  herbtrace submit farm-raj-042 --kind CollectionEvent \
    --payload '{"species":"ashwagandha","farmer_id":"farmer-01","quantity_kg":30,"latitude":26.3,"longitude":73.0}'

  herbtrace submit lab-ayush-01 --kind QualityTest --file test.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "event kind (CollectionEvent|ProcessingStep|QualityTest|ManufacturingRecord|ComplianceReport)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "payload fields as JSON")
	cmd.Flags().StringVar(&opts.File, "file", "", "payload file (YAML or JSON)")
	cmd.MarkFlagRequired("kind")
	cmd.MarkFlagsMutuallyExclusive("payload", "file")

	return cmd
}

func runSubmit(opts *SubmitOptions, nodeID string, cmd *cobra.Command) error {
	payload, err := loadPayload(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid payload", err)
	}

	ledger, archive, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer archive.Close()

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	event, err := ledger.SubmitEvent(nodeID, payload)
	if err != nil {
		return reportLedgerError(f, err)
	}

	if f.JSON() {
		return f.Success(event)
	}
	return f.Success(fmt.Sprintf("admitted %s (%s) into the pending pool", event.ID, event.Kind))
}

// loadPayload builds the typed payload from --payload JSON or --file.
// YAML files round-trip through JSON so both spellings share one
// decoding path.
func loadPayload(opts *SubmitOptions) (record.Payload, error) {
	kind := record.EventKind(opts.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", opts.Kind)
	}

	switch {
	case opts.Payload != "":
		return record.DecodePayload(kind, []byte(opts.Payload))
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("parse %s: %w", opts.File, err)
		}
		encoded, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		return record.DecodePayload(kind, encoded)
	default:
		return nil, fmt.Errorf("one of --payload or --file is required")
	}
}
