package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/herbtrace/ledger/internal/record"
)

// TraceSnapshot is the golden-file form of a scenario run: the trace
// plus a summary of final ledger state. Digests and nonces never appear
// so snapshots stay stable across hash or difficulty changes.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Blocks       int
	Pending      int
	Valid        bool
}

// toCanonicalMap converts the snapshot for canonical serialization.
// Zero-valued optional fields are omitted, mirroring the JSON tags on
// TraceEvent.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{"type": event.Type}
		if event.Node != "" {
			eventMap["node"] = event.Node
		}
		if event.Role != "" {
			eventMap["role"] = event.Role
		}
		if event.Kind != "" {
			eventMap["kind"] = event.Kind
		}
		if event.EventID != "" {
			eventMap["event_id"] = event.EventID
		}
		if event.Result != "" {
			eventMap["result"] = event.Result
		}
		if event.Rule != "" {
			eventMap["rule"] = event.Rule
		}
		if event.Sealer != "" {
			eventMap["sealer"] = event.Sealer
		}
		if event.Block != 0 {
			eventMap["block"] = event.Block
		}
		if event.Events != 0 {
			eventMap["events"] = event.Events
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"blocks":        s.Blocks,
		"pending":       s.Pending,
		"valid":         s.Valid,
	}
}

// RunWithGolden executes a scenario and compares its trace snapshot
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	stats := result.Ledger.Stats()
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
		Blocks:       stats.Blocks,
		Pending:      stats.Pending,
		Valid:        stats.Valid,
	}

	traceJSON, err := record.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
	return nil
}
