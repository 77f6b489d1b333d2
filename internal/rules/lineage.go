package rules

import (
	"fmt"

	"github.com/herbtrace/ledger/internal/record"
)

// referencedBatch extracts the batch id a lineage-bound payload points at.
func referencedBatch(e record.Event) string {
	switch p := e.Payload.(type) {
	case record.ProcessingPayload:
		return p.BatchID
	case record.QualityTestPayload:
		return p.BatchID
	default:
		return ""
	}
}

// checkBatchExists verifies the referenced batch id is already present
// among recorded events, matching either an event id or an embedded
// batch-id field. Either match is accepted.
func (e *Engine) checkBatchExists(candidate record.Event, history []record.Event) record.CheckResult {
	batchID := referencedBatch(candidate)
	if batchID == "" {
		return fail(RuleBatchExists, "event does not reference a batch id")
	}
	for _, prior := range history {
		if prior.MatchesBatch(batchID) {
			return pass(RuleBatchExists)
		}
	}
	return fail(RuleBatchExists, fmt.Sprintf("batch %q does not exist in the recorded history", batchID))
}

// checkProcessingConditions applies step-specific bounds: drying must
// stay at or below the temperature ceiling, grinding must keep mesh
// coarseness at or above the floor. Unlisted steps pass.
func (e *Engine) checkProcessingConditions(candidate record.Event, _ []record.Event) record.CheckResult {
	p := candidate.Payload.(record.ProcessingPayload)

	switch p.Step {
	case record.StepDrying:
		if p.TemperatureC > e.policy.Processing.DryingMaxTempC {
			return fail(RuleProcessing, fmt.Sprintf(
				"drying temperature %.1f°C exceeds maximum %.1f°C",
				p.TemperatureC, e.policy.Processing.DryingMaxTempC))
		}
	case record.StepGrinding:
		if p.MeshSize < e.policy.Processing.GrindingMinMesh {
			return fail(RuleProcessing, fmt.Sprintf(
				"grinding mesh %.0f is below minimum %.0f",
				p.MeshSize, e.policy.Processing.GrindingMinMesh))
		}
	}
	return pass(RuleProcessing)
}

// checkCertifiedLab verifies the submitting lab is on the fixed
// certified-lab allow-list.
func (e *Engine) checkCertifiedLab(candidate record.Event, _ []record.Event) record.CheckResult {
	p := candidate.Payload.(record.QualityTestPayload)

	if !e.policy.CertifiedLab(p.LabID) {
		return fail(RuleCertifiedLab, fmt.Sprintf("lab %q is not a certified testing lab", p.LabID))
	}
	return pass(RuleCertifiedLab)
}
