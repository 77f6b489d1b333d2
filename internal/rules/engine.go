// Package rules implements the domain "smart contract": a pure,
// stateless evaluator of business constraints against a candidate
// event and the existing event history.
//
// Evaluation is fail-fast: rules run in a fixed order and the first
// failing rule aborts the whole admission. The outcome names every
// rule that was actually evaluated, in evaluation order.
package rules

import (
	"github.com/herbtrace/ledger/internal/policy"
	"github.com/herbtrace/ledger/internal/record"
)

// Rule names reported in validation outcomes and contract violations.
const (
	RuleGeoFence     = "geo_fence"
	RuleSeason       = "season"
	RuleDailyLimit   = "daily_limit"
	RuleQuality      = "quality"
	RuleBatchExists  = "batch_exists"
	RuleProcessing   = "processing_conditions"
	RuleCertifiedLab = "certified_lab"
)

// Engine evaluates rule tables against candidate events.
//
// The engine holds only an immutable Policy reference and no other
// state: Evaluate is a pure function of (candidate, history) and is
// safe to call concurrently.
type Engine struct {
	policy *policy.Policy
}

// New creates a rule engine over the given immutable policy.
func New(p *policy.Policy) *Engine {
	return &Engine{policy: p}
}

// check is a single named rule evaluation.
type check func(candidate record.Event, history []record.Event) record.CheckResult

// Evaluate runs the rule set for the candidate's kind against the full
// event history (sealed plus pooled) and returns the validation
// outcome. History is read-only; the candidate is not mutated.
//
// Kinds without defined rules pass unconditionally with an empty check
// list (deliberate default-allow for ManufacturingRecord and
// ComplianceReport).
func (e *Engine) Evaluate(candidate record.Event, history []record.Event) (record.Outcome, error) {
	var checks []check

	switch p := candidate.Payload.(type) {
	case record.CollectionPayload:
		checks = []check{e.checkGeoFence, e.checkSeason, e.checkDailyLimit}
		if p.Quality != nil {
			checks = append(checks, e.checkQuality)
		}
	case record.ProcessingPayload:
		checks = []check{e.checkBatchExists, e.checkProcessingConditions}
	case record.QualityTestPayload:
		checks = []check{e.checkBatchExists, e.checkCertifiedLab}
	default:
		// Default-allow: no rules defined for this kind.
	}

	outcome := record.Outcome{Passed: true}
	for _, c := range checks {
		result := c(candidate, history)
		outcome.Checks = append(outcome.Checks, result)
		if !result.Passed {
			outcome.Passed = false
			break
		}
	}

	digest, err := record.OutcomeDigest(candidate.ID, candidate.Timestamp, candidate.Kind, candidate.NodeID)
	if err != nil {
		return record.Outcome{}, err
	}
	outcome.Digest = digest
	return outcome, nil
}

// FirstFailure returns the first failed check in the outcome, or
// (CheckResult{}, false) if every evaluated rule passed.
func FirstFailure(o record.Outcome) (record.CheckResult, bool) {
	for _, c := range o.Checks {
		if !c.Passed {
			return c, true
		}
	}
	return record.CheckResult{}, false
}

// pass and fail build uniform check results.
func pass(rule string) record.CheckResult {
	return record.CheckResult{Rule: rule, Passed: true}
}

func fail(rule, reason string) record.CheckResult {
	return record.CheckResult{Rule: rule, Passed: false, Reason: reason}
}
