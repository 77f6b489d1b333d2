package rules

import (
	"fmt"

	"github.com/herbtrace/ledger/internal/record"
)

// dayOf buckets a timestamp into its calendar date. Same-day grouping
// for the daily ceiling is by date string, not a rolling 24h window.
func dayOf(e record.Event) string {
	return e.Timestamp.UTC().Format("2006-01-02")
}

// checkGeoFence verifies the harvest point falls inside at least one
// permitted bounding box for the species. Unknown species fail.
func (e *Engine) checkGeoFence(candidate record.Event, _ []record.Event) record.CheckResult {
	p := candidate.Payload.(record.CollectionPayload)

	boxes, ok := e.policy.GeoFences[p.Species]
	if !ok {
		return fail(RuleGeoFence, fmt.Sprintf("species %q has no permitted harvest zones", p.Species))
	}
	for _, box := range boxes {
		if box.Contains(p.Latitude, p.Longitude) {
			return pass(RuleGeoFence)
		}
	}
	return fail(RuleGeoFence, fmt.Sprintf(
		"point (%.4f, %.4f) is outside all permitted zones for %q",
		p.Latitude, p.Longitude, p.Species))
}

// checkSeason verifies the event's timestamp month is a permitted
// harvest month for the species. Unknown species fail.
func (e *Engine) checkSeason(candidate record.Event, _ []record.Event) record.CheckResult {
	p := candidate.Payload.(record.CollectionPayload)

	if _, ok := e.policy.Seasons[p.Species]; !ok {
		return fail(RuleSeason, fmt.Sprintf("species %q has no harvest season defined", p.Species))
	}
	month := candidate.Timestamp.UTC().Month()
	if !e.policy.InSeason(p.Species, month) {
		return fail(RuleSeason, fmt.Sprintf("%s is outside the harvest season for %q", month, p.Species))
	}
	return pass(RuleSeason)
}

// checkDailyLimit verifies the candidate quantity plus all same-day
// collections for the same species and farmer stays within the
// per-species ceiling. History here includes pooled-but-unsealed
// events, so not-yet-sealed submissions count toward the bucket.
func (e *Engine) checkDailyLimit(candidate record.Event, history []record.Event) record.CheckResult {
	p := candidate.Payload.(record.CollectionPayload)

	limit, ok := e.policy.DailyLimitKg[p.Species]
	if !ok {
		return fail(RuleDailyLimit, fmt.Sprintf("species %q has no daily quantity ceiling", p.Species))
	}

	day := dayOf(candidate)
	total := p.QuantityKg
	for _, prior := range history {
		if prior.Kind != record.KindCollection {
			continue
		}
		pp, ok := prior.Payload.(record.CollectionPayload)
		if !ok || pp.Species != p.Species || pp.FarmerID != p.FarmerID {
			continue
		}
		if dayOf(prior) != day {
			continue
		}
		total += pp.QuantityKg
	}

	if total > limit {
		return fail(RuleDailyLimit, fmt.Sprintf(
			"daily total %.2fkg exceeds the %.2fkg/day ceiling for %q (farmer %s)",
			total, limit, p.Species, p.FarmerID))
	}
	return pass(RuleDailyLimit)
}

// checkQuality verifies present metrics against per-species bounds.
// Runs only when the payload carries metrics. A species without a
// threshold table fails; a zero bound means the metric is unchecked.
func (e *Engine) checkQuality(candidate record.Event, _ []record.Event) record.CheckResult {
	p := candidate.Payload.(record.CollectionPayload)

	bounds, ok := e.policy.Quality[p.Species]
	if !ok {
		return fail(RuleQuality, fmt.Sprintf("species %q has no quality thresholds defined", p.Species))
	}
	q := p.Quality

	if bounds.MoistureMaxPct > 0 && q.MoisturePct > bounds.MoistureMaxPct {
		return fail(RuleQuality, fmt.Sprintf(
			"moisture %.2f%% exceeds maximum %.2f%%", q.MoisturePct, bounds.MoistureMaxPct))
	}
	if bounds.ActiveCompoundMinPct > 0 && q.ActiveCompoundPct < bounds.ActiveCompoundMinPct {
		return fail(RuleQuality, fmt.Sprintf(
			"active compound %.2f%% is below minimum %.2f%%", q.ActiveCompoundPct, bounds.ActiveCompoundMinPct))
	}
	if bounds.PesticideMaxPPM > 0 && q.PesticidePPM > bounds.PesticideMaxPPM {
		return fail(RuleQuality, fmt.Sprintf(
			"pesticide residue %.3fppm exceeds maximum %.3fppm", q.PesticidePPM, bounds.PesticideMaxPPM))
	}
	if bounds.HeavyMetalsMaxPPM > 0 && q.HeavyMetalsPPM > bounds.HeavyMetalsMaxPPM {
		return fail(RuleQuality, fmt.Sprintf(
			"heavy metals %.3fppm exceed maximum %.3fppm", q.HeavyMetalsPPM, bounds.HeavyMetalsMaxPPM))
	}
	return pass(RuleQuality)
}
