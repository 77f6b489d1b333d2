// Package policy holds the immutable rule tables the rule engine
// evaluates against: geo-fences, harvest seasons, daily quantity
// ceilings, quality thresholds, processing bounds, and the certified
// lab allow-list.
//
// A Policy is constructed once (built-in Default or loaded from a CUE
// file) and passed by reference into every evaluation call. It is
// never mutated after construction, which keeps the rule engine pure
// and trivially testable in isolation.
package policy

import (
	"fmt"
	"time"
)

// BoundingBox is a permitted harvest area in degrees.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point falls inside the box, edges inclusive.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// QualityBounds are per-species thresholds for lab-measured metrics.
// A zero bound means the metric is not checked for that species.
type QualityBounds struct {
	MoistureMaxPct       float64 `json:"moisture_max_pct"`
	ActiveCompoundMinPct float64 `json:"active_compound_min_pct"`
	PesticideMaxPPM      float64 `json:"pesticide_max_ppm"`
	HeavyMetalsMaxPPM    float64 `json:"heavy_metals_max_ppm"`
}

// ProcessingBounds are fixed limits on processing step conditions.
type ProcessingBounds struct {
	DryingMaxTempC  float64 `json:"drying_max_temp_c"`
	GrindingMinMesh float64 `json:"grinding_min_mesh"`
}

// Policy is the complete immutable rule-table set.
// Species absent from a table fail the corresponding rule (no
// default-allow for unknown species).
type Policy struct {
	GeoFences     map[string][]BoundingBox `json:"geo_fences"`
	Seasons       map[string][]int         `json:"seasons"` // calendar months 1-12
	DailyLimitKg  map[string]float64       `json:"daily_limit_kg"`
	Quality       map[string]QualityBounds `json:"quality"`
	CertifiedLabs []string                 `json:"certified_labs"`
	Processing    ProcessingBounds         `json:"processing"`
}

// CertifiedLab reports whether the lab id is on the allow-list.
func (p *Policy) CertifiedLab(id string) bool {
	for _, lab := range p.CertifiedLabs {
		if lab == id {
			return true
		}
	}
	return false
}

// InSeason reports whether the month is permitted for the species.
// Returns false for species without a season table.
func (p *Policy) InSeason(species string, month time.Month) bool {
	months, ok := p.Seasons[species]
	if !ok {
		return false
	}
	for _, m := range months {
		if time.Month(m) == month {
			return true
		}
	}
	return false
}

// Validate checks structural soundness of the tables. Fail-fast:
// the first problem found is returned.
func (p *Policy) Validate() error {
	for species, boxes := range p.GeoFences {
		if len(boxes) == 0 {
			return fmt.Errorf("policy: species %q has an empty geo-fence list", species)
		}
		for i, b := range boxes {
			if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
				return fmt.Errorf("policy: species %q geo-fence %d has inverted bounds", species, i)
			}
		}
	}
	for species, months := range p.Seasons {
		if len(months) == 0 {
			return fmt.Errorf("policy: species %q has an empty season list", species)
		}
		for _, m := range months {
			if m < 1 || m > 12 {
				return fmt.Errorf("policy: species %q has invalid month %d", species, m)
			}
		}
	}
	for species, limit := range p.DailyLimitKg {
		if limit <= 0 {
			return fmt.Errorf("policy: species %q has non-positive daily limit %v", species, limit)
		}
	}
	return nil
}

// Default returns the built-in rule tables mirroring the reference
// deployment: ayurvedic species with their permitted harvest regions,
// seasons, and AYUSH-certified labs.
func Default() *Policy {
	return &Policy{
		GeoFences: map[string][]BoundingBox{
			// Rajasthan and central-India growing belt.
			"ashwagandha": {
				{MinLat: 23.0, MaxLat: 30.5, MinLon: 69.0, MaxLon: 76.5},
				{MinLat: 21.0, MaxLat: 24.5, MinLon: 74.0, MaxLon: 79.0},
			},
			// Kerala and coastal Karnataka wetlands.
			"brahmi": {
				{MinLat: 8.0, MaxLat: 13.5, MinLon: 74.5, MaxLon: 77.5},
			},
			// Gangetic plain.
			"tulsi": {
				{MinLat: 24.0, MaxLat: 28.5, MinLon: 77.0, MaxLon: 84.0},
			},
			// Telangana/Andhra turmeric districts.
			"turmeric": {
				{MinLat: 15.5, MaxLat: 19.5, MinLon: 77.5, MaxLon: 81.5},
			},
		},
		Seasons: map[string][]int{
			"ashwagandha": {10, 11, 12, 1, 2, 3},
			"brahmi":      {6, 7, 8, 9},
			"tulsi":       {9, 10, 11},
			"turmeric":    {1, 2, 3, 12},
		},
		DailyLimitKg: map[string]float64{
			"ashwagandha": 50,
			"brahmi":      40,
			"tulsi":       30,
			"turmeric":    100,
		},
		Quality: map[string]QualityBounds{
			"ashwagandha": {MoistureMaxPct: 10, ActiveCompoundMinPct: 0.3, PesticideMaxPPM: 0.5, HeavyMetalsMaxPPM: 10},
			"brahmi":      {MoistureMaxPct: 12, ActiveCompoundMinPct: 2.5, PesticideMaxPPM: 0.5, HeavyMetalsMaxPPM: 10},
			"tulsi":       {MoistureMaxPct: 11, ActiveCompoundMinPct: 0.7, PesticideMaxPPM: 0.5, HeavyMetalsMaxPPM: 10},
			"turmeric":    {MoistureMaxPct: 9, ActiveCompoundMinPct: 2.0, PesticideMaxPPM: 0.5, HeavyMetalsMaxPPM: 10},
		},
		CertifiedLabs: []string{
			"lab-ayush-01",
			"lab-ayush-02",
			"lab-nabl-07",
		},
		Processing: ProcessingBounds{
			DryingMaxTempC:  60,
			GrindingMinMesh: 80,
		},
	}
}
