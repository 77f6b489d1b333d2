package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesBatch(t *testing.T) {
	origin := Event{
		ID:   "evt-0001",
		Kind: KindCollection,
		Payload: CollectionPayload{
			Species: "ashwagandha", FarmerID: "f", QuantityKg: 10,
			Latitude: 26.3, Longitude: 73.0,
		},
	}
	step := Event{
		ID:      "evt-0002",
		Kind:    KindProcessing,
		Payload: ProcessingPayload{BatchID: "evt-0001", Step: StepDrying, TemperatureC: 50},
	}
	manufacture := Event{
		ID:      "evt-0003",
		Kind:    KindManufacturing,
		Payload: ManufacturingPayload{ProductName: "churna", BatchIDs: []string{"evt-0001", "evt-0009"}, Units: 100},
	}

	assert.True(t, origin.MatchesBatch("evt-0001"), "originating event matches by id")
	assert.True(t, step.MatchesBatch("evt-0001"), "downstream event matches by reference")
	assert.True(t, manufacture.MatchesBatch("evt-0009"), "any referenced batch matches")
	assert.False(t, step.MatchesBatch("evt-0002x"))
	assert.False(t, origin.MatchesBatch("evt-0009"))
}

func TestEventClone(t *testing.T) {
	quality := &QualityMetrics{MoisturePct: 8, ActiveCompoundPct: 1.2, PesticidePPM: 0.1, HeavyMetalsPPM: 0.2}
	original := Event{
		ID:       "evt-0001",
		Kind:     KindCollection,
		NodeID:   "node-1",
		NodeRole: RoleHarvester,
		Payload: CollectionPayload{
			Species: "ashwagandha", FarmerID: "f", QuantityKg: 10,
			Latitude: 26.3, Longitude: 73.0, Quality: quality,
		},
		Timestamp: time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC),
		Digest:    "d",
		Outcome: &Outcome{
			Checks: []CheckResult{{Rule: "geo_fence", Passed: true}},
			Passed: true,
			Digest: "od",
		},
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	// Mutating the clone's pointer and slice fields leaves the
	// original untouched.
	clone.Outcome.Checks[0].Passed = false
	clone.Payload.(CollectionPayload).Quality.MoisturePct = 99

	assert.True(t, original.Outcome.Checks[0].Passed)
	assert.Equal(t, 8.0, quality.MoisturePct)
}

func TestBlockClone(t *testing.T) {
	block := Block{
		Index:      1,
		Timestamp:  time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC),
		Events:     []Event{{ID: "evt-0001", Kind: KindCompliance, Payload: CompliancePayload{BatchID: "b", Authority: "a"}}},
		PrevDigest: "prev",
		SealerID:   "authority",
		Nonce:      7,
		Digest:     "00d",
	}

	clone := block.Clone()
	require.Equal(t, block, clone)

	clone.Events[0].ID = "mutated"
	assert.Equal(t, "evt-0001", block.Events[0].ID)
}
