package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRole_Valid tests membership in the fixed role set.
func TestRole_Valid(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid(), "role %s", r)
	}
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}

// TestEventKind_Valid tests membership in the fixed kind set.
func TestEventKind_Valid(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, k.Valid(), "kind %s", k)
	}
	assert.False(t, EventKind("Transfer").Valid())
}

// TestNode_Can tests capability membership.
func TestNode_Can(t *testing.T) {
	n := Node{
		ID:           "node-1",
		Role:         RoleHarvester,
		Capabilities: []Capability{CapSubmitCollection, CapReadOwn},
	}

	assert.True(t, n.Can(CapSubmitCollection))
	assert.True(t, n.Can(CapReadOwn))
	assert.False(t, n.Can(CapSubmitQualityTest))
}

// TestEvent_MatchesBatch tests batch matching by event id and by
// embedded batch-id reference. Either match is accepted.
func TestEvent_MatchesBatch(t *testing.T) {
	collection := Event{
		ID:      "batch-1",
		Kind:    KindCollection,
		Payload: CollectionPayload{Species: "ashwagandha"},
	}
	processing := Event{
		ID:      "evt-2",
		Kind:    KindProcessing,
		Payload: ProcessingPayload{BatchID: "batch-1", Step: StepDrying},
	}
	manufacturing := Event{
		ID:      "evt-3",
		Kind:    KindManufacturing,
		Payload: ManufacturingPayload{ProductName: "capsules", BatchIDs: []string{"batch-1", "batch-2"}},
	}

	assert.True(t, collection.MatchesBatch("batch-1"), "id match")
	assert.True(t, processing.MatchesBatch("batch-1"), "payload reference match")
	assert.True(t, manufacturing.MatchesBatch("batch-2"))
	assert.False(t, processing.MatchesBatch("batch-9"))
}

// TestDecodePayload_RoundTrip tests JSON round-trip for each payload kind.
func TestDecodePayload_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
	}{
		{"collection", CollectionPayload{
			Species: "ashwagandha", FarmerID: "farmer-01", QuantityKg: 30,
			Latitude: 26.9, Longitude: 73.2,
			Quality: &QualityMetrics{MoisturePct: 8.5, ActiveCompoundPct: 0.4},
		}},
		{"processing", ProcessingPayload{BatchID: "batch-1", Step: StepDrying, TemperatureC: 55}},
		{"quality test", QualityTestPayload{BatchID: "batch-1", LabID: "lab-ayush-01"}},
		{"manufacturing", ManufacturingPayload{ProductName: "churna", BatchIDs: []string{"batch-1"}, Units: 500}},
		{"compliance", CompliancePayload{BatchID: "batch-1", Authority: "AYUSH", Notes: "ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.payload)
			require.NoError(t, err)

			decoded, err := DecodePayload(tt.payload.Kind(), data)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, decoded)
		})
	}
}

// TestDecodePayload_UnknownKind tests rejection of kinds outside the union.
func TestDecodePayload_UnknownKind(t *testing.T) {
	_, err := DecodePayload(EventKind("Transfer"), []byte(`{}`))
	assert.Error(t, err)
}

// TestLedgerError_Codes tests error construction and predicate helpers.
func TestLedgerError_Codes(t *testing.T) {
	tests := []struct {
		name string
		err  *LedgerError
		code ErrorCode
	}{
		{"invalid role", NewInvalidRoleError("admin"), ErrCodeInvalidRole},
		{"duplicate node", NewDuplicateNodeError("node-1"), ErrCodeDuplicateNode},
		{"unknown node", NewUnknownNodeError("node-9"), ErrCodeUnknownNode},
		{"inactive node", NewInactiveNodeError("node-1"), ErrCodeInactiveNode},
		{"forbidden", NewForbiddenError("node-1", KindQualityTest, CapSubmitQualityTest), ErrCodeForbidden},
		{"contract violation", NewContractViolationError("geo_fence", "outside permitted zones"), ErrCodeContractViolation},
		{"empty pool", NewEmptyPoolError(), ErrCodeEmptyPool},
		{"not found", NewNotFoundError("block", "42"), ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, CodeOf(tt.err))
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestLedgerError_RuleInMessage tests that contract violations name the rule.
func TestLedgerError_RuleInMessage(t *testing.T) {
	err := NewContractViolationError("geo_fence", "point outside permitted zones for ashwagandha")

	assert.True(t, IsContractViolation(err))
	assert.Contains(t, err.Error(), "geo_fence")
	assert.Contains(t, err.Error(), "CONTRACT_VIOLATION")
}

// TestCodeOf_NonLedgerError tests the predicate on foreign errors.
func TestCodeOf_NonLedgerError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(assert.AnError))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.False(t, IsContractViolation(assert.AnError))
}
