package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herbtrace/ledger/internal/record"
)

func poolEvent(id string) record.Event {
	return record.Event{
		ID:       id,
		Kind:     record.KindCollection,
		NodeID:   "node-1",
		NodeRole: record.RoleHarvester,
		Payload:  record.CollectionPayload{Species: "tulsi", FarmerID: "f", QuantityKg: 1, Latitude: 27, Longitude: 78},
	}
}

func TestPoolDrain(t *testing.T) {
	p := newPool()
	p.append(poolEvent("a"))
	p.append(poolEvent("b"))
	require.Equal(t, 2, p.size())

	drained := p.drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "a", drained[0].ID)
	assert.Equal(t, "b", drained[1].ID)
	assert.Equal(t, 0, p.size())

	assert.Empty(t, p.drain(), "second drain yields nothing")
}

func TestPoolReinsertFront(t *testing.T) {
	p := newPool()
	p.append(poolEvent("a"))
	p.append(poolEvent("b"))
	drained := p.drain()

	// Admission continues while the seal is in flight.
	p.append(poolEvent("c"))

	p.reinsertFront(drained)
	snap := p.snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "b", snap[1].ID)
	assert.Equal(t, "c", snap[2].ID)

	p.reinsertFront(nil) // no-op
	assert.Equal(t, 3, p.size())
}

func TestPoolSnapshotIsolation(t *testing.T) {
	p := newPool()
	p.append(poolEvent("a"))

	snap := p.snapshot()
	snap[0].ID = "mutated"

	assert.Equal(t, "a", p.snapshot()[0].ID)
}
