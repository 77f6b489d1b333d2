package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herbtrace/ledger/internal/record"
)

// harvestDay is inside the ashwagandha season of the default tables.
var harvestDay = time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)

// newTestLedger builds a deterministic ledger: manual clock, sequential
// ids, default policy, difficulty 1 to keep proof-of-work fast.
func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()

	base := []Option{
		WithClock(NewManualClock(harvestDay, time.Second)),
		WithIDGenerator(NewSequenceGenerator("evt")),
		WithDifficulty(1),
	}
	l, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return l
}

func registerHarvester(t *testing.T, l *Ledger, id string) {
	t.Helper()
	_, err := l.RegisterNode(id, record.RoleHarvester, "pk-"+id, nil)
	require.NoError(t, err)
}

func collection(farmer string, quantity float64) record.CollectionPayload {
	return record.CollectionPayload{
		Species:    "ashwagandha",
		FarmerID:   farmer,
		QuantityKg: quantity,
		Latitude:   26.3,
		Longitude:  73.0,
	}
}

// TestNew_Genesis tests that a fresh ledger has exactly the genesis
// block and that it satisfies the difficulty.
func TestNew_Genesis(t *testing.T) {
	l := newTestLedger(t)

	blocks := l.GetChain()
	require.Len(t, blocks, 1)
	genesis := blocks[0]

	assert.Equal(t, 0, genesis.Index)
	assert.Equal(t, genesisPrevDigest, genesis.PrevDigest)
	assert.Len(t, genesis.Events, 1)
	assert.Equal(t, GenesisSealerID, genesis.Events[0].ID)
	assert.Equal(t, "0", genesis.Digest[:1])
	assert.True(t, l.ValidateChain())
}

// TestSubmitEvent tests the full admission path for a valid collection.
func TestSubmitEvent(t *testing.T) {
	l := newTestLedger(t)
	registerHarvester(t, l, "node-1")

	ev, err := l.SubmitEvent("node-1", collection("farmer-01", 30))
	require.NoError(t, err)

	assert.Equal(t, "evt-0001", ev.ID)
	assert.Equal(t, record.KindCollection, ev.Kind)
	assert.Equal(t, record.RoleHarvester, ev.NodeRole, "role stamped for traceability")
	assert.Len(t, ev.Digest, 64)
	require.NotNil(t, ev.Outcome)
	assert.True(t, ev.Outcome.Passed)
	assert.Len(t, l.PendingEvents(), 1)
}

// TestSubmitEvent_Failures tests the admission error taxonomy.
func TestSubmitEvent_Failures(t *testing.T) {
	l := newTestLedger(t)
	registerHarvester(t, l, "node-1")

	t.Run("unknown node", func(t *testing.T) {
		_, err := l.SubmitEvent("node-9", collection("farmer-01", 1))
		assert.Equal(t, record.ErrCodeUnknownNode, record.CodeOf(err))
	})

	t.Run("inactive node", func(t *testing.T) {
		registerHarvester(t, l, "node-2")
		require.NoError(t, l.DeactivateNode("node-2"))
		_, err := l.SubmitEvent("node-2", collection("farmer-02", 1))
		assert.Equal(t, record.ErrCodeInactiveNode, record.CodeOf(err))
	})

	t.Run("missing capability", func(t *testing.T) {
		// A harvester may not submit quality tests.
		_, err := l.SubmitEvent("node-1", record.QualityTestPayload{BatchID: "b", LabID: "lab-ayush-01"})
		assert.Equal(t, record.ErrCodeForbidden, record.CodeOf(err))
	})

	// No failed submission reached the pool.
	assert.Empty(t, l.PendingEvents())
}

// TestAdmissionAtomicity tests that a rule failure leaves the pool
// unchanged and the event unretrievable afterward.
func TestAdmissionAtomicity(t *testing.T) {
	l := newTestLedger(t)
	registerHarvester(t, l, "node-1")

	// Delhi point: outside every permitted zone.
	bad := collection("farmer-01", 10)
	bad.Latitude, bad.Longitude = 28.6, 77.2

	_, err := l.SubmitEvent("node-1", bad)
	require.Error(t, err)
	assert.True(t, record.IsContractViolation(err))
	assert.Contains(t, err.Error(), "geo_fence")

	assert.Empty(t, l.PendingEvents())
	_, err = l.GetEventByID("evt-0001")
	assert.True(t, record.IsNotFound(err))
}

// TestDailyCeiling tests the 50kg/day bucket across pooled and sealed
// events: 30 then 25 rejects, 30 then 15 succeeds.
func TestDailyCeiling(t *testing.T) {
	t.Run("pooled events count toward the bucket", func(t *testing.T) {
		l := newTestLedger(t)
		registerHarvester(t, l, "node-1")

		_, err := l.SubmitEvent("node-1", collection("farmer-01", 30))
		require.NoError(t, err)

		_, err = l.SubmitEvent("node-1", collection("farmer-01", 25))
		require.Error(t, err)
		assert.True(t, record.IsContractViolation(err))
		assert.Contains(t, err.Error(), "daily_limit")

		_, err = l.SubmitEvent("node-1", collection("farmer-01", 15))
		assert.NoError(t, err, "45kg stays within the 50kg ceiling")
	})

	t.Run("sealed events still count toward the bucket", func(t *testing.T) {
		l := newTestLedger(t)
		registerHarvester(t, l, "node-1")

		_, err := l.SubmitEvent("node-1", collection("farmer-01", 30))
		require.NoError(t, err)
		_, err = l.SealBlock(context.Background(), "authority")
		require.NoError(t, err)

		_, err = l.SubmitEvent("node-1", collection("farmer-01", 25))
		assert.True(t, record.IsContractViolation(err))
	})
}

// TestSealBlock tests that sealing drains the pool exactly once into a
// linked block preserving admission order.
func TestSealBlock(t *testing.T) {
	l := newTestLedger(t)
	registerHarvester(t, l, "node-1")

	first, err := l.SubmitEvent("node-1", collection("farmer-01", 10))
	require.NoError(t, err)
	second, err := l.SubmitEvent("node-1", collection("farmer-02", 10))
	require.NoError(t, err)

	block, err := l.SealBlock(context.Background(), "authority")
	require.NoError(t, err)

	assert.Equal(t, 1, block.Index)
	assert.Equal(t, "authority", block.SealerID)
	assert.Equal(t, "0", block.Digest[:1], "difficulty prefix")
	require.Len(t, block.Events, 2)
	assert.Equal(t, first.ID, block.Events[0].ID, "admission order preserved")
	assert.Equal(t, second.ID, block.Events[1].ID)

	prev, err := l.GetBlock(0)
	require.NoError(t, err)
	assert.Equal(t, prev.Digest, block.PrevDigest)

	// Drained exactly once: pool empty, events only in the new block.
	assert.Empty(t, l.PendingEvents())
	assert.True(t, l.ValidateChain())

	found, err := l.GetEventByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

// TestSealBlock_EmptyPool tests the explicit empty-pool rejection.
func TestSealBlock_EmptyPool(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.SealBlock(context.Background(), "authority")
	require.Error(t, err)
	assert.True(t, record.IsEmptyPool(err))
	assert.Len(t, l.GetChain(), 1, "chain length unchanged")
}

// TestSealBlock_Cancelled tests that abandoning a seal mid proof-of-work
// restores the drained events in their original order.
func TestSealBlock_Cancelled(t *testing.T) {
	// The search observes the context before the first attempt, so a
	// pre-cancelled context abandons the seal deterministically.
	l := newTestLedger(t)
	registerHarvester(t, l, "node-1")

	_, err := l.SubmitEvent("node-1", collection("farmer-01", 10))
	require.NoError(t, err)
	_, err = l.SubmitEvent("node-1", collection("farmer-02", 10))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = l.SealBlock(ctx, "authority")
	require.ErrorIs(t, err, context.Canceled)

	pending := l.PendingEvents()
	require.Len(t, pending, 2, "drained snapshot reinserted")
	assert.Equal(t, "evt-0001", pending[0].ID)
	assert.Equal(t, "evt-0002", pending[1].ID)
	assert.Len(t, l.GetChain(), 1, "nothing appended")
}

// TestChainIntegrity tests that tampering with a sealed event makes
// Validate return false; untouched chains stay valid and validation is
// idempotent.
func TestChainIntegrity(t *testing.T) {
	l := newTestLedger(t)
	registerHarvester(t, l, "node-1")

	for i := 0; i < 3; i++ {
		_, err := l.SubmitEvent("node-1", collection(fmt.Sprintf("farmer-%02d", i), 10))
		require.NoError(t, err)
		_, err = l.SealBlock(context.Background(), "authority")
		require.NoError(t, err)
	}

	require.True(t, l.ValidateChain())
	require.True(t, l.ValidateChain(), "idempotent with no intervening writes")

	// Reach into the chain (test-only) and tamper with a payload.
	tampered := l.chain.blocks[2].Events[0].Payload.(record.CollectionPayload)
	tampered.QuantityKg = 900
	l.chain.blocks[2].Events[0].Payload = tampered

	assert.False(t, l.ValidateChain(), "payload tamper detected")
}

// TestChainIntegrity_Relink tests that recomputing a tampered block's
// digest still breaks the chain at the linkage check.
func TestChainIntegrity_Relink(t *testing.T) {
	l := newTestLedger(t)
	registerHarvester(t, l, "node-1")

	for i := 0; i < 2; i++ {
		_, err := l.SubmitEvent("node-1", collection(fmt.Sprintf("farmer-%02d", i), 10))
		require.NoError(t, err)
		_, err = l.SealBlock(context.Background(), "authority")
		require.NoError(t, err)
	}

	// Tamper with block 1 and re-mine it so its own digest is
	// self-consistent again.
	b := l.chain.blocks[1]
	payload := b.Events[0].Payload.(record.CollectionPayload)
	payload.QuantityKg = 900
	b.Events[0].Payload = payload
	remined, err := mineBlock(context.Background(), b, 1)
	require.NoError(t, err)
	l.chain.blocks[1] = remined

	assert.False(t, l.ValidateChain(), "block 2 previous-digest linkage broken")
}

// TestAppendOnly tests that chain length never decreases and previously
// returned blocks never change.
func TestAppendOnly(t *testing.T) {
	l := newTestLedger(t)
	registerHarvester(t, l, "node-1")

	_, err := l.SubmitEvent("node-1", collection("farmer-01", 10))
	require.NoError(t, err)
	sealed, err := l.SealBlock(context.Background(), "authority")
	require.NoError(t, err)

	before, err := l.GetBlock(1)
	require.NoError(t, err)

	_, err = l.SubmitEvent("node-1", collection("farmer-02", 10))
	require.NoError(t, err)
	_, err = l.SealBlock(context.Background(), "authority")
	require.NoError(t, err)

	after, err := l.GetBlock(1)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, sealed.Digest, after.Digest)
	assert.Len(t, l.GetChain(), 3)
}

// TestReadViewsAreCopies tests that mutating returned blocks or events
// does not affect ledger state.
func TestReadViewsAreCopies(t *testing.T) {
	l := newTestLedger(t)
	registerHarvester(t, l, "node-1")

	_, err := l.SubmitEvent("node-1", collection("farmer-01", 10))
	require.NoError(t, err)
	_, err = l.SealBlock(context.Background(), "authority")
	require.NoError(t, err)

	view, err := l.GetBlock(1)
	require.NoError(t, err)
	p := view.Events[0].Payload.(record.CollectionPayload)
	p.QuantityKg = 999
	view.Events[0].Payload = p

	assert.True(t, l.ValidateChain(), "mutation of a copy never reaches the chain")
}

// TestGetEventsByBatch tests batch lineage lookup across sealed and
// pending events.
func TestGetEventsByBatch(t *testing.T) {
	l := newTestLedger(t)
	registerHarvester(t, l, "node-1")
	_, err := l.RegisterNode("node-2", record.RoleProcessor, "pk", nil)
	require.NoError(t, err)

	origin, err := l.SubmitEvent("node-1", collection("farmer-01", 10))
	require.NoError(t, err)
	_, err = l.SealBlock(context.Background(), "authority")
	require.NoError(t, err)

	// Pending processing step referencing the sealed batch.
	step, err := l.SubmitEvent("node-2", record.ProcessingPayload{
		BatchID: origin.ID, Step: record.StepDrying, TemperatureC: 50,
	})
	require.NoError(t, err)

	events, err := l.GetEventsByBatch(origin.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, origin.ID, events[0].ID)
	assert.Equal(t, step.ID, events[1].ID)

	_, err = l.GetEventsByBatch("batch-missing")
	assert.True(t, record.IsNotFound(err))
}

// TestGetBlock_NotFound tests block lookup misses.
func TestGetBlock_NotFound(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.GetBlock(5)
	assert.True(t, record.IsNotFound(err))
	_, err = l.GetBlock(-1)
	assert.True(t, record.IsNotFound(err))
}

// TestStats tests the summary counters.
func TestStats(t *testing.T) {
	l := newTestLedger(t)
	registerHarvester(t, l, "node-1")

	_, err := l.SubmitEvent("node-1", collection("farmer-01", 10))
	require.NoError(t, err)
	sealed, err := l.SealBlock(context.Background(), "authority")
	require.NoError(t, err)
	_, err = l.SubmitEvent("node-1", collection("farmer-02", 10))
	require.NoError(t, err)

	s := l.Stats()
	assert.Equal(t, 2, s.Blocks)
	assert.Equal(t, 2, s.Events, "genesis event plus one sealed")
	assert.Equal(t, 1, s.EventsByKind[record.KindCollection])
	assert.Equal(t, 1, s.Nodes)
	assert.Equal(t, 1, s.Pending)
	assert.True(t, s.Valid)
	assert.Equal(t, sealed.Timestamp, s.LatestBlockTime)
}

// TestConcurrentSubmitAndSeal tests that parallel admissions and seals
// never lose or duplicate an event.
func TestConcurrentSubmitAndSeal(t *testing.T) {
	l, err := New(
		WithIDGenerator(UUIDv7Generator{}),
		WithClock(NewManualClock(harvestDay, time.Millisecond)),
		WithDifficulty(1),
	)
	require.NoError(t, err)

	// Distinct farmers so the daily ceiling never rejects.
	for i := 0; i < 8; i++ {
		registerHarvester(t, l, fmt.Sprintf("node-%d", i))
	}

	const perNode = 5
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perNode; j++ {
				_, err := l.SubmitEvent(fmt.Sprintf("node-%d", n), collection(fmt.Sprintf("farmer-%d", n), 1))
				assert.NoError(t, err)
			}
		}(i)
	}
	// Interleave seals; EmptyPool is acceptable when submissions lag.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			_, err := l.SealBlock(context.Background(), "authority")
			if err != nil {
				assert.True(t, record.IsEmptyPool(err))
			}
		}
	}()
	wg.Wait()

	// Final seal for any stragglers.
	if _, err := l.SealBlock(context.Background(), "authority"); err != nil {
		assert.True(t, record.IsEmptyPool(err))
	}

	s := l.Stats()
	assert.Equal(t, 0, s.Pending)
	assert.Equal(t, 8*perNode+1, s.Events, "every admission sealed exactly once")
	assert.True(t, s.Valid)
}
