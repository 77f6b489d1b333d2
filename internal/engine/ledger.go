// Package engine is the ledger core: transaction admission over the
// node registry and rule engine, the pending pool, proof-of-work
// sealing, and chain-integrity verification.
//
// Concurrency model: a single exclusive mutex guards the pool and the
// chain (the full event history rule evaluation reads). Admission and
// sealing are mutually exclusive critical sections - a seal sees a
// consistent, final snapshot of the pool and an admission is never
// lost or double-counted. The registry carries its own read-write
// lock. The proof-of-work search runs outside the mutex; cancellation
// restores the drained snapshot so a partially completed search never
// corrupts pool or chain state.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/herbtrace/ledger/internal/policy"
	"github.com/herbtrace/ledger/internal/record"
	"github.com/herbtrace/ledger/internal/registry"
	"github.com/herbtrace/ledger/internal/rules"
)

// GenesisSealerID marks the synthetic genesis block and event.
const GenesisSealerID = "genesis"

// Archive is the optional persistence collaborator. The core stays an
// in-memory ledger; an archive receives write-through copies of nodes,
// pooled events, and sealed blocks, and supplies them back at startup.
// Implemented by the SQLite store.
type Archive interface {
	SaveNode(node record.Node) error
	AppendPoolEvent(event record.Event) error
	// SaveBlock persists a sealed block and removes its events from
	// the persisted pool in the same transaction.
	SaveBlock(block record.Block) error
	LoadNodes() ([]record.Node, error)
	LoadBlocks() ([]record.Block, error)
	LoadPoolEvents() ([]record.Event, error)
}

// Ledger is the single-authority ledger engine.
type Ledger struct {
	mu    sync.Mutex // guards pool and chain
	pool  *pool
	chain *chain

	registry   *registry.Registry
	rules      *rules.Engine
	clock      Clock
	ids        IDGenerator
	difficulty int
	archive    Archive
}

// Option configures a Ledger at construction.
type Option func(*Ledger)

// WithDifficulty sets the proof-of-work difficulty (leading zero
// characters on block digests). Default 2.
func WithDifficulty(n int) Option {
	return func(l *Ledger) { l.difficulty = n }
}

// WithClock replaces the system clock. Used for deterministic tests
// and scenario replay.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithIDGenerator replaces the UUIDv7 event id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(l *Ledger) { l.ids = g }
}

// WithPolicy replaces the built-in rule tables.
func WithPolicy(p *policy.Policy) Option {
	return func(l *Ledger) { l.rules = rules.New(p) }
}

// WithArchive attaches a persistence collaborator. Existing archived
// state is loaded at construction; subsequent registrations,
// admissions, and seals are written through.
func WithArchive(a Archive) Option {
	return func(l *Ledger) { l.archive = a }
}

// New creates a ledger with a freshly sealed genesis block (or, when
// an archive holds prior state, the restored chain and pool).
func New(opts ...Option) (*Ledger, error) {
	l := &Ledger{
		pool:       newPool(),
		registry:   registry.New(),
		rules:      rules.New(policy.Default()),
		clock:      NewSystemClock(),
		ids:        UUIDv7Generator{},
		difficulty: DefaultDifficulty,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.archive != nil {
		if err := l.restore(); err != nil {
			return nil, err
		}
	}
	if l.chain == nil {
		genesis, err := l.sealGenesis()
		if err != nil {
			return nil, err
		}
		l.chain = newChain(genesis)
		if l.archive != nil {
			if err := l.archive.SaveBlock(genesis); err != nil {
				return nil, err
			}
		}
	}
	return l, nil
}

// restore loads nodes, blocks, and pending events from the archive.
func (l *Ledger) restore() error {
	nodes, err := l.archive.LoadNodes()
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := l.registry.Restore(n); err != nil {
			return err
		}
	}

	blocks, err := l.archive.LoadBlocks()
	if err != nil {
		return err
	}
	if len(blocks) > 0 {
		c, err := restoredChain(blocks)
		if err != nil {
			return err
		}
		l.chain = c
	}

	pending, err := l.archive.LoadPoolEvents()
	if err != nil {
		return err
	}
	for _, e := range pending {
		l.pool.append(e)
	}
	return nil
}

// sealGenesis builds and mines block 0 around a single synthetic
// genesis event.
func (l *Ledger) sealGenesis() (record.Block, error) {
	ts := l.clock.Now()
	payload := record.CompliancePayload{
		BatchID:   GenesisSealerID,
		Authority: "herbtrace",
		Notes:     "genesis block",
	}
	digest, err := record.EventDigest(GenesisSealerID, record.KindCompliance, GenesisSealerID, record.RoleRegulator, payload, ts)
	if err != nil {
		return record.Block{}, err
	}

	genesis := record.Block{
		Index:      0,
		Timestamp:  ts,
		PrevDigest: genesisPrevDigest,
		SealerID:   GenesisSealerID,
		Events: []record.Event{{
			ID:        GenesisSealerID,
			Kind:      record.KindCompliance,
			NodeID:    GenesisSealerID,
			NodeRole:  record.RoleRegulator,
			Payload:   payload,
			Timestamp: ts,
			Digest:    digest,
		}},
	}
	return mineBlock(context.Background(), genesis, l.difficulty)
}

// RegisterNode registers a participant and derives its capability set.
// Fails with InvalidRole or DuplicateNode; on success the node is
// immediately visible to admission checks.
func (l *Ledger) RegisterNode(id string, role record.Role, publicKey string, metadata map[string]string) (record.Node, error) {
	node, err := l.registry.Register(id, role, publicKey, metadata)
	if err != nil {
		return record.Node{}, err
	}

	if l.archive != nil {
		if err := l.archive.SaveNode(node); err != nil {
			// The in-memory registration stands; archiving is
			// write-behind and must not fail the operation.
			slog.Error("archive node write failed", "node", node.ID, "error", err)
		}
	}
	slog.Info("node registered", "node", node.ID, "role", node.Role)
	return node, nil
}

// GetNode returns the registered node by id, or NotFound.
func (l *Ledger) GetNode(id string) (record.Node, error) {
	return l.registry.Get(id)
}

// DeactivateNode marks a node inactive; its events remain on the chain.
func (l *Ledger) DeactivateNode(id string) error {
	return l.registry.Deactivate(id)
}

// SubmitEvent runs admission for a candidate event: node lookup,
// capability check, digest computation, rule evaluation against the
// full history (sealed plus pooled), and pool append. The event kind
// is carried by the payload's type.
//
// Admission is atomic: on any failure nothing is appended and the
// event is not retrievable afterward. The returned event includes the
// attached validation outcome.
func (l *Ledger) SubmitEvent(nodeID string, payload record.Payload) (record.Event, error) {
	kind := payload.Kind()

	node, err := l.registry.Get(nodeID)
	if err != nil {
		return record.Event{}, record.NewUnknownNodeError(nodeID)
	}
	if !node.Active {
		return record.Event{}, record.NewInactiveNodeError(nodeID)
	}

	required, ok := registry.RequiredCapability(kind)
	if !ok || !node.Can(required) {
		return record.Event{}, record.NewForbiddenError(nodeID, kind, required)
	}

	event := record.Event{
		ID:        l.ids.Generate(),
		Kind:      kind,
		NodeID:    nodeID,
		NodeRole:  node.Role, // stamped for traceability
		Payload:   payload,
		Timestamp: l.clock.Now(),
	}
	digest, err := record.EventDigest(event.ID, kind, nodeID, node.Role, payload, event.Timestamp)
	if err != nil {
		return record.Event{}, err
	}
	event.Digest = digest

	// Admission holds the ledger mutex across rule evaluation so
	// that two submissions counting toward the same daily-ceiling
	// bucket serialize; evaluation is in-memory and bounded, so the
	// critical section stays short.
	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.chain.history(nil)
	history = append(history, l.pool.snapshot()...)

	outcome, err := l.rules.Evaluate(event, history)
	if err != nil {
		return record.Event{}, err
	}
	if !outcome.Passed {
		failure, _ := rules.FirstFailure(outcome)
		slog.Info("event rejected", "node", nodeID, "kind", kind, "rule", failure.Rule, "reason", failure.Reason)
		return record.Event{}, record.NewContractViolationError(failure.Rule, failure.Reason)
	}

	event.Outcome = &outcome
	l.pool.append(event)

	if l.archive != nil {
		if err := l.archive.AppendPoolEvent(event); err != nil {
			slog.Error("archive pool write failed", "event", event.ID, "error", err)
		}
	}
	slog.Debug("event admitted", "event", event.ID, "kind", kind, "pool", l.pool.size())
	return event.Clone(), nil
}

// SealBlock drains the pool into a new proof-of-work block appended to
// the chain. Fails with EmptyPool when nothing is pending (the pool is
// left unchanged). Once the drain has happened the seal completes
// unless ctx is cancelled, in which case the drained events are
// reinserted at the front of the pool in their original order.
func (l *Ledger) SealBlock(ctx context.Context, sealerID string) (record.Block, error) {
	l.mu.Lock()
	if l.pool.size() == 0 {
		l.mu.Unlock()
		return record.Block{}, record.NewEmptyPoolError()
	}
	drained := l.pool.drain()
	candidate := record.Block{
		Index:      l.chain.length(),
		Timestamp:  l.clock.Now(),
		Events:     drained,
		PrevDigest: l.chain.last().Digest,
		SealerID:   sealerID,
	}
	l.mu.Unlock()

	sealed, err := mineBlock(ctx, candidate, l.difficulty)
	if err != nil {
		// Cancellation mid-search: restore the snapshot so no
		// admission is lost and order is preserved.
		l.mu.Lock()
		l.pool.reinsertFront(drained)
		l.mu.Unlock()
		slog.Warn("seal abandoned, pool restored", "events", len(drained), "error", err)
		return record.Block{}, err
	}

	l.mu.Lock()
	if err := l.chain.append(sealed); err != nil {
		l.pool.reinsertFront(drained)
		l.mu.Unlock()
		return record.Block{}, err
	}
	l.mu.Unlock()

	if l.archive != nil {
		if err := l.archive.SaveBlock(sealed); err != nil {
			// The chain append stands; sealing must complete once
			// the pool is drained.
			slog.Error("archive block write failed", "block", sealed.Index, "error", err)
		}
	}
	slog.Info("block sealed", "block", sealed.Index, "events", len(sealed.Events), "nonce", sealed.Nonce)
	return sealed.Clone(), nil
}

// GetChain returns deep copies of all blocks in order.
func (l *Ledger) GetChain() []record.Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chain.all()
}

// GetBlock returns the block at index, or NotFound.
func (l *Ledger) GetBlock(index int) (record.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chain.get(index)
}

// GetEventByID finds an event by id among sealed blocks and the
// pending pool, or NotFound.
func (l *Ledger) GetEventByID(id string) (record.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, b := range l.chain.blocks {
		for _, e := range b.Events {
			if e.ID == id {
				return e.Clone(), nil
			}
		}
	}
	for _, e := range l.pool.events {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return record.Event{}, record.NewNotFoundError("event", id)
}

// GetEventsByBatch returns every event belonging to the batch, sealed
// and pending, in recorded order. A batch with no events is NotFound.
func (l *Ledger) GetEventsByBatch(batchID string) ([]record.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []record.Event
	for _, b := range l.chain.blocks {
		for _, e := range b.Events {
			if e.MatchesBatch(batchID) {
				out = append(out, e.Clone())
			}
		}
	}
	for _, e := range l.pool.events {
		if e.MatchesBatch(batchID) {
			out = append(out, e.Clone())
		}
	}
	if len(out) == 0 {
		return nil, record.NewNotFoundError("batch", batchID)
	}
	return out, nil
}

// PendingEvents returns deep copies of the pool content in admission order.
func (l *Ledger) PendingEvents() []record.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.snapshot()
}

// ValidateChain verifies stored digests and previous-digest linkage
// across the whole chain. Read-only; safe to run at any time.
func (l *Ledger) ValidateChain() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chain.validate(l.difficulty)
}

// Stats summarizes ledger state.
type Stats struct {
	Blocks          int                       `json:"blocks"`
	Events          int                       `json:"events"`
	EventsByKind    map[record.EventKind]int  `json:"events_by_kind"`
	Nodes           int                       `json:"nodes"`
	Pending         int                       `json:"pending"`
	Valid           bool                      `json:"valid"`
	LatestBlockTime time.Time                 `json:"latest_block_time"`
}

// Stats returns block, event, node, and pool counts plus chain
// validity and the latest block timestamp.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	byKind := make(map[record.EventKind]int)
	for _, b := range l.chain.blocks {
		for _, e := range b.Events {
			byKind[e.Kind]++
		}
	}

	return Stats{
		Blocks:          l.chain.length(),
		Events:          l.chain.eventCount(),
		EventsByKind:    byKind,
		Nodes:           l.registry.Count(),
		Pending:         l.pool.size(),
		Valid:           l.chain.validate(l.difficulty),
		LatestBlockTime: l.chain.last().Timestamp,
	}
}

// Nodes returns all registered nodes ordered by id.
func (l *Ledger) Nodes() []record.Node {
	return l.registry.All()
}
