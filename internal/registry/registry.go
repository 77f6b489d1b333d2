// Package registry maps participant identities to roles and derived
// capability sets. It is the leaf dependency of admission control.
package registry

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/herbtrace/ledger/internal/record"
)

// Registry is the in-memory node registry.
//
// Exclusive-write / shared-read discipline: registration takes the
// write lock for a single map mutation; lookups take the read lock and
// never observe a partially constructed node. All accessors return
// value copies.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]record.Node
	clock func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		nodes: make(map[string]record.Node),
		clock: time.Now,
	}
}

// NewWithClock creates a registry stamping registrations with the
// given clock. Used by tests and the deterministic harness.
func NewWithClock(clock func() time.Time) *Registry {
	r := New()
	r.clock = clock
	return r
}

// Register creates a node with the capability set derived from its
// role. Fails with InvalidRole for roles outside the fixed set and
// with DuplicateNode if the id is already present: re-registration is
// rejected, never overwritten. The node is visible to admission checks
// as soon as Register returns.
func (r *Registry) Register(id string, role record.Role, publicKey string, metadata map[string]string) (record.Node, error) {
	if !role.Valid() {
		return record.Node{}, record.NewInvalidRoleError(role)
	}

	node := record.Node{
		ID:           id,
		Role:         role,
		PublicKey:    publicKey,
		Metadata:     maps.Clone(metadata),
		Active:       true,
		Capabilities: CapabilitiesFor(role),
		RegisteredAt: r.clock(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[id]; exists {
		return record.Node{}, record.NewDuplicateNodeError(id)
	}
	r.nodes[id] = node
	return cloneNode(node), nil
}

// Get returns the node by id, or NotFound.
func (r *Registry) Get(id string) (record.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[id]
	if !ok {
		return record.Node{}, record.NewNotFoundError("node", id)
	}
	return cloneNode(node), nil
}

// IsActive reports whether the node exists and is active.
func (r *Registry) IsActive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[id]
	return ok && node.Active
}

// Deactivate marks a node inactive. Nodes are never deleted.
func (r *Registry) Deactivate(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[id]
	if !ok {
		return record.NewNotFoundError("node", id)
	}
	node.Active = false
	r.nodes[id] = node
	return nil
}

// Count returns the number of registered nodes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// All returns value copies of every registered node, ordered by id.
func (r *Registry) All() []record.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]record.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, cloneNode(n))
	}
	slices.SortFunc(out, func(a, b record.Node) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Restore inserts a previously persisted node verbatim, keeping its
// original capability set and registration time. Used by the archive
// store when reloading state; duplicate ids are rejected like Register.
func (r *Registry) Restore(node record.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[node.ID]; exists {
		return record.NewDuplicateNodeError(node.ID)
	}
	r.nodes[node.ID] = cloneNode(node)
	return nil
}

// cloneNode deep-copies mutable node fields so callers can never
// mutate registry state through a returned value.
func cloneNode(n record.Node) record.Node {
	n.Metadata = maps.Clone(n.Metadata)
	n.Capabilities = slices.Clone(n.Capabilities)
	return n
}
