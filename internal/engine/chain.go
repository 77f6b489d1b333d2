package engine

import (
	"fmt"
	"strings"

	"github.com/herbtrace/ledger/internal/record"
)

// genesisPrevDigest is the synthetic previous digest of block 0.
var genesisPrevDigest = strings.Repeat("0", 64)

// chain is the append-only ordered sequence of sealed blocks.
//
// Always non-empty: index 0 is the genesis block and is never removed.
// Only sealing appends; the Ledger's mutex serializes appends with
// reads. Accessors return deep copies, never mutable references.
type chain struct {
	blocks []record.Block
}

// newChain creates a chain holding only the given genesis block.
func newChain(genesis record.Block) *chain {
	return &chain{blocks: []record.Block{genesis}}
}

// restoredChain rebuilds a chain from persisted blocks.
// The slice must be non-empty and ordered by index.
func restoredChain(blocks []record.Block) (*chain, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("chain: cannot restore from zero blocks, genesis is required")
	}
	owned := make([]record.Block, len(blocks))
	for i, b := range blocks {
		if b.Index != i {
			return nil, fmt.Errorf("chain: restored block at position %d has index %d", i, b.Index)
		}
		owned[i] = b.Clone()
	}
	return &chain{blocks: owned}, nil
}

// append adds a sealed block, enforcing the linkage invariants:
// contiguous index and exact previous-digest match. Violations are
// internal bugs (only sealing constructs blocks) and are returned as
// errors rather than silently corrupting the chain.
func (c *chain) append(b record.Block) error {
	if b.Index != len(c.blocks) {
		return fmt.Errorf("chain: block index %d does not continue chain of length %d", b.Index, len(c.blocks))
	}
	if b.PrevDigest != c.last().Digest {
		return fmt.Errorf("chain: block %d previous digest does not match chain head", b.Index)
	}
	c.blocks = append(c.blocks, b)
	return nil
}

// length returns the number of blocks including genesis.
func (c *chain) length() int {
	return len(c.blocks)
}

// last returns the most recent block without copying.
// Callers inside the engine must not retain or mutate it.
func (c *chain) last() record.Block {
	return c.blocks[len(c.blocks)-1]
}

// get returns a deep copy of the block at index.
func (c *chain) get(index int) (record.Block, error) {
	if index < 0 || index >= len(c.blocks) {
		return record.Block{}, record.NewNotFoundError("block", fmt.Sprintf("%d", index))
	}
	return c.blocks[index].Clone(), nil
}

// all returns deep copies of every block in order.
func (c *chain) all() []record.Block {
	out := make([]record.Block, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = b.Clone()
	}
	return out
}

// validate recomputes every post-genesis block digest from the block's
// own fields and checks previous-digest linkage, scanning front to
// back. Returns false at the first mismatch. Read-only and idempotent:
// repeated calls with no intervening writes yield the same result.
func (c *chain) validate(difficulty int) bool {
	prefix := strings.Repeat("0", difficulty)

	for i := 1; i < len(c.blocks); i++ {
		b := c.blocks[i]

		recomputed, err := record.BlockDigest(b, b.Nonce)
		if err != nil || recomputed != b.Digest {
			return false
		}
		if !strings.HasPrefix(b.Digest, prefix) {
			return false
		}
		if b.PrevDigest != c.blocks[i-1].Digest {
			return false
		}
	}
	return true
}

// eventCount sums events across all blocks.
func (c *chain) eventCount() int {
	n := 0
	for _, b := range c.blocks {
		n += len(b.Events)
	}
	return n
}

// history appends copies of every sealed event, in chain order, to dst
// and returns the extended slice. Used to build the rule-evaluation
// history together with the pool snapshot.
func (c *chain) history(dst []record.Event) []record.Event {
	for _, b := range c.blocks {
		for _, e := range b.Events {
			dst = append(dst, e.Clone())
		}
	}
	return dst
}
