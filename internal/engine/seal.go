package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/herbtrace/ledger/internal/record"
)

// DefaultDifficulty is the process-wide proof-of-work difficulty: the
// number of leading zero characters required on a block digest.
const DefaultDifficulty = 2

// mineBlock performs the proof-of-work search: starting at nonce 0,
// recompute the block digest and increment until it carries the
// difficulty prefix. The search terminates in practice because the
// digest space is effectively uniform and the difficulty is small.
//
// The context is observed periodically so a caller can abandon a seal;
// the caller is responsible for restoring any drained pool state on
// cancellation.
func mineBlock(ctx context.Context, b record.Block, difficulty int) (record.Block, error) {
	prefix := strings.Repeat("0", difficulty)

	for nonce := int64(0); ; nonce++ {
		if nonce&0x3ff == 0 { // check every 1024 attempts
			select {
			case <-ctx.Done():
				return record.Block{}, ctx.Err()
			default:
			}
		}

		digest, err := record.BlockDigest(b, nonce)
		if err != nil {
			return record.Block{}, fmt.Errorf("mine block %d: %w", b.Index, err)
		}
		if strings.HasPrefix(digest, prefix) {
			b.Nonce = nonce
			b.Digest = digest
			return b, nil
		}
	}
}
