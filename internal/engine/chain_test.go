package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herbtrace/ledger/internal/record"
)

func testGenesis(t *testing.T) record.Block {
	t.Helper()
	b := record.Block{
		Index:      0,
		Timestamp:  harvestDay,
		Events:     []record.Event{},
		PrevDigest: genesisPrevDigest,
		SealerID:   GenesisSealerID,
	}
	mined, err := mineBlock(context.Background(), b, 1)
	require.NoError(t, err)
	return mined
}

func sealAfter(t *testing.T, prev record.Block, events []record.Event) record.Block {
	t.Helper()
	b := record.Block{
		Index:      prev.Index + 1,
		Timestamp:  prev.Timestamp.Add(time.Minute),
		Events:     events,
		PrevDigest: prev.Digest,
		SealerID:   "authority",
	}
	mined, err := mineBlock(context.Background(), b, 1)
	require.NoError(t, err)
	return mined
}

func TestChainAppend(t *testing.T) {
	genesis := testGenesis(t)
	c := newChain(genesis)

	next := sealAfter(t, genesis, nil)
	require.NoError(t, c.append(next))
	assert.Equal(t, 2, c.length())
	assert.Equal(t, next.Digest, c.last().Digest)

	t.Run("non-contiguous index rejected", func(t *testing.T) {
		bad := sealAfter(t, next, nil)
		bad.Index = 5
		assert.Error(t, c.append(bad))
		assert.Equal(t, 2, c.length())
	})

	t.Run("broken linkage rejected", func(t *testing.T) {
		bad := sealAfter(t, next, nil)
		bad.PrevDigest = genesisPrevDigest
		assert.Error(t, c.append(bad))
		assert.Equal(t, 2, c.length())
	})
}

func TestChainValidate(t *testing.T) {
	genesis := testGenesis(t)
	c := newChain(genesis)
	require.NoError(t, c.append(sealAfter(t, genesis, nil)))

	assert.True(t, c.validate(1))

	t.Run("nonce tamper detected", func(t *testing.T) {
		saved := c.blocks[1].Nonce
		c.blocks[1].Nonce = saved + 1
		assert.False(t, c.validate(1))
		c.blocks[1].Nonce = saved
		assert.True(t, c.validate(1))
	})

	t.Run("sealer tamper detected", func(t *testing.T) {
		saved := c.blocks[1].SealerID
		c.blocks[1].SealerID = "intruder"
		assert.False(t, c.validate(1))
		c.blocks[1].SealerID = saved
	})

	t.Run("difficulty shortfall detected", func(t *testing.T) {
		// A digest valid at difficulty 1 will usually fail a much
		// stricter prefix requirement.
		if c.blocks[1].Digest[:8] != "00000000" {
			assert.False(t, c.validate(8))
		}
	})
}

func TestRestoredChain(t *testing.T) {
	genesis := testGenesis(t)
	next := sealAfter(t, genesis, nil)

	c, err := restoredChain([]record.Block{genesis, next})
	require.NoError(t, err)
	assert.Equal(t, 2, c.length())
	assert.True(t, c.validate(1))

	t.Run("empty rejected", func(t *testing.T) {
		_, err := restoredChain(nil)
		assert.Error(t, err)
	})

	t.Run("misordered rejected", func(t *testing.T) {
		_, err := restoredChain([]record.Block{next, genesis})
		assert.Error(t, err)
	})
}

func TestChainGet(t *testing.T) {
	c := newChain(testGenesis(t))

	got, err := c.get(0)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Index)

	_, err = c.get(1)
	assert.True(t, record.IsNotFound(err))
	_, err = c.get(-1)
	assert.True(t, record.IsNotFound(err))
}
