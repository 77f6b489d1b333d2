package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}

	a, b := g.Generate(), g.Generate()
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("evt")

	assert.Equal(t, "evt-0001", g.Generate())
	assert.Equal(t, "evt-0002", g.Generate())
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("x", "y")

	assert.Equal(t, "x", g.Generate())
	assert.Equal(t, "y", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
