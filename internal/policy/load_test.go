package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadFile tests decoding a well-formed CUE policy file.
func TestLoadFile(t *testing.T) {
	p, err := LoadFile(filepath.Join("testdata", "policy.cue"))
	require.NoError(t, err)

	require.Contains(t, p.GeoFences, "ashwagandha")
	require.Len(t, p.GeoFences["ashwagandha"], 1)
	assert.Equal(t, 23.0, p.GeoFences["ashwagandha"][0].MinLat)

	assert.Equal(t, []int{10, 11, 12, 1, 2, 3}, p.Seasons["ashwagandha"])
	assert.Equal(t, 50.0, p.DailyLimitKg["ashwagandha"])
	assert.Equal(t, 10.0, p.Quality["ashwagandha"].MoistureMaxPct)
	assert.True(t, p.CertifiedLab("lab-nabl-07"))
	assert.Equal(t, 60.0, p.Processing.DryingMaxTempC)
	assert.Equal(t, 80.0, p.Processing.GrindingMinMesh)
}

// TestLoadFile_InvalidMonth tests that Validate rejects bad tables
// even when the CUE itself compiles.
func TestLoadFile_InvalidMonth(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "bad_month.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "month")
}

// TestLoadFile_MissingPolicyStruct tests the required top-level struct.
func TestLoadFile_MissingPolicyStruct(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.cue")
	require.NoError(t, os.WriteFile(path, []byte(`other: {}`), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "policy")
}

// TestLoadFile_BadSyntax tests CUE compile errors surface with position.
func TestLoadFile_BadSyntax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte(`policy: {`), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

// TestLoadFile_Missing tests the file-not-found path.
func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.cue"))
	assert.Error(t, err)
}
