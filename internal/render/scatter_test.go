package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Frontier/internal/frontier"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestScatterWritesPNG(t *testing.T) {
	plans := []frontier.Summary{
		{ID: 1, Cost: 10, Accuracy: 0.6, OnFrontier: true},
		{ID: 2, Cost: 20, Accuracy: 0.5},
		{ID: 3, Cost: 50, Accuracy: 0.8, OnFrontier: true},
	}

	var buf bytes.Buffer
	require.NoError(t, Scatter(&buf, "run", plans))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestScatterSinglePlan(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Scatter(&buf, "one", []frontier.Summary{{ID: 1, Cost: 3, Accuracy: 0.5, OnFrontier: true}}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestScatterNoPlans(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Scatter(&buf, "empty", nil), ErrNoPlans)
}

func TestSaveScatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "run.png")
	require.NoError(t, SaveScatter(path, "run", []frontier.Summary{
		{ID: 1, Cost: 1, Accuracy: 0.4, OnFrontier: true},
		{ID: 2, Cost: 2, Accuracy: 0.9, OnFrontier: true},
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestSaveScatterRemovesFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	assert.Error(t, SaveScatter(path, "run", nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPadded(t *testing.T) {
	r := padded(10, 10)
	assert.Less(t, r.Min, 10.0)
	assert.Greater(t, r.Max, 10.0)

	r = padded(0, 100)
	assert.InDelta(t, -5, r.Min, 1e-9)
	assert.InDelta(t, 105, r.Max, 1e-9)
}
