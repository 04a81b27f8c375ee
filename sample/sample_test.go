package sample_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgsim/kernel/sample"
)

func TestRegisterAndSnapshot(t *testing.T) {
	r := sample.NewRegistry()
	counter := 0

	require.NoError(t, r.Register("runs", sample.Cumulative, func() any { return counter }))
	require.NoError(t, r.Register("level", sample.Level, func() any { return 7 }))

	counter = 3
	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, sample.Value{Name: "runs", Category: sample.Cumulative, Reading: 3}, snap[0])
	assert.Equal(t, sample.Value{Name: "level", Category: sample.Level, Reading: 7}, snap[1])
}

func TestRegisterDuplicate(t *testing.T) {
	r := sample.NewRegistry()
	require.NoError(t, r.Register("x", sample.State, func() any { return nil }))
	err := r.Register("x", sample.State, func() any { return nil })
	assert.Error(t, err)
}

func TestSnapshotMap(t *testing.T) {
	r := sample.NewRegistry()
	require.NoError(t, r.Register("watermark", sample.MaxWatermark, func() any { return 5 }))
	m := r.SnapshotMap()
	assert.Equal(t, map[string]any{"watermark": 5}, m)
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "cumulative", sample.Cumulative.String())
	assert.Equal(t, "level", sample.Level.String())
	assert.Equal(t, "state", sample.State.String())
	assert.Equal(t, "max-watermark", sample.MaxWatermark.String())
}
