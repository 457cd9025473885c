package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid(t *testing.T) {
	free := NewGrid(true)
	require.Len(t, free, GridDays)
	for d := range free {
		require.Len(t, free[d], GridBins)
	}
	assert.True(t, free.At(0, 0))
	assert.True(t, free.At(GridDays-1, GridBins-1))

	busy := NewGrid(false)
	assert.False(t, busy.At(2, 10))
}

func TestGridNormalizeClampsToBusy(t *testing.T) {
	partial := AvailabilityGrid{
		{true, true},
		{false, true, true},
	}
	norm := partial.Normalize()
	require.Len(t, norm, GridDays)
	assert.True(t, norm.At(0, 0))
	assert.True(t, norm.At(1, 2))
	assert.False(t, norm.At(0, 2))
	assert.False(t, norm.At(2, 0))
	assert.False(t, norm.At(4, GridBins-1))

	// Rows past the fixed shape are dropped.
	tall := make(AvailabilityGrid, GridDays+2)
	for d := range tall {
		tall[d] = []bool{true}
	}
	norm = tall.Normalize()
	require.Len(t, norm, GridDays)
}

func TestGridAtBounds(t *testing.T) {
	grid := NewGrid(true)
	assert.False(t, grid.At(-1, 0))
	assert.False(t, grid.At(0, -1))
	assert.False(t, grid.At(GridDays, 0))
	assert.False(t, grid.At(0, GridBins))
}

func TestIntersect(t *testing.T) {
	a := NewGrid(false)
	a[0][0] = true
	a[0][1] = true
	b := NewGrid(false)
	b[0][1] = true
	b[0][2] = true

	out := Intersect(a, b)
	assert.False(t, out.At(0, 0))
	assert.True(t, out.At(0, 1))
	assert.False(t, out.At(0, 2))

	// No inputs means nobody is free.
	empty := Intersect()
	assert.False(t, empty.At(0, 0))

	// A short grid participates as busy outside its shape.
	out = Intersect(NewGrid(true), AvailabilityGrid{{true}})
	assert.True(t, out.At(0, 0))
	assert.False(t, out.At(0, 1))
	assert.False(t, out.At(1, 0))
}

func TestSlotLabel(t *testing.T) {
	assert.Equal(t, "Monday 08:00-08:30", SlotLabel(0, 0, SlotDurationBins))
	assert.Equal(t, "Wednesday 09:15-09:45", SlotLabel(2, 5, SlotDurationBins))
	assert.Equal(t, "Friday 15:30-16:00", SlotLabel(4, GridBins-SlotDurationBins, SlotDurationBins))
	assert.Equal(t, "Tuesday 08:00-08:15", SlotLabel(1, 0, 1))
}

func TestGridValueScanRoundTrip(t *testing.T) {
	grid := NewGrid(false)
	grid[1][4] = true

	raw, err := grid.Value()
	require.NoError(t, err)

	var restored AvailabilityGrid
	require.NoError(t, restored.Scan(raw))
	assert.True(t, restored.At(1, 4))
	assert.False(t, restored.At(1, 5))

	var fromNil AvailabilityGrid
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)
}
