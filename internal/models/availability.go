package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Grid dimensions: Monday-Friday, 15-minute bins spanning 08:00-16:00.
const (
	GridDays     = 5
	GridBins     = 32
	DayStartHour = 8
	BinMinutes   = 15
)

// DayNames maps day indexes to display names.
var DayNames = [GridDays]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// OwnerKind identifies which entity an availability grid belongs to.
type OwnerKind string

// Supported availability owners.
const (
	OwnerKindRoom       OwnerKind = "ROOM"
	OwnerKindSupervisor OwnerKind = "SUPERVISOR"
	OwnerKindStudent    OwnerKind = "STUDENT"
)

// ValidOwnerKind reports whether the kind is one of the supported owners.
func ValidOwnerKind(kind OwnerKind) bool {
	switch kind {
	case OwnerKindRoom, OwnerKindSupervisor, OwnerKindStudent:
		return true
	}
	return false
}

// AvailabilityGrid is a day x bin free/busy matrix. A cell is true when the
// owner is free. Cells outside the stored shape are treated as busy.
type AvailabilityGrid [][]bool

// Value serialises the grid as JSON for storage.
func (g AvailabilityGrid) Value() (driver.Value, error) {
	if g == nil {
		g = AvailabilityGrid{}
	}
	raw, err := json.Marshal([][]bool(g))
	if err != nil {
		return nil, fmt.Errorf("marshal availability grid: %w", err)
	}
	return string(raw), nil
}

// Scan restores the grid from its JSON storage form.
func (g *AvailabilityGrid) Scan(src interface{}) error {
	if src == nil {
		*g = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported availability grid source %T", src)
	}
	var cells [][]bool
	if err := json.Unmarshal(raw, &cells); err != nil {
		return fmt.Errorf("unmarshal availability grid: %w", err)
	}
	*g = cells
	return nil
}

// NewGrid returns a full-shape grid with every cell set to the given state.
func NewGrid(free bool) AvailabilityGrid {
	grid := make(AvailabilityGrid, GridDays)
	for d := range grid {
		grid[d] = make([]bool, GridBins)
		for b := range grid[d] {
			grid[d][b] = free
		}
	}
	return grid
}

// Normalize returns a copy clamped to the fixed shape. Missing rows or cells
// default to busy (closed-world).
func (g AvailabilityGrid) Normalize() AvailabilityGrid {
	grid := NewGrid(false)
	for d := 0; d < GridDays && d < len(g); d++ {
		for b := 0; b < GridBins && b < len(g[d]); b++ {
			grid[d][b] = g[d][b]
		}
	}
	return grid
}

// At reports whether the owner is free at the given cell.
func (g AvailabilityGrid) At(day, bin int) bool {
	if day < 0 || day >= len(g) || bin < 0 || bin >= len(g[day]) {
		return false
	}
	return g[day][bin]
}

// Intersect computes the cell-wise conjunction of all grids: a cell is free
// only when every contributing grid is free there. Inputs are normalized first.
func Intersect(grids ...AvailabilityGrid) AvailabilityGrid {
	result := NewGrid(true)
	if len(grids) == 0 {
		return NewGrid(false)
	}
	for _, g := range grids {
		norm := g.Normalize()
		for d := 0; d < GridDays; d++ {
			for b := 0; b < GridBins; b++ {
				result[d][b] = result[d][b] && norm[d][b]
			}
		}
	}
	return result
}

// SlotLabel formats a window as "<DayName> HH:MM-HH:MM".
func SlotLabel(dayIndex, startBin, durationBins int) string {
	startMinutes := DayStartHour*60 + startBin*BinMinutes
	endMinutes := startMinutes + durationBins*BinMinutes
	return fmt.Sprintf("%s %02d:%02d-%02d:%02d",
		DayNames[dayIndex],
		startMinutes/60, startMinutes%60,
		endMinutes/60, endMinutes%60,
	)
}

// Availability is a stored grid keyed by its owner.
type Availability struct {
	OwnerID   string           `db:"owner_id" json:"owner_id"`
	OwnerKind OwnerKind        `db:"owner_kind" json:"owner_kind"`
	Slots     AvailabilityGrid `db:"slots" json:"slots"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}
