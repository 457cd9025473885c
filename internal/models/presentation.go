package models

import "time"

// SlotDurationBins is the fixed presentation length: 2 bins = 30 minutes.
const SlotDurationBins = 2

// PresentationSlot books a project's final presentation into a room window.
// At most one slot exists per project; slots in the same room never overlap.
type PresentationSlot struct {
	ID           string    `db:"id" json:"id"`
	ProjectID    string    `db:"project_id" json:"project_id"`
	RoomID       string    `db:"room_id" json:"room_id"`
	DayIndex     int       `db:"day_index" json:"day_index"`
	StartBin     int       `db:"start_bin" json:"start_bin"`
	DurationBins int       `db:"duration_bins" json:"duration_bins"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SlotOption is a candidate presentation window offered to a project.
type SlotOption struct {
	DayIndex int    `json:"day_index"`
	StartBin int    `json:"start_bin"`
	Label    string `json:"label"`
}

// TimetableEntry is a committed slot joined with display context.
type TimetableEntry struct {
	PresentationSlot
	ProjectTitle   string `db:"project_title" json:"project_title"`
	RoomName       string `db:"room_name" json:"room_name"`
	SupervisorName string `db:"supervisor_name" json:"supervisor_name"`
}

// BestEffortScheduleReport summarises one greedy scheduler pass.
type BestEffortScheduleReport struct {
	SlotsCommitted  int `json:"slots_committed"`
	ProjectsSkipped int `json:"projects_skipped"`
}
