package task

import (
	"time"
)

// Priority ranks how urgently a task needs attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusOpen      Status = "open"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Task is a unit of staff work. Automation creates tasks with
// deterministic IDs derived from the triggering event, so re-processing
// the same event overwrites the same row instead of piling up
// duplicates. User-created tasks get a random ID.
type Task struct {
	ID          string     `db:"id" json:"id"`
	Summary     string     `db:"summary" json:"summary"`
	Priority    Priority   `db:"priority" json:"priority"`
	Status      Status     `db:"status" json:"status"`
	SubjectKind string     `db:"subject_kind" json:"subject_kind,omitempty"`
	SubjectID   string     `db:"subject_id" json:"subject_id,omitempty"`
	Source      string     `db:"source" json:"source,omitempty"`
	DueAt       *time.Time `db:"due_at" json:"due_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
