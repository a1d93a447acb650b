package model

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses. Each board has exactly these three columns.
const (
	StatusTodo       = "todo"
	StatusInProgress = "inprogress"
	StatusDone       = "done"
)

// ValidStatus reports whether s is one of the recognized task statuses.
func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type Task struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	BoardID     uuid.UUID `gorm:"type:uuid;not null;index:idx_tasks_board_status"`
	Title       string    `gorm:"not null"`
	Description string
	Status      string     `gorm:"not null;default:'todo';index:idx_tasks_board_status;check:status IN ('todo', 'inprogress', 'done')"`
	Priority    string     `gorm:"not null;default:'medium'"`
	AssignedTo  *uuid.UUID `gorm:"type:uuid"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null"`
	DueDate     *time.Time
	Tags        string `gorm:"default:''"` // comma-separated, empty when untagged
	// Position orders the task within its board+status column. Dense,
	// unique per column after every committed move.
	Position  int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Board    Board `gorm:"foreignKey:BoardID"`
	Assignee User  `gorm:"foreignKey:AssignedTo"`
	Creator  User  `gorm:"foreignKey:CreatedBy"`
}
