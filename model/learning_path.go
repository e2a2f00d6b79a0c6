package model

import (
	"time"

	"gorm.io/gorm"
)

// PathAssignment statuses. Outside of explicit admin repair/reset, a status
// only ever moves forward: locked -> in_progress -> completed.
const (
	AssignmentStatusLocked     = "locked"
	AssignmentStatusInProgress = "in_progress"
	AssignmentStatusCompleted  = "completed"
)

// LearningPath is a named collection of modules forming a curriculum unit.
// Its creation time defines the global ordering of a user's path sequence.
type LearningPath struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`

	// Relationships
	Modules     []LearningPathModule `gorm:"foreignKey:LearningPathID;constraint:OnDelete:CASCADE" json:"modules,omitempty"`
	Assignments []PathAssignment     `gorm:"foreignKey:LearningPathID;constraint:OnDelete:CASCADE" json:"-"`
}

// LearningPathModule links a module into a learning path. Position orders the
// path's table of contents; completion does not depend on it.
type LearningPathModule struct {
	LearningPathID uint `gorm:"primaryKey" json:"learning_path_id"`
	ModuleID       uint `gorm:"primaryKey" json:"module_id"`
	Position       int  `gorm:"not null;default:0" json:"position"`

	// Relationships
	LearningPath LearningPath `gorm:"foreignKey:LearningPathID;constraint:OnDelete:CASCADE" json:"-"`
	Module       Module       `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"module,omitempty"`
}

// TableName specifies the table name for LearningPathModule
func (LearningPathModule) TableName() string {
	return "learning_path_modules"
}

// PathAssignment is the per-user instance of a learning path. Exactly one
// exists per (user, path). SequencePosition is the user's explicit path
// ordering, derived from path creation time at assignment.
type PathAssignment struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	UserID           uint           `gorm:"not null;uniqueIndex:idx_assignment_user_path" json:"user_id"`
	LearningPathID   uint           `gorm:"not null;uniqueIndex:idx_assignment_user_path" json:"learning_path_id"`
	Status           string         `gorm:"type:varchar(20);not null;default:'locked';index" json:"status"`
	SequencePosition int            `gorm:"not null;default:0" json:"sequence_position"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`

	// Relationships
	User         User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	LearningPath LearningPath `gorm:"foreignKey:LearningPathID;constraint:OnDelete:CASCADE" json:"learning_path,omitempty"`
}

// TableName specifies the table name for PathAssignment
func (PathAssignment) TableName() string {
	return "path_assignments"
}
