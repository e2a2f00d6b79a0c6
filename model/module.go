package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Module is an atomic content unit made of chapters. Completing a module
// earns its XP reward once.
type Module struct {
	ID          uint                         `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time                    `json:"created_at"`
	UpdatedAt   time.Time                    `json:"updated_at"`
	DeletedAt   gorm.DeletedAt               `gorm:"index" json:"-"`
	Title       string                       `gorm:"not null" json:"title"`
	Description string                       `gorm:"type:text" json:"description"`
	XP          int                          `gorm:"not null;default:0" json:"xp"` // reward for completing the module, >= 0
	Tags        datatypes.JSONSlice[string]  `json:"tags"`

	// Relationships
	Chapters []Chapter            `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
	Paths    []LearningPathModule `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"-"`
}

// Chapter is a single content page within a module.
type Chapter struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	ModuleID  uint           `gorm:"not null;index" json:"module_id"`
	Position  int            `gorm:"not null;default:0" json:"position"`
	Title     string         `gorm:"not null" json:"title"`
	Body      string         `gorm:"type:text" json:"body"`

	// Relationships
	Module Module `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"-"`
}
