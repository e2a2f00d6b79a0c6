package model

import (
	"time"

	"gorm.io/gorm"
)

// ModuleProgress records a user's completion of a module. One row per
// (user, module); once completed it never flips back to incomplete.
type ModuleProgress struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	UserID      uint           `gorm:"not null;uniqueIndex:idx_module_progress_user_module" json:"user_id"`
	ModuleID    uint           `gorm:"not null;uniqueIndex:idx_module_progress_user_module" json:"module_id"`
	Completed   bool           `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Module Module `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ModuleProgress
func (ModuleProgress) TableName() string {
	return "module_progress"
}

// ChapterProgress marks a chapter as read. Insert-once; duplicate inserts
// are ignored on the unique key.
type ChapterProgress struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_chapter_progress_unit" json:"user_id"`
	ModuleID    uint      `gorm:"not null;uniqueIndex:idx_chapter_progress_unit" json:"module_id"`
	ChapterID   uint      `gorm:"not null;uniqueIndex:idx_chapter_progress_unit" json:"chapter_id"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Module  Module  `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"-"`
	Chapter Chapter `gorm:"foreignKey:ChapterID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ChapterProgress
func (ChapterProgress) TableName() string {
	return "chapter_progress"
}
