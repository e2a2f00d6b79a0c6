package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleLearner = "learner"
	RoleAdmin   = "admin"
)

// User account statuses. Registration creates a pending account; an admin
// approves (active) or rejects it. Rejected is terminal.
const (
	UserStatusPending  = "pending"
	UserStatusActive   = "active"
	UserStatusRejected = "rejected"
)

// User represents a registered user in the system
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Role         string         `gorm:"type:varchar(20);default:'learner'" json:"role"`          // learner, admin
	Status       string         `gorm:"type:varchar(20);default:'pending';index" json:"status"` // pending, active, rejected
	XP           int            `gorm:"not null;default:0" json:"xp"`
	Level        int            `gorm:"not null;default:1" json:"level"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens

	// Relationships
	Assignments     []PathAssignment    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"assignments,omitempty"`
	ModuleProgress  []ModuleProgress    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ChapterProgress []ChapterProgress   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	AdminAuditLog   []AdminAuditLog     `gorm:"foreignKey:AdminID;constraint:OnDelete:CASCADE" json:"-"`
	TokenBlacklist  []JWTTokenBlacklist `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsActive reports whether the account has been approved and may log in.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// levelThresholds[i] is the minimum XP for level i+1.
var levelThresholds = []int{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 12000}

// LevelForXP returns the level a user with the given XP balance has reached.
// Levels cap at the top of the threshold table.
func LevelForXP(xp int) int {
	level := 1
	for i, threshold := range levelThresholds {
		if xp >= threshold {
			level = i + 1
		}
	}
	return level
}
