package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pathlearn/lms-api/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a per-test in-memory SQLite database with the full schema
// migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Module{},
		&model.Chapter{},
		&model.LearningPath{},
		&model.LearningPathModule{},
		&model.PathAssignment{},
		&model.ModuleProgress{},
		&model.ChapterProgress{},
		&model.JWTTokenBlacklist{},
		&model.PasswordResetToken{},
		&model.AdminAuditLog{},
		&model.CronJobLog{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()

	user := &model.User{
		Email:        email,
		PasswordHash: "not-a-real-hash",
		Name:         "Test Learner",
		Role:         model.RoleLearner,
		Status:       model.UserStatusActive,
		Level:        1,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createTestModule(t *testing.T, db *gorm.DB, title string, xp int) *model.Module {
	t.Helper()

	module := &model.Module{Title: title, XP: xp}
	if err := db.Create(module).Error; err != nil {
		t.Fatalf("failed to create module: %v", err)
	}

	chapter := &model.Chapter{ModuleID: module.ID, Position: 1, Title: title + " - Chapter 1", Body: "content"}
	if err := db.Create(chapter).Error; err != nil {
		t.Fatalf("failed to create chapter: %v", err)
	}
	module.Chapters = []model.Chapter{*chapter}

	return module
}

func createTestPath(t *testing.T, db *gorm.DB, title string, modules ...*model.Module) *model.LearningPath {
	t.Helper()

	path := &model.LearningPath{Title: title}
	if err := db.Create(path).Error; err != nil {
		t.Fatalf("failed to create learning path: %v", err)
	}
	for i, mod := range modules {
		member := &model.LearningPathModule{LearningPathID: path.ID, ModuleID: mod.ID, Position: i + 1}
		if err := db.Create(member).Error; err != nil {
			t.Fatalf("failed to add module to path: %v", err)
		}
	}
	return path
}

func getAssignment(t *testing.T, db *gorm.DB, userID, pathID uint) *model.PathAssignment {
	t.Helper()

	var assignment model.PathAssignment
	if err := db.Where("user_id = ? AND learning_path_id = ?", userID, pathID).First(&assignment).Error; err != nil {
		t.Fatalf("failed to load assignment for user %d path %d: %v", userID, pathID, err)
	}
	return &assignment
}

func getUser(t *testing.T, db *gorm.DB, userID uint) *model.User {
	t.Helper()

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		t.Fatalf("failed to load user %d: %v", userID, err)
	}
	return &user
}
