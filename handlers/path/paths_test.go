package path

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pathlearn/lms-api/model"
	"github.com/pathlearn/lms-api/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupHandlerTest(t *testing.T) (*fiber.App, *gorm.DB) {
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
		&model.Module{},
		&model.Chapter{},
		&model.LearningPath{},
		&model.LearningPathModule{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	h := NewPathHandler(db, services.NewPathService(db))
	app := fiber.New()
	app.Post("/admin/paths/:id/modules", h.AddModule)

	return app, db
}

func postJSON(t *testing.T, app *fiber.App, url string, payload interface{}) int {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest("POST", url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestAddModuleToPath(t *testing.T) {
	app, db := setupHandlerTest(t)

	mod := model.Module{Title: "Handler Module", XP: 100}
	if err := db.Create(&mod).Error; err != nil {
		t.Fatalf("failed to create module: %v", err)
	}
	path := model.LearningPath{Title: "Handler Path"}
	if err := db.Create(&path).Error; err != nil {
		t.Fatalf("failed to create path: %v", err)
	}

	url := fmt.Sprintf("/admin/paths/%d/modules", path.ID)

	t.Run("adds membership", func(t *testing.T) {
		if code := postJSON(t, app, url, fiber.Map{"module_id": mod.ID}); code != fiber.StatusCreated {
			t.Errorf("expected 201, got %d", code)
		}

		var member model.LearningPathModule
		if err := db.Where("learning_path_id = ? AND module_id = ?", path.ID, mod.ID).First(&member).Error; err != nil {
			t.Fatalf("membership row missing: %v", err)
		}
		if member.Position != 1 {
			t.Errorf("expected position 1, got %d", member.Position)
		}
	})

	t.Run("duplicate membership is a conflict", func(t *testing.T) {
		if code := postJSON(t, app, url, fiber.Map{"module_id": mod.ID}); code != fiber.StatusConflict {
			t.Errorf("expected 409 for duplicate membership, got %d", code)
		}

		var count int64
		db.Model(&model.LearningPathModule{}).
			Where("learning_path_id = ? AND module_id = ?", path.ID, mod.ID).
			Count(&count)
		if count != 1 {
			t.Errorf("expected a single membership row, got %d", count)
		}
	})

	t.Run("unknown module", func(t *testing.T) {
		if code := postJSON(t, app, url, fiber.Map{"module_id": 9999}); code != fiber.StatusNotFound {
			t.Errorf("expected 404 for unknown module, got %d", code)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		if code := postJSON(t, app, "/admin/paths/9999/modules", fiber.Map{"module_id": mod.ID}); code != fiber.StatusNotFound {
			t.Errorf("expected 404 for unknown path, got %d", code)
		}
	})
}
