package services

import (
	"context"
	"testing"

	"github.com/pathlearn/lms-api/model"
)

func TestLeaderboardTopWithoutCache(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLeaderboardService(db, nil)
	ctx := context.Background()

	users := []model.User{
		{Email: "low@example.com", Name: "Low", PasswordHash: "x", Role: model.RoleLearner, Status: model.UserStatusActive, XP: 50, Level: 1},
		{Email: "high@example.com", Name: "High", PasswordHash: "x", Role: model.RoleLearner, Status: model.UserStatusActive, XP: 500, Level: 4},
		{Email: "mid@example.com", Name: "Mid", PasswordHash: "x", Role: model.RoleLearner, Status: model.UserStatusActive, XP: 200, Level: 2},
		{Email: "pending@example.com", Name: "Pending", PasswordHash: "x", Role: model.RoleLearner, Status: model.UserStatusPending, XP: 999, Level: 4},
	}
	if err := db.Create(&users).Error; err != nil {
		t.Fatalf("failed to create users: %v", err)
	}

	entries, err := svc.Top(ctx, 10)
	if err != nil {
		t.Fatalf("Top failed: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 active users on the board, got %d", len(entries))
	}
	if entries[0].Name != "High" || entries[1].Name != "Mid" || entries[2].Name != "Low" {
		t.Errorf("unexpected ranking order: %+v", entries)
	}
	for i, e := range entries {
		if e.Rank != i+1 {
			t.Errorf("expected rank %d, got %d", i+1, e.Rank)
		}
	}

	// Pending accounts never appear regardless of XP.
	for _, e := range entries {
		if e.Name == "Pending" {
			t.Error("pending user must not appear on the leaderboard")
		}
	}

	limited, err := svc.Top(ctx, 2)
	if err != nil {
		t.Fatalf("Top failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected limit to trim the board to 2, got %d", len(limited))
	}
}

func TestLeaderboardTiesBreakByUserID(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLeaderboardService(db, nil)

	first := createTestUser(t, db, "tie-first@example.com")
	second := createTestUser(t, db, "tie-second@example.com")
	if err := db.Model(&model.User{}).Where("id IN ?", []uint{first.ID, second.ID}).Update("xp", 300).Error; err != nil {
		t.Fatalf("failed to set XP: %v", err)
	}

	entries, err := svc.Top(context.Background(), 10)
	if err != nil {
		t.Fatalf("Top failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != first.ID {
		t.Errorf("expected earlier user to rank first on a tie, got user %d", entries[0].UserID)
	}
}
