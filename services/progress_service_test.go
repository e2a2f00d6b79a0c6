package services

import (
	"context"
	"errors"
	"testing"

	"github.com/pathlearn/lms-api/model"
	"gorm.io/gorm"
)

func newProgressFixture(t *testing.T) (*ProgressService, *PathService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	paths := NewPathService(db)
	progress := NewProgressService(db, paths, nil)
	return progress, paths, db
}

// countingRankingCache records Invalidate calls for assertions.
type countingRankingCache struct {
	calls int
}

func (c *countingRankingCache) Invalidate(ctx context.Context) { c.calls++ }

func TestRecordChapterCompletion(t *testing.T) {
	progress, _, db := newProgressFixture(t)
	ctx := context.Background()

	user := createTestUser(t, db, "chapters@example.com")
	mod := createTestModule(t, db, "Chapter Module", 100)
	chapter := mod.Chapters[0]

	t.Run("records completion", func(t *testing.T) {
		if err := progress.RecordChapterCompletion(ctx, user.ID, mod.ID, chapter.ID); err != nil {
			t.Fatalf("RecordChapterCompletion failed: %v", err)
		}

		var count int64
		db.Model(&model.ChapterProgress{}).
			Where("user_id = ? AND chapter_id = ?", user.ID, chapter.ID).
			Count(&count)
		if count != 1 {
			t.Errorf("expected 1 chapter progress row, got %d", count)
		}
	})

	t.Run("repeat completion is a no-op", func(t *testing.T) {
		if err := progress.RecordChapterCompletion(ctx, user.ID, mod.ID, chapter.ID); err != nil {
			t.Fatalf("repeat RecordChapterCompletion failed: %v", err)
		}

		var count int64
		db.Model(&model.ChapterProgress{}).
			Where("user_id = ? AND chapter_id = ?", user.ID, chapter.ID).
			Count(&count)
		if count != 1 {
			t.Errorf("expected 1 chapter progress row after replay, got %d", count)
		}
	})

	t.Run("never touches XP", func(t *testing.T) {
		if got := getUser(t, db, user.ID).XP; got != 0 {
			t.Errorf("expected XP 0 after chapter completion, got %d", got)
		}
	})

	t.Run("unknown module", func(t *testing.T) {
		err := progress.RecordChapterCompletion(ctx, user.ID, 9999, chapter.ID)
		if !errors.Is(err, ErrModuleNotFound) {
			t.Errorf("expected ErrModuleNotFound, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		err := progress.RecordChapterCompletion(ctx, 9999, mod.ID, chapter.ID)
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("chapter from another module", func(t *testing.T) {
		other := createTestModule(t, db, "Other Module", 50)
		err := progress.RecordChapterCompletion(ctx, user.ID, other.ID, chapter.ID)
		if !errors.Is(err, ErrChapterNotFound) {
			t.Errorf("expected ErrChapterNotFound, got %v", err)
		}
	})
}

func TestRecordModuleCompletionCreditsXPOnce(t *testing.T) {
	progress, _, db := newProgressFixture(t)
	ctx := context.Background()

	user := createTestUser(t, db, "xp-once@example.com")
	mod := createTestModule(t, db, "XP Module", 150)

	first, err := progress.RecordModuleCompletion(ctx, user.ID, mod.ID)
	if err != nil {
		t.Fatalf("RecordModuleCompletion failed: %v", err)
	}
	if first.ModuleXP != 150 {
		t.Errorf("expected module XP 150, got %d", first.ModuleXP)
	}
	if first.NewTotalXP != 150 {
		t.Errorf("expected total XP 150, got %d", first.NewTotalXP)
	}
	if first.Level != 2 {
		t.Errorf("expected level 2 at 150 XP, got %d", first.Level)
	}

	second, err := progress.RecordModuleCompletion(ctx, user.ID, mod.ID)
	if err != nil {
		t.Fatalf("repeat RecordModuleCompletion failed: %v", err)
	}
	if second.ModuleXP != 0 {
		t.Errorf("expected no XP on replay, got %d", second.ModuleXP)
	}
	if second.NewTotalXP != 150 {
		t.Errorf("expected total XP unchanged at 150, got %d", second.NewTotalXP)
	}
}

func TestRecordModuleCompletionCompletesPath(t *testing.T) {
	progress, paths, db := newProgressFixture(t)
	ctx := context.Background()

	user := createTestUser(t, db, "complete-path@example.com")
	m1 := createTestModule(t, db, "Path Module 1", 100)
	m2 := createTestModule(t, db, "Path Module 2", 100)
	path1 := createTestPath(t, db, "Progress Path 1", m1, m2)
	path2 := createTestPath(t, db, "Progress Path 2", m1)

	if _, err := paths.AssignPath(ctx, user.ID, path1.ID); err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}
	if _, err := paths.AssignPath(ctx, user.ID, path2.ID); err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}

	partial, err := progress.RecordModuleCompletion(ctx, user.ID, m1.ID)
	if err != nil {
		t.Fatalf("RecordModuleCompletion failed: %v", err)
	}
	if partial.PathCompleted {
		t.Error("expected path incomplete after one of two modules")
	}
	if partial.NewTotalXP != 100 {
		t.Errorf("expected 100 XP after first module, got %d", partial.NewTotalXP)
	}

	final, err := progress.RecordModuleCompletion(ctx, user.ID, m2.ID)
	if err != nil {
		t.Fatalf("RecordModuleCompletion failed: %v", err)
	}
	if !final.PathCompleted {
		t.Fatal("expected path to complete with the second module")
	}
	// Path one pays 100 bonus (half of 200); its completion unlocks path two,
	// whose only module is already done, so the cascade pays another 50.
	if final.BonusXP != 150 {
		t.Errorf("expected aggregate bonus 150, got %d", final.BonusXP)
	}
	if len(final.CompletedPaths) != 2 {
		t.Errorf("expected both paths completed, got %v", final.CompletedPaths)
	}
	// 100 + 100 module XP, 150 bonus.
	if final.NewTotalXP != 350 {
		t.Errorf("expected total XP 350, got %d", final.NewTotalXP)
	}

	if got := getAssignment(t, db, user.ID, path2.ID); got.Status != model.AssignmentStatusCompleted {
		t.Errorf("expected second path completed by cascade, got %s", got.Status)
	}
}

func TestRecordModuleCompletionIgnoresLockedPaths(t *testing.T) {
	progress, paths, db := newProgressFixture(t)
	ctx := context.Background()

	user := createTestUser(t, db, "locked@example.com")
	m1 := createTestModule(t, db, "Active Module", 100)
	m2 := createTestModule(t, db, "Locked Module", 100)
	path1 := createTestPath(t, db, "Active Path", m1)
	path2 := createTestPath(t, db, "Locked Path", m2)

	if _, err := paths.AssignPath(ctx, user.ID, path1.ID); err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}
	if _, err := paths.AssignPath(ctx, user.ID, path2.ID); err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}

	// Completing the locked path's module records progress and XP but runs no
	// completion check against the locked assignment.
	result, err := progress.RecordModuleCompletion(ctx, user.ID, m2.ID)
	if err != nil {
		t.Fatalf("RecordModuleCompletion failed: %v", err)
	}
	if result.PathCompleted {
		t.Error("expected no path completion through a locked assignment")
	}
	if got := getAssignment(t, db, user.ID, path2.ID); got.Status != model.AssignmentStatusLocked {
		t.Errorf("expected second path to stay locked, got %s", got.Status)
	}

	// Finishing the active path then cascades into the already-satisfied one.
	final, err := progress.RecordModuleCompletion(ctx, user.ID, m1.ID)
	if err != nil {
		t.Fatalf("RecordModuleCompletion failed: %v", err)
	}
	if len(final.CompletedPaths) != 2 {
		t.Errorf("expected cascade to finish both paths, got %v", final.CompletedPaths)
	}
}

func TestRecordModuleCompletionUnknownModule(t *testing.T) {
	progress, _, db := newProgressFixture(t)

	user := createTestUser(t, db, "no-module@example.com")

	_, err := progress.RecordModuleCompletion(context.Background(), user.ID, 9999)
	if !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestRecordModuleCompletionUnknownUser(t *testing.T) {
	progress, _, db := newProgressFixture(t)

	mod := createTestModule(t, db, "Orphan Module", 100)

	_, err := progress.RecordModuleCompletion(context.Background(), 9999, mod.ID)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestXPMutationsInvalidateLeaderboardCache(t *testing.T) {
	db := setupTestDB(t)
	paths := NewPathService(db)
	board := &countingRankingCache{}
	progress := NewProgressService(db, paths, board)
	ctx := context.Background()

	user := createTestUser(t, db, "board@example.com")
	mod := createTestModule(t, db, "Board Module", 100)

	if _, err := progress.RecordModuleCompletion(ctx, user.ID, mod.ID); err != nil {
		t.Fatalf("RecordModuleCompletion failed: %v", err)
	}
	if board.calls != 1 {
		t.Errorf("expected 1 invalidation after first completion, got %d", board.calls)
	}

	// Replays credit nothing, so the cached ranking is still valid.
	if _, err := progress.RecordModuleCompletion(ctx, user.ID, mod.ID); err != nil {
		t.Fatalf("repeat RecordModuleCompletion failed: %v", err)
	}
	if board.calls != 1 {
		t.Errorf("expected no invalidation on replay, got %d calls", board.calls)
	}

	if err := progress.ResetUserProgress(ctx, user.ID); err != nil {
		t.Fatalf("ResetUserProgress failed: %v", err)
	}
	if board.calls != 2 {
		t.Errorf("expected invalidation after reset, got %d calls", board.calls)
	}
}

func TestGetSummary(t *testing.T) {
	progress, paths, db := newProgressFixture(t)
	ctx := context.Background()

	user := createTestUser(t, db, "summary@example.com")
	m1 := createTestModule(t, db, "Summary Module 1", 100)
	m2 := createTestModule(t, db, "Summary Module 2", 100)
	path := createTestPath(t, db, "Summary Path", m1, m2)

	if _, err := paths.AssignPath(ctx, user.ID, path.ID); err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}
	if _, err := progress.RecordModuleCompletion(ctx, user.ID, m1.ID); err != nil {
		t.Fatalf("RecordModuleCompletion failed: %v", err)
	}

	summary, err := progress.GetSummary(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if summary.XP != 100 {
		t.Errorf("expected XP 100, got %d", summary.XP)
	}
	if len(summary.Paths) != 1 {
		t.Fatalf("expected 1 path in summary, got %d", len(summary.Paths))
	}
	row := summary.Paths[0]
	if row.CompletedModules != 1 || row.TotalModules != 2 {
		t.Errorf("expected 1/2 modules completed, got %d/%d", row.CompletedModules, row.TotalModules)
	}
	if row.Status != model.AssignmentStatusInProgress {
		t.Errorf("expected in_progress, got %s", row.Status)
	}
	if row.Title != "Summary Path" {
		t.Errorf("expected path title in summary, got %q", row.Title)
	}
}

func TestResetUserProgress(t *testing.T) {
	progress, paths, db := newProgressFixture(t)
	ctx := context.Background()

	user := createTestUser(t, db, "reset@example.com")
	m1 := createTestModule(t, db, "Reset Module 1", 100)
	m2 := createTestModule(t, db, "Reset Module 2", 100)
	path1 := createTestPath(t, db, "Reset Path 1", m1)
	path2 := createTestPath(t, db, "Reset Path 2", m2)

	if _, err := paths.AssignPath(ctx, user.ID, path1.ID); err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}
	if _, err := paths.AssignPath(ctx, user.ID, path2.ID); err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}
	if err := progress.RecordChapterCompletion(ctx, user.ID, m1.ID, m1.Chapters[0].ID); err != nil {
		t.Fatalf("RecordChapterCompletion failed: %v", err)
	}
	if _, err := progress.RecordModuleCompletion(ctx, user.ID, m1.ID); err != nil {
		t.Fatalf("RecordModuleCompletion failed: %v", err)
	}

	if err := progress.ResetUserProgress(ctx, user.ID); err != nil {
		t.Fatalf("ResetUserProgress failed: %v", err)
	}

	after := getUser(t, db, user.ID)
	if after.XP != 0 || after.Level != 1 {
		t.Errorf("expected XP 0 level 1 after reset, got %d/%d", after.XP, after.Level)
	}

	var moduleRows, chapterRows int64
	db.Unscoped().Model(&model.ModuleProgress{}).Where("user_id = ?", user.ID).Count(&moduleRows)
	db.Model(&model.ChapterProgress{}).Where("user_id = ?", user.ID).Count(&chapterRows)
	if moduleRows != 0 || chapterRows != 0 {
		t.Errorf("expected progress rows deleted, got %d module / %d chapter rows", moduleRows, chapterRows)
	}

	a1 := getAssignment(t, db, user.ID, path1.ID)
	if a1.Status != model.AssignmentStatusInProgress {
		t.Errorf("expected first assignment in_progress after reset, got %s", a1.Status)
	}
	if a1.CompletedAt != nil {
		t.Error("expected completed_at cleared after reset")
	}
	if got := getAssignment(t, db, user.ID, path2.ID); got.Status != model.AssignmentStatusLocked {
		t.Errorf("expected second assignment locked after reset, got %s", got.Status)
	}

	// The wiped module can be completed again and earns XP again.
	redo, err := progress.RecordModuleCompletion(ctx, user.ID, m1.ID)
	if err != nil {
		t.Fatalf("RecordModuleCompletion after reset failed: %v", err)
	}
	if redo.ModuleXP != 100 {
		t.Errorf("expected XP credited again after reset, got %d", redo.ModuleXP)
	}
}

func TestResetUserProgressUnknownUser(t *testing.T) {
	progress, _, _ := newProgressFixture(t)

	err := progress.ResetUserProgress(context.Background(), 9999)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
