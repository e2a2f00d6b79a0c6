package services

import (
	"context"
	"errors"
	"testing"

	"github.com/pathlearn/lms-api/model"
)

func TestAssignPath(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPathService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "assign@example.com")
	m1 := createTestModule(t, db, "Module A", 100)
	m2 := createTestModule(t, db, "Module B", 100)
	path1 := createTestPath(t, db, "Path One", m1)
	path2 := createTestPath(t, db, "Path Two", m2)

	t.Run("first assignment starts in progress", func(t *testing.T) {
		assignment, err := svc.AssignPath(ctx, user.ID, path1.ID)
		if err != nil {
			t.Fatalf("AssignPath failed: %v", err)
		}
		if assignment.Status != model.AssignmentStatusInProgress {
			t.Errorf("expected first assignment in_progress, got %s", assignment.Status)
		}
		if assignment.SequencePosition != 0 {
			t.Errorf("expected sequence position 0, got %d", assignment.SequencePosition)
		}
	})

	t.Run("later assignments start locked", func(t *testing.T) {
		assignment, err := svc.AssignPath(ctx, user.ID, path2.ID)
		if err != nil {
			t.Fatalf("AssignPath failed: %v", err)
		}
		if assignment.Status != model.AssignmentStatusLocked {
			t.Errorf("expected second assignment locked, got %s", assignment.Status)
		}
		if assignment.SequencePosition != 1 {
			t.Errorf("expected sequence position 1, got %d", assignment.SequencePosition)
		}
	})

	t.Run("duplicate assignment is rejected", func(t *testing.T) {
		_, err := svc.AssignPath(ctx, user.ID, path1.ID)
		if !errors.Is(err, ErrAlreadyAssigned) {
			t.Errorf("expected ErrAlreadyAssigned, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.AssignPath(ctx, 9999, path1.ID)
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		_, err := svc.AssignPath(ctx, user.ID, 9999)
		if !errors.Is(err, ErrPathNotFound) {
			t.Errorf("expected ErrPathNotFound, got %v", err)
		}
	})
}

func TestAssignPathSequenceFollowsPathCreationOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPathService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "sequence@example.com")
	m := createTestModule(t, db, "Shared Module", 50)
	older := createTestPath(t, db, "Older Path", m)
	newer := createTestPath(t, db, "Newer Path", m)

	// Assign in reverse creation order; sequence must still follow creation.
	if _, err := svc.AssignPath(ctx, user.ID, newer.ID); err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}
	if _, err := svc.AssignPath(ctx, user.ID, older.ID); err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}

	ordered, err := svc.OrderedAssignments(ctx, user.ID)
	if err != nil {
		t.Fatalf("OrderedAssignments failed: %v", err)
	}
	if len(ordered) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(ordered))
	}
	if ordered[0].LearningPathID != older.ID {
		t.Errorf("expected older path first in sequence, got path %d", ordered[0].LearningPathID)
	}
	if ordered[1].LearningPathID != newer.ID {
		t.Errorf("expected newer path second in sequence, got path %d", ordered[1].LearningPathID)
	}
}

func TestCheckCompletionEmptyPathIsVacuouslyComplete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPathService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "vacuous@example.com")
	empty := createTestPath(t, db, "Empty Path")

	assignment, err := svc.AssignPath(ctx, user.ID, empty.ID)
	if err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}

	result, err := svc.CheckCompletion(ctx, user.ID, assignment.ID)
	if err != nil {
		t.Fatalf("CheckCompletion failed: %v", err)
	}
	if !result.Completed {
		t.Error("expected empty path to complete vacuously")
	}
	if result.BonusXP != 0 {
		t.Errorf("expected no bonus for empty path, got %d", result.BonusXP)
	}

	if got := getUser(t, db, user.ID).XP; got != 0 {
		t.Errorf("expected XP to stay 0, got %d", got)
	}
}

func TestCheckCompletionBonusIsPaidExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPathService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "once@example.com")
	m := createTestModule(t, db, "Only Module", 200)
	path := createTestPath(t, db, "Single Path", m)

	assignment, err := svc.AssignPath(ctx, user.ID, path.ID)
	if err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}

	// Record the module as done directly, then check twice.
	if err := db.Create(&model.ModuleProgress{UserID: user.ID, ModuleID: m.ID, Completed: true}).Error; err != nil {
		t.Fatalf("failed to create module progress: %v", err)
	}

	first, err := svc.CheckCompletion(ctx, user.ID, assignment.ID)
	if err != nil {
		t.Fatalf("CheckCompletion failed: %v", err)
	}
	if !first.Completed {
		t.Fatal("expected first check to complete the path")
	}
	if first.BonusXP != 100 {
		t.Errorf("expected bonus 100 (half of 200), got %d", first.BonusXP)
	}

	second, err := svc.CheckCompletion(ctx, user.ID, assignment.ID)
	if err != nil {
		t.Fatalf("CheckCompletion failed: %v", err)
	}
	if second.Completed {
		t.Error("expected second check to be a no-op")
	}
	if second.BonusXP != 0 {
		t.Errorf("expected no bonus on replay, got %d", second.BonusXP)
	}

	if got := getUser(t, db, user.ID).XP; got != 100 {
		t.Errorf("expected total XP 100, got %d", got)
	}
}

func TestCheckCompletionUnlocksSuccessor(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPathService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "unlock@example.com")
	m1 := createTestModule(t, db, "First Module", 100)
	m2 := createTestModule(t, db, "Second Module", 100)
	path1 := createTestPath(t, db, "First Path", m1)
	path2 := createTestPath(t, db, "Second Path", m2)

	a1, err := svc.AssignPath(ctx, user.ID, path1.ID)
	if err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}
	if _, err := svc.AssignPath(ctx, user.ID, path2.ID); err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}

	if err := db.Create(&model.ModuleProgress{UserID: user.ID, ModuleID: m1.ID, Completed: true}).Error; err != nil {
		t.Fatalf("failed to create module progress: %v", err)
	}

	result, err := svc.CheckCompletion(ctx, user.ID, a1.ID)
	if err != nil {
		t.Fatalf("CheckCompletion failed: %v", err)
	}
	if !result.Completed {
		t.Fatal("expected path to complete")
	}
	if len(result.CompletedPaths) != 1 || result.CompletedPaths[0] != path1.ID {
		t.Errorf("expected completed paths [%d], got %v", path1.ID, result.CompletedPaths)
	}

	if got := getAssignment(t, db, user.ID, path1.ID); got.Status != model.AssignmentStatusCompleted {
		t.Errorf("expected first assignment completed, got %s", got.Status)
	}
	if got := getAssignment(t, db, user.ID, path1.ID); got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if got := getAssignment(t, db, user.ID, path2.ID); got.Status != model.AssignmentStatusInProgress {
		t.Errorf("expected successor unlocked, got %s", got.Status)
	}
}

func TestCheckCompletionCascadesThroughSatisfiedPaths(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPathService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "cascade@example.com")
	m1 := createTestModule(t, db, "Cascade Module 1", 100)
	m2 := createTestModule(t, db, "Cascade Module 2", 60)
	m3 := createTestModule(t, db, "Cascade Module 3", 40)
	path1 := createTestPath(t, db, "Cascade Path 1", m1)
	path2 := createTestPath(t, db, "Cascade Path 2", m2, m3)
	path3 := createTestPath(t, db, "Cascade Path 3", m1, m2)

	a1, err := svc.AssignPath(ctx, user.ID, path1.ID)
	if err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}
	for _, p := range []uint{path2.ID, path3.ID} {
		if _, err := svc.AssignPath(ctx, user.ID, p); err != nil {
			t.Fatalf("AssignPath failed: %v", err)
		}
	}

	// All module work is already done; one check should ripple through the
	// whole sequence.
	for _, m := range []uint{m1.ID, m2.ID, m3.ID} {
		if err := db.Create(&model.ModuleProgress{UserID: user.ID, ModuleID: m, Completed: true}).Error; err != nil {
			t.Fatalf("failed to create module progress: %v", err)
		}
	}

	result, err := svc.CheckCompletion(ctx, user.ID, a1.ID)
	if err != nil {
		t.Fatalf("CheckCompletion failed: %v", err)
	}
	if len(result.CompletedPaths) != 3 {
		t.Fatalf("expected cascade to complete 3 paths, got %v", result.CompletedPaths)
	}

	// Bonuses: 100/2 + (60+40)/2 + (100+60)/2 = 50 + 50 + 80.
	if result.BonusXP != 180 {
		t.Errorf("expected aggregate bonus 180, got %d", result.BonusXP)
	}

	for _, p := range []uint{path1.ID, path2.ID, path3.ID} {
		if got := getAssignment(t, db, user.ID, p); got.Status != model.AssignmentStatusCompleted {
			t.Errorf("expected path %d completed, got %s", p, got.Status)
		}
	}
}

func TestCheckCompletionStopsAtUnfinishedPath(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPathService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "stop@example.com")
	m1 := createTestModule(t, db, "Done Module", 100)
	m2 := createTestModule(t, db, "Pending Module", 100)
	path1 := createTestPath(t, db, "Done Path", m1)
	path2 := createTestPath(t, db, "Pending Path", m2)
	path3 := createTestPath(t, db, "Far Path", m1)

	a1, err := svc.AssignPath(ctx, user.ID, path1.ID)
	if err != nil {
		t.Fatalf("AssignPath failed: %v", err)
	}
	for _, p := range []uint{path2.ID, path3.ID} {
		if _, err := svc.AssignPath(ctx, user.ID, p); err != nil {
			t.Fatalf("AssignPath failed: %v", err)
		}
	}

	if err := db.Create(&model.ModuleProgress{UserID: user.ID, ModuleID: m1.ID, Completed: true}).Error; err != nil {
		t.Fatalf("failed to create module progress: %v", err)
	}

	result, err := svc.CheckCompletion(ctx, user.ID, a1.ID)
	if err != nil {
		t.Fatalf("CheckCompletion failed: %v", err)
	}
	if len(result.CompletedPaths) != 1 {
		t.Fatalf("expected only the first path to complete, got %v", result.CompletedPaths)
	}

	if got := getAssignment(t, db, user.ID, path2.ID); got.Status != model.AssignmentStatusInProgress {
		t.Errorf("expected second path unlocked, got %s", got.Status)
	}
	// The third path's modules are satisfied, but the walk stops at the
	// unfinished second path.
	if got := getAssignment(t, db, user.ID, path3.ID); got.Status != model.AssignmentStatusLocked {
		t.Errorf("expected third path still locked, got %s", got.Status)
	}
}

func TestCheckCompletionUnknownAssignment(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPathService(db)

	user := createTestUser(t, db, "missing@example.com")

	_, err := svc.CheckCompletion(context.Background(), user.ID, 12345)
	if !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("expected ErrAssignmentNotFound, got %v", err)
	}
}

func TestNormalizeAssignments(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPathService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "normalize@example.com")
	m := createTestModule(t, db, "Normalize Module", 100)
	path1 := createTestPath(t, db, "Normalize Path 1", m)
	path2 := createTestPath(t, db, "Normalize Path 2", m)
	path3 := createTestPath(t, db, "Normalize Path 3", m)

	for _, p := range []uint{path1.ID, path2.ID, path3.ID} {
		if _, err := svc.AssignPath(ctx, user.ID, p); err != nil {
			t.Fatalf("AssignPath failed: %v", err)
		}
	}

	// Corrupt the statuses: first locked, third in_progress behind an
	// unfinished path.
	if err := db.Model(&model.PathAssignment{}).
		Where("user_id = ? AND learning_path_id = ?", user.ID, path1.ID).
		Update("status", model.AssignmentStatusLocked).Error; err != nil {
		t.Fatalf("failed to corrupt first assignment: %v", err)
	}
	if err := db.Model(&model.PathAssignment{}).
		Where("user_id = ? AND learning_path_id = ?", user.ID, path3.ID).
		Update("status", model.AssignmentStatusInProgress).Error; err != nil {
		t.Fatalf("failed to corrupt third assignment: %v", err)
	}

	changed, err := svc.NormalizeAssignments(ctx, user.ID)
	if err != nil {
		t.Fatalf("NormalizeAssignments failed: %v", err)
	}
	if changed != 2 {
		t.Errorf("expected 2 status changes, got %d", changed)
	}

	if got := getAssignment(t, db, user.ID, path1.ID); got.Status != model.AssignmentStatusInProgress {
		t.Errorf("expected first assignment unlocked, got %s", got.Status)
	}
	if got := getAssignment(t, db, user.ID, path2.ID); got.Status != model.AssignmentStatusLocked {
		t.Errorf("expected second assignment locked, got %s", got.Status)
	}
	if got := getAssignment(t, db, user.ID, path3.ID); got.Status != model.AssignmentStatusLocked {
		t.Errorf("expected third assignment re-locked, got %s", got.Status)
	}
}

func TestNormalizeAssignmentsNeverDemotesCompleted(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPathService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "keep-completed@example.com")
	m := createTestModule(t, db, "Keep Module", 100)
	path1 := createTestPath(t, db, "Keep Path 1", m)
	path2 := createTestPath(t, db, "Keep Path 2", m)

	for _, p := range []uint{path1.ID, path2.ID} {
		if _, err := svc.AssignPath(ctx, user.ID, p); err != nil {
			t.Fatalf("AssignPath failed: %v", err)
		}
	}

	// Second path marked completed even though the first is unfinished. The
	// bonus for it has already been paid, so it must stand.
	if err := db.Model(&model.PathAssignment{}).
		Where("user_id = ? AND learning_path_id = ?", user.ID, path2.ID).
		Update("status", model.AssignmentStatusCompleted).Error; err != nil {
		t.Fatalf("failed to mark second assignment completed: %v", err)
	}

	if _, err := svc.NormalizeAssignments(ctx, user.ID); err != nil {
		t.Fatalf("NormalizeAssignments failed: %v", err)
	}

	if got := getAssignment(t, db, user.ID, path2.ID); got.Status != model.AssignmentStatusCompleted {
		t.Errorf("expected completed assignment untouched, got %s", got.Status)
	}
}

func TestUsersWithAssignments(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPathService(db)
	ctx := context.Background()

	u1 := createTestUser(t, db, "one@example.com")
	u2 := createTestUser(t, db, "two@example.com")
	createTestUser(t, db, "three@example.com") // no assignments

	m := createTestModule(t, db, "List Module", 50)
	path := createTestPath(t, db, "List Path", m)

	for _, u := range []uint{u1.ID, u2.ID} {
		if _, err := svc.AssignPath(ctx, u, path.ID); err != nil {
			t.Fatalf("AssignPath failed: %v", err)
		}
	}

	ids, err := svc.UsersWithAssignments(ctx)
	if err != nil {
		t.Fatalf("UsersWithAssignments failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 users with assignments, got %v", ids)
	}
	if ids[0] != u1.ID || ids[1] != u2.ID {
		t.Errorf("expected [%d %d], got %v", u1.ID, u2.ID, ids)
	}
}
