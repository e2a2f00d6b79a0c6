package services

import (
	"context"
	"errors"
	"time"

	"github.com/pathlearn/lms-api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RankingCache drops cached XP rankings after a mutation. Satisfied by
// LeaderboardService; nil disables invalidation.
type RankingCache interface {
	Invalidate(ctx context.Context)
}

// ProgressService records chapter and module completions and keeps the XP
// ledger. Module completion runs as one transaction: upsert progress, credit
// XP on first completion, then run the path completion cascade.
type ProgressService struct {
	db    *gorm.DB
	paths *PathService
	board RankingCache
}

// NewProgressService creates a new progress service
func NewProgressService(db *gorm.DB, paths *PathService, board RankingCache) *ProgressService {
	return &ProgressService{
		db:    db,
		paths: paths,
		board: board,
	}
}

// CompletionResult is returned by RecordModuleCompletion.
type CompletionResult struct {
	ModuleXP       int    `json:"module_xp"`
	PathCompleted  bool   `json:"path_completed"`
	CompletedPaths []uint `json:"completed_paths,omitempty"`
	BonusXP        int    `json:"bonus_xp"`
	NewTotalXP     int    `json:"new_total_xp"`
	Level          int    `json:"level"`
}

// forUpdate applies SELECT ... FOR UPDATE row locking where the dialect
// supports it. SQLite (tests) has no FOR UPDATE; its single-writer model
// covers the same ground.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// RecordChapterCompletion marks a chapter as read. Recording the same
// chapter twice is a silent no-op; chapter completion never touches XP or
// path state.
func (s *ProgressService) RecordChapterCompletion(ctx context.Context, userID, moduleID, chapterID uint) error {
	if userID == 0 || moduleID == 0 || chapterID == 0 {
		return ErrInvalidArgument
	}

	db := s.db.WithContext(ctx)

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	var chapter model.Chapter
	if err := db.Where("id = ? AND module_id = ?", chapterID, moduleID).First(&chapter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			var count int64
			if err := db.Model(&model.Module{}).Where("id = ?", moduleID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrModuleNotFound
			}
			return ErrChapterNotFound
		}
		return err
	}

	progress := model.ChapterProgress{
		UserID:      userID,
		ModuleID:    moduleID,
		ChapterID:   chapterID,
		CompletedAt: time.Now(),
	}

	// Duplicate completions hit the unique key and are dropped.
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "module_id"}, {Name: "chapter_id"}},
		DoNothing: true,
	}).Create(&progress).Error
}

// RecordModuleCompletion marks a module complete for the user, credits its
// XP reward on first completion, and runs the path completion check for
// every in_progress assignment whose path contains the module. The whole
// flow is one transaction with the user row locked, so concurrent
// completions cannot double-credit.
func (s *ProgressService) RecordModuleCompletion(ctx context.Context, userID, moduleID uint) (*CompletionResult, error) {
	if userID == 0 || moduleID == 0 {
		return nil, ErrInvalidArgument
	}

	now := time.Now()
	result := &CompletionResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var module model.Module
		if err := tx.First(&module, moduleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrModuleNotFound
			}
			return err
		}

		// Upsert the progress record. Re-completing refreshes the timestamp
		// but never flips completed back.
		firstCompletion := false
		var progress model.ModuleProgress
		err := tx.Where("user_id = ? AND module_id = ?", userID, moduleID).First(&progress).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			progress = model.ModuleProgress{
				UserID:      userID,
				ModuleID:    moduleID,
				Completed:   true,
				CompletedAt: &now,
			}
			if err := tx.Create(&progress).Error; err != nil {
				return err
			}
			firstCompletion = true
		case err != nil:
			return err
		default:
			firstCompletion = !progress.Completed
			if err := tx.Model(&model.ModuleProgress{}).
				Where("id = ?", progress.ID).
				Updates(map[string]interface{}{
					"completed":    true,
					"completed_at": now,
				}).Error; err != nil {
				return err
			}
		}

		// XP is credited on the first completion only; replays are harmless.
		if firstCompletion && module.XP > 0 {
			if err := creditXPTx(tx, userID, module.XP); err != nil {
				return err
			}
			result.ModuleXP = module.XP
		}

		// Every in_progress assignment whose path contains this module gets
		// a completion check; each check may cascade into later paths.
		var assignments []model.PathAssignment
		if err := forUpdate(tx).
			Joins("JOIN learning_path_modules lpm ON lpm.learning_path_id = path_assignments.learning_path_id").
			Where("path_assignments.user_id = ? AND path_assignments.status = ? AND lpm.module_id = ?",
				userID, model.AssignmentStatusInProgress, moduleID).
			Order("path_assignments.sequence_position ASC").
			Find(&assignments).Error; err != nil {
			return err
		}

		for _, assignment := range assignments {
			check, err := s.paths.checkCompletionTx(tx, userID, assignment.ID, now)
			if err != nil {
				return err
			}
			if check.Completed {
				result.PathCompleted = true
				result.BonusXP += check.BonusXP
				result.CompletedPaths = append(result.CompletedPaths, check.CompletedPaths...)
			}
		}

		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		result.NewTotalXP = user.XP
		result.Level = user.Level

		return nil
	})
	if err != nil {
		return nil, err
	}

	// The cached ranking is stale once XP moved.
	if s.board != nil && (result.ModuleXP > 0 || result.BonusXP > 0) {
		s.board.Invalidate(ctx)
	}

	return result, nil
}

// AssignmentSummary is one row of a user's progress dashboard.
type AssignmentSummary struct {
	AssignmentID     uint       `json:"assignment_id"`
	LearningPathID   uint       `json:"learning_path_id"`
	Title            string     `json:"title"`
	Status           string     `json:"status"`
	SequencePosition int        `json:"sequence_position"`
	CompletedModules int        `json:"completed_modules"`
	TotalModules     int        `json:"total_modules"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// ProgressSummary is the user's XP balance plus per-path progress.
type ProgressSummary struct {
	XP    int                 `json:"xp"`
	Level int                 `json:"level"`
	Paths []AssignmentSummary `json:"paths"`
}

// GetSummary builds the progress dashboard for a user.
func (s *ProgressService) GetSummary(ctx context.Context, userID uint) (*ProgressSummary, error) {
	db := s.db.WithContext(ctx)

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	assignments, err := s.paths.OrderedAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &ProgressSummary{
		XP:    user.XP,
		Level: user.Level,
		Paths: make([]AssignmentSummary, 0, len(assignments)),
	}

	for _, a := range assignments {
		var moduleIDs []uint
		if err := db.Model(&model.LearningPathModule{}).
			Where("learning_path_id = ?", a.LearningPathID).
			Pluck("module_id", &moduleIDs).Error; err != nil {
			return nil, err
		}

		var done int64
		if len(moduleIDs) > 0 {
			if err := db.Model(&model.ModuleProgress{}).
				Where("user_id = ? AND completed = ? AND module_id IN ?", userID, true, moduleIDs).
				Count(&done).Error; err != nil {
				return nil, err
			}
		}

		summary.Paths = append(summary.Paths, AssignmentSummary{
			AssignmentID:     a.ID,
			LearningPathID:   a.LearningPathID,
			Title:            a.LearningPath.Title,
			Status:           a.Status,
			SequencePosition: a.SequencePosition,
			CompletedModules: int(done),
			TotalModules:     len(moduleIDs),
			CompletedAt:      a.CompletedAt,
		})
	}

	return summary, nil
}

// ResetUserProgress wipes all progress records for a user, zeroes XP, and
// re-linearizes the assignment sequence: first assignment in_progress, the
// rest locked. Admin-only operation.
func (s *ProgressService) ResetUserProgress(ctx context.Context, userID uint) error {
	if userID == 0 {
		return ErrInvalidArgument
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := forUpdate(tx).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		// Hard deletes: the unique progress keys must be reusable after a
		// reset.
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&model.ChapterProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&model.ModuleProgress{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{"xp": 0, "level": 1}).Error; err != nil {
			return err
		}

		ordered, err := s.paths.resequenceTx(tx, userID)
		if err != nil {
			return err
		}

		for i, a := range ordered {
			status := model.AssignmentStatusLocked
			if i == 0 {
				status = model.AssignmentStatusInProgress
			}
			if err := tx.Model(&model.PathAssignment{}).
				Where("id = ?", a.ID).
				Updates(map[string]interface{}{
					"status":       status,
					"completed_at": nil,
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if s.board != nil {
		s.board.Invalidate(ctx)
	}
	return nil
}
