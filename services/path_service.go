package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pathlearn/lms-api/model"
	"gorm.io/gorm"
)

// PathService owns learning-path assignments: the per-user sequence, the
// completion check with its unlock cascade, and the batch status repair
// pass. All multi-row mutations run inside the caller's transaction.
type PathService struct {
	db *gorm.DB
}

// NewPathService creates a new path service
func NewPathService(db *gorm.DB) *PathService {
	return &PathService{
		db: db,
	}
}

// CheckResult is the outcome of a completion check, including everything a
// cascade completed downstream of the triggering assignment.
type CheckResult struct {
	Completed      bool   `json:"completed"`
	BonusXP        int    `json:"bonus_xp"`
	CompletedPaths []uint `json:"completed_paths,omitempty"`
}

// CheckCompletion runs the completion check for one assignment in its own
// transaction. The module-completion flow calls checkCompletionTx directly
// so the whole request shares a single transaction.
func (s *PathService) CheckCompletion(ctx context.Context, userID, assignmentID uint) (*CheckResult, error) {
	var result *CheckResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.checkCompletionTx(tx, userID, assignmentID, time.Now())
		return err
	})
	return result, err
}

// checkCompletionTx walks the user's assignment sequence starting at the
// given assignment. Each step completes the current path if every member
// module is done, credits the bonus, unlocks the successor, and re-checks
// it; the walk stops at the first incomplete path or the end of the
// sequence. A worklist over the ordered slice replaces recursion so
// arbitrarily long chains cannot grow the stack.
func (s *PathService) checkCompletionTx(tx *gorm.DB, userID, assignmentID uint, now time.Time) (*CheckResult, error) {
	result := &CheckResult{}

	ordered, err := s.orderedAssignmentsTx(tx, userID)
	if err != nil {
		return nil, err
	}

	start := -1
	for i, a := range ordered {
		if a.ID == assignmentID {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, ErrAssignmentNotFound
	}

	for i := start; i < len(ordered); i++ {
		a := ordered[i]
		if a.Status == model.AssignmentStatusCompleted {
			break
		}

		complete, totalXP, err := s.pathProgressTx(tx, userID, a.LearningPathID)
		if err != nil {
			return nil, err
		}
		if !complete {
			break
		}

		// Guarded transition: the status predicate makes the completion and
		// its bonus exactly-once even if two flows race on the same row.
		res := tx.Model(&model.PathAssignment{}).
			Where("id = ? AND status <> ?", a.ID, model.AssignmentStatusCompleted).
			Updates(map[string]interface{}{
				"status":       model.AssignmentStatusCompleted,
				"completed_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			break
		}

		bonus := totalXP / 2
		if bonus > 0 {
			if err := creditXPTx(tx, userID, bonus); err != nil {
				return nil, err
			}
		}
		result.Completed = true
		result.BonusXP += bonus
		result.CompletedPaths = append(result.CompletedPaths, a.LearningPathID)

		// Unlock the successor and let the loop re-check it: its modules may
		// already be satisfied from out-of-order activity across paths.
		if i+1 >= len(ordered) {
			break
		}
		next := ordered[i+1]
		if next.Status != model.AssignmentStatusLocked {
			break
		}
		if err := tx.Model(&model.PathAssignment{}).
			Where("id = ? AND status = ?", next.ID, model.AssignmentStatusLocked).
			Update("status", model.AssignmentStatusInProgress).Error; err != nil {
			return nil, err
		}
		ordered[i+1].Status = model.AssignmentStatusInProgress
	}

	return result, nil
}

// pathProgressTx reports whether every member module of the path has a
// completed progress record for the user, plus the sum of member module XP.
// A path with no modules is vacuously complete.
func (s *PathService) pathProgressTx(tx *gorm.DB, userID, pathID uint) (bool, int, error) {
	var modules []model.Module
	if err := tx.
		Joins("JOIN learning_path_modules lpm ON lpm.module_id = modules.id").
		Where("lpm.learning_path_id = ?", pathID).
		Find(&modules).Error; err != nil {
		return false, 0, err
	}

	totalXP := 0
	moduleIDs := make([]uint, 0, len(modules))
	for _, m := range modules {
		totalXP += m.XP
		moduleIDs = append(moduleIDs, m.ID)
	}

	if len(moduleIDs) == 0 {
		return true, 0, nil
	}

	var done int64
	if err := tx.Model(&model.ModuleProgress{}).
		Where("user_id = ? AND completed = ? AND module_id IN ?", userID, true, moduleIDs).
		Count(&done).Error; err != nil {
		return false, 0, err
	}

	return done == int64(len(moduleIDs)), totalXP, nil
}

// OrderedAssignments returns the user's assignments in sequence order with
// their learning paths preloaded.
func (s *PathService) OrderedAssignments(ctx context.Context, userID uint) ([]model.PathAssignment, error) {
	var assignments []model.PathAssignment
	err := s.db.WithContext(ctx).
		Preload("LearningPath").
		Where("user_id = ?", userID).
		Order("sequence_position ASC").
		Find(&assignments).Error
	return assignments, err
}

func (s *PathService) orderedAssignmentsTx(tx *gorm.DB, userID uint) ([]model.PathAssignment, error) {
	var assignments []model.PathAssignment
	err := tx.
		Where("user_id = ?", userID).
		Order("sequence_position ASC").
		Find(&assignments).Error
	return assignments, err
}

// AssignPath assigns a learning path to a user. The new assignment starts
// locked unless it lands first in the user's sequence.
func (s *PathService) AssignPath(ctx context.Context, userID, pathID uint) (*model.PathAssignment, error) {
	if userID == 0 || pathID == 0 {
		return nil, ErrInvalidArgument
	}

	var assignment model.PathAssignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var path model.LearningPath
		if err := tx.First(&path, pathID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPathNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&model.PathAssignment{}).
			Where("user_id = ? AND learning_path_id = ?", userID, pathID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyAssigned
		}

		assignment = model.PathAssignment{
			UserID:         userID,
			LearningPathID: pathID,
			Status:         model.AssignmentStatusLocked,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}

		ordered, err := s.resequenceTx(tx, userID)
		if err != nil {
			return err
		}

		// First in sequence is immediately startable.
		if len(ordered) > 0 && ordered[0].ID == assignment.ID {
			if err := tx.Model(&model.PathAssignment{}).
				Where("id = ?", assignment.ID).
				Update("status", model.AssignmentStatusInProgress).Error; err != nil {
				return err
			}
		}

		return tx.First(&assignment, assignment.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// resequenceTx recomputes sequence positions for a user's assignments from
// the creation time of each assignment's learning path (path id breaks
// ties). Returns the assignments in their new order.
func (s *PathService) resequenceTx(tx *gorm.DB, userID uint) ([]model.PathAssignment, error) {
	var assignments []model.PathAssignment
	if err := tx.
		Joins("JOIN learning_paths lp ON lp.id = path_assignments.learning_path_id").
		Where("path_assignments.user_id = ?", userID).
		Order("lp.created_at ASC, lp.id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	for i := range assignments {
		if assignments[i].SequencePosition == i {
			continue
		}
		if err := tx.Model(&model.PathAssignment{}).
			Where("id = ?", assignments[i].ID).
			UpdateColumn("sequence_position", i).Error; err != nil {
			return nil, err
		}
		assignments[i].SequencePosition = i
	}

	return assignments, nil
}

// NormalizeAssignments is the batch consistency repair pass: recompute
// sequence positions, make sure the first assignment is startable, promote
// successors of completed paths and re-lock in_progress successors of
// unfinished ones. Completed assignments are never demoted; their bonus has
// been paid and the record stands. Returns the number of status changes.
func (s *PathService) NormalizeAssignments(ctx context.Context, userID uint) (int, error) {
	changed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ordered, err := s.resequenceTx(tx, userID)
		if err != nil {
			return err
		}

		for i := range ordered {
			want := ordered[i].Status
			if i == 0 {
				if want == model.AssignmentStatusLocked {
					want = model.AssignmentStatusInProgress
				}
			} else {
				prev := ordered[i-1]
				switch {
				case prev.Status == model.AssignmentStatusCompleted &&
					ordered[i].Status == model.AssignmentStatusLocked:
					want = model.AssignmentStatusInProgress
				case prev.Status != model.AssignmentStatusCompleted &&
					ordered[i].Status == model.AssignmentStatusInProgress:
					want = model.AssignmentStatusLocked
				}
			}

			if want == ordered[i].Status {
				continue
			}
			if err := tx.Model(&model.PathAssignment{}).
				Where("id = ?", ordered[i].ID).
				Update("status", want).Error; err != nil {
				return err
			}
			ordered[i].Status = want
			changed++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// UsersWithAssignments lists distinct user IDs that have at least one path
// assignment. Used by the nightly normalization sweep.
func (s *PathService) UsersWithAssignments(ctx context.Context) ([]uint, error) {
	var userIDs []uint
	err := s.db.WithContext(ctx).
		Model(&model.PathAssignment{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

// creditXPTx adds delta to the user's XP balance and refreshes the derived
// level from the new total.
func creditXPTx(tx *gorm.DB, userID uint, delta int) error {
	if err := tx.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("xp", gorm.Expr("xp + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to credit xp: %w", err)
	}

	var xp int
	if err := tx.Model(&model.User{}).
		Select("xp").
		Where("id = ?", userID).
		Scan(&xp).Error; err != nil {
		return err
	}

	return tx.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("level", model.LevelForXP(xp)).Error
}
