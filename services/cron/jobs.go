package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/pathlearn/lms-api/model"
	"github.com/pathlearn/lms-api/utils/auth"
)

// RefreshLeaderboard rebuilds the cached XP ranking.
func (m *CronManager) RefreshLeaderboard() {
	jobName := "refresh_leaderboard"
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.leaderboard.Refresh(ctx); err != nil {
		m.logJobError(jobName, err)
		return
	}

	m.logJobComplete(jobName, "leaderboard cache refreshed")
}

// NormalizeAllAssignments runs the assignment repair pass for every user
// with at least one path assignment.
func (m *CronManager) NormalizeAllAssignments() {
	jobName := "normalize_assignments"
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	userIDs, err := m.paths.UsersWithAssignments(ctx)
	if err != nil {
		m.logJobError(jobName, err)
		return
	}

	repaired := 0
	for _, userID := range userIDs {
		changed, err := m.paths.NormalizeAssignments(ctx, userID)
		if err != nil {
			m.logJobError(jobName, fmt.Errorf("user %d: %w", userID, err))
			return
		}
		repaired += changed
	}

	m.logJobComplete(jobName, fmt.Sprintf("%d users checked, %d statuses repaired", len(userIDs), repaired))
}

// CleanupOldData purges expired blacklist entries, spent password reset
// tokens, and cron logs older than 30 days.
func (m *CronManager) CleanupOldData() {
	jobName := "cleanup_old_data"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	blacklist := auth.NewBlacklistService(m.db)
	if err := blacklist.CleanupExpiredTokens(ctx); err != nil {
		m.logJobError(jobName, err)
		return
	}

	if err := m.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", time.Now()).
		Delete(&model.PasswordResetToken{}).Error; err != nil {
		m.logJobError(jobName, err)
		return
	}

	cutoff := time.Now().AddDate(0, 0, -30)
	res := m.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&model.CronJobLog{})
	if res.Error != nil {
		m.logJobError(jobName, res.Error)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("expired tokens purged, %d old cron logs removed", res.RowsAffected))
}
