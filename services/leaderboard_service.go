package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pathlearn/lms-api/model"
	"github.com/pathlearn/lms-api/utils/cache"
	"gorm.io/gorm"
)

const (
	leaderboardCacheKey = "leaderboard:top"
	leaderboardCacheTTL = 1 * time.Minute
	leaderboardMaxSize  = 100
)

// LeaderboardService ranks active users by XP. Results are cached in Redis
// for a short window; the cache is optional and the service falls back to
// the database when it is unavailable.
type LeaderboardService struct {
	db    *gorm.DB
	cache *cache.RedisCache
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(db *gorm.DB, redisCache *cache.RedisCache) *LeaderboardService {
	return &LeaderboardService{
		db:    db,
		cache: redisCache,
	}
}

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	XP     int    `json:"xp"`
	Level  int    `json:"level"`
}

// Top returns the highest XP balances among active users, best first.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit < 1 || limit > leaderboardMaxSize {
		limit = leaderboardMaxSize
	}

	if s.cache != nil {
		var cached []LeaderboardEntry
		if err := s.cache.GetJSON(ctx, leaderboardCacheKey, &cached); err == nil {
			if len(cached) > limit {
				cached = cached[:limit]
			}
			return cached, nil
		}
	}

	entries, err := s.loadFromDB(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		// Best effort; a failed cache write is not a request failure.
		_ = s.cache.SetJSON(ctx, leaderboardCacheKey, entries, leaderboardCacheTTL)
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Invalidate drops the cached ranking. Called after XP mutations.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, leaderboardCacheKey)
}

// Refresh rebuilds the cached ranking. Used by the cron warm-up job.
func (s *LeaderboardService) Refresh(ctx context.Context) error {
	entries, err := s.loadFromDB(ctx)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.SetJSON(ctx, leaderboardCacheKey, entries, leaderboardCacheTTL)
}

func (s *LeaderboardService) loadFromDB(ctx context.Context) ([]LeaderboardEntry, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).
		Where("status = ?", model.UserStatusActive).
		Order("xp DESC, id ASC").
		Limit(leaderboardMaxSize).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Rank:   i + 1,
			UserID: u.ID,
			Name:   u.Name,
			XP:     u.XP,
			Level:  u.Level,
		})
	}
	return entries, nil
}
