package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/accessai/internal/apperror"
	"github.com/sakif/accessai/internal/cache"
	"github.com/sakif/accessai/internal/events"
	"github.com/sakif/accessai/internal/metrics"
	"github.com/sakif/accessai/internal/model"
	"github.com/sakif/accessai/internal/repository"
)

const (
	// PointsPerLevel is the width of one level band.
	PointsPerLevel = 100
	// MaxAchievementLength bounds achievement names, counted in characters.
	MaxAchievementLength = 64

	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// Point sources, used as metric labels and in events.
const (
	SourceChat   = "chat"
	SourceManual = "manual"
	SourceLesson = "lesson"
)

// NextLevel raises level until points no longer reach the next band.
// Levels never go down.
func NextLevel(level, points int) int {
	if level < model.StartingLevel {
		level = model.StartingLevel
	}
	for points >= level*PointsPerLevel {
		level++
	}
	return level
}

type GamificationService struct {
	users     repository.UserRepository
	cache     cache.Leaderboard
	publisher events.Publisher
	logger    *slog.Logger
}

func NewGamificationService(
	users repository.UserRepository,
	lb cache.Leaderboard,
	publisher events.Publisher,
	logger *slog.Logger,
) *GamificationService {
	return &GamificationService{
		users:     users,
		cache:     lb,
		publisher: publisher,
		logger:    logger,
	}
}

// AwardPoints adds delta points, records achievement if given and recomputes
// the level, all in one storage transaction.
func (s *GamificationService) AwardPoints(ctx context.Context, userID string, delta int, achievement, source string) (*model.User, error) {
	if delta < 0 {
		return nil, apperror.ValidationFailed("points", "points must be a non-negative integer")
	}
	achievement = strings.TrimSpace(achievement)
	if utf8.RuneCountInString(achievement) > MaxAchievementLength {
		return nil, apperror.ValidationFailed("achievement",
			fmt.Sprintf("achievement must be at most %d characters", MaxAchievementLength))
	}

	return s.Progress(ctx, userID, source, func(u *model.User) error {
		u.Points += delta
		u.AddAchievement(achievement)
		return nil
	})
}

// Progress applies fn to the user, then recomputes the level. It is the one
// path through which points change: the leaderboard cache is invalidated and
// a points.awarded event published whenever points moved.
func (s *GamificationService) Progress(ctx context.Context, userID, source string, fn repository.ProgressFunc) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("missing user identity")
	}

	var before int
	user, err := s.users.UpdateProgress(ctx, userID, func(u *model.User) error {
		before = u.Points
		if err := fn(u); err != nil {
			return err
		}
		u.Level = NextLevel(u.Level, u.Points)
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("service/gamification: updating user %s: %w", userID, err)
	}

	if gained := user.Points - before; gained > 0 {
		metrics.PointsAwardedTotal.WithLabelValues(source).Add(float64(gained))
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("leaderboard cache invalidation failed", slog.String("error", err.Error()))
		}
		s.publisher.Publish(ctx, events.New(events.TypePointsAwarded, userID, map[string]any{
			"source": source,
			"delta":  gained,
			"points": user.Points,
			"level":  user.Level,
		}))
	}

	s.logger.Debug("progress updated",
		slog.String("userID", userID),
		slog.String("source", source),
		slog.Int("points", user.Points),
		slog.Int("level", user.Level),
	)
	return user, nil
}

// NormalizePage clamps paging parameters to their allowed ranges.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	return page, limit
}

// Leaderboard returns one page ordered by points, most recently active first
// on ties. Pages are served from the cache when possible.
func (s *GamificationService) Leaderboard(ctx context.Context, page, limit int) (*model.LeaderboardPage, error) {
	page, limit = NormalizePage(page, limit)

	cached, gen, cacheErr := s.cache.Get(ctx, page, limit)
	if cacheErr != nil {
		s.logger.Warn("leaderboard cache read failed", slog.String("error", cacheErr.Error()))
	}
	if cached != nil {
		return cached, nil
	}

	users, err := s.users.ListByPoints(ctx, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("service/gamification: listing users: %w", err)
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/gamification: counting users: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(users))
	for i := range users {
		entries = append(entries, users[i].LeaderboardEntry())
	}
	lb := &model.LeaderboardPage{
		Leaderboard: entries,
		Pagination: model.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}

	// Without a known generation the page could land under a newer one.
	if cacheErr == nil {
		if err := s.cache.Set(ctx, gen, page, limit, lb); err != nil {
			s.logger.Warn("leaderboard cache write failed", slog.String("error", err.Error()))
		}
	}
	return lb, nil
}
