package dialog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	coreconfig "schedulebot/core/config"
	"schedulebot/core/logger"
	"schedulebot/internal/asu"
	"schedulebot/internal/cache"
	"schedulebot/internal/render"
	"schedulebot/internal/timetable"
)

// Provider resolves subjects and fetches raw lessons from the upstream
// timetable service.
type Provider interface {
	SearchGroup(ctx context.Context, query string) (timetable.Group, error)
	SearchLecturer(ctx context.Context, query string) (timetable.Lecturer, error)
	FetchLessons(ctx context.Context, sched timetable.Schedule, window timetable.DateWindow) ([]asu.Record, error)
	ScheduleLink(sched timetable.Schedule) string
}

// Preferences persists per-user saved subjects.
type Preferences interface {
	SavedGroup(ctx context.Context, userID int64) (timetable.Group, bool, error)
	SaveGroup(ctx context.Context, userID int64, group timetable.Group) error
	ClearGroup(ctx context.Context, userID int64) error
	SavedLecturer(ctx context.Context, userID int64) (timetable.Lecturer, bool, error)
	SaveLecturer(ctx context.Context, userID int64, lect timetable.Lecturer) error
	ClearLecturer(ctx context.Context, userID int64) error
}

// Stats records search activity.
type Stats interface {
	AddSearch(ctx context.Context, userID int64, searchType, query string) error
}

// Service composes the provider, the caches, the renderer and user
// preferences into the operations the dialog machine needs. Persistence
// failures around preferences and stats degrade to a warning; a schedule
// request must still succeed when the database is down.
type Service struct {
	provider Provider
	prefs    Preferences
	stats    Stats

	groups     *cache.Lookup[timetable.Group]
	lecturers  *cache.Lookup[timetable.Lecturer]
	timetables *cache.Lookup[timetable.Timetable]
}

// NewService wires the dialog service over a shared cache store.
func NewService(provider Provider, prefs Preferences, stats Stats, store cache.Store, cfg coreconfig.CacheConfig) *Service {
	return &Service{
		provider:   provider,
		prefs:      prefs,
		stats:      stats,
		groups:     cache.NewLookup[timetable.Group](store, "group", cfg.IdentityTTL(), cfg.NegativeTTL()),
		lecturers:  cache.NewLookup[timetable.Lecturer](store, "lecturer", cfg.IdentityTTL(), cfg.NegativeTTL()),
		timetables: cache.NewLookup[timetable.Timetable](store, "tt", cfg.TimetableTTL(), 0),
	}
}

// ResolveGroup resolves a free-text group query through the identity cache.
// Not-found outcomes are cached; provider failures are not.
func (s *Service) ResolveGroup(ctx context.Context, query string) (timetable.Group, error) {
	key := queryKey(query)
	if key == "" {
		return timetable.Group{}, timetable.ErrEmptyQuery
	}

	group, found, err := s.groups.Get(ctx, key, func(ctx context.Context) (timetable.Group, bool, error) {
		g, err := s.provider.SearchGroup(ctx, query)
		if errors.Is(err, timetable.ErrNotFound) {
			return timetable.Group{}, false, nil
		}
		if err != nil {
			return timetable.Group{}, false, err
		}
		return g, true, nil
	})
	if err != nil {
		return timetable.Group{}, err
	}
	if !found {
		return timetable.Group{}, timetable.ErrNotFound
	}
	return group, nil
}

// ResolveLecturer resolves a free-text lecturer query through the identity
// cache. The cache key uses the raw query so Latin and Cyrillic spellings
// cache independently; the provider client transliterates before searching.
func (s *Service) ResolveLecturer(ctx context.Context, query string) (timetable.Lecturer, error) {
	key := queryKey(query)
	if key == "" {
		return timetable.Lecturer{}, timetable.ErrEmptyQuery
	}

	lect, found, err := s.lecturers.Get(ctx, key, func(ctx context.Context) (timetable.Lecturer, bool, error) {
		l, err := s.provider.SearchLecturer(ctx, query)
		if errors.Is(err, timetable.ErrNotFound) {
			return timetable.Lecturer{}, false, nil
		}
		if err != nil {
			return timetable.Lecturer{}, false, err
		}
		return l, true, nil
	})
	if err != nil {
		return timetable.Lecturer{}, err
	}
	if !found {
		return timetable.Lecturer{}, timetable.ErrNotFound
	}
	return lect, nil
}

// BuildMessage fetches, normalizes and renders the subject's schedule for
// the window, reusing a cached timetable when one is live.
func (s *Service) BuildMessage(ctx context.Context, sched timetable.Schedule, window timetable.DateWindow) (string, error) {
	key := sched.ScheduleKey() + ":" + window.CacheKey()

	tt, _, err := s.timetables.Get(ctx, key, func(ctx context.Context) (timetable.Timetable, bool, error) {
		records, err := s.provider.FetchLessons(ctx, sched, window)
		if err != nil {
			return timetable.Timetable{}, false, err
		}
		// An empty timetable is a valid, cacheable result.
		return asu.Normalize(records, window), true, nil
	})
	if err != nil {
		return "", err
	}

	return render.Format(tt, s.provider.ScheduleLink(sched), sched.DisplayName(), window, sched.IsLecturer()), nil
}

// SavedGroup returns the user's saved group. Store failures count as "no
// saved group" so the dialog falls back to asking for a name.
func (s *Service) SavedGroup(ctx context.Context, userID int64) (timetable.Group, bool) {
	group, ok, err := s.prefs.SavedGroup(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "dialog", "prefs.load.fail", slog.Any("err", err))
		return timetable.Group{}, false
	}
	return group, ok
}

// SavedLecturer returns the user's saved lecturer, degrading like SavedGroup.
func (s *Service) SavedLecturer(ctx context.Context, userID int64) (timetable.Lecturer, bool) {
	lect, ok, err := s.prefs.SavedLecturer(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "dialog", "prefs.load.fail", slog.Any("err", err))
		return timetable.Lecturer{}, false
	}
	return lect, ok
}

// SaveGroup persists the group as the user's default, best effort.
func (s *Service) SaveGroup(ctx context.Context, userID int64, group timetable.Group) {
	if err := s.prefs.SaveGroup(ctx, userID, group); err != nil {
		logger.Warn(ctx, "dialog", "prefs.save.fail", slog.Any("err", err))
	}
}

// SaveLecturer persists the lecturer as the user's default, best effort.
func (s *Service) SaveLecturer(ctx context.Context, userID int64, lect timetable.Lecturer) {
	if err := s.prefs.SaveLecturer(ctx, userID, lect); err != nil {
		logger.Warn(ctx, "dialog", "prefs.save.fail", slog.Any("err", err))
	}
}

// ClearSavedGroup drops the user's saved group.
func (s *Service) ClearSavedGroup(ctx context.Context, userID int64) error {
	return s.prefs.ClearGroup(ctx, userID)
}

// ClearSavedLecturer drops the user's saved lecturer.
func (s *Service) ClearSavedLecturer(ctx context.Context, userID int64) error {
	return s.prefs.ClearLecturer(ctx, userID)
}

// RecordSearch stores a usage statistic, best effort.
func (s *Service) RecordSearch(ctx context.Context, userID int64, searchType, query string) {
	if s.stats == nil {
		return
	}
	if err := s.stats.AddSearch(ctx, userID, searchType, query); err != nil {
		logger.Warn(ctx, "dialog", "stats.fail", slog.Any("err", err))
	}
}

func queryKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
