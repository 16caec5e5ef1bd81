package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// StatsStore records schedule searches for the admin /stats report.
// The search_type column carries the dialog flow name, "group" or "lecturer".
// Inserts are best effort; callers log and proceed on failure.
type StatsStore struct {
	db *sqlx.DB
}

// NewStatsStore wraps an open database handle.
func NewStatsStore(db *sqlx.DB) *StatsStore {
	return &StatsStore{db: db}
}

// AddSearch records one search event.
func (s *StatsStore) AddSearch(ctx context.Context, userID int64, searchType, query string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stats (user_id, search_type, search_query, created_at)
		 VALUES ($1, $2, $3, now())`,
		userID, searchType, query)
	if err != nil {
		return fmt.Errorf("stats insert: %w", err)
	}
	return nil
}

// Summary aggregates search activity since a point in time.
type Summary struct {
	TotalSearches int64      `db:"total"`
	UniqueUsers   int64      `db:"users"`
	TopQueries    []TopQuery `db:"-"`
}

// TopQuery is one row of the most-searched report.
type TopQuery struct {
	SearchType string `db:"search_type"`
	Query      string `db:"search_query"`
	Count      int64  `db:"cnt"`
}

// Summarize returns totals and the most frequent queries since the cutoff.
func (s *StatsStore) Summarize(ctx context.Context, since time.Time, topN int) (Summary, error) {
	var sum Summary
	err := s.db.GetContext(ctx, &sum,
		`SELECT count(*) AS total, count(DISTINCT user_id) AS users
		 FROM stats WHERE created_at >= $1`, since)
	if err != nil {
		return Summary{}, fmt.Errorf("stats summary: %w", err)
	}

	err = s.db.SelectContext(ctx, &sum.TopQueries,
		`SELECT search_type, search_query, count(*) AS cnt
		 FROM stats WHERE created_at >= $1
		 GROUP BY search_type, search_query
		 ORDER BY cnt DESC, search_query
		 LIMIT $2`, since, topN)
	if err != nil {
		return Summary{}, fmt.Errorf("stats top queries: %w", err)
	}
	return sum, nil
}
