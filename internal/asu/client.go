package asu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	coreconfig "schedulebot/core/config"
	"schedulebot/core/logger"
	"schedulebot/internal/timetable"
)

const maxQueryLen = 50

// Client talks to the university timetable provider. Every outbound call
// goes through the throttle first; the provider bans aggressive clients.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	throttle Throttle
}

// New builds a provider client from config.
func New(cfg coreconfig.ProviderConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		http:     &http.Client{Timeout: cfg.Timeout()},
		throttle: NewThrottle(cfg.RequestDelay()),
	}
}

// NewWith builds a client with explicit collaborators. Used in tests.
func NewWith(baseURL, token string, hc *http.Client, th Throttle) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if th == nil {
		th = NoThrottle{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: hc, throttle: th}
}

// SearchGroup resolves a group by free-text query. The first provider match
// wins. Returns timetable.ErrNotFound when nothing matches.
func (c *Client) SearchGroup(ctx context.Context, query string) (timetable.Group, error) {
	query, err := normalizeQuery(query)
	if err != nil {
		return timetable.Group{}, err
	}

	data, err := c.getJSON(ctx, "search/students/", url.Values{"query": {query}})
	if err != nil {
		return timetable.Group{}, err
	}

	records := data.Sub("groups").List("records")
	if len(records) == 0 {
		logger.Info(ctx, "asu", "search.group.miss", slog.String("query", query))
		return timetable.Group{}, timetable.ErrNotFound
	}

	rec := records[0]
	group := timetable.Group{
		FacultyID: firstPathSegment(rec.Str("path")),
		GroupID:   rec.Int("groupId"),
		Name:      rec.Str("groupCode"),
	}
	logger.Info(ctx, "asu", "search.group.hit",
		slog.String("query", query),
		slog.String("key", group.ScheduleKey()),
	)
	return group, nil
}

// SearchLecturer resolves a lecturer by free-text query. Latin input is
// transliterated to Cyrillic before the call; the first match wins.
func (c *Client) SearchLecturer(ctx context.Context, query string) (timetable.Lecturer, error) {
	query, err := normalizeQuery(query)
	if err != nil {
		return timetable.Lecturer{}, err
	}
	query = ToRussian(query)

	data, err := c.getJSON(ctx, "search/lecturers/", url.Values{"query": {query}})
	if err != nil {
		return timetable.Lecturer{}, err
	}

	records := data.Sub("lecturers").List("records")
	if len(records) == 0 {
		logger.Info(ctx, "asu", "search.lecturer.miss", slog.String("query", query))
		return timetable.Lecturer{}, timetable.ErrNotFound
	}

	rec := records[0]
	lect := timetable.Lecturer{
		FacultyID:  firstPathSegment(rec.Str("path")),
		ChairID:    rec.Int("lecturerIdChair"),
		LecturerID: rec.Int("lecturerId"),
		Name:       rec.Str("lecturerName"),
		Position:   rec.Str("lecturerPosition"),
	}
	logger.Info(ctx, "asu", "search.lecturer.hit",
		slog.String("query", query),
		slog.String("key", lect.ScheduleKey()),
	)
	return lect, nil
}

// FetchLessons downloads raw schedule records for the subject within the
// window. An empty record list is a valid result, not an error.
func (c *Client) FetchLessons(ctx context.Context, sched timetable.Schedule, window timetable.DateWindow) ([]Record, error) {
	params := url.Values{"date": {window.ParamValue()}}

	data, err := c.getJSON(ctx, sched.SourcePath(), params)
	if err != nil {
		return nil, err
	}

	records := data.Sub("schedule").List("records")
	logger.Info(ctx, "asu", "schedule.fetch",
		slog.String("key", sched.ScheduleKey()),
		slog.String("date", window.ParamValue()),
		slog.Int("count", len(records)),
	)
	return records, nil
}

// ScheduleLink returns the public web page for the subject's timetable.
func (c *Client) ScheduleLink(sched timetable.Schedule) string {
	return c.baseURL + "/" + sched.SourcePath()
}

func normalizeQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", timetable.ErrEmptyQuery
	}
	if runes := []rune(query); len(runes) > maxQueryLen {
		query = string(runes[:maxQueryLen])
	}
	return query, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, extra url.Values) (Record, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", timetable.ErrProviderUnavailable, err)
	}

	params := url.Values{
		"file":      {"list.json"},
		"api_token": {c.token},
	}
	for k, vs := range extra {
		params[k] = vs
	}

	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", timetable.ErrProviderUnavailable, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn(ctx, "asu", "request.fail",
			slog.String("endpoint", endpoint),
			slog.Any("err", err),
		)
		return nil, fmt.Errorf("%w: %w", timetable.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		logger.Warn(ctx, "asu", "request.fail",
			slog.String("endpoint", endpoint),
			slog.Int("code", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: status %d", timetable.ErrProviderUnavailable, resp.StatusCode)
	}

	var data Record
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", timetable.ErrProviderUnavailable, err)
	}

	logger.Debug(ctx, "asu", "request.done",
		slog.String("endpoint", endpoint),
		slog.Duration("duration", time.Since(start)),
	)
	return data, nil
}
