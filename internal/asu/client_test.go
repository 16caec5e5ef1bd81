package asu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedulebot/internal/timetable"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWith(srv.URL, "test-token", srv.Client(), NoThrottle{})
}

func TestSearchGroup(t *testing.T) {
	var gotQuery, gotToken string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/students/", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		gotToken = r.URL.Query().Get("api_token")
		json.NewEncoder(w).Encode(map[string]any{
			"groups": map[string]any{
				"records": []any{
					map[string]any{"path": "3/7", "groupId": float64(555), "groupCode": "ИВТ-101"},
					map[string]any{"path": "9/9", "groupId": float64(999), "groupCode": "другая"},
				},
			},
		})
	})

	group, err := c.SearchGroup(context.Background(), "  ИВТ-101 ")
	require.NoError(t, err)
	assert.Equal(t, "ИВТ-101", gotQuery)
	assert.Equal(t, "test-token", gotToken)
	assert.Equal(t, timetable.Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"}, group)
}

func TestSearchGroupNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"groups": map[string]any{"records": []any{}},
		})
	})

	_, err := c.SearchGroup(context.Background(), "нет такой")
	assert.ErrorIs(t, err, timetable.ErrNotFound)
}

func TestSearchGroupEmptyQuery(t *testing.T) {
	c := NewWith("http://unused", "t", nil, NoThrottle{})
	_, err := c.SearchGroup(context.Background(), "   ")
	assert.ErrorIs(t, err, timetable.ErrEmptyQuery)
}

func TestSearchGroupCapsQueryLength(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(map[string]any{
			"groups": map[string]any{"records": []any{}},
		})
	})

	long := strings.Repeat("ю", 80)
	_, err := c.SearchGroup(context.Background(), long)
	assert.ErrorIs(t, err, timetable.ErrNotFound)
	assert.Equal(t, strings.Repeat("ю", 50), gotQuery)
}

func TestSearchLecturerTransliterates(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/lecturers/", r.URL.Path)
		gotQuery = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(map[string]any{
			"lecturers": map[string]any{
				"records": []any{
					map[string]any{
						"path":             "3/12/77",
						"lecturerId":       float64(77),
						"lecturerIdChair":  float64(12),
						"lecturerName":     "Иванов Иван Иванович",
						"lecturerPosition": "доц.",
					},
				},
			},
		})
	})

	lect, err := c.SearchLecturer(context.Background(), "Ivanov")
	require.NoError(t, err)
	assert.Equal(t, "иванов", gotQuery)
	assert.Equal(t, timetable.Lecturer{
		FacultyID:  3,
		ChairID:    12,
		LecturerID: 77,
		Name:       "Иванов Иван Иванович",
		Position:   "доц.",
	}, lect)
}

func TestFetchLessonsEmptyIsNotError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students/3/555/", r.URL.Path)
		assert.Equal(t, "20250908", r.URL.Query().Get("date"))
		json.NewEncoder(w).Encode(map[string]any{
			"schedule": map[string]any{"records": []any{}},
		})
	})

	group := timetable.Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"}
	window := timetable.Day(date(2025, 9, 8))

	records, err := c.FetchLessons(context.Background(), group, window)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchLessonsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	group := timetable.Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"}
	_, err := c.FetchLessons(context.Background(), group, timetable.Day(date(2025, 9, 8)))
	assert.ErrorIs(t, err, timetable.ErrProviderUnavailable)
}

func TestScheduleLink(t *testing.T) {
	c := NewWith("https://www.asu.ru/timetable", "t", nil, NoThrottle{})
	group := timetable.Group{FacultyID: 3, GroupID: 555}
	assert.Equal(t, "https://www.asu.ru/timetable/students/3/555/", c.ScheduleLink(group))
}
