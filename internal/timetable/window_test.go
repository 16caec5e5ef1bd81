package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDayContains(t *testing.T) {
	w := Day(date(2025, time.September, 10))

	assert.True(t, w.Contains(date(2025, time.September, 10)))
	assert.False(t, w.Contains(date(2025, time.September, 9)))
	assert.False(t, w.Contains(date(2025, time.September, 11)))
}

func TestRangeContainsHalfOpen(t *testing.T) {
	w := Range(date(2025, time.September, 8), date(2025, time.September, 15))

	assert.True(t, w.Contains(date(2025, time.September, 8)), "start is inclusive")
	assert.True(t, w.Contains(date(2025, time.September, 14)))
	assert.False(t, w.Contains(date(2025, time.September, 15)), "end is exclusive")
	assert.False(t, w.Contains(date(2025, time.September, 7)))
}

func TestContainsIgnoresTimeOfDay(t *testing.T) {
	w := Day(date(2025, time.September, 10))
	noon := time.Date(2025, time.September, 10, 12, 30, 0, 0, time.UTC)
	assert.True(t, w.Contains(noon))
}

func TestThisWeekFromWednesday(t *testing.T) {
	// Wednesday 2025-09-10 -> [Monday 2025-09-08, Monday 2025-09-15)
	wed := time.Date(2025, time.September, 10, 15, 4, 0, 0, time.UTC)
	w := ThisWeek(wed)

	require.NotNil(t, w.End)
	assert.Equal(t, "20250908", w.Start.Format(ProviderDateLayout))
	assert.Equal(t, "20250915", w.End.Format(ProviderDateLayout))
	assert.True(t, w.Contains(date(2025, time.September, 14)), "Sunday belongs to the week")
	assert.False(t, w.Contains(date(2025, time.September, 15)))
}

func TestThisWeekFromSunday(t *testing.T) {
	sun := date(2025, time.September, 14)
	w := ThisWeek(sun)

	assert.Equal(t, "20250908", w.Start.Format(ProviderDateLayout))
	assert.True(t, w.Contains(sun))
}

func TestNextWeek(t *testing.T) {
	wed := date(2025, time.September, 10)
	w := NextWeek(wed)

	require.NotNil(t, w.End)
	assert.Equal(t, "20250915", w.Start.Format(ProviderDateLayout))
	assert.Equal(t, "20250922", w.End.Format(ProviderDateLayout))
}

func TestParamValue(t *testing.T) {
	single := Day(date(2025, time.September, 10))
	assert.Equal(t, "20250910", single.ParamValue())

	// The provider expects an inclusive last day in range requests.
	week := Range(date(2025, time.September, 8), date(2025, time.September, 15))
	assert.Equal(t, "20250908-20250914", week.ParamValue())
}

func TestScheduleKeys(t *testing.T) {
	g := Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"}
	l := Lecturer{FacultyID: 3, ChairID: 12, LecturerID: 77, Name: "Иванов"}

	assert.Equal(t, "group:3:555", g.ScheduleKey())
	assert.Equal(t, "lecturer:3:12:77", l.ScheduleKey())
	assert.False(t, g.IsLecturer())
	assert.True(t, l.IsLecturer())
	assert.Equal(t, "students/3/555/", g.SourcePath())
	assert.Equal(t, "lecturers/3/12/77/", l.SourcePath())
}

func TestSortedDates(t *testing.T) {
	tt := NewTimetable()
	tt.Days["2025-09-12"] = nil
	tt.Days["2025-09-08"] = nil
	tt.Days["2025-09-10"] = nil

	assert.Equal(t, []string{"2025-09-08", "2025-09-10", "2025-09-12"}, tt.SortedDates())
	assert.False(t, tt.IsEmpty())
	assert.True(t, NewTimetable().IsEmpty())
}
