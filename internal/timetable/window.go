package timetable

import "time"

// ProviderDateLayout is the date format the provider expects in requests
// and emits in lesson records.
const ProviderDateLayout = "20060102"

// DateWindow is a single day (End nil) or a half-open range [Start, End).
// It is used both as a cache key component and as a display filter.
type DateWindow struct {
	Start time.Time
	End   *time.Time
}

// Day returns a window covering exactly one calendar day.
func Day(d time.Time) DateWindow {
	return DateWindow{Start: truncateDay(d)}
}

// Range returns a half-open window [start, end).
func Range(start, end time.Time) DateWindow {
	e := truncateDay(end)
	return DateWindow{Start: truncateDay(start), End: &e}
}

// Today returns the single-day window for now.
func Today(now time.Time) DateWindow {
	return Day(now)
}

// Tomorrow returns the single-day window for the day after now.
func Tomorrow(now time.Time) DateWindow {
	return Day(now.AddDate(0, 0, 1))
}

// ThisWeek returns [Monday, next Monday) of the week containing now.
func ThisWeek(now time.Time) DateWindow {
	monday := truncateDay(now).AddDate(0, 0, -weekdayOffset(now))
	return Range(monday, monday.AddDate(0, 0, 7))
}

// NextWeek returns [Monday, next Monday) of the week after now.
func NextWeek(now time.Time) DateWindow {
	monday := truncateDay(now).AddDate(0, 0, 7-weekdayOffset(now))
	return Range(monday, monday.AddDate(0, 0, 7))
}

// weekdayOffset returns days since Monday (0 for Monday, 6 for Sunday).
func weekdayOffset(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// Contains reports whether d falls inside the window: equality with Start
// for a single-day window, Start <= d < End otherwise. Comparison is by
// calendar date so windows and dates may carry different time zones.
func (w DateWindow) Contains(d time.Time) bool {
	day := d.Format(ProviderDateLayout)
	start := w.Start.Format(ProviderDateLayout)
	if w.End == nil {
		return day == start
	}
	return day >= start && day < w.End.Format(ProviderDateLayout)
}

// ParamValue renders the window as the provider date parameter: YYYYMMDD for
// a single day, YYYYMMDD-YYYYMMDD with an inclusive last day for a range.
func (w DateWindow) ParamValue() string {
	if w.End == nil {
		return w.Start.Format(ProviderDateLayout)
	}
	last := w.End.AddDate(0, 0, -1)
	return w.Start.Format(ProviderDateLayout) + "-" + last.Format(ProviderDateLayout)
}

// CacheKey returns a stable string usable as a cache key component.
func (w DateWindow) CacheKey() string {
	return w.ParamValue()
}

func truncateDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}
