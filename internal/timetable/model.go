package timetable

import "sort"

// DateKey is the layout used for day keys inside a Timetable.
const DateKey = "2006-01-02"

// Room describes where a lesson takes place.
type Room struct {
	Address string `json:"address"`
	// AddressCode is the provider's short building marker, e.g. "Д".
	AddressCode string `json:"address_code"`
	Number      string `json:"number"`
}

// SubjectGroup is a group attending a lesson, with an optional subgroup marker.
type SubjectGroup struct {
	Name     string `json:"name"`
	SubGroup string `json:"sub_group,omitempty"`
}

// SubjectLecturer is a lecturer teaching a lesson.
type SubjectLecturer struct {
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
}

// Subject carries everything shown for a single lesson entry.
// Absent provider fields are kept as empty strings, never as nulls.
type Subject struct {
	Title     string            `json:"title"`
	Type      string            `json:"type,omitempty"`
	Comment   string            `json:"comment,omitempty"`
	Groups    []SubjectGroup    `json:"groups,omitempty"`
	Lecturers []SubjectLecturer `json:"lecturers,omitempty"`
	Room      Room              `json:"room"`
}

// Lesson is one timetable slot. Number stays a string because the provider
// emits it as free text; ordering always parses it numerically.
type Lesson struct {
	Number    string  `json:"number"`
	TimeStart string  `json:"time_start"`
	TimeEnd   string  `json:"time_end"`
	Subject   Subject `json:"subject"`
}

// Timetable maps DateKey-formatted dates to lessons ordered by lesson number.
type Timetable struct {
	Days map[string][]Lesson `json:"days"`
}

// NewTimetable returns an empty timetable.
func NewTimetable() Timetable {
	return Timetable{Days: make(map[string][]Lesson)}
}

// IsEmpty reports whether the timetable holds no days at all.
func (t Timetable) IsEmpty() bool {
	return len(t.Days) == 0
}

// SortedDates returns the day keys in ascending calendar order.
func (t Timetable) SortedDates() []string {
	dates := make([]string, 0, len(t.Days))
	for d := range t.Days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
