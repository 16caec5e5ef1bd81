package timetable

import "fmt"

// Schedule is the resolved subject of a schedule query: a group or a lecturer.
// Implementations are immutable; a new search produces a new value.
type Schedule interface {
	// DisplayName returns the human-readable name shown in messages.
	DisplayName() string
	// ScheduleKey returns a stable composite key built from numeric ids.
	// Saved preferences and cache entries compare by this key, never by name.
	ScheduleKey() string
	// SourcePath returns the provider path for this subject's timetable,
	// relative to the provider base URL.
	SourcePath() string
	// IsLecturer reports whether the subject is a lecturer.
	IsLecturer() bool
}

// Group identifies a student group within a faculty.
type Group struct {
	FacultyID int    `json:"faculty_id"`
	GroupID   int    `json:"group_id"`
	Name      string `json:"name"`
}

// DisplayName returns the group code.
func (g Group) DisplayName() string { return g.Name }

// ScheduleKey returns the composite faculty+group key.
func (g Group) ScheduleKey() string {
	return fmt.Sprintf("group:%d:%d", g.FacultyID, g.GroupID)
}

// SourcePath returns the provider path for the group timetable.
func (g Group) SourcePath() string {
	return fmt.Sprintf("students/%d/%d/", g.FacultyID, g.GroupID)
}

// IsLecturer reports false for groups.
func (g Group) IsLecturer() bool { return false }

// Lecturer identifies a lecturer within a faculty chair.
type Lecturer struct {
	FacultyID  int    `json:"faculty_id"`
	ChairID    int    `json:"chair_id"`
	LecturerID int    `json:"lecturer_id"`
	Name       string `json:"name"`
	// Position holds the provider's job title abbreviation, e.g. "преп.".
	Position string `json:"position"`
}

// DisplayName returns the lecturer name.
func (l Lecturer) DisplayName() string { return l.Name }

// ScheduleKey returns the composite faculty+chair+lecturer key.
func (l Lecturer) ScheduleKey() string {
	return fmt.Sprintf("lecturer:%d:%d:%d", l.FacultyID, l.ChairID, l.LecturerID)
}

// SourcePath returns the provider path for the lecturer timetable.
func (l Lecturer) SourcePath() string {
	return fmt.Sprintf("lecturers/%d/%d/%d/", l.FacultyID, l.ChairID, l.LecturerID)
}

// IsLecturer reports true for lecturers.
func (l Lecturer) IsLecturer() bool { return true }
