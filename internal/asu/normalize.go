package asu

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"schedulebot/internal/timetable"
)

// Normalize converts raw provider records into a Timetable. Records with a
// missing or unparseable date are dropped, as are records outside the window.
// Lessons within a day are ordered by numeric lesson number. The mapping is
// deterministic: equal input always yields equal output.
func Normalize(records []Record, window timetable.DateWindow) timetable.Timetable {
	tt := timetable.NewTimetable()

	for _, rec := range records {
		raw := rec.Str("lessonDate")
		if raw == "" {
			continue
		}
		day, err := time.Parse(timetable.ProviderDateLayout, raw)
		if err != nil {
			continue
		}
		if !window.Contains(day) {
			continue
		}

		key := day.Format(timetable.DateKey)
		tt.Days[key] = append(tt.Days[key], buildLesson(rec))
	}

	for _, lessons := range tt.Days {
		sort.SliceStable(lessons, func(i, j int) bool {
			return lessonNum(lessons[i]) < lessonNum(lessons[j])
		})
	}
	return tt
}

func lessonNum(l timetable.Lesson) int {
	n, err := strconv.Atoi(strings.TrimSpace(l.Number))
	if err != nil {
		return 0
	}
	return n
}

func buildLesson(rec Record) timetable.Lesson {
	return timetable.Lesson{
		Number:    rec.Str("lessonNum"),
		TimeStart: rec.Str("lessonTimeStart"),
		TimeEnd:   rec.Str("lessonTimeEnd"),
		Subject:   buildSubject(rec),
	}
}

func buildSubject(rec Record) timetable.Subject {
	var groups []timetable.SubjectGroup
	for _, gr := range rec.List("lessonGroups") {
		lg := gr.Sub("lessonGroup")
		groups = append(groups, timetable.SubjectGroup{
			Name:     lg.Str("groupCode"),
			SubGroup: strings.TrimSpace(gr.Str("lessonSubGroup")),
		})
	}

	var lecturers []timetable.SubjectLecturer
	for _, lr := range rec.List("lessonLecturers") {
		lecturers = append(lecturers, timetable.SubjectLecturer{
			Name:     lr.Str("lecturerName"),
			Position: lr.Str("lecturerPosition"),
		})
	}

	building := rec.Sub("lessonBuilding")
	addressCode := building.Str("buildingCode")
	// A lone backtick is the provider's way of saying "no code".
	if addressCode == "`" {
		addressCode = ""
	}

	return timetable.Subject{
		Title:   rec.Sub("lessonSubject").Str("subjectTitle"),
		Type:    strings.TrimSpace(rec.Str("lessonSubjectType")),
		Comment: strings.TrimSpace(rec.Str("lessonCommentary")),
		Room: timetable.Room{
			Address:     building.Str("buildingAddress"),
			AddressCode: addressCode,
			Number:      rec.Sub("lessonRoom").Str("roomTitle"),
		},
		Groups:    groups,
		Lecturers: lecturers,
	}
}
