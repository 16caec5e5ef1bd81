package asu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedulebot/internal/timetable"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func lessonRecord(day, num, title string) Record {
	return Record{
		"lessonDate":      day,
		"lessonNum":       num,
		"lessonTimeStart": "08:00",
		"lessonTimeEnd":   "09:35",
		"lessonSubject":   map[string]any{"subjectTitle": title},
	}
}

func TestNormalizeSortsNumerically(t *testing.T) {
	records := []Record{
		lessonRecord("20250908", "10", "десятая пара"),
		lessonRecord("20250908", "9", "девятая пара"),
		lessonRecord("20250908", "2", "вторая пара"),
	}

	tt := Normalize(records, timetable.Day(date(2025, 9, 8)))
	lessons := tt.Days["2025-09-08"]
	require.Len(t, lessons, 3)
	assert.Equal(t, []string{"2", "9", "10"}, []string{lessons[0].Number, lessons[1].Number, lessons[2].Number})
}

func TestNormalizeDropsMalformedAndOutOfWindow(t *testing.T) {
	records := []Record{
		lessonRecord("20250908", "1", "в окне"),
		lessonRecord("20250915", "1", "вне окна"),
		lessonRecord("", "1", "без даты"),
		lessonRecord("not-a-date", "1", "мусор"),
	}

	window := timetable.Range(date(2025, 9, 8), date(2025, 9, 15))
	tt := Normalize(records, window)
	require.Len(t, tt.Days, 1)
	assert.Equal(t, "в окне", tt.Days["2025-09-08"][0].Subject.Title)
}

func TestNormalizeFullRecord(t *testing.T) {
	rec := Record{
		"lessonDate":        "20250908",
		"lessonNum":         "3",
		"lessonTimeStart":   "12:10",
		"lessonTimeEnd":     "13:45",
		"lessonSubjectType": " лек. ",
		"lessonCommentary":  " дистанционно ",
		"lessonSubject":     map[string]any{"subjectTitle": "Математический анализ"},
		"lessonRoom":        map[string]any{"roomTitle": "519"},
		"lessonBuilding": map[string]any{
			"buildingAddress": "пр. Ленина, 61",
			"buildingCode":    "`",
		},
		"lessonGroups": []any{
			map[string]any{
				"lessonGroup":    map[string]any{"groupCode": "ИВТ-101"},
				"lessonSubGroup": " 1 ",
			},
		},
		"lessonLecturers": []any{
			map[string]any{"lecturerName": "Иванов И.И.", "lecturerPosition": "доц."},
		},
	}

	tt := Normalize([]Record{rec}, timetable.Day(date(2025, 9, 8)))
	require.Len(t, tt.Days["2025-09-08"], 1)
	lesson := tt.Days["2025-09-08"][0]

	assert.Equal(t, "3", lesson.Number)
	assert.Equal(t, "Математический анализ", lesson.Subject.Title)
	assert.Equal(t, "лек.", lesson.Subject.Type)
	assert.Equal(t, "дистанционно", lesson.Subject.Comment)
	assert.Equal(t, "519", lesson.Subject.Room.Number)
	assert.Equal(t, "пр. Ленина, 61", lesson.Subject.Room.Address)
	assert.Empty(t, lesson.Subject.Room.AddressCode, "backtick marker means no code")
	require.Len(t, lesson.Subject.Groups, 1)
	assert.Equal(t, timetable.SubjectGroup{Name: "ИВТ-101", SubGroup: "1"}, lesson.Subject.Groups[0])
	require.Len(t, lesson.Subject.Lecturers, 1)
	assert.Equal(t, "Иванов И.И.", lesson.Subject.Lecturers[0].Name)
}

func TestNormalizeDeterministic(t *testing.T) {
	records := []Record{
		lessonRecord("20250908", "2", "а"),
		lessonRecord("20250908", "1", "б"),
		lessonRecord("20250909", "1", "в"),
	}
	window := timetable.Range(date(2025, 9, 8), date(2025, 9, 15))

	first := Normalize(records, window)
	second := Normalize(records, window)
	assert.Equal(t, first, second)
}

func TestToRussian(t *testing.T) {
	assert.Equal(t, "иванов", ToRussian("Ivanov"))
	assert.Equal(t, "петров", ToRussian("петров"))
	assert.Equal(t, "сидоров-123", ToRussian("Sidorov-123"))
	// Runes outside the table keep their case.
	assert.Equal(t, "Петров", ToRussian("Петров"))
	assert.Equal(t, "Петров-смирнов", ToRussian("Петров-Smirnov"))
}
