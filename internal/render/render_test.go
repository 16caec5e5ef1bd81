package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedulebot/internal/timetable"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleLesson() timetable.Lesson {
	return timetable.Lesson{
		Number:    "1",
		TimeStart: "08:00",
		TimeEnd:   "09:35",
		Subject: timetable.Subject{
			Title: "Математический анализ",
			Type:  "лек.",
			Groups: []timetable.SubjectGroup{
				{Name: "ИВТ-101", SubGroup: "1"},
				{Name: "ИВТ-102", SubGroup: "1"},
			},
			Lecturers: []timetable.SubjectLecturer{
				{Name: "Иванов И.И.", Position: "доц."},
			},
			Room: timetable.Room{Number: "519", AddressCode: "Д"},
		},
	}
}

func TestFormatGroupView(t *testing.T) {
	tt := timetable.NewTimetable()
	tt.Days["2025-09-08"] = []timetable.Lesson{sampleLesson()}

	out := Format(tt, "https://example.org/students/3/555/", "ИВТ-101",
		timetable.Day(day(2025, 9, 8)), false)

	assert.Contains(t, out, "📚 Расписание группы: ИВТ-101")
	assert.Contains(t, out, "📅 Понедельник 08.09")
	assert.Contains(t, out, "1️⃣🕑 08:00 - 09:35")
	assert.Contains(t, out, "👩 доц. Иванов И.И.")
	assert.Contains(t, out, "🏢 519 Д")
	assert.Contains(t, out, `<a href="https://example.org/students/3/555/">Ссылка на расписание</a>`)
	assert.NotContains(t, out, NoLessonsLine)
}

func TestFormatLecturerViewListsGroups(t *testing.T) {
	tt := timetable.NewTimetable()
	tt.Days["2025-09-08"] = []timetable.Lesson{sampleLesson()}

	out := Format(tt, "https://example.org/", "Иванов И.И.",
		timetable.Day(day(2025, 9, 8)), true)

	assert.Contains(t, out, "👩‍🏫 Расписание преподавателя: Иванов И.И.")
	assert.Contains(t, out, "👥 Группы: ИВТ-101 ИВТ-102")
	assert.NotContains(t, out, "👩 доц.")
}

func TestFormatEscapesUserVisibleText(t *testing.T) {
	lesson := sampleLesson()
	lesson.Subject.Title = `<b>жирный" & опасный</b>`
	lesson.Subject.Comment = "a < b"

	tt := timetable.NewTimetable()
	tt.Days["2025-09-08"] = []timetable.Lesson{lesson}

	out := Format(tt, "https://example.org/", `Группа <X>`,
		timetable.Day(day(2025, 9, 8)), false)

	assert.Contains(t, out, "Группа &lt;X&gt;")
	assert.Contains(t, out, "&lt;b&gt;жирный&#34; &amp; опасный&lt;/b&gt;")
	assert.Contains(t, out, "💬 a &lt; b")
	assert.NotContains(t, out, "<b>")
}

func TestFormatEmptyTimetable(t *testing.T) {
	out := Format(timetable.NewTimetable(), "https://example.org/", "ИВТ-101",
		timetable.Day(day(2025, 9, 8)), false)

	assert.Contains(t, out, NoLessonsLine)
	assert.Contains(t, out, "Ссылка на расписание")
}

func TestFormatWindowFiltersCachedDays(t *testing.T) {
	tt := timetable.NewTimetable()
	tt.Days["2025-09-08"] = []timetable.Lesson{sampleLesson()}
	tt.Days["2025-09-09"] = []timetable.Lesson{sampleLesson()}

	out := Format(tt, "https://example.org/", "ИВТ-101",
		timetable.Day(day(2025, 9, 9)), false)

	assert.NotContains(t, out, "08.09")
	assert.Contains(t, out, "Вторник 09.09")
}

func TestFormatSubGroupDedup(t *testing.T) {
	tt := timetable.NewTimetable()
	tt.Days["2025-09-08"] = []timetable.Lesson{sampleLesson()}

	out := Format(tt, "https://example.org/", "ИВТ-101",
		timetable.Day(day(2025, 9, 8)), false)

	require.Equal(t, 1, strings.Count(out, "<i>1</i>"), "duplicate subgroup markers must collapse")
}

func TestFormatMissingLecturerPlaceholder(t *testing.T) {
	lesson := sampleLesson()
	lesson.Subject.Lecturers = nil

	tt := timetable.NewTimetable()
	tt.Days["2025-09-08"] = []timetable.Lesson{lesson}

	out := Format(tt, "https://example.org/", "ИВТ-101",
		timetable.Day(day(2025, 9, 8)), false)
	assert.Contains(t, out, "👩 ❓")
}

func TestNumToEmoji(t *testing.T) {
	assert.Equal(t, "3️⃣", numToEmoji("3"))
	assert.Equal(t, "❓", numToEmoji("10"))
	assert.Equal(t, "❓", numToEmoji(""))
}
