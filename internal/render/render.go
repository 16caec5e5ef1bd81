// Package render turns a normalized timetable into the HTML message body
// sent to Telegram. Every free-text field is escaped; emoji markers carry
// the visual structure because Telegram HTML allows no real layout.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"schedulebot/internal/timetable"
)

// NoLessonsLine is appended when nothing in the timetable matched the window.
const NoLessonsLine = "На указанный период занятий не найдено."

var emojiDigits = [...]string{"0️⃣", "1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣"}

var weekdays = [...]string{"Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота", "Воскресенье"}

// Format renders the timetable for the subject as Telegram HTML. The window
// re-filters days so a cached superset never leaks extra dates into the
// message. The lecturer view lists attending groups, the group view lists
// lecturers.
func Format(tt timetable.Timetable, link, name string, window timetable.DateWindow, isLecturer bool) string {
	headerEmoji, headerText := "📚", "группы"
	if isLecturer {
		headerEmoji, headerText = "👩‍🏫", "преподавателя"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Расписание %s: %s\n\n", headerEmoji, headerText, html.EscapeString(name))

	found := false
	for _, dateKey := range tt.SortedDates() {
		day, err := time.Parse(timetable.DateKey, dateKey)
		if err != nil || !window.Contains(day) {
			continue
		}
		found = true
		writeDay(&b, day, tt.Days[dateKey], isLecturer)
	}

	if !found {
		b.WriteString(NoLessonsLine)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "🚀 <a href=%q>Ссылка на расписание</a>", html.EscapeString(link))
	return b.String()
}

func writeDay(b *strings.Builder, day time.Time, lessons []timetable.Lesson, isLecturer bool) {
	weekday := weekdays[(int(day.Weekday())+6)%7]
	fmt.Fprintf(b, "📅 %s %s\n\n", weekday, day.Format("02.01"))

	if len(lessons) == 0 {
		b.WriteString("Нет занятий\n\n")
		return
	}
	for _, lesson := range lessons {
		writeLesson(b, lesson, isLecturer)
	}
	b.WriteString("\n")
}

func writeLesson(b *strings.Builder, lesson timetable.Lesson, isLecturer bool) {
	fmt.Fprintf(b, "%s🕑 %s - %s\n",
		numToEmoji(lesson.Number),
		html.EscapeString(lesson.TimeStart),
		html.EscapeString(lesson.TimeEnd),
	)

	fmt.Fprintf(b, "📚 %s%s\n",
		subGroupMarkers(lesson.Subject.Groups),
		html.EscapeString(strings.TrimSpace(lesson.Subject.Type+" "+lesson.Subject.Title)),
	)

	if isLecturer {
		fmt.Fprintf(b, "👥 Группы: %s\n", html.EscapeString(groupNames(lesson.Subject.Groups)))
	} else {
		fmt.Fprintf(b, "👩 %s\n", html.EscapeString(lecturerNames(lesson.Subject.Lecturers)))
	}

	room := strings.TrimSpace(lesson.Subject.Room.Number + " " + lesson.Subject.Room.AddressCode)
	fmt.Fprintf(b, "🏢 %s\n", html.EscapeString(room))

	if lesson.Subject.Comment != "" {
		fmt.Fprintf(b, "💬 %s\n", html.EscapeString(lesson.Subject.Comment))
	}
	b.WriteString("\n")
}

// subGroupMarkers renders deduplicated italic subgroup labels, already
// escaped, with a trailing space after each.
func subGroupMarkers(groups []timetable.SubjectGroup) string {
	var b strings.Builder
	seen := make(map[string]struct{})
	for _, g := range groups {
		if g.SubGroup == "" {
			continue
		}
		if _, ok := seen[g.SubGroup]; ok {
			continue
		}
		seen[g.SubGroup] = struct{}{}
		b.WriteString("<i>" + html.EscapeString(g.SubGroup) + "</i> ")
	}
	return b.String()
}

func groupNames(groups []timetable.SubjectGroup) string {
	names := dedup(groups, func(g timetable.SubjectGroup) string { return g.Name })
	if len(names) == 0 {
		return "❓"
	}
	return strings.Join(names, " ")
}

func lecturerNames(lecturers []timetable.SubjectLecturer) string {
	names := dedup(lecturers, func(l timetable.SubjectLecturer) string {
		return strings.TrimSpace(l.Position + " " + l.Name)
	})
	if len(names) == 0 {
		return "❓"
	}
	return strings.Join(names, " ")
}

// dedup keeps first occurrences in input order; map iteration order must
// never leak into rendered output.
func dedup[T any](items []T, key func(T) string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, item := range items {
		k := key(item)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func numToEmoji(num string) string {
	if len(num) == 1 && num[0] >= '0' && num[0] <= '9' {
		return emojiDigits[num[0]-'0']
	}
	return "❓"
}
