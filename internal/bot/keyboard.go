package bot

import (
	tele "gopkg.in/telebot.v4"

	"schedulebot/internal/dialog"
)

// inlineBtn is a plain inline button whose callback data is the raw token,
// matching the fixed alphabet the dialog machine understands.
func inlineBtn(text, token string) tele.InlineButton {
	return tele.InlineButton{Text: text, Data: token}
}

func flowsMarkup() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		{inlineBtn("Расписание группы", dialog.TokenFlowGroup)},
		{inlineBtn("Расписание преподавателя", dialog.TokenFlowLecturer)},
	}}
}

func saveMarkup() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		{
			inlineBtn("Да", dialog.TokenSaveYes),
			inlineBtn("Нет", dialog.TokenSaveNo),
		},
	}}
}

func periodsMarkup() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		{inlineBtn("Сегодня", dialog.TokenToday)},
		{inlineBtn("Завтра", dialog.TokenTomorrow)},
		{inlineBtn("На эту неделю", dialog.TokenThisWeek)},
		{inlineBtn("На следующую неделю", dialog.TokenNextWeek)},
		{inlineBtn("❌ Отмена", dialog.TokenCancel)},
	}}
}

// replyMarkup maps the machine's keyboard kind to telebot markup.
func replyMarkup(kind dialog.Keyboard) *tele.ReplyMarkup {
	switch kind {
	case dialog.KeyboardFlows:
		return flowsMarkup()
	case dialog.KeyboardSave:
		return saveMarkup()
	case dialog.KeyboardPeriods:
		return periodsMarkup()
	default:
		return nil
	}
}
