package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"schedulebot/internal/dialog"
)

const startGreeting = "Привет! Это бот для поиска расписания студентов и преподавателей АлтГУ.\n" +
	"Используй контекстное меню или команды для взаимодействия с ботом.\n" +
	"Если возникли ошибки или есть идеи, напиши нам. Контакты в описании бота."

// send delivers a machine reply over the transport, attaching the keyboard
// and parse mode the reply asks for. A nil reply sends nothing.
func send(c tele.Context, reply *dialog.Reply) error {
	if reply == nil {
		return nil
	}
	var opts []interface{}
	if markup := replyMarkup(reply.Keyboard); markup != nil {
		opts = append(opts, markup)
	}
	if reply.HTML {
		opts = append(opts, tele.ModeHTML)
	}
	return c.Send(reply.Text, opts...)
}

func (a *App) registerCommands() {
	a.registry.RegisterCommand("/start", Command{
		Handler:     a.handleStart,
		Description: "Приветствие и выбор расписания",
	})
	a.registry.RegisterCommand("/schedule", Command{
		Handler:     a.handleSchedule,
		Description: "Расписание группы",
	})
	a.registry.RegisterCommand("/lecturer", Command{
		Handler:     a.handleLecturer,
		Description: "Расписание преподавателя",
	})
	a.registry.RegisterCommand("/cleansavedgroup", Command{
		Handler:     a.handleCleanSavedGroup,
		Description: "Удалить сохраненную группу",
	})
	a.registry.RegisterCommand("/cleansavedlecturer", Command{
		Handler:     a.handleCleanSavedLecturer,
		Description: "Удалить сохраненного преподавателя",
	})
	a.registry.RegisterCommand("/stats", Command{
		Handler:     a.handleStats,
		Description: "Статистика поиска",
		AdminOnly:   true,
		Hidden:      true,
	})
}

func (a *App) handleStart(c tele.Context) error {
	ctx := withHandler(c, "start")
	key := sessionKey(c)
	a.machine.Abandon(key)

	if err := c.Send(startGreeting); err != nil {
		return err
	}
	return send(c, a.machine.ChooseFlow(ctx, key))
}

func (a *App) handleSchedule(c tele.Context) error {
	ctx := withHandler(c, "schedule")
	key := sessionKey(c)
	a.machine.Abandon(key)
	return send(c, a.machine.StartFlow(ctx, key, dialog.FlowGroup, commandPayload(c)))
}

func (a *App) handleLecturer(c tele.Context) error {
	ctx := withHandler(c, "lecturer")
	key := sessionKey(c)
	a.machine.Abandon(key)
	return send(c, a.machine.StartFlow(ctx, key, dialog.FlowLecturer, commandPayload(c)))
}

func (a *App) handleCleanSavedGroup(c tele.Context) error {
	ctx := withHandler(c, "cleansavedgroup")
	userID := sessionKey(c).UserID

	group, ok := a.svc.SavedGroup(ctx, userID)
	if !ok {
		return c.Send("У вас нет сохраненной группы.")
	}
	if err := a.svc.ClearSavedGroup(ctx, userID); err != nil {
		return c.Send("Не удалось удалить сохраненную группу. Попробуйте позже.")
	}
	return c.Send(fmt.Sprintf("Сохраненная группа %s удалена.", group.Name))
}

func (a *App) handleCleanSavedLecturer(c tele.Context) error {
	ctx := withHandler(c, "cleansavedlecturer")
	userID := sessionKey(c).UserID

	lect, ok := a.svc.SavedLecturer(ctx, userID)
	if !ok {
		return c.Send("У вас нет сохраненного преподавателя.")
	}
	if err := a.svc.ClearSavedLecturer(ctx, userID); err != nil {
		return c.Send("Не удалось удалить сохраненного преподавателя. Попробуйте позже.")
	}
	return c.Send(fmt.Sprintf("Сохраненный преподаватель %s удален.", lect.Name))
}

// handleStats reports aggregated search activity. Admin only; takes an
// optional day count argument, default 7.
func (a *App) handleStats(c tele.Context) error {
	ctx := withHandler(c, "stats")
	if a.stats == nil || sessionKey(c).UserID != a.cfg.Telegram.AdminID {
		return nil
	}

	days := 7
	if payload := commandPayload(c); payload != "" {
		if n, err := strconv.Atoi(payload); err == nil && n > 0 {
			days = n
		}
	}
	since := time.Now().AddDate(0, 0, -days)

	summary, err := a.stats.Summarize(ctx, since, 5)
	if err != nil {
		return c.Send("Не удалось получить статистику.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Статистика за %d дн.</b>\n", days)
	fmt.Fprintf(&b, "📝 Всего запросов: %d\n", summary.TotalSearches)
	fmt.Fprintf(&b, "👥 Уникальных пользователей: %d\n", summary.UniqueUsers)
	if len(summary.TopQueries) > 0 {
		b.WriteString("\n🔝 Популярные запросы:\n")
		for _, q := range summary.TopQueries {
			fmt.Fprintf(&b, "%s: %s (%d)\n", q.SearchType, html.EscapeString(q.Query), q.Count)
		}
	}
	return c.Send(b.String(), tele.ModeHTML)
}

// handleText feeds free text into an in-progress dialog. Text outside a
// dialog, and unknown slash commands, are ignored; an unknown command sent
// mid-dialog abandons the session.
func (a *App) handleText(c tele.Context) error {
	ctx := withHandler(c, "text")
	key := sessionKey(c)
	text := c.Text()

	if strings.HasPrefix(text, "/") {
		a.machine.Abandon(key)
		return nil
	}
	if !a.machine.InProgress(key) {
		return nil
	}
	return send(c, a.machine.TextInput(ctx, key, text))
}

// handleCallback routes a button press into the dialog machine. Tokens
// outside the fixed alphabet produce no reply and are dropped.
func (a *App) handleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	ctx := withHandler(c, "callback")
	_ = c.Respond()

	return send(c, a.machine.Choice(ctx, sessionKey(c), callbackToken(cb)))
}

func commandPayload(c tele.Context) string {
	if msg := c.Message(); msg != nil {
		return strings.TrimSpace(msg.Payload)
	}
	return ""
}
