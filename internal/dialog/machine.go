package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"schedulebot/core/logger"
	"schedulebot/internal/timetable"
)

// State identifies a finite-state-machine step in a schedule conversation.
type State string

const (
	// StateIdle indicates there is no active conversation.
	StateIdle State = "idle"
	// StateChoosingFlow waits for the user to pick group vs lecturer.
	StateChoosingFlow State = "choosing_flow"
	// StateAwaitGroupName waits for a free-text group name.
	StateAwaitGroupName State = "await_group_name"
	// StateAwaitLecturerName waits for a free-text lecturer name.
	StateAwaitLecturerName State = "await_lecturer_name"
	// StateAwaitSaveChoice waits for the save-as-default yes/no answer.
	StateAwaitSaveChoice State = "await_save_choice"
	// StateAwaitPeriod waits for the period button press.
	StateAwaitPeriod State = "await_period"
)

// Flow distinguishes the two conversation variants.
type Flow string

const (
	// FlowGroup is a group schedule conversation.
	FlowGroup Flow = "group"
	// FlowLecturer is a lecturer schedule conversation.
	FlowLecturer Flow = "lecturer"
)

// Callback tokens accepted by Choice. Anything else is ignored.
const (
	TokenToday        = "T"
	TokenTomorrow     = "M"
	TokenThisWeek     = "W"
	TokenNextWeek     = "NW"
	TokenCancel       = "cancel"
	TokenSaveYes      = "save_yes"
	TokenSaveNo       = "save_no"
	TokenFlowGroup    = "flow_group"
	TokenFlowLecturer = "flow_lecturer"
)

// Keyboard tells the transport which inline keyboard to attach to a reply.
type Keyboard int

const (
	// KeyboardNone attaches no keyboard.
	KeyboardNone Keyboard = iota
	// KeyboardFlows offers the group/lecturer choice.
	KeyboardFlows
	// KeyboardSave offers the save yes/no choice.
	KeyboardSave
	// KeyboardPeriods offers the period choice.
	KeyboardPeriods
)

// Reply is the machine's answer to one inbound event. A nil *Reply means
// the event was ignored.
type Reply struct {
	Text     string
	HTML     bool
	Keyboard Keyboard
}

// SessionKey scopes a conversation to one user in one chat.
type SessionKey struct {
	UserID int64
	ChatID int64
}

// session holds the in-progress answers of one conversation. The mutex
// serializes event handling within the session; transitions depend on the
// previous one's recorded answer, so reordering would corrupt the dialog.
type session struct {
	mu       sync.Mutex
	state    State
	flow     Flow
	selected timetable.Schedule
}

// Machine drives schedule conversations. Sessions for different keys are
// fully concurrent; events within one session run in arrival order.
type Machine struct {
	svc *Service

	mu       sync.Mutex
	sessions map[SessionKey]*session

	now func() time.Time
}

// NewMachine builds a machine over the dialog service.
func NewMachine(svc *Service) *Machine {
	return &Machine{
		svc:      svc,
		sessions: make(map[SessionKey]*session),
		now:      time.Now,
	}
}

// InProgress reports whether key has an active conversation.
func (m *Machine) InProgress(key SessionKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	return ok && s.state != StateIdle
}

// Abandon discards the conversation for key, if any. Used when an unrelated
// command arrives mid-dialog; no partial answers survive.
func (m *Machine) Abandon(key SessionKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
}

// ChooseFlow enters the shared flow-selection state.
func (m *Machine) ChooseFlow(ctx context.Context, key SessionKey) *Reply {
	s := m.acquire(key)
	defer s.mu.Unlock()

	s.state = StateChoosingFlow
	s.selected = nil
	m.logTransition(ctx, key, s)
	return &Reply{Text: "Что вас интересует?", Keyboard: KeyboardFlows}
}

// StartFlow begins a group or lecturer conversation. A non-empty arg skips
// the name prompt and resolves immediately; otherwise a saved preference
// skips straight to the period choice.
func (m *Machine) StartFlow(ctx context.Context, key SessionKey, flow Flow, arg string) *Reply {
	s := m.acquire(key)
	defer s.mu.Unlock()
	return m.startFlow(ctx, key, s, flow, arg)
}

// TextInput feeds a free-text message into the conversation.
func (m *Machine) TextInput(ctx context.Context, key SessionKey, text string) *Reply {
	s := m.acquire(key)
	defer m.release(key, s)

	switch s.state {
	case StateAwaitGroupName, StateAwaitLecturerName:
		return m.resolveSubject(ctx, key, s, text)
	default:
		return nil
	}
}

// Choice feeds a button press into the conversation.
func (m *Machine) Choice(ctx context.Context, key SessionKey, token string) *Reply {
	s := m.acquire(key)
	defer m.release(key, s)

	switch s.state {
	case StateChoosingFlow:
		switch token {
		case TokenFlowGroup:
			return m.startFlow(ctx, key, s, FlowGroup, "")
		case TokenFlowLecturer:
			return m.startFlow(ctx, key, s, FlowLecturer, "")
		}
	case StateAwaitSaveChoice:
		switch token {
		case TokenSaveYes:
			return m.saveSelected(ctx, key, s)
		case TokenSaveNo:
			s.state = StateAwaitPeriod
			m.logTransition(ctx, key, s)
			return periodPrompt(s)
		}
	case StateAwaitPeriod:
		return m.handlePeriod(ctx, key, s, token)
	}
	return nil
}

func (m *Machine) startFlow(ctx context.Context, key SessionKey, s *session, flow Flow, arg string) *Reply {
	s.flow = flow
	s.selected = nil

	if arg != "" {
		if flow == FlowGroup {
			s.state = StateAwaitGroupName
		} else {
			s.state = StateAwaitLecturerName
		}
		return m.resolveSubject(ctx, key, s, arg)
	}

	if saved, ok := m.savedSubject(ctx, key, flow); ok {
		m.svc.RecordSearch(ctx, key.UserID, string(flow), saved.DisplayName())
		s.selected = saved
		s.state = StateAwaitPeriod
		m.logTransition(ctx, key, s)
		return periodPrompt(s)
	}

	if flow == FlowGroup {
		s.state = StateAwaitGroupName
		m.logTransition(ctx, key, s)
		return &Reply{Text: "Введите название группы:"}
	}
	s.state = StateAwaitLecturerName
	m.logTransition(ctx, key, s)
	return &Reply{Text: "Введите фамилию преподавателя:"}
}

func (m *Machine) savedSubject(ctx context.Context, key SessionKey, flow Flow) (timetable.Schedule, bool) {
	if flow == FlowGroup {
		group, ok := m.svc.SavedGroup(ctx, key.UserID)
		return group, ok
	}
	lect, ok := m.svc.SavedLecturer(ctx, key.UserID)
	return lect, ok
}

// resolveSubject handles free-text input in the await-name states. Empty
// input re-prompts without touching the resolver or the state.
func (m *Machine) resolveSubject(ctx context.Context, key SessionKey, s *session, text string) *Reply {
	isGroup := s.state == StateAwaitGroupName

	var (
		resolved timetable.Schedule
		err      error
	)
	if isGroup {
		resolved, err = m.svc.ResolveGroup(ctx, text)
	} else {
		resolved, err = m.svc.ResolveLecturer(ctx, text)
	}

	switch {
	case errors.Is(err, timetable.ErrEmptyQuery):
		if isGroup {
			return &Reply{Text: "Пожалуйста, введите корректное название группы"}
		}
		return &Reply{Text: "Пожалуйста, введите корректную фамилию преподавателя"}
	case errors.Is(err, timetable.ErrNotFound):
		m.svc.RecordSearch(ctx, key.UserID, string(s.flow), text)
		m.terminate(key, s)
		if isGroup {
			return &Reply{Text: "Ошибка получения группы. Пожалуйста, проверьте название и попробуйте снова"}
		}
		return &Reply{Text: "Преподаватель не найден. Пожалуйста, проверьте правильность написания фамилии и попробуйте снова."}
	case err != nil:
		logger.Warn(ctx, "dialog", "resolve.fail", slog.Any("err", err))
		m.terminate(key, s)
		return &Reply{Text: "Сервис расписаний временно недоступен. Попробуйте позже."}
	}

	m.svc.RecordSearch(ctx, key.UserID, string(s.flow), text)
	s.selected = resolved

	// Offer saving only when the result differs from the stored default.
	// Names can repeat or change upstream, so comparison is by key.
	if saved, ok := m.savedSubject(ctx, key, s.flow); ok && saved.ScheduleKey() == resolved.ScheduleKey() {
		s.state = StateAwaitPeriod
		m.logTransition(ctx, key, s)
		return periodPrompt(s)
	}

	s.state = StateAwaitSaveChoice
	m.logTransition(ctx, key, s)
	if isGroup {
		return &Reply{
			Text:     fmt.Sprintf("Хотите ли вы сохранить группу %s для быстрого доступа в будущем?", resolved.DisplayName()),
			Keyboard: KeyboardSave,
		}
	}
	return &Reply{
		Text:     fmt.Sprintf("Хотите ли вы сохранить преподавателя %s для быстрого доступа в будущем?", resolved.DisplayName()),
		Keyboard: KeyboardSave,
	}
}

func (m *Machine) saveSelected(ctx context.Context, key SessionKey, s *session) *Reply {
	switch subject := s.selected.(type) {
	case timetable.Group:
		m.svc.SaveGroup(ctx, key.UserID, subject)
	case timetable.Lecturer:
		m.svc.SaveLecturer(ctx, key.UserID, subject)
	}
	s.state = StateAwaitPeriod
	m.logTransition(ctx, key, s)
	return periodPrompt(s)
}

func (m *Machine) handlePeriod(ctx context.Context, key SessionKey, s *session, token string) *Reply {
	if token == TokenCancel {
		s.state = StateChoosingFlow
		s.selected = nil
		m.logTransition(ctx, key, s)
		return &Reply{Text: "Что вас интересует?", Keyboard: KeyboardFlows}
	}

	now := m.now()
	var window timetable.DateWindow
	switch token {
	case TokenToday:
		window = timetable.Today(now)
	case TokenTomorrow:
		window = timetable.Tomorrow(now)
	case TokenThisWeek:
		window = timetable.ThisWeek(now)
	case TokenNextWeek:
		window = timetable.NextWeek(now)
	default:
		return nil
	}

	message, err := m.svc.BuildMessage(ctx, s.selected, window)
	m.terminate(key, s)
	if err != nil {
		logger.Warn(ctx, "dialog", "schedule.fail", slog.Any("err", err))
		return &Reply{Text: "Сервис расписаний временно недоступен. Попробуйте позже."}
	}
	return &Reply{Text: message, HTML: true}
}

func periodPrompt(s *session) *Reply {
	if s.flow == FlowGroup {
		return &Reply{
			Text:     fmt.Sprintf("📚 Группа %s\nВыберите, на какой день хотите получить расписание:", s.selected.DisplayName()),
			Keyboard: KeyboardPeriods,
		}
	}
	return &Reply{
		Text:     fmt.Sprintf("👩‍🏫 Преподаватель: %s\nВыберите период расписания:", s.selected.DisplayName()),
		Keyboard: KeyboardPeriods,
	}
}

// acquire returns the session for key with its mutex held.
func (m *Machine) acquire(key SessionKey) *session {
	m.mu.Lock()
	s, ok := m.sessions[key]
	if !ok {
		s = &session{state: StateIdle}
		m.sessions[key] = s
	}
	m.mu.Unlock()

	s.mu.Lock()
	return s
}

// release unlocks the session and drops it from the registry when the event
// left it idle. Stray events for users with no active conversation must not
// accumulate empty sessions.
func (m *Machine) release(key SessionKey, s *session) {
	idle := s.state == StateIdle
	s.mu.Unlock()
	if idle {
		m.mu.Lock()
		if m.sessions[key] == s {
			delete(m.sessions, key)
		}
		m.mu.Unlock()
	}
}

// terminate resets the session to idle and drops it from the registry.
// The caller still holds the session mutex.
func (m *Machine) terminate(key SessionKey, s *session) {
	s.state = StateIdle
	s.selected = nil
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
}

func (m *Machine) logTransition(ctx context.Context, key SessionKey, s *session) {
	logger.Debug(ctx, "dialog", "fsm.transition",
		slog.Int64("user_id", key.UserID),
		slog.Int64("chat_id", key.ChatID),
		slog.String("state", string(s.state)),
		slog.String("flow", string(s.flow)),
	)
}
