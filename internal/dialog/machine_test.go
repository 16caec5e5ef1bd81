package dialog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "schedulebot/core/config"
	"schedulebot/internal/asu"
	"schedulebot/internal/timetable"
)

type stubProvider struct {
	group    timetable.Group
	groupErr error
	lect     timetable.Lecturer
	lectErr  error

	records  []asu.Record
	fetchErr error

	searchCalls int
	lastWindow  timetable.DateWindow
}

func (p *stubProvider) SearchGroup(_ context.Context, _ string) (timetable.Group, error) {
	p.searchCalls++
	return p.group, p.groupErr
}

func (p *stubProvider) SearchLecturer(_ context.Context, _ string) (timetable.Lecturer, error) {
	p.searchCalls++
	return p.lect, p.lectErr
}

func (p *stubProvider) FetchLessons(_ context.Context, _ timetable.Schedule, window timetable.DateWindow) ([]asu.Record, error) {
	p.lastWindow = window
	return p.records, p.fetchErr
}

func (p *stubProvider) ScheduleLink(sched timetable.Schedule) string {
	return "https://example.org/" + sched.SourcePath()
}

type stubPrefs struct {
	groups    map[int64]timetable.Group
	lecturers map[int64]timetable.Lecturer
}

func newStubPrefs() *stubPrefs {
	return &stubPrefs{
		groups:    make(map[int64]timetable.Group),
		lecturers: make(map[int64]timetable.Lecturer),
	}
}

func (s *stubPrefs) SavedGroup(_ context.Context, userID int64) (timetable.Group, bool, error) {
	g, ok := s.groups[userID]
	return g, ok, nil
}

func (s *stubPrefs) SaveGroup(_ context.Context, userID int64, group timetable.Group) error {
	s.groups[userID] = group
	return nil
}

func (s *stubPrefs) ClearGroup(_ context.Context, userID int64) error {
	delete(s.groups, userID)
	return nil
}

func (s *stubPrefs) SavedLecturer(_ context.Context, userID int64) (timetable.Lecturer, bool, error) {
	l, ok := s.lecturers[userID]
	return l, ok, nil
}

func (s *stubPrefs) SaveLecturer(_ context.Context, userID int64, lect timetable.Lecturer) error {
	s.lecturers[userID] = lect
	return nil
}

func (s *stubPrefs) ClearLecturer(_ context.Context, userID int64) error {
	delete(s.lecturers, userID)
	return nil
}

type stubStats struct {
	entries []string
}

func (s *stubStats) AddSearch(_ context.Context, _ int64, searchType, query string) error {
	s.entries = append(s.entries, searchType+":"+query)
	return nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

var testCacheCfg = coreconfig.CacheConfig{
	IdentityTTLMinutes:  24 * 60,
	TimetableTTLMinutes: 60,
	NegativeTTLMinutes:  60,
}

func newTestMachine(provider Provider, prefs Preferences, stats Stats) *Machine {
	svc := NewService(provider, prefs, stats, newMemStore(), testCacheCfg)
	m := NewMachine(svc)
	// Wednesday, 2025-09-10.
	m.now = func() time.Time {
		return time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	}
	return m
}

var testKey = SessionKey{UserID: 7, ChatID: 9}

func TestHappyPathGroupFlow(t *testing.T) {
	provider := &stubProvider{
		group: timetable.Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"},
	}
	prefs := newStubPrefs()
	stats := &stubStats{}
	m := newTestMachine(provider, prefs, stats)
	ctx := context.Background()

	reply := m.StartFlow(ctx, testKey, FlowGroup, "")
	require.NotNil(t, reply)
	assert.Equal(t, "Введите название группы:", reply.Text)
	assert.True(t, m.InProgress(testKey))

	reply = m.TextInput(ctx, testKey, "ИВТ-101")
	require.NotNil(t, reply)
	assert.Equal(t, KeyboardSave, reply.Keyboard)
	assert.Contains(t, reply.Text, "ИВТ-101")

	reply = m.Choice(ctx, testKey, TokenSaveYes)
	require.NotNil(t, reply)
	assert.Equal(t, KeyboardPeriods, reply.Keyboard)
	saved, ok, _ := prefs.SavedGroup(ctx, testKey.UserID)
	require.True(t, ok, "save_yes must persist the preference")
	assert.Equal(t, "group:3:555", saved.ScheduleKey())

	reply = m.Choice(ctx, testKey, TokenToday)
	require.NotNil(t, reply)
	assert.True(t, reply.HTML)
	assert.Contains(t, reply.Text, "Расписание группы: ИВТ-101")
	assert.False(t, m.InProgress(testKey), "render is a terminal transition")
	assert.Equal(t, []string{"group:ИВТ-101"}, stats.entries)
}

func TestEmptyInputRepromptsWithoutResolver(t *testing.T) {
	provider := &stubProvider{}
	m := newTestMachine(provider, newStubPrefs(), &stubStats{})
	ctx := context.Background()

	m.StartFlow(ctx, testKey, FlowGroup, "")
	reply := m.TextInput(ctx, testKey, "   ")
	require.NotNil(t, reply)
	assert.Equal(t, "Пожалуйста, введите корректное название группы", reply.Text)
	assert.Zero(t, provider.searchCalls, "blank input must not reach the provider")
	assert.True(t, m.InProgress(testKey), "state must not advance")

	// The session is still accepting a name.
	provider.group = timetable.Group{FacultyID: 1, GroupID: 2, Name: "ПМИ-201"}
	reply = m.TextInput(ctx, testKey, "ПМИ-201")
	require.NotNil(t, reply)
	assert.Equal(t, KeyboardSave, reply.Keyboard)
}

func TestSavePromptSkippedForSavedSubject(t *testing.T) {
	group := timetable.Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"}
	provider := &stubProvider{group: group}
	prefs := newStubPrefs()
	prefs.groups[testKey.UserID] = group
	m := newTestMachine(provider, prefs, &stubStats{})

	m.StartFlow(context.Background(), testKey, FlowGroup, "ИВТ-101")
	reply := m.TextInput(context.Background(), testKey, "ИВТ-101")
	// StartFlow with an inline argument already resolved; no further input
	// is expected and the session sits in the period state.
	assert.Nil(t, reply)
}

func TestInlineArgumentSkipsNamePrompt(t *testing.T) {
	group := timetable.Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"}
	provider := &stubProvider{group: group}
	prefs := newStubPrefs()
	prefs.groups[testKey.UserID] = group
	m := newTestMachine(provider, prefs, &stubStats{})

	reply := m.StartFlow(context.Background(), testKey, FlowGroup, "ИВТ-101")
	require.NotNil(t, reply)
	// Resolved subject equals the saved one, so the save prompt is skipped.
	assert.Equal(t, KeyboardPeriods, reply.Keyboard)
}

func TestSavedPreferenceSkipsToPeriod(t *testing.T) {
	group := timetable.Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"}
	provider := &stubProvider{}
	prefs := newStubPrefs()
	prefs.groups[testKey.UserID] = group
	stats := &stubStats{}
	m := newTestMachine(provider, prefs, stats)

	reply := m.StartFlow(context.Background(), testKey, FlowGroup, "")
	require.NotNil(t, reply)
	assert.Equal(t, KeyboardPeriods, reply.Keyboard)
	assert.Zero(t, provider.searchCalls)
	assert.Equal(t, []string{"group:ИВТ-101"}, stats.entries, "saved reuse records a statistic")
}

func TestCancelReturnsToFlowSelection(t *testing.T) {
	group := timetable.Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"}
	provider := &stubProvider{group: group}
	prefs := newStubPrefs()
	prefs.groups[testKey.UserID] = group
	m := newTestMachine(provider, prefs, &stubStats{})
	ctx := context.Background()

	m.StartFlow(ctx, testKey, FlowGroup, "")
	reply := m.Choice(ctx, testKey, TokenCancel)
	require.NotNil(t, reply)
	assert.Equal(t, KeyboardFlows, reply.Keyboard)
	assert.True(t, m.InProgress(testKey), "cancel restarts, it does not terminate")

	reply = m.Choice(ctx, testKey, TokenFlowLecturer)
	require.NotNil(t, reply)
	assert.Equal(t, "Введите фамилию преподавателя:", reply.Text)
}

func TestNewCommandAbandonsSession(t *testing.T) {
	provider := &stubProvider{}
	m := newTestMachine(provider, newStubPrefs(), &stubStats{})
	ctx := context.Background()

	m.StartFlow(ctx, testKey, FlowGroup, "")
	require.True(t, m.InProgress(testKey))

	m.Abandon(testKey)
	assert.False(t, m.InProgress(testKey))
	assert.Nil(t, m.TextInput(ctx, testKey, "ИВТ-101"), "abandoned session ignores late input")
}

func TestNotFoundTerminates(t *testing.T) {
	provider := &stubProvider{groupErr: timetable.ErrNotFound}
	m := newTestMachine(provider, newStubPrefs(), &stubStats{})
	ctx := context.Background()

	m.StartFlow(ctx, testKey, FlowGroup, "")
	reply := m.TextInput(ctx, testKey, "нет такой группы")
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "проверьте название")
	assert.False(t, m.InProgress(testKey))
}

func TestProviderErrorTerminates(t *testing.T) {
	provider := &stubProvider{groupErr: timetable.ErrProviderUnavailable}
	m := newTestMachine(provider, newStubPrefs(), &stubStats{})
	ctx := context.Background()

	m.StartFlow(ctx, testKey, FlowGroup, "")
	reply := m.TextInput(ctx, testKey, "ИВТ-101")
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "временно недоступен")
	assert.False(t, m.InProgress(testKey))
}

func TestThisWeekWindowFromWednesday(t *testing.T) {
	group := timetable.Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"}
	provider := &stubProvider{group: group}
	prefs := newStubPrefs()
	prefs.groups[testKey.UserID] = group
	m := newTestMachine(provider, prefs, &stubStats{})
	ctx := context.Background()

	m.StartFlow(ctx, testKey, FlowGroup, "")
	reply := m.Choice(ctx, testKey, TokenThisWeek)
	require.NotNil(t, reply)
	assert.Equal(t, "20250908-20250914", provider.lastWindow.ParamValue())
}

func TestEmptyScheduleRendersNoLessonsLine(t *testing.T) {
	group := timetable.Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"}
	provider := &stubProvider{group: group, records: nil}
	prefs := newStubPrefs()
	prefs.groups[testKey.UserID] = group
	m := newTestMachine(provider, prefs, &stubStats{})
	ctx := context.Background()

	m.StartFlow(ctx, testKey, FlowGroup, "")
	reply := m.Choice(ctx, testKey, TokenToday)
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "На указанный период занятий не найдено.")
}

func TestStrayEventLeavesNoSession(t *testing.T) {
	m := newTestMachine(&stubProvider{}, newStubPrefs(), &stubStats{})
	ctx := context.Background()

	assert.Nil(t, m.Choice(ctx, testKey, TokenToday))
	m.mu.Lock()
	_, leaked := m.sessions[testKey]
	m.mu.Unlock()
	assert.False(t, leaked, "a button press without a conversation must not register a session")

	assert.Nil(t, m.TextInput(ctx, testKey, "ИВТ-101"))
	m.mu.Lock()
	_, leaked = m.sessions[testKey]
	m.mu.Unlock()
	assert.False(t, leaked, "free text without a conversation must not register a session")
}

func TestUnknownTokenIgnored(t *testing.T) {
	group := timetable.Group{FacultyID: 3, GroupID: 555, Name: "ИВТ-101"}
	provider := &stubProvider{group: group}
	prefs := newStubPrefs()
	prefs.groups[testKey.UserID] = group
	m := newTestMachine(provider, prefs, &stubStats{})
	ctx := context.Background()

	m.StartFlow(ctx, testKey, FlowGroup, "")
	assert.Nil(t, m.Choice(ctx, testKey, "bogus"))
	assert.True(t, m.InProgress(testKey))
}
