// Package chat holds the client-side state of a ClawChat session: the
// session list, the active message log, attachments, toasts, the file
// browser and the management mirrors. Every mutation is published on the
// event bus so a front end can re-render.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"clawchat/internal/bus"
	"clawchat/internal/config"
	"clawchat/internal/domain"
	"clawchat/internal/storage"
)

var (
	ErrEmptyMessage    = errors.New("chat: nothing to send")
	ErrBusy            = errors.New("chat: a message is already being sent")
	ErrSessionNotFound = errors.New("chat: session not found")
)

const (
	defaultToastTTL = 3000 * time.Millisecond
	defaultPageSize = 20
	defaultPrefix   = "openclaw"
)

// StoreConfig holds the collaborators and tuning of a Store.
type StoreConfig struct {
	Gateway     domain.Gateway
	Local       *storage.Local
	Bus         *bus.EventBus
	Logger      *slog.Logger
	UI          config.UIConfig
	ModelPrefix string // chat model is "<prefix>:<agentId>"
	Agents      []domain.Agent
	Models      []domain.Model
	Now         func() time.Time // for tests
}

// State is a point-in-time copy of the store.
type State struct {
	Sessions        []domain.Session
	CurrentSession  string
	SelectedAgentID string
	SelectedModel   string
	Messages        []domain.Message
	Loading         bool

	Input    string
	Images   []domain.UploadedImage
	Toasts   []domain.Toast
	Theme    string
	View     domain.ViewType
	ChatMode bool

	NewChatModal  bool
	AgentDropdown bool
	ModelDropdown bool
	FilterAgent   string

	Files  FileBrowser
	Manage Manage
}

// FileBrowser is the state of the agent workspace browser.
type FileBrowser struct {
	Open    bool
	Path    []string
	Items   []domain.FileItem
	Loading bool
	Preview *Preview
}

// Preview is an opened file. Content is a data URL for images, text otherwise.
type Preview struct {
	Item       domain.FileItem
	Content    string
	IsImage    bool
	IsMarkdown bool
}

// Manage mirrors gateway-side state shown on the management views.
type Manage struct {
	Status      domain.SystemStatus
	Agents      []domain.Agent
	Channels    map[string]domain.ChannelInfo
	Schedules   []domain.Schedule
	CronJobs    []domain.CronJob
	ExpandedJob string
}

// Store is the chat client state. It is safe for concurrent use; network
// calls are made without holding the lock.
type Store struct {
	gw          domain.Gateway
	local       *storage.Local
	bus         *bus.EventBus
	logger      *slog.Logger
	now         func() time.Time
	modelPrefix string
	toastTTL    time.Duration
	pageSize    int
	agents      []domain.Agent
	models      []domain.Model

	mu    sync.Mutex
	state State
	// ids maps every known identifier (ID and Key) to the canonical session ID.
	ids       map[string]string
	switchGen uint64
	inflight  *inflight
	lastStamp int64
	toasts    map[int64]*time.Timer
	closed    bool
}

// inflight is the message log of a session whose reply is still streaming.
// attached is true while that session is the current one.
type inflight struct {
	sessionID string
	agentID   string
	log       []domain.Message
	attached  bool
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Bus == nil {
		cfg.Bus = bus.NewEventBus(cfg.Logger)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ModelPrefix == "" {
		cfg.ModelPrefix = defaultPrefix
	}
	if len(cfg.Agents) == 0 {
		cfg.Agents = domain.DefaultAgents()
	}
	if len(cfg.Models) == 0 {
		cfg.Models = domain.DefaultModels()
	}
	ttl := time.Duration(cfg.UI.ToastMillis) * time.Millisecond
	if ttl <= 0 {
		ttl = defaultToastTTL
	}
	pageSize := cfg.UI.SessionPageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	theme := cfg.UI.Theme
	if theme != "light" {
		theme = "dark"
	}
	agent := cfg.UI.DefaultAgent
	if agent == "" {
		agent = cfg.Agents[0].ID
	}
	model := cfg.UI.DefaultModel
	if model == "" {
		model = cfg.Models[0].ID
	}

	return &Store{
		gw:          cfg.Gateway,
		local:       cfg.Local,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		now:         cfg.Now,
		modelPrefix: cfg.ModelPrefix,
		toastTTL:    ttl,
		pageSize:    pageSize,
		agents:      cfg.Agents,
		models:      cfg.Models,
		ids:         make(map[string]string),
		toasts:      make(map[int64]*time.Timer),
		state: State{
			SelectedAgentID: agent,
			SelectedModel:   model,
			Theme:           theme,
			View:            domain.ViewChat,
			ChatMode:        true,
			Manage:          Manage{Status: domain.SystemStatus{Status: domain.StatusLoading}},
		},
	}
}

// Bus returns the event bus mutations are published on.
func (s *Store) Bus() *bus.EventBus { return s.bus }

func (s *Store) Agents() []domain.Agent { return slices.Clone(s.agents) }

func (s *Store) Models() []domain.Model { return slices.Clone(s.models) }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

func (s *Store) copyState() State {
	st := s.state
	st.Sessions = slices.Clone(s.state.Sessions)
	st.Messages = slices.Clone(s.state.Messages)
	st.Images = slices.Clone(s.state.Images)
	st.Toasts = slices.Clone(s.state.Toasts)
	st.Files.Path = slices.Clone(s.state.Files.Path)
	st.Files.Items = slices.Clone(s.state.Files.Items)
	if p := s.state.Files.Preview; p != nil {
		cp := *p
		st.Files.Preview = &cp
	}
	st.Manage.Agents = slices.Clone(s.state.Manage.Agents)
	st.Manage.Schedules = slices.Clone(s.state.Manage.Schedules)
	st.Manage.CronJobs = slices.Clone(s.state.Manage.CronJobs)
	if s.state.Manage.Channels != nil {
		st.Manage.Channels = make(map[string]domain.ChannelInfo, len(s.state.Manage.Channels))
		for k, v := range s.state.Manage.Channels {
			st.Manage.Channels[k] = v
		}
	}
	return st
}

func (s *Store) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Messages)
}

// CurrentSession returns the current session, or false if there is none.
func (s *Store) CurrentSession() (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.sessionLocked(s.state.CurrentSession); sess != nil {
		return *sess, true
	}
	return domain.Session{}, false
}

// Agent returns the agent with the given id.
func (s *Store) Agent(id string) (domain.Agent, bool) {
	for _, a := range s.agents {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Agent{}, false
}

// SelectedModelName is the display name of the selected model, or its id
// when the model is not in the list.
func (s *Store) SelectedModelName() string {
	s.mu.Lock()
	id := s.state.SelectedModel
	s.mu.Unlock()
	for _, m := range s.models {
		if m.ID == id {
			return m.Name
		}
	}
	return id
}

// Restore loads the persisted theme and session list.
func (s *Store) Restore(ctx context.Context) {
	if s.local == nil {
		return
	}
	theme, hasTheme := s.local.Theme(ctx)
	saved := s.local.Sessions(ctx)

	s.mu.Lock()
	if hasTheme {
		s.state.Theme = theme
	}
	if len(saved.Sessions) > 0 {
		s.state.Sessions = saved.Sessions
		s.rebuildIndexLocked()
	}
	if id, ok := s.ids[saved.CurrentSession]; ok {
		s.state.CurrentSession = id
	}
	if _, ok := s.Agent(saved.SelectedAgentID); ok {
		s.state.SelectedAgentID = saved.SelectedAgentID
	}
	current, agent := s.state.CurrentSession, s.storageAgentLocked(s.state.CurrentSession)
	s.mu.Unlock()

	if current != "" {
		msgs := s.local.Messages(ctx, agent, current)
		s.mu.Lock()
		if s.state.CurrentSession == current && len(s.state.Messages) == 0 {
			s.state.Messages = msgs
		}
		s.mu.Unlock()
	}
	s.logger.Debug("state restored", "sessions", len(saved.Sessions), "current", current, "theme", theme)
	s.emit(bus.EventSessionsFetched, nil)
}

// Close stops pending toast timers.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.toasts {
		t.Stop()
		delete(s.toasts, id)
	}
}

func (s *Store) emit(eventType string, payload map[string]any) {
	s.bus.Emit(bus.Event{Type: eventType, Source: "chat", Payload: payload})
}

// stampLocked returns the current unix ms, strictly increasing across calls.
// Must be called with s.mu held.
func (s *Store) stampLocked() int64 {
	ms := s.now().UnixMilli()
	if ms <= s.lastStamp {
		ms = s.lastStamp + 1
	}
	s.lastStamp = ms
	return ms
}

// persistSessions writes the session list and selection pointers.
func (s *Store) persistSessions(ctx context.Context, st storage.SessionState) {
	if s.local == nil {
		return
	}
	s.local.SaveSessions(ctx, st)
}

func (s *Store) persistMessages(ctx context.Context, agentID, sessionID string, msgs []domain.Message) {
	if s.local == nil || sessionID == "" {
		return
	}
	s.local.SaveMessages(ctx, agentID, sessionID, msgs)
}

func (s *Store) sessionStateLocked() storage.SessionState {
	return storage.SessionState{
		Sessions:        slices.Clone(s.state.Sessions),
		CurrentSession:  s.state.CurrentSession,
		SelectedAgentID: s.state.SelectedAgentID,
	}
}

// SelectAgent makes id the selected agent. Unknown ids are ignored.
func (s *Store) SelectAgent(ctx context.Context, id string) bool {
	if _, ok := s.Agent(id); !ok {
		return false
	}
	s.mu.Lock()
	s.state.SelectedAgentID = id
	s.state.AgentDropdown = false
	st := s.sessionStateLocked()
	s.mu.Unlock()

	s.persistSessions(ctx, st)
	s.emit(bus.EventAgentSelected, map[string]any{"agent": id})
	return true
}

// SelectModel makes id the selected model. Unknown ids are ignored.
func (s *Store) SelectModel(id string) bool {
	if !slices.ContainsFunc(s.models, func(m domain.Model) bool { return m.ID == id }) {
		return false
	}
	s.mu.Lock()
	s.state.SelectedModel = id
	s.state.ModelDropdown = false
	s.mu.Unlock()
	s.emit(bus.EventModelSelected, map[string]any{"model": id})
	return true
}

func (s *Store) SetInput(text string) {
	s.mu.Lock()
	s.state.Input = text
	s.mu.Unlock()
}

func (s *Store) SetView(v domain.ViewType) {
	s.mu.Lock()
	s.state.View = v
	s.mu.Unlock()
	s.emit(bus.EventViewChanged, map[string]any{"view": string(v)})
}

func (s *Store) SetChatMode(on bool) {
	s.setUI(func(st *State) { st.ChatMode = on })
}

// SetFilterAgent limits DisplayedSessions to one agent; "" shows all.
func (s *Store) SetFilterAgent(id string) {
	s.setUI(func(st *State) { st.FilterAgent = id })
}

func (s *Store) SetNewChatModal(open bool) {
	s.setUI(func(st *State) { st.NewChatModal = open })
}

func (s *Store) ToggleAgentDropdown() {
	s.setUI(func(st *State) {
		st.AgentDropdown = !st.AgentDropdown
		st.ModelDropdown = false
	})
}

func (s *Store) ToggleModelDropdown() {
	s.setUI(func(st *State) {
		st.ModelDropdown = !st.ModelDropdown
		st.AgentDropdown = false
	})
}

func (s *Store) setUI(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.emit(bus.EventUIChanged, nil)
}

// ToggleTheme flips between dark and light and persists the choice.
func (s *Store) ToggleTheme(ctx context.Context) string {
	s.mu.Lock()
	if s.state.Theme == "dark" {
		s.state.Theme = "light"
	} else {
		s.state.Theme = "dark"
	}
	theme := s.state.Theme
	s.mu.Unlock()

	if s.local != nil {
		s.local.SaveTheme(ctx, theme)
	}
	s.emit(bus.EventThemeChanged, map[string]any{"theme": theme})
	return theme
}

// LoadTheme applies the persisted theme, if any.
func (s *Store) LoadTheme(ctx context.Context) string {
	if s.local != nil {
		if theme, ok := s.local.Theme(ctx); ok {
			s.mu.Lock()
			s.state.Theme = theme
			s.mu.Unlock()
			s.emit(bus.EventThemeChanged, map[string]any{"theme": theme})
			return theme
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Theme
}
