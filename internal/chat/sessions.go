package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"clawchat/internal/bus"
	"clawchat/internal/domain"
	"clawchat/internal/metrics"
)

// rebuildIndexLocked refreshes the identifier table from the session list.
// IDs win over keys when the two collide.
func (s *Store) rebuildIndexLocked() {
	ids := make(map[string]string, 2*len(s.state.Sessions))
	for _, sess := range s.state.Sessions {
		if sess.Key != "" {
			ids[sess.Key] = sess.ID
		}
	}
	for _, sess := range s.state.Sessions {
		ids[sess.ID] = sess.ID
	}
	s.ids = ids
}

// ResolveSession maps a session ID or key to the canonical session ID.
func (s *Store) ResolveSession(ident string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[ident]
	return id, ok
}

func (s *Store) sessionLocked(id string) *domain.Session {
	if id == "" {
		return nil
	}
	for i := range s.state.Sessions {
		if s.state.Sessions[i].ID == id {
			return &s.state.Sessions[i]
		}
	}
	return nil
}

// storageAgentLocked is the agent a session's messages are stored under:
// the owning agent, or the selected one for sessions without an owner.
func (s *Store) storageAgentLocked(id string) string {
	if sess := s.sessionLocked(id); sess != nil && sess.AgentID != "" {
		return sess.AgentID
	}
	return s.state.SelectedAgentID
}

type flush struct {
	agentID   string
	sessionID string
	msgs      []domain.Message
}

// takeFlushLocked captures the outgoing session's log and detaches a
// streaming reply from the view. An empty log is not captured, so a log
// that was never loaded cannot overwrite stored history.
func (s *Store) takeFlushLocked() *flush {
	f := s.currentFlushLocked()
	if f == nil || len(f.msgs) == 0 {
		return nil
	}
	return f
}

func (s *Store) currentFlushLocked() *flush {
	id := s.state.CurrentSession
	if id == "" {
		return nil
	}
	if s.inflight != nil && s.inflight.sessionID == id {
		s.inflight.attached = false
	}
	return &flush{
		agentID:   s.storageAgentLocked(id),
		sessionID: id,
		msgs:      slices.Clone(s.state.Messages),
	}
}

func (s *Store) applyFlush(ctx context.Context, f *flush) {
	if f == nil {
		return
	}
	s.persistMessages(ctx, f.agentID, f.sessionID, f.msgs)
}

// CreateSession starts a new empty session, optionally for another agent,
// and makes it current.
func (s *Store) CreateSession(ctx context.Context, agentID string) domain.Session {
	s.mu.Lock()
	f := s.takeFlushLocked()
	if _, ok := s.Agent(agentID); ok {
		s.state.SelectedAgentID = agentID
	}
	sess := s.newSessionLocked()
	s.state.Sessions = append([]domain.Session{sess}, s.state.Sessions...)
	s.rebuildIndexLocked()
	s.switchGen++
	s.state.CurrentSession = sess.ID
	s.state.Messages = nil
	s.state.NewChatModal = false
	s.state.View = domain.ViewChat
	s.state.ChatMode = true
	st := s.sessionStateLocked()
	s.mu.Unlock()

	s.applyFlush(ctx, f)
	s.persistSessions(ctx, st)
	s.logger.Info("session created", "id", sess.ID, "agent", sess.AgentID)
	s.emit(bus.EventSessionCreated, map[string]any{"session": sess.ID, "agent": sess.AgentID})
	return sess
}

func (s *Store) newSessionLocked() domain.Session {
	ms := s.stampLocked()
	return domain.Session{
		ID:        fmt.Sprintf("session_%d", ms),
		Name:      domain.DefaultSessionName,
		AgentID:   s.state.SelectedAgentID,
		UpdatedAt: ms,
	}
}

// SwitchSession makes the session named by ident (its ID or key) current.
// The outgoing session's messages are persisted first. The incoming log is
// fetched from the gateway, falling back to local storage when the fetch
// fails or comes back empty. A fetch overtaken by a later switch is dropped.
func (s *Store) SwitchSession(ctx context.Context, ident string) error {
	s.mu.Lock()
	id, ok := s.ids[ident]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, ident)
	}
	f := s.takeFlushLocked()
	target := s.sessionLocked(id)
	if _, known := s.Agent(target.AgentID); known {
		s.state.SelectedAgentID = target.AgentID
	}
	agentID := s.storageAgentLocked(id)
	s.switchGen++
	gen := s.switchGen
	s.state.CurrentSession = id
	s.state.View = domain.ViewChat
	s.state.ChatMode = true
	s.state.Messages = nil

	streaming := s.inflight != nil && s.inflight.sessionID == id
	if streaming {
		s.inflight.attached = true
		s.state.Messages = slices.Clone(s.inflight.log)
	}
	st := s.sessionStateLocked()
	s.mu.Unlock()

	metrics.SessionSwaps.Inc()
	s.applyFlush(ctx, f)
	s.persistSessions(ctx, st)
	s.emit(bus.EventSessionSwitched, map[string]any{"session": id, "agent": agentID})
	if streaming {
		return nil
	}

	msgs := s.loadMessages(ctx, agentID, id)

	s.mu.Lock()
	if s.switchGen != gen {
		s.mu.Unlock()
		s.logger.Debug("stale session load dropped", "session", id)
		return nil
	}
	s.state.Messages = msgs
	s.mu.Unlock()
	s.emit(bus.EventMessageAppended, map[string]any{"session": id, "count": len(msgs)})
	return nil
}

func (s *Store) loadMessages(ctx context.Context, agentID, sessionID string) []domain.Message {
	if s.gw != nil {
		msgs, err := s.gw.SessionMessages(ctx, sessionID)
		if err != nil {
			s.logger.Warn("fetch session messages failed, using local copy", "session", sessionID, "err", err)
		} else if len(msgs) > 0 {
			return msgs
		}
	}
	if s.local == nil {
		return nil
	}
	return s.local.Messages(ctx, agentID, sessionID)
}

// FetchSessions replaces the session list with the gateway's, newest first.
// An empty remote list yields one placeholder session. The current session
// defaults to the newest when it is unset or no longer listed.
func (s *Store) FetchSessions(ctx context.Context) error {
	if s.gw == nil {
		return nil
	}
	remote, err := s.gw.ListSessions(ctx)
	if err != nil {
		s.logger.Warn("fetch sessions failed", "err", err)
		return fmt.Errorf("fetch sessions: %w", err)
	}

	s.mu.Lock()
	prev := s.state.CurrentSession
	// Captured against the old list so the log keeps its own agent.
	f := s.currentFlushLocked()
	sessions := make([]domain.Session, 0, len(remote))
	for _, r := range remote {
		sessions = append(sessions, fromRemote(r, s.state.SelectedAgentID))
	}
	if len(sessions) == 0 {
		sessions = append(sessions, s.newSessionLocked())
	}
	slices.SortStableFunc(sessions, func(a, b domain.Session) int {
		switch {
		case a.UpdatedAt > b.UpdatedAt:
			return -1
		case a.UpdatedAt < b.UpdatedAt:
			return 1
		}
		return 0
	})
	s.state.Sessions = sessions
	s.rebuildIndexLocked()
	if id, ok := s.ids[prev]; ok {
		s.state.CurrentSession = id
	} else {
		s.state.CurrentSession = sessions[0].ID
	}
	moved := s.state.CurrentSession != prev
	if f != nil && !moved {
		if s.inflight != nil && s.inflight.sessionID == f.sessionID {
			s.inflight.attached = true
		}
		f = nil
	}
	if f != nil && len(f.msgs) == 0 {
		f = nil
	}
	var gen uint64
	current := s.state.CurrentSession
	agentID := ""
	if moved {
		s.switchGen++
		gen = s.switchGen
		s.state.Messages = nil
		agentID = s.storageAgentLocked(current)
	}
	st := s.sessionStateLocked()
	s.mu.Unlock()

	s.applyFlush(ctx, f)
	s.persistSessions(ctx, st)
	s.logger.Debug("sessions fetched", "count", len(remote))
	s.emit(bus.EventSessionsFetched, map[string]any{"count": len(sessions)})
	if !moved {
		return nil
	}

	msgs := s.loadMessages(ctx, agentID, current)
	s.mu.Lock()
	if s.switchGen != gen {
		s.mu.Unlock()
		return nil
	}
	s.state.Messages = msgs
	s.mu.Unlock()
	s.emit(bus.EventMessageAppended, map[string]any{"session": current, "count": len(msgs)})
	return nil
}

func fromRemote(r domain.RemoteSession, fallbackAgent string) domain.Session {
	name := r.Name
	if name == "" {
		name = r.Label
	}
	if name == "" {
		name = domain.DefaultSessionName
	}
	key := r.Key
	if key == "" {
		key = r.ID
	}
	agent := r.AgentID
	if agent == "" {
		agent = fallbackAgent
	}
	return domain.Session{
		ID:        r.ID,
		Key:       key,
		Name:      name,
		AgentID:   agent,
		Source:    r.Source,
		IsGateway: true,
		UpdatedAt: r.UpdatedAt,
	}
}

// DisplayedSessions is the session list filtered by the agent filter and
// cut to one page.
func (s *Store) DisplayedSessions() []domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Session, 0, min(len(s.state.Sessions), s.pageSize))
	for _, sess := range s.state.Sessions {
		if s.state.FilterAgent != "" && sess.AgentID != s.state.FilterAgent {
			continue
		}
		out = append(out, sess)
		if len(out) == s.pageSize {
			break
		}
	}
	return out
}

// chatUser derives the gateway "user" field: the part of the key after the
// last ':' or the session ID.
func chatUser(sess domain.Session) string {
	if i := strings.LastIndex(sess.Key, ":"); i >= 0 && i < len(sess.Key)-1 {
		return sess.Key[i+1:]
	}
	return sess.ID
}
