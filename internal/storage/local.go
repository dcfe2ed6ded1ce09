package storage

import (
	"context"
	"encoding/json"
	"log/slog"

	"clawchat/internal/domain"
)

const (
	SessionsKey = "clawchat_sessions"
	ThemeKey    = "clawchat_theme"

	messagesKeyPrefix = "clawchat_"
)

// MessagesKey is where one session's message log lives.
func MessagesKey(agentID, sessionID string) string {
	return messagesKeyPrefix + agentID + "_" + sessionID
}

// SessionState is the persisted session list with the selection pointers.
type SessionState struct {
	Sessions        []domain.Session `json:"sessions"`
	CurrentSession  string           `json:"currentSession"`
	SelectedAgentID string           `json:"selectedAgentId"`
}

// Local is best-effort persistence on top of a KVStore: reads that fail
// or hit a corrupt payload come back empty, failed writes are logged and
// dropped.
type Local struct {
	kv     domain.KVStore
	logger *slog.Logger
}

func NewLocal(kv domain.KVStore, logger *slog.Logger) *Local {
	return &Local{kv: kv, logger: logger}
}

// Theme returns the saved theme ("dark" or "light"), or false if none.
func (l *Local) Theme(ctx context.Context) (string, bool) {
	v, ok := l.get(ctx, ThemeKey)
	if !ok || (v != "dark" && v != "light") {
		return "", false
	}
	return v, true
}

func (l *Local) SaveTheme(ctx context.Context, theme string) {
	l.set(ctx, ThemeKey, theme)
}

func (l *Local) Sessions(ctx context.Context) SessionState {
	var st SessionState
	if !l.getJSON(ctx, SessionsKey, &st) {
		return SessionState{}
	}
	return st
}

func (l *Local) SaveSessions(ctx context.Context, st SessionState) {
	if st.Sessions == nil {
		st.Sessions = []domain.Session{}
	}
	l.setJSON(ctx, SessionsKey, st)
}

func (l *Local) Messages(ctx context.Context, agentID, sessionID string) []domain.Message {
	var msgs []domain.Message
	if !l.getJSON(ctx, MessagesKey(agentID, sessionID), &msgs) {
		return nil
	}
	return msgs
}

func (l *Local) SaveMessages(ctx context.Context, agentID, sessionID string, msgs []domain.Message) {
	if msgs == nil {
		msgs = []domain.Message{}
	}
	l.setJSON(ctx, MessagesKey(agentID, sessionID), msgs)
}

// MessageKeys lists every stored message log key.
func (l *Local) MessageKeys(ctx context.Context) []string {
	keys, err := l.kv.Keys(ctx, messagesKeyPrefix)
	if err != nil {
		l.logger.Warn("list message logs failed", "err", err)
		return nil
	}
	out := keys[:0]
	for _, k := range keys {
		if k != SessionsKey && k != ThemeKey {
			out = append(out, k)
		}
	}
	return out
}

func (l *Local) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := l.kv.Get(ctx, key)
	if err != nil {
		l.logger.Warn("storage read failed", "key", key, "err", err)
		return "", false
	}
	return v, ok
}

func (l *Local) set(ctx context.Context, key, value string) {
	if err := l.kv.Set(ctx, key, value); err != nil {
		l.logger.Warn("storage write failed", "key", key, "err", err)
	}
}

func (l *Local) getJSON(ctx context.Context, key string, out any) bool {
	v, ok := l.get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(v), out); err != nil {
		l.logger.Warn("corrupt stored value ignored", "key", key, "err", err)
		return false
	}
	return true
}

func (l *Local) setJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		l.logger.Warn("cannot encode value", "key", key, "err", err)
		return
	}
	l.set(ctx, key, string(data))
}
