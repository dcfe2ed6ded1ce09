package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clawchat/internal/domain"
)

// failingKV fails every operation.
type failingKV struct{}

var errBroken = errors.New("disk on fire")

func (failingKV) Get(context.Context, string) (string, bool, error) { return "", false, errBroken }
func (failingKV) Set(context.Context, string, string) error         { return errBroken }
func (failingKV) Delete(context.Context, string) error              { return errBroken }
func (failingKV) Keys(context.Context, string) ([]string, error)    { return nil, errBroken }
func (failingKV) Close() error                                      { return nil }

func TestMessagesKey(t *testing.T) {
	assert.Equal(t, "clawchat_main_session_1700000000000", MessagesKey("main", "session_1700000000000"))
}

func TestLocal_MessagesRoundTrip(t *testing.T) {
	ctx := context.Background()
	local := NewLocal(NewMemoryKV(), testLogger())

	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: domain.TextContent("hi"), Timestamp: 1},
		{Role: domain.RoleUser, Content: domain.PartsContent(
			domain.ContentPart{Type: "text", Text: "see"},
			domain.ContentPart{Type: "image_url", ImageURL: &domain.ImageURL{URL: "data:image/png;base64,AA"}},
		), Images: []string{"data:image/png;base64,AA"}, Timestamp: 2},
		{Role: domain.RoleAssistant, Content: domain.TextContent("hello"), Thinking: "greet", Timestamp: 3},
	}
	local.SaveMessages(ctx, "main", "s1", msgs)

	assert.Equal(t, msgs, local.Messages(ctx, "main", "s1"))
	assert.Empty(t, local.Messages(ctx, "code", "s1"), "other agent's key must not match")
}

func TestLocal_CorruptPayloadsReadEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	local := NewLocal(kv, testLogger())

	require.NoError(t, kv.Set(ctx, MessagesKey("main", "s1"), "{not json"))
	require.NoError(t, kv.Set(ctx, SessionsKey, `{"sessions": "nope", "currentSession": "s1"}`))
	require.NoError(t, kv.Set(ctx, ThemeKey, "purple"))

	assert.Empty(t, local.Messages(ctx, "main", "s1"))
	assert.Equal(t, SessionState{}, local.Sessions(ctx))
	_, ok := local.Theme(ctx)
	assert.False(t, ok)
}

func TestLocal_FailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	local := NewLocal(failingKV{}, testLogger())

	assert.NotPanics(t, func() {
		local.SaveTheme(ctx, "dark")
		local.SaveSessions(ctx, SessionState{})
		local.SaveMessages(ctx, "main", "s1", nil)
	})
	assert.Empty(t, local.Messages(ctx, "main", "s1"))
	assert.Empty(t, local.MessageKeys(ctx))
}

func TestLocal_SessionsAndTheme(t *testing.T) {
	ctx := context.Background()
	local := NewLocal(NewMemoryKV(), testLogger())

	st := SessionState{
		Sessions:        []domain.Session{{ID: "s1", Key: "s1", Name: domain.DefaultSessionName, AgentID: "main"}},
		CurrentSession:  "s1",
		SelectedAgentID: "main",
	}
	local.SaveSessions(ctx, st)
	local.SaveTheme(ctx, "light")
	local.SaveMessages(ctx, "main", "s1", nil)

	assert.Equal(t, st, local.Sessions(ctx))
	theme, ok := local.Theme(ctx)
	assert.True(t, ok)
	assert.Equal(t, "light", theme)
	assert.Equal(t, []string{"clawchat_main_s1"}, local.MessageKeys(ctx))
}
