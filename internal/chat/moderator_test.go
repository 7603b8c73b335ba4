package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/registry"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/testutil"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func setup(t *testing.T, cfg Config) (*Moderator, *registry.Registry, *testutil.Recorder, *fakeClock) {
	t.Helper()
	rec := &testutil.Recorder{}
	reg := registry.New(rec, 3, nil)
	for _, id := range []string{"h", "v", "out"} {
		reg.Connect(id)
	}
	_, err := reg.Join("h", "alice", "alice", false)
	require.NoError(t, err)
	_, err = reg.Join("v", "alice", "bob", false)
	require.NoError(t, err)
	_, err = reg.Join("out", "other", "eve", false)
	require.NoError(t, err)
	rec.Reset()

	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewModerator(reg, rec, cfg)
	m.now = clock.Now
	m.messageID = func() string { return "msg-1" }
	return m, reg, rec, clock
}

func chats(rec *testutil.Recorder, conn string) []*domain.ChatMessageOut {
	return testutil.OfType[*domain.ChatMessageOut](rec, conn)
}

func TestAuthorIsBoundUsername(t *testing.T) {
	m, _, rec, _ := setup(t, Config{})

	err := m.Handle("v", &domain.ChatMessageIn{StreamID: "alice", User: "alice", Text: "hi", Color: "#fff"})
	require.NoError(t, err)

	for _, conn := range []string{"h", "v"} {
		got := chats(rec, conn)
		require.Len(t, got, 1)
		require.Equal(t, "bob", got[0].User)
		require.Equal(t, "v", got[0].SenderID)
		require.Equal(t, "hi", got[0].Text)
		require.Equal(t, "#fff", got[0].Color)
		require.Equal(t, "msg-1", got[0].ID)
	}
	require.Empty(t, chats(rec, "out"))
}

func TestRateLimit(t *testing.T) {
	m, _, rec, clock := setup(t, Config{})
	send := func() error {
		return m.Handle("v", &domain.ChatMessageIn{StreamID: "alice", Text: "spam"})
	}

	require.NoError(t, send())
	clock.Advance(50 * time.Millisecond)
	require.ErrorIs(t, send(), ErrRateLimited)
	clock.Advance(50 * time.Millisecond)
	require.ErrorIs(t, send(), ErrRateLimited)
	require.Len(t, chats(rec, "h"), 1)

	clock.Advance(500 * time.Millisecond)
	require.NoError(t, send())
	require.Len(t, chats(rec, "h"), 2)
}

func TestRateLimitIsPerConnection(t *testing.T) {
	m, _, rec, _ := setup(t, Config{})
	require.NoError(t, m.Handle("v", &domain.ChatMessageIn{StreamID: "alice", Text: "a"}))
	require.NoError(t, m.Handle("h", &domain.ChatMessageIn{StreamID: "alice", Text: "b"}))
	require.Len(t, chats(rec, "v"), 2)
}

func TestRejections(t *testing.T) {
	tests := []struct {
		name string
		conn string
		msg  domain.ChatMessageIn
		err  error
	}{
		{"empty text", "v", domain.ChatMessageIn{StreamID: "alice", Text: "   "}, domain.ErrValidation},
		{"too long", "v", domain.ChatMessageIn{StreamID: "alice", Text: strings.Repeat("x", 501)}, domain.ErrValidation},
		{"color too long", "v", domain.ChatMessageIn{StreamID: "alice", Text: "hi", Color: strings.Repeat("f", 33)}, domain.ErrValidation},
		{"other session", "out", domain.ChatMessageIn{StreamID: "alice", Text: "hi"}, domain.ErrUnauthorized},
		{"missing stream", "v", domain.ChatMessageIn{Text: "hi"}, domain.ErrUnauthorized},
		{"unknown connection", "ghost", domain.ChatMessageIn{StreamID: "alice", Text: "hi"}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, rec, _ := setup(t, Config{})
			require.ErrorIs(t, m.Handle(tt.conn, &tt.msg), tt.err)
			require.Empty(t, rec.All())
		})
	}
}

func TestMaxLengthCountsRunes(t *testing.T) {
	m, _, rec, _ := setup(t, Config{})
	require.NoError(t, m.Handle("v", &domain.ChatMessageIn{StreamID: "alice", Text: strings.Repeat("é", 500)}))
	require.Len(t, chats(rec, "h"), 1)
}

func TestCensorApplied(t *testing.T) {
	censor, err := NewCensor([]string{"darn"}, '*')
	require.NoError(t, err)
	m, _, rec, _ := setup(t, Config{Censor: censor})

	require.NoError(t, m.Handle("v", &domain.ChatMessageIn{StreamID: "alice", Text: "oh D4RN it"}))
	require.Equal(t, "oh **** it", chats(rec, "h")[0].Text)
}

func TestNewMessageIDSortsByTime(t *testing.T) {
	a := newMessageID()
	time.Sleep(2 * time.Millisecond)
	b := newMessageID()
	require.Len(t, a, 26)
	require.Less(t, a, b)
}
