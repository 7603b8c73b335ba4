package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/audit"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/hub"
	pkglog "github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// expect reads frames until one of msgType arrives and decodes it into out.
func expect(t *testing.T, conn *websocket.Conn, msgType string, out interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", msgType)

		var base domain.BaseMessage
		require.NoError(t, json.Unmarshal(data, &base))
		if base.Type == msgType {
			if out != nil {
				require.NoError(t, json.Unmarshal(data, out))
			}
			return
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	s := newStack(t, domain.Account{Username: "alice", Balance: 10}, domain.Account{Username: "bob", Balance: 10})
	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	host := dial(t, srv)
	send(t, host, domain.AuthMessage{Type: domain.MsgTypeAuth, Token: s.token(t, "alice")})
	var auth domain.AuthResultMessage
	expect(t, host, domain.MsgTypeAuthResult, &auth)
	require.True(t, auth.Success)
	require.Equal(t, "alice", auth.Username)

	send(t, host, domain.JoinMessage{Type: domain.MsgTypeJoin, StreamID: "alice"})
	var joined domain.JoinedMessage
	expect(t, host, domain.MsgTypeJoined, &joined)
	require.True(t, joined.IsHost)
	require.Equal(t, "alice", joined.Username)

	viewer := dial(t, srv)
	send(t, viewer, domain.JoinMessage{Type: domain.MsgTypeJoin, StreamID: "alice", Username: "bob"})
	var viewerJoined domain.JoinedMessage
	expect(t, viewer, domain.MsgTypeJoined, &viewerJoined)
	require.False(t, viewerJoined.IsHost)

	var child domain.ConnectToChildMessage
	expect(t, host, domain.MsgTypeConnectToChild, &child)
	require.Equal(t, viewerJoined.ConnectionID, child.ChildID)

	send(t, viewer, domain.ChatMessageIn{Type: domain.MsgTypeChat, StreamID: "alice", User: "alice", Text: "hi"})
	var line domain.ChatMessageOut
	expect(t, host, domain.MsgTypeChat, &line)
	require.Equal(t, "bob", line.User)
	require.Equal(t, "hi", line.Text)

	send(t, host, domain.UpdateSquadMessage{
		Type:     domain.MsgTypeUpdateSquad,
		StreamID: "alice",
		Squad:    []domain.SquadEntry{{Name: "bob", Split: 50}},
	})
	var squad domain.SquadUpdatedMessage
	expect(t, viewer, domain.MsgTypeSquadUpdated, &squad)
	require.Len(t, squad.Squad, 1)

	send(t, viewer, domain.BaseMessage{Type: domain.MsgTypePing})
	expect(t, viewer, domain.MsgTypePong, nil)

	send(t, host, domain.BaseMessage{Type: domain.MsgTypeLeave})
	var ended domain.StreamEndedMessage
	expect(t, viewer, domain.MsgTypeStreamEnded, &ended)
	require.Equal(t, "alice", ended.StreamID)
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	s := newStack(t)
	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	conn := dial(t, srv)
	send(t, conn, domain.AuthMessage{Type: domain.MsgTypeAuth, Token: "nope"})
	var auth domain.AuthResultMessage
	expect(t, conn, domain.MsgTypeAuthResult, &auth)
	require.False(t, auth.Success)

	// Garbage and unknown types are dropped without closing the socket.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	send(t, conn, domain.BaseMessage{Type: "bogus"})
	send(t, conn, domain.BaseMessage{Type: domain.MsgTypePing})
	expect(t, conn, domain.MsgTypePong, nil)
}

func TestWebSocketDisconnectLeavesSession(t *testing.T) {
	s := newStack(t)
	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	host := dial(t, srv)
	send(t, host, domain.JoinMessage{Type: domain.MsgTypeJoin, StreamID: "alice", Username: "alice"})
	expect(t, host, domain.MsgTypeJoined, nil)

	viewer := dial(t, srv)
	send(t, viewer, domain.JoinMessage{Type: domain.MsgTypeJoin, StreamID: "alice"})
	expect(t, viewer, domain.MsgTypeJoined, nil)

	host.Close()
	expect(t, viewer, domain.MsgTypeStreamEnded, nil)
}

func TestVerifyHostAuditsOnlyHostClaims(t *testing.T) {
	s := newStack(t, domain.Account{Username: "alice"}, domain.Account{Username: "bob"})

	tests := []struct {
		name     string
		identity string
		msg      domain.JoinMessage
		verified bool
		rejected bool
	}{
		{"owner", "alice", domain.JoinMessage{StreamID: "alice"}, true, false},
		{"viewer", "bob", domain.JoinMessage{StreamID: "alice"}, false, false},
		{"claims by username", "bob", domain.JoinMessage{StreamID: "alice", Username: "alice"}, false, true},
		{"identity matches unowned stream", "carol", domain.JoinMessage{StreamID: "carol"}, false, true},
		{"anonymous", "", domain.JoinMessage{StreamID: "alice", Username: "alice"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ctx := pkglog.WithLogger(context.Background(), pkglog.New(pkglog.Config{Level: "info", Output: &buf}))
			client := &hub.Client{ID: "c1", Identity: tt.identity}

			require.Equal(t, tt.verified, s.ws.verifyHost(ctx, client, &tt.msg))
			require.Equal(t, tt.rejected, strings.Contains(buf.String(), audit.ActionHostRejected))
		})
	}
}
