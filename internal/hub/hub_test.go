package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/config"
)

func newTestHub(t *testing.T, sendBuffer int) *Hub {
	t.Helper()
	h := NewHub(config.WebSocketConfig{SendBuffer: sendBuffer})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func TestSendDeliversJSON(t *testing.T) {
	h := newTestHub(t, 4)
	c := NewClient("c1", h, nil)
	h.Register(c)

	h.Send("c1", map[string]string{"type": "pong"})
	h.Send("missing", map[string]string{"type": "pong"})

	select {
	case data := <-c.Send:
		var got map[string]string
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, "pong", got["type"])
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	h := newTestHub(t, 1)
	c := NewClient("slow", h, nil)
	h.Register(c)

	h.Send("slow", "one")
	h.Send("slow", "two")

	require.Eventually(t, func() bool { return h.Count() == 0 }, time.Second, 10*time.Millisecond)

	// the buffered message is still readable, then the channel is closed
	<-c.Send
	_, ok := <-c.Send
	require.False(t, ok)
}

func TestUnregisterAfterStopDoesNotBlock(t *testing.T) {
	h := NewHub(config.WebSocketConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	c := NewClient("c", h, nil)
	h.Register(c)
	h.Unregister(c)
}
