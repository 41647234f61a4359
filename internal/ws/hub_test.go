package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/payout-ledger/internal/dto"
	"github.com/ignatzorin/payout-ledger/internal/logger"
)

func init() {
	logger.Silence()
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.stopped
	})
	return h
}

func testClient(h *Hub, userID uuid.UUID, buffer int) *Client {
	return &Client{hub: h, userID: userID, send: make(chan []byte, buffer)}
}

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Envelope{}
	}
}

func TestHub_BroadcastAll(t *testing.T) {
	h := startHub(t)
	a := testClient(h, uuid.New(), 4)
	b := testClient(h, uuid.New(), 4)
	h.Register(a)
	h.Register(b)
	require.Eventually(t, func() bool { return h.ConnectedClients() == 2 }, time.Second, 5*time.Millisecond)

	event := dto.LedgerEvent{TransactionID: uuid.New(), Operation: "approve_earning"}
	require.NoError(t, NewLedgerNotifier(h).PublishLedgerUpdate(event))

	for _, c := range []*Client{a, b} {
		env := receive(t, c)
		assert.Equal(t, dto.LedgerUpdatedEvent, env.Type)
		data, ok := env.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, event.TransactionID.String(), data["transaction_id"])
	}
}

func TestHub_BroadcastToUser(t *testing.T) {
	h := startHub(t)
	target := testClient(h, uuid.New(), 4)
	other := testClient(h, uuid.New(), 4)
	h.Register(target)
	h.Register(other)
	require.Eventually(t, func() bool { return h.ConnectedClients() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.BroadcastToUser(target.userID, "ping", map[string]string{"hello": "admin"}))

	env := receive(t, target)
	assert.Equal(t, "ping", env.Type)
	select {
	case <-other.send:
		t.Fatal("message delivered to the wrong user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DropsSlowConsumer(t *testing.T) {
	h := startHub(t)
	slow := testClient(h, uuid.New(), 1)
	h.Register(slow)
	require.Eventually(t, func() bool { return h.ConnectedClients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.BroadcastAll("first", nil))
	require.NoError(t, h.BroadcastAll("second", nil))

	assert.Eventually(t, func() bool { return h.ConnectedClients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_UnregisterAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)
	cancel()
	<-h.stopped

	done := make(chan struct{})
	go func() {
		c := testClient(h, uuid.New(), 1)
		h.Register(c)
		c.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked on a stopped hub")
	}
}

func TestHub_QueueFull(t *testing.T) {
	h := NewHub()
	for i := 0; i < cap(h.broadcast); i++ {
		require.NoError(t, h.BroadcastAll("fill", i))
	}
	assert.Error(t, h.BroadcastAll("overflow", nil))
}
