package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvMessage(t *testing.T, ch chan []byte) Message {
	t.Helper()
	select {
	case data := <-ch:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	default:
		t.Fatal("expected a queued message")
		return Message{}
	}
}

func TestToRoomReachesSubscribersOnly(t *testing.T) {
	hub := NewHub()

	a := make(chan []byte, 4)
	b := make(chan []byte, 4)
	c := make(chan []byte, 4)
	hub.Register("a", a, func() {})
	hub.Register("b", b, func() {})
	hub.Register("c", c, func() {})

	hub.Subscribe("a", "QUIZ1")
	hub.Subscribe("b", "QUIZ1")
	hub.Subscribe("c", "OTHER")

	hub.ToRoom("QUIZ1", "update_lobby", map[string]string{"roomId": "QUIZ1"})

	msgA := recvMessage(t, a)
	assert.Equal(t, "update_lobby", msgA.Type)
	assert.JSONEq(t, `{"roomId":"QUIZ1"}`, string(msgA.Payload))
	recvMessage(t, b)
	assert.Empty(t, c)
}

func TestToClientUnicast(t *testing.T) {
	hub := NewHub()

	a := make(chan []byte, 4)
	b := make(chan []byte, 4)
	hub.Register("a", a, func() {})
	hub.Register("b", b, func() {})

	hub.ToClient("a", "answer_feedback", map[string]bool{"success": true})

	msg := recvMessage(t, a)
	assert.Equal(t, "answer_feedback", msg.Type)
	assert.Empty(t, b)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()

	a := make(chan []byte, 4)
	hub.Register("a", a, func() {})
	hub.Subscribe("a", "QUIZ1")
	hub.Unsubscribe("a", "QUIZ1")

	hub.ToRoom("QUIZ1", "update_lobby", nil)
	assert.Empty(t, a)
	assert.False(t, hub.InRoom("a", "QUIZ1"))
}

func TestUnregisterRemovesFromAllRooms(t *testing.T) {
	hub := NewHub()

	a := make(chan []byte, 4)
	hub.Register("a", a, func() {})
	hub.Subscribe("a", "QUIZ1")

	hub.Unregister("a")

	assert.False(t, hub.InRoom("a", "QUIZ1"))
	hub.ToRoom("QUIZ1", "update_lobby", nil)
	assert.Empty(t, a)
}

func TestFullSendBufferDoesNotBlock(t *testing.T) {
	hub := NewHub()

	a := make(chan []byte, 1)
	a <- []byte("occupied")
	hub.Register("a", a, func() {})
	hub.Subscribe("a", "QUIZ1")

	hub.ToRoom("QUIZ1", "send_question", map[string]int{"questionIndex": 0})

	assert.Len(t, a, 1) // the new message was dropped, not queued behind
}

func TestSendAfterDisconnectRoomDoesNotPanic(t *testing.T) {
	hub := NewHub()

	// Mirror the real handler: the registered closer closes the send
	// channel so the write pump flushes and shuts down.
	send := make(chan []byte, 4)
	hub.Register("c1", send, func() { close(send) })
	hub.Subscribe("c1", "QUIZ1")

	hub.DisconnectRoom("QUIZ1")

	// A delivery queued behind the teardown (e.g. answer feedback for a
	// message processed after the room was deleted) must be a no-op.
	assert.NotPanics(t, func() {
		hub.ToClient("c1", "answer_feedback", map[string]bool{"success": false})
		hub.ToRoom("QUIZ1", "update_lobby", nil)
	})
	assert.Empty(t, send)

	// The connection's own unregister still runs cleanly afterwards.
	assert.NotPanics(t, func() { hub.Unregister("c1") })
}

func TestDisconnectRoomClosesEveryMember(t *testing.T) {
	hub := NewHub()

	closedA, closedB := false, false
	hub.Register("a", make(chan []byte, 1), func() { closedA = true })
	hub.Register("b", make(chan []byte, 1), func() { closedB = true })
	hub.Subscribe("a", "QUIZ1")
	hub.Subscribe("b", "QUIZ1")

	hub.DisconnectRoom("QUIZ1")

	assert.True(t, closedA)
	assert.True(t, closedB)
	assert.False(t, hub.InRoom("a", "QUIZ1"))
}
