package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_SendToRegistered(t *testing.T) {
	r := NewRegistry()
	out := make(chan []byte, 1)
	r.Register("client-1", out)

	ok := r.Send("client-1", []byte("hello"))
	assert.True(t, ok)
	assert.Equal(t, []byte("hello"), <-out)
}

func TestRegistry_SendToUnknownIdentity(t *testing.T) {
	r := NewRegistry()
	ok := r.Send("nobody", []byte("hello"))
	assert.False(t, ok)
}

func TestRegistry_SendToFullChannelDropsNonBlocking(t *testing.T) {
	r := NewRegistry()
	out := make(chan []byte, 1)
	r.Register("client-1", out)

	assert.True(t, r.Send("client-1", []byte("first")))
	assert.False(t, r.Send("client-1", []byte("second")))
}

func TestRegistry_UnregisterStopsDelivery(t *testing.T) {
	r := NewRegistry()
	out := make(chan []byte, 1)
	r.Register("client-1", out)
	r.Unregister("client-1")

	assert.False(t, r.Send("client-1", []byte("hello")))
}

func TestRegistry_Broadcast(t *testing.T) {
	r := NewRegistry()
	out1 := make(chan []byte, 1)
	out2 := make(chan []byte, 1)
	r.Register("a", out1)
	r.Register("b", out2)

	r.Broadcast([]string{"a", "b", "unknown"}, []byte("snapshot"))

	assert.Equal(t, []byte("snapshot"), <-out1)
	assert.Equal(t, []byte("snapshot"), <-out2)
}
