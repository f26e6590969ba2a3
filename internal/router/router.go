// Package router implements the Broker's router socket as a Go
// channel-keyed registry, standing in for a ZeroMQ ROUTER/DEALER socket.
// One inbound frame carries (identity, payload); the return path is
// symmetric: each registered identity owns an outbound channel the
// Gateway drains to the WebSocket.
package router

import "sync"

// Registry is the Broker's single-owner router socket: a map from
// transport identity to the outbound channel the Gateway goroutine for
// that identity reads from.
type Registry struct {
	mu   sync.RWMutex
	conns map[string]chan []byte
}

// NewRegistry creates an empty router registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]chan []byte)}
}

// Register attaches a new identity with its outbound channel. The
// channel should be buffered by the caller (the Gateway) to the desired
// backpressure tolerance.
func (r *Registry) Register(identity string, out chan []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[identity] = out
}

// Unregister detaches an identity. It does not close the channel -- the
// Gateway goroutine that owns it is responsible for that, since it may
// still be draining in-flight sends.
func (r *Registry) Unregister(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, identity)
}

// Send delivers payload to a single identity's outbound channel,
// non-blocking. It returns false if the identity isn't registered or its
// channel is full.
func (r *Registry) Send(identity string, payload []byte) bool {
	r.mu.RLock()
	ch, ok := r.conns[identity]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case ch <- payload:
		return true
	default:
		return false
	}
}

// Broadcast delivers payload to every identity in identities,
// best-effort.
func (r *Registry) Broadcast(identities []string, payload []byte) {
	for _, id := range identities {
		r.Send(id, payload)
	}
}
