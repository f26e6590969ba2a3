// Package bus defines the internal fan-out bus between the Event
// Ingester and the Broker: the Ingester is the sole publisher, there is
// no acknowledgement, and the Broker is the sole subscriber.
package bus

import "context"

// Publisher publishes raw event records. The Ingester is the only
// component that ever calls Publish.
type Publisher interface {
	Publish(ctx context.Context, record []byte) error
}

// Subscriber receives raw event records published on the bus. The
// returned channel is closed once ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// PublishSubscriber is satisfied by every bus transport implementation.
type PublishSubscriber interface {
	Publisher
	Subscriber
}
