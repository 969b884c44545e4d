package messaging

import "context"

// NoopBus is used when RABBITMQ_URL is unset or unreachable: the outbox
// publisher and saga trigger path still run, just without a broker fan-out
// target, per the bootstrap's best-effort messaging policy.
type NoopBus struct{}

func (NoopBus) Publish(eventType string, eventData []byte) error { return nil }

func (NoopBus) Subscribe(eventType string, handler EventHandler) error { return nil }

func (NoopBus) Close() error { return nil }

var _ Bus = NoopBus{}

// record-based bus kept for tests that need to assert what was published
// without a live broker.
type RecordingBus struct {
	Published []PublishedEvent
	handlers  map[string]EventHandler
}

type PublishedEvent struct {
	EventType string
	Data      []byte
}

func NewRecordingBus() *RecordingBus {
	return &RecordingBus{handlers: make(map[string]EventHandler)}
}

func (b *RecordingBus) Publish(eventType string, eventData []byte) error {
	b.Published = append(b.Published, PublishedEvent{EventType: eventType, Data: eventData})
	if h, ok := b.handlers[eventType]; ok {
		return h(context.Background(), eventData)
	}
	return nil
}

func (b *RecordingBus) Subscribe(eventType string, handler EventHandler) error {
	b.handlers[eventType] = handler
	return nil
}

func (b *RecordingBus) Close() error { return nil }

var _ Bus = (*RecordingBus)(nil)
