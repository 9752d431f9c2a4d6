package events

import (
	"sync"

	"stakeledger/core/types"
)

// Event represents a structured state change emitted by a program.
type Event interface {
	EventType() string
}

// Payload is implemented by events that can render themselves as a flat
// typed event for receipts and logs.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. indexers, the CLI).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer holds events until the surrounding instruction commits.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, evt)
	b.mu.Unlock()
}

// Events returns a copy of the buffered events.
func (b *Buffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Flush forwards every buffered event to dst and clears the buffer.
func (b *Buffer) Flush(dst Emitter) []Event {
	b.mu.Lock()
	pending := b.events
	b.events = nil
	b.mu.Unlock()
	if dst == nil {
		return pending
	}
	for _, evt := range pending {
		dst.Emit(evt)
	}
	return pending
}

// Reset drops buffered events without forwarding them.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// Flatten renders events that implement Payload. Others are skipped.
func Flatten(evts []Event) []types.Event {
	out := make([]types.Event, 0, len(evts))
	for _, evt := range evts {
		p, ok := evt.(Payload)
		if !ok {
			continue
		}
		if raw := p.Event(); raw != nil {
			out = append(out, *raw)
		}
	}
	return out
}
