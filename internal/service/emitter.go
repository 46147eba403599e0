package service

import "context"

// ─────────────────────────────────────────────────────────────
// EventEmitter — decouples services from the host shell
// ─────────────────────────────────────────────────────────────

// Event names emitted toward the frontend. Payloads are small JSON-friendly
// values; the full state travels on state:changed only.
const (
	EventStateChanged     = "state:changed"
	EventHistoryChanged   = "history:changed"
	EventSaveStatus       = "save:status"
	EventWorkspaceChanged = "workspace:changed"
	EventBoardCreated     = "board:created"
	EventBoardRenamed     = "board:renamed"
	EventBoardDeleted     = "board:deleted"
)

// EventEmitter is an interface for emitting events to the frontend.
// The App struct implements this by delegating to the host runtime's
// event bridge. Services receive this interface instead of a host
// context, which makes them independently testable with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded emissions matching event, oldest first.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
