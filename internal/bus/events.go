package bus

import (
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Event is a state-change notification emitted by the chat store.
type Event struct {
	Type      string         // e.g. "message.delta", "session.switched", "toast.shown"
	Source    string         // originating component
	Payload   map[string]any // event-specific data
	Timestamp time.Time
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// EventBus is a topic-based publish/subscribe hub with wildcard
// subscriptions and a bounded history for replay.
type EventBus struct {
	handlers   map[string][]namedHandler
	mu         sync.RWMutex
	logger     *slog.Logger
	history    []Event
	maxHistory int
	nextID     uint64
}

type namedHandler struct {
	ID      string
	Handler EventHandler
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers:   make(map[string][]namedHandler),
		logger:     logger,
		maxHistory: 1000,
	}
}

// On registers a handler for the given event type. "*" receives every
// event. The returned ID is used with Off.
func (eb *EventBus) On(eventType string, handler EventHandler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eventType + "-" + strconv.FormatUint(eb.nextID, 10)
	eb.handlers[eventType] = append(eb.handlers[eventType], namedHandler{ID: id, Handler: handler})
	return id
}

// Off removes a handler by its ID.
func (eb *EventBus) Off(eventType, handlerID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	handlers := eb.handlers[eventType]
	for i, h := range handlers {
		if h.ID == handlerID {
			// Copy so an in-flight Emit keeps its snapshot intact.
			next := make([]namedHandler, 0, len(handlers)-1)
			next = append(next, handlers[:i]...)
			eb.handlers[eventType] = append(next, handlers[i+1:]...)
			return
		}
	}
}

// Emit calls every matching handler synchronously, in registration order.
// A panicking handler is logged and does not affect the others.
func (eb *EventBus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.Lock()
	if len(eb.history) >= eb.maxHistory {
		eb.history = eb.history[1:]
	}
	eb.history = append(eb.history, event)
	handlers := make([]namedHandler, 0, len(eb.handlers[event.Type])+len(eb.handlers["*"]))
	handlers = append(handlers, eb.handlers[event.Type]...)
	handlers = append(handlers, eb.handlers["*"]...)
	eb.mu.Unlock()

	for _, h := range handlers {
		func(nh namedHandler) {
			defer func() {
				if r := recover(); r != nil {
					eb.logger.Error("event handler panic", "event", event.Type, "handler", nh.ID, "panic", r)
				}
			}()
			nh.Handler(event)
		}(h)
	}
}

// Replay returns historical events of the given type ("*" for all) since
// the given time.
func (eb *EventBus) Replay(eventType string, since time.Time) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	var result []Event
	for _, e := range eb.history {
		if e.Timestamp.Before(since) {
			continue
		}
		if eventType == "*" || e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// HistoryLen reports how many events are retained for replay.
func (eb *EventBus) HistoryLen() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.history)
}

// Event types emitted by the chat store.
const (
	EventSessionCreated   = "session.created"
	EventSessionSwitched  = "session.switched"
	EventSessionRenamed   = "session.renamed"
	EventSessionsFetched  = "sessions.fetched"
	EventMessageAppended  = "message.appended"
	EventMessageDelta     = "message.delta"
	EventMessageCompleted = "message.completed"
	EventMessagesCleared  = "messages.cleared"
	EventLoadingChanged   = "loading.changed"
	EventToastShown       = "toast.shown"
	EventToastExpired     = "toast.expired"
	EventThemeChanged     = "theme.changed"
	EventAgentSelected    = "agent.selected"
	EventModelSelected    = "model.selected"
	EventViewChanged      = "view.changed"
	EventImagesChanged    = "images.changed"
	EventFilesLoaded      = "files.loaded"
	EventFileOpened       = "file.opened"
	EventFileClosed       = "file.closed"
	EventManageUpdated    = "manage.updated"
	EventUIChanged        = "ui.changed"
)
