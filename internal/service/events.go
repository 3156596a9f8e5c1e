package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventRunStarted     EventType = "run_started"
	EventValidated      EventType = "validated"
	EventScriptBuilt    EventType = "script_built"
	EventMeshGenerated  EventType = "mesh_generated"
	EventConverted      EventType = "converted"
	EventPublished      EventType = "published"
	EventRunFailed      EventType = "run_failed"
	EventDriftDetected  EventType = "drift_detected"
	EventSweepCompleted EventType = "sweep_completed"
)

// StageEvent is the payload of every pipeline event
type StageEvent struct {
	RunID  string `json:"run_id"`
	Model  string `json:"model,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber. Once it returns no further event is sent
// to ch, so the caller may close it.
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
