package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Broker fans execution events out to Server-Sent-Events subscribers,
// keyed by run ID.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// Event is one SSE frame.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
	ID    string      `json:"id,omitempty"`
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe creates a subscription for a run.
func (b *Broker) Subscribe(runID string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 16)

	if b.subscribers[runID] == nil {
		b.subscribers[runID] = make(map[chan Event]struct{})
	}
	b.subscribers[runID][ch] = struct{}{}

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(runID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subscribers[runID]; ok {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(b.subscribers, runID)
		}
	}
}

// Publish sends an event to all subscribers of a run. Slow consumers
// miss events rather than blocking the run.
func (b *Broker) Publish(runID string, event Event) {
	if event.ID == "" {
		event.ID = fmt.Sprintf("%d", time.Now().UnixNano())
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if subs, ok := b.subscribers[runID]; ok {
		for ch := range subs {
			select {
			case ch <- event:
			default:
				// Channel full, skip
			}
		}
	}
}

// PublishPhase announces a lifecycle phase change.
func (b *Broker) PublishPhase(runID, phase string) {
	b.Publish(runID, Event{
		Event: "phase",
		Data:  map[string]string{"phase": phase},
	})
}

// PublishComplete sends the terminal completion event.
func (b *Broker) PublishComplete(runID string, data interface{}) {
	b.Publish(runID, Event{
		Event: "complete",
		Data:  data,
	})
}

// PublishError sends the terminal error event.
func (b *Broker) PublishError(runID string, err error) {
	b.Publish(runID, Event{
		Event: "error",
		Data:  map[string]string{"error": err.Error()},
	})
}

// HasSubscribers checks whether anyone is watching a run.
func (b *Broker) HasSubscribers(runID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[runID]) > 0
}

// Serve streams events for one run until the client disconnects or a
// terminal event arrives. When initial is non-nil it is sent first as
// an "init" frame; terminal marks the run as already finished, in
// which case the init frame is all the client gets.
func (b *Broker) Serve(w http.ResponseWriter, r *http.Request, runID string, initial interface{}, terminal bool) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	ch := b.Subscribe(runID)
	defer b.Unsubscribe(runID, ch)

	if initial != nil {
		writeEvent(w, Event{Event: "init", Data: initial})
		flusher.Flush()
	}
	if terminal {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, event)
			flusher.Flush()

			if event.Event == "complete" || event.Event == "error" {
				return
			}
		}
	}
}

// writeEvent writes an event in SSE wire format.
func writeEvent(w http.ResponseWriter, event Event) {
	if event.ID != "" {
		fmt.Fprintf(w, "id: %s\n", event.ID)
	}
	fmt.Fprintf(w, "event: %s\n", event.Event)

	data, _ := json.Marshal(event.Data)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
