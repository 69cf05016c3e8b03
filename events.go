package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Event kinds published by the shell.
const (
	eventSamosReady   = "samos-ready"
	eventSamosExit    = "samos-exit"
	eventWindowOpen   = "window-opened"
	eventWindowClosed = "window-closed"
	eventIPC          = "ipc"
	eventQuit         = "will-quit"
)

// Event is sent to SSE subscribers when the shell changes state.
type Event struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
	Seq    int64  `json:"seq"`
}

// EventHub numbers shell events and broadcasts them via SSE.
type EventHub struct {
	mu   sync.RWMutex
	seq  int64
	last Event

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subscribers: make(map[chan Event]struct{})}
}

// Publish records an event and broadcasts it. Slow subscribers miss events
// rather than block the shell.
func (h *EventHub) Publish(kind, detail string) int64 {
	h.mu.Lock()
	h.seq++
	ev := Event{Kind: kind, Detail: detail, Seq: h.seq}
	h.last = ev
	h.mu.Unlock()

	h.subMu.Lock()
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
	h.subMu.Unlock()

	return ev.Seq
}

// Last returns the most recent event; Seq is 0 if none was published.
func (h *EventHub) Last() Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

func (h *EventHub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.subMu.Lock()
	h.subscribers[ch] = struct{}{}
	h.subMu.Unlock()
	return ch
}

func (h *EventHub) Unsubscribe(ch chan Event) {
	h.subMu.Lock()
	delete(h.subscribers, ch)
	h.subMu.Unlock()
}

// handleEventsSSE streams shell events to the client.
func (h *EventHub) handleEventsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	for {
		select {
		case ev := <-ch:
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
