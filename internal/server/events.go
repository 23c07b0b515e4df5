package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// message is one SSE frame.
type message struct {
	event string
	data  []byte
}

// broker fans messages out to connected SSE clients. publish never
// blocks: a client that falls behind loses frames, and the next state
// snapshot brings it back in sync.
type broker struct {
	mu      sync.Mutex
	clients map[chan message]struct{}
	closed  bool
}

func newBroker() *broker {
	return &broker{clients: map[chan message]struct{}{}}
}

func (b *broker) subscribe() (chan message, func()) {
	ch := make(chan message, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.clients[ch] = struct{}{}
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.clients[ch]; ok {
			delete(b.clients, ch)
			close(ch)
		}
	}
}

func (b *broker) publish(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	msg := message{event: event, data: data}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.clients {
		delete(b.clients, ch)
		close(ch)
	}
}

func (b *broker) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// handleEvents streams "state", "bell" and "asset" events. A fresh
// connection (including a reconnect after the page was hidden) gets the
// full current state first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.broker.subscribe()
	defer unsubscribe()

	if s.loop != nil {
		s.loop.Nudge()
	}
	initial, _ := json.Marshal(s.state())
	writeEvent(w, message{event: "state", data: initial})
	flusher.Flush()

	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, msg)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, msg message) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.event, msg.data)
}
