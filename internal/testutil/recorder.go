// Package testutil holds fakes shared by package tests.
package testutil

import "sync"

// Sent is one recorded outbound message.
type Sent struct {
	To      string
	Message interface{}
}

// Recorder is an in-memory domain.Emitter.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
}

// Send records the message.
func (r *Recorder) Send(connectionID string, message interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{To: connectionID, Message: message})
}

// All returns every recorded message.
func (r *Recorder) All() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// To returns messages sent to one connection.
func (r *Recorder) To(connectionID string) []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []interface{}
	for _, s := range r.sent {
		if s.To == connectionID {
			out = append(out, s.Message)
		}
	}
	return out
}

// Reset forgets recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// OfType returns messages of type T sent to connectionID, in order. An
// empty connectionID matches every recipient.
func OfType[T any](r *Recorder, connectionID string) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []T
	for _, s := range r.sent {
		if connectionID != "" && s.To != connectionID {
			continue
		}
		if v, ok := s.Message.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
