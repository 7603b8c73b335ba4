package domain

// Emitter delivers an outbound message to one connection. Implementations
// must not block: a slow or vanished connection simply misses the message.
type Emitter interface {
	Send(connectionID string, message interface{})
}

// Broadcast sends message to every connection in ids.
func Broadcast(e Emitter, ids []string, message interface{}) {
	for _, id := range ids {
		e.Send(id, message)
	}
}
