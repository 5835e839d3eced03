// Package queue defines message payloads exchanged over the message broker.
package queue

// TodoCreatedQueue is the durable queue todo events are routed to.
const TodoCreatedQueue = "todo.created"

// TodoCreatedEvent is published after a todo is stored.  It carries enough
// for downstream consumers to log or notify without querying the store.
type TodoCreatedEvent struct {
	TodoID    int64  `json:"todo_id"`
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Title     string `json:"title"`
	Weather   string `json:"weather"`
	CreatedAt string `json:"created_at"`
}
