package model

import "time"

// TodoDraft is a todo that has not been persisted.  OwnerID comes from the
// creating identity and is never changed afterwards.
type TodoDraft struct {
	Title    string
	Contents string
	Weather  string
	OwnerID  int64
}

// Todo represents a stored row of the `todos` table.  Values of this type are
// only produced by a store, so ID is always the store-assigned key.
type Todo struct {
	ID         int64     // todos.id
	Title      string    // todos.title
	Contents   string    // todos.contents
	Weather    string    // todos.weather
	OwnerID    int64     // todos.user_id
	OwnerEmail string    // users.email (joined)
	CreatedAt  time.Time // todos.created_at
	ModifiedAt time.Time // todos.modified_at
}
