// Package todo defines the todo item owned by a user.
package todo

import "time"

// Todo is a single item of a user's list.
type Todo struct {
	// ID is the identifier assigned at creation, meaning a UUID.
	ID string `json:"id"`

	Title    string    `json:"title"`
	Deadline time.Time `json:"deadline"`

	// Done only ever moves from false to true.
	Done bool `json:"done"`

	CreatedAt time.Time `json:"created_at"`
}
