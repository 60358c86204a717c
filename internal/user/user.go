// Package user defines the user model used throughout the application:
// the account looked up by the username header and the todo list it owns.
package user

import "github.com/patric-chuzhbe/todoplan/internal/todo"

// User represents a system user together with the todos it owns.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"id"`

	Name string `json:"name"`

	// Username is unique across all users and is matched case-sensitively.
	Username string `json:"username"`

	// Pro marks the unlimited plan. It never goes back to false.
	Pro bool `json:"pro"`

	// Todos keeps insertion order.
	Todos []todo.Todo `json:"todos"`
}

// Clone returns a deep copy of the user, so the copy's todo list can be
// handed out without sharing the backing array.
func (u *User) Clone() *User {
	clone := *u
	clone.Todos = make([]todo.Todo, len(u.Todos))
	copy(clone.Todos, u.Todos)

	return &clone
}

// TodoIndex returns the position of the todo with the given ID or -1.
func (u *User) TodoIndex(todoID string) int {
	for i := range u.Todos {
		if u.Todos[i].ID == todoID {
			return i
		}
	}

	return -1
}

// FindTodo looks the todo up by ID with a linear scan.
func (u *User) FindTodo(todoID string) (todo.Todo, bool) {
	idx := u.TodoIndex(todoID)
	if idx == -1 {
		return todo.Todo{}, false
	}

	return u.Todos[idx], true
}
