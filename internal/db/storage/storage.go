// Package storage declares the storage contract of the service and the
// sentinel errors every implementation reports.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/todoplan/internal/todo"
	"github.com/patric-chuzhbe/todoplan/internal/user"
)

var (
	ErrUserNotFound = errors.New("user not found")

	ErrTodoNotFound = errors.New("todo not found")

	ErrUsernameTaken = errors.New("username already exists")

	ErrAlreadyPro = errors.New("pro plan is already activated")

	// ErrTodoLimitReached is returned when a user on the free plan already
	// holds the maximum number of todos.
	ErrTodoLimitReached = errors.New("todo limit reached")
)

// TodoMutator changes a stored todo in place. It runs while the storage
// holds its write lock and must not call back into the storage.
type TodoMutator func(item *todo.Todo)

type Storage interface {
	// CreateUser appends usr unless its username is already taken.
	CreateUser(ctx context.Context, usr *user.User) error

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	GetUserByUsername(ctx context.Context, username string) (*user.User, error)

	// ActivatePro switches the user to the pro plan and returns the updated user.
	ActivatePro(ctx context.Context, userID string) (*user.User, error)

	// InsertTodo appends item to the user's list. Users that are not on the
	// pro plan are refused once they reach freePlanLimit todos.
	InsertTodo(ctx context.Context, userID string, item todo.Todo, freePlanLimit int) (todo.Todo, error)

	UpdateTodo(ctx context.Context, userID, todoID string, mutate TodoMutator) (todo.Todo, error)

	DeleteTodo(ctx context.Context, userID, todoID string) error

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfTodos(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
