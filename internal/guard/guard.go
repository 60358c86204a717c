// Package guard holds the request validation steps that run in front of the
// route handlers. A route lists its steps explicitly; Chain runs them in order,
// threading an immutable Resolved value, and stops at the first failing step.
package guard

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/patric-chuzhbe/todoplan/internal/identifier"
	"github.com/patric-chuzhbe/todoplan/internal/service"
	"github.com/patric-chuzhbe/todoplan/internal/todo"
	"github.com/patric-chuzhbe/todoplan/internal/user"
)

const (
	// UsernameHeader carries the acting user's username.
	UsernameHeader = "username"

	// IDParam is the route parameter holding a user or todo ID.
	IDParam = "id"
)

// ErrUserNotResolved means a step that needs a user ran before any step resolved one.
var ErrUserNotResolved = errors.New("user is not resolved")

// Resolved carries the entities resolved so far. It is passed by value and
// every With* method returns a modified copy.
type Resolved struct {
	User *user.User
	Todo *todo.Todo
}

func (r Resolved) WithUser(usr *user.User) Resolved {
	r.User = usr
	return r
}

func (r Resolved) WithTodo(item todo.Todo) Resolved {
	r.Todo = &item
	return r
}

// Step either returns the next Resolved value or an error that terminates the chain.
type Step func(request *http.Request, in Resolved) (Resolved, error)

// Handler is the terminal handler of a chain.
type Handler func(response http.ResponseWriter, request *http.Request, in Resolved)

// ErrorWriter sends the response for a step's error.
type ErrorWriter func(response http.ResponseWriter, request *http.Request, err error)

// Chain composes steps in front of a terminal handler.
func Chain(onError ErrorWriter, steps ...Step) func(Handler) http.HandlerFunc {
	return func(terminal Handler) http.HandlerFunc {
		return func(response http.ResponseWriter, request *http.Request) {
			resolved := Resolved{}
			for _, step := range steps {
				next, err := step(request, resolved)
				if err != nil {
					onError(response, request, err)
					return
				}
				resolved = next
			}

			terminal(response, request, resolved)
		}
	}
}

type userFinder interface {
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	FreePlanLimit() int
}

// Guards builds the steps on top of the user lookups.
type Guards struct {
	users userFinder
}

func New(users userFinder) *Guards {
	return &Guards{
		users: users,
	}
}

// ExistsUserAccount resolves the user named by the username header.
func (g *Guards) ExistsUserAccount(request *http.Request, in Resolved) (Resolved, error) {
	usr, err := g.users.GetUserByUsername(request.Context(), request.Header.Get(UsernameHeader))
	if err != nil {
		return in, err
	}

	return in.WithUser(usr), nil
}

// CreateTodosUserAvailability enforces the free plan quota on the resolved user.
// A count above the limit is refused as well.
func (g *Guards) CreateTodosUserAvailability(request *http.Request, in Resolved) (Resolved, error) {
	if in.User == nil {
		return in, ErrUserNotResolved
	}

	if in.User.Pro || len(in.User.Todos) < g.users.FreePlanLimit() {
		return in, nil
	}

	return in, service.ErrProPlanRequired
}

// TodoExists validates the todo ID from the path, then resolves the user from
// the username header and the todo from that user's list.
func (g *Guards) TodoExists(request *http.Request, in Resolved) (Resolved, error) {
	todoID := chi.URLParam(request, IDParam)
	if !identifier.IsValid(todoID) {
		return in, service.ErrInvalidTodoID
	}

	usr, err := g.users.GetUserByUsername(request.Context(), request.Header.Get(UsernameHeader))
	if err != nil {
		return in, err
	}

	item, found := usr.FindTodo(todoID)
	if !found {
		return in, service.ErrTodoNotFound
	}

	return in.WithUser(usr).WithTodo(item), nil
}

// UserByPathID resolves the user whose ID is in the path.
func (g *Guards) UserByPathID(request *http.Request, in Resolved) (Resolved, error) {
	usr, err := g.users.GetUserByID(request.Context(), chi.URLParam(request, IDParam))
	if err != nil {
		return in, err
	}

	return in.WithUser(usr), nil
}
