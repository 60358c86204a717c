// Package service implements the todo list operations on top of the storage:
// user registration, the pro plan upgrade and todo CRUD with the free plan quota.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/patric-chuzhbe/todoplan/internal/db/storage"
	"github.com/patric-chuzhbe/todoplan/internal/identifier"
	"github.com/patric-chuzhbe/todoplan/internal/models"
	"github.com/patric-chuzhbe/todoplan/internal/todo"
	"github.com/patric-chuzhbe/todoplan/internal/user"
)

// DefaultFreePlanTodoLimit is the number of todos a user without the pro plan may hold.
const DefaultFreePlanTodoLimit = 10

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	ActivatePro(ctx context.Context, userID string) (*user.User, error)
}

type todoKeeper interface {
	InsertTodo(ctx context.Context, userID string, item todo.Todo, freePlanLimit int) (todo.Todo, error)
	UpdateTodo(ctx context.Context, userID, todoID string, mutate storage.TodoMutator) (todo.Todo, error)
	DeleteTodo(ctx context.Context, userID, todoID string) error
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)
	GetNumberOfTodos(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storageKeeper interface {
	userKeeper
	todoKeeper
	statsKeeper
	pinger
}

type Service struct {
	db            storageKeeper
	freePlanLimit int
	newID         identifier.Generator
	now           func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithIDGenerator replaces the identifier source.
func WithIDGenerator(generator identifier.Generator) Option {
	return func(s *Service) {
		s.newID = generator
	}
}

// WithClock replaces the source of the todos' creation time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates the service. A non-positive freePlanLimit falls back to
// DefaultFreePlanTodoLimit.
func New(db storageKeeper, freePlanLimit int, options ...Option) *Service {
	if freePlanLimit <= 0 {
		freePlanLimit = DefaultFreePlanTodoLimit
	}

	s := &Service{
		db:            db,
		freePlanLimit: freePlanLimit,
		newID:         identifier.New,
		now:           time.Now,
	}
	for _, option := range options {
		option(s)
	}

	return s
}

// FreePlanLimit returns the todo quota of users without the pro plan.
func (s *Service) FreePlanLimit() int {
	return s.freePlanLimit
}

// CreateUser registers a user on the free plan with an empty todo list.
func (s *Service) CreateUser(ctx context.Context, name, username string) (*user.User, error) {
	usr := &user.User{
		ID:       s.newID(),
		Name:     name,
		Username: username,
		Pro:      false,
		Todos:    []todo.Todo{},
	}

	if err := s.db.CreateUser(ctx, usr); err != nil {
		return nil, fmt.Errorf("create user %q: %w", username, err)
	}

	return usr, nil
}

func (s *Service) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	usr, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user by id %q: %w", userID, err)
	}

	return usr, nil
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	usr, err := s.db.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user by username %q: %w", username, err)
	}

	return usr, nil
}

// ActivatePro moves the user to the pro plan. Upgrading twice is an
// ErrProAlreadyActivated error.
func (s *Service) ActivatePro(ctx context.Context, userID string) (*user.User, error) {
	usr, err := s.db.ActivatePro(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("activate pro plan for %q: %w", userID, err)
	}

	return usr, nil
}

// ListTodos returns the user's todos in insertion order.
func (s *Service) ListTodos(ctx context.Context, userID string) ([]todo.Todo, error) {
	usr, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return usr.Todos, nil
}

// CreateTodo appends a new, not yet done todo to the user's list.
func (s *Service) CreateTodo(ctx context.Context, userID string, request models.TodoRequest) (todo.Todo, error) {
	deadline, err := ParseDeadline(request.Deadline)
	if err != nil {
		return todo.Todo{}, err
	}

	item := todo.Todo{
		ID:        s.newID(),
		Title:     request.Title,
		Deadline:  deadline,
		Done:      false,
		CreatedAt: s.now(),
	}

	created, err := s.db.InsertTodo(ctx, userID, item, s.freePlanLimit)
	if err != nil {
		return todo.Todo{}, fmt.Errorf("create todo for %q: %w", userID, err)
	}

	return created, nil
}

// UpdateTodo overwrites the title and the deadline. Done and CreatedAt are kept.
func (s *Service) UpdateTodo(ctx context.Context, userID, todoID string, request models.TodoRequest) (todo.Todo, error) {
	deadline, err := ParseDeadline(request.Deadline)
	if err != nil {
		return todo.Todo{}, err
	}

	updated, err := s.db.UpdateTodo(ctx, userID, todoID, func(item *todo.Todo) {
		item.Title = request.Title
		item.Deadline = deadline
	})
	if err != nil {
		return todo.Todo{}, fmt.Errorf("update todo %q: %w", todoID, err)
	}

	return updated, nil
}

// MarkTodoDone sets Done. Marking a done todo again is not an error.
func (s *Service) MarkTodoDone(ctx context.Context, userID, todoID string) (todo.Todo, error) {
	updated, err := s.db.UpdateTodo(ctx, userID, todoID, func(item *todo.Todo) {
		item.Done = true
	})
	if err != nil {
		return todo.Todo{}, fmt.Errorf("mark todo %q done: %w", todoID, err)
	}

	return updated, nil
}

func (s *Service) DeleteTodo(ctx context.Context, userID, todoID string) error {
	if err := s.db.DeleteTodo(ctx, userID, todoID); err != nil {
		return fmt.Errorf("delete todo %q: %w", todoID, err)
	}

	return nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetInternalStats returns the number of users and todos.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	todos, err := s.db.GetNumberOfTodos(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users: users,
		Todos: todos,
	}, nil
}
