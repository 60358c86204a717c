// Package memorystorage keeps users and their todos in process memory.
// Everything is lost when the process exits.
package memorystorage

import (
	"context"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/todoplan/internal/db/storage"
	"github.com/patric-chuzhbe/todoplan/internal/todo"
	"github.com/patric-chuzhbe/todoplan/internal/user"
)

// MemoryStorage is an ordered list of users searched linearly.
// Every method is safe for concurrent use; readers get deep copies.
type MemoryStorage struct {
	mu    sync.RWMutex
	users []*user.User
}

var _ storage.Storage = (*MemoryStorage)(nil)

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users: []*user.User{},
	}, nil
}

func (theStorage *MemoryStorage) findByID(userID string) *user.User {
	found := funk.Find(theStorage.users, func(usr *user.User) bool {
		return usr.ID == userID
	})
	if found == nil {
		return nil
	}

	return found.(*user.User)
}

func (theStorage *MemoryStorage) findByUsername(username string) *user.User {
	found := funk.Find(theStorage.users, func(usr *user.User) bool {
		return usr.Username == username
	})
	if found == nil {
		return nil
	}

	return found.(*user.User)
}

func (theStorage *MemoryStorage) CreateUser(ctx context.Context, usr *user.User) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if theStorage.findByUsername(usr.Username) != nil {
		return storage.ErrUsernameTaken
	}

	theStorage.users = append(theStorage.users, usr.Clone())

	return nil
}

func (theStorage *MemoryStorage) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	usr := theStorage.findByID(userID)
	if usr == nil {
		return nil, storage.ErrUserNotFound
	}

	return usr.Clone(), nil
}

func (theStorage *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	usr := theStorage.findByUsername(username)
	if usr == nil {
		return nil, storage.ErrUserNotFound
	}

	return usr.Clone(), nil
}

func (theStorage *MemoryStorage) ActivatePro(ctx context.Context, userID string) (*user.User, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	usr := theStorage.findByID(userID)
	if usr == nil {
		return nil, storage.ErrUserNotFound
	}

	if usr.Pro {
		return nil, storage.ErrAlreadyPro
	}

	usr.Pro = true

	return usr.Clone(), nil
}

func (theStorage *MemoryStorage) InsertTodo(
	ctx context.Context,
	userID string,
	item todo.Todo,
	freePlanLimit int,
) (todo.Todo, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	usr := theStorage.findByID(userID)
	if usr == nil {
		return todo.Todo{}, storage.ErrUserNotFound
	}

	if !usr.Pro && len(usr.Todos) >= freePlanLimit {
		return todo.Todo{}, storage.ErrTodoLimitReached
	}

	usr.Todos = append(usr.Todos, item)

	return item, nil
}

func (theStorage *MemoryStorage) UpdateTodo(
	ctx context.Context,
	userID,
	todoID string,
	mutate storage.TodoMutator,
) (todo.Todo, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	usr := theStorage.findByID(userID)
	if usr == nil {
		return todo.Todo{}, storage.ErrUserNotFound
	}

	idx := usr.TodoIndex(todoID)
	if idx == -1 {
		return todo.Todo{}, storage.ErrTodoNotFound
	}

	mutate(&usr.Todos[idx])

	return usr.Todos[idx], nil
}

func (theStorage *MemoryStorage) DeleteTodo(ctx context.Context, userID, todoID string) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	usr := theStorage.findByID(userID)
	if usr == nil {
		return storage.ErrUserNotFound
	}

	idx := usr.TodoIndex(todoID)
	if idx == -1 {
		return storage.ErrTodoNotFound
	}

	usr.Todos = append(usr.Todos[:idx], usr.Todos[idx+1:]...)

	return nil
}

func (theStorage *MemoryStorage) GetNumberOfUsers(ctx context.Context) (int64, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	return int64(len(theStorage.users)), nil
}

func (theStorage *MemoryStorage) GetNumberOfTodos(ctx context.Context) (int64, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	var total int64
	for _, usr := range theStorage.users {
		total += int64(len(usr.Todos))
	}

	return total, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
