// Package mockstorage provides a testify-based mock implementation
// of the storage contract. It is used in service and router tests to
// simulate storage failures.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/todoplan/internal/db/storage"
	"github.com/patric-chuzhbe/todoplan/internal/todo"
	"github.com/patric-chuzhbe/todoplan/internal/user"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock
}

var _ storage.Storage = (*StorageMock)(nil)

func userOrNil(value interface{}) *user.User {
	usr, _ := value.(*user.User)
	return usr
}

func todoOrZero(value interface{}) todo.Todo {
	item, _ := value.(todo.Todo)
	return item
}

// CreateUser mocks appending a new user.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) error {
	args := m.Called(ctx, usr)
	return args.Error(0)
}

// GetUserByID mocks fetching a user by its ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	return userOrNil(args.Get(0)), args.Error(1)
}

// GetUserByUsername mocks fetching a user by its username.
func (m *StorageMock) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	return userOrNil(args.Get(0)), args.Error(1)
}

// ActivatePro mocks the plan upgrade.
func (m *StorageMock) ActivatePro(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	return userOrNil(args.Get(0)), args.Error(1)
}

// InsertTodo mocks appending a todo to a user's list.
func (m *StorageMock) InsertTodo(
	ctx context.Context,
	userID string,
	item todo.Todo,
	freePlanLimit int,
) (todo.Todo, error) {
	args := m.Called(ctx, userID, item, freePlanLimit)
	return todoOrZero(args.Get(0)), args.Error(1)
}

// UpdateTodo mocks an in-place todo change. The mutator is not invoked.
func (m *StorageMock) UpdateTodo(
	ctx context.Context,
	userID,
	todoID string,
	mutate storage.TodoMutator,
) (todo.Todo, error) {
	args := m.Called(ctx, userID, todoID, mutate)
	return todoOrZero(args.Get(0)), args.Error(1)
}

// DeleteTodo mocks removing a todo.
func (m *StorageMock) DeleteTodo(ctx context.Context, userID, todoID string) error {
	args := m.Called(ctx, userID, todoID)
	return args.Error(0)
}

// GetNumberOfUsers mocks counting the users.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfTodos mocks counting the todos of all users.
func (m *StorageMock) GetNumberOfTodos(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
