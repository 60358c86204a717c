package service

import (
	"errors"

	"github.com/patric-chuzhbe/todoplan/internal/db/storage"
)

var ErrUserNotFound = storage.ErrUserNotFound

var ErrTodoNotFound = storage.ErrTodoNotFound

// ErrUsernameTaken is returned when a user with the requested username exists.
var ErrUsernameTaken = storage.ErrUsernameTaken

var ErrProAlreadyActivated = storage.ErrAlreadyPro

// ErrProPlanRequired is returned when a free plan user is at the todo limit.
var ErrProPlanRequired = storage.ErrTodoLimitReached

// ErrInvalidTodoID is returned for a todo ID that is not a well-formed identifier.
var ErrInvalidTodoID = errors.New("todo id is not a uuid")

var ErrInvalidDeadline = errors.New("invalid deadline")
