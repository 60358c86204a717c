package models

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// TodoRequest is the body of POST /todos and PUT /todos/{id}.
// Deadline is parsed by the service.
type TodoRequest struct {
	Title    string `json:"title" validate:"required"`
	Deadline string `json:"deadline" validate:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type InternalStatsResponse struct {
	Users int64 `json:"users"`
	Todos int64 `json:"todos"`
}
