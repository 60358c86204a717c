package router

import (
	"net/http"

	"github.com/patric-chuzhbe/todoplan/internal/guard"
	"github.com/patric-chuzhbe/todoplan/internal/metrics"
	"github.com/patric-chuzhbe/todoplan/internal/models"
)

// GetPing reports whether the storage is reachable.
func (rt *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := rt.svc.Ping(request.Context()); err != nil {
		rt.writeError(response, request, err)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetApiinternalstats returns the number of users and todos.
func (rt *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := rt.svc.GetInternalStats(request.Context())
	if err != nil {
		rt.writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

// PostUsers registers a user. The username must not be taken.
func (rt *Router) PostUsers(response http.ResponseWriter, request *http.Request) {
	var body models.CreateUserRequest
	if err := rt.decodeRequest(response, request, &body); err != nil {
		rt.writeError(response, request, err)
		return
	}

	usr, err := rt.svc.CreateUser(request.Context(), body.Name, body.Username)
	if err != nil {
		rt.writeError(response, request, err)
		return
	}
	metrics.UsersCreatedTotal.Inc()

	writeJSON(response, http.StatusCreated, usr)
}

func (rt *Router) GetUsersID(response http.ResponseWriter, request *http.Request, in guard.Resolved) {
	writeJSON(response, http.StatusOK, in.User)
}

// PatchUsersIDPro upgrades the resolved user to the pro plan.
func (rt *Router) PatchUsersIDPro(response http.ResponseWriter, request *http.Request, in guard.Resolved) {
	usr, err := rt.svc.ActivatePro(request.Context(), in.User.ID)
	if err != nil {
		rt.writeError(response, request, err)
		return
	}
	metrics.ProActivationsTotal.Inc()

	writeJSON(response, http.StatusOK, usr)
}

func (rt *Router) GetTodos(response http.ResponseWriter, request *http.Request, in guard.Resolved) {
	todos, err := rt.svc.ListTodos(request.Context(), in.User.ID)
	if err != nil {
		rt.writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, todos)
}

func (rt *Router) PostTodos(response http.ResponseWriter, request *http.Request, in guard.Resolved) {
	var body models.TodoRequest
	if err := rt.decodeRequest(response, request, &body); err != nil {
		rt.writeError(response, request, err)
		return
	}

	created, err := rt.svc.CreateTodo(request.Context(), in.User.ID, body)
	if err != nil {
		rt.writeError(response, request, err)
		return
	}
	metrics.TodosCreatedTotal.Inc()

	writeJSON(response, http.StatusCreated, created)
}

// PutTodosID overwrites the title and the deadline of the resolved todo.
func (rt *Router) PutTodosID(response http.ResponseWriter, request *http.Request, in guard.Resolved) {
	var body models.TodoRequest
	if err := rt.decodeRequest(response, request, &body); err != nil {
		rt.writeError(response, request, err)
		return
	}

	updated, err := rt.svc.UpdateTodo(request.Context(), in.User.ID, in.Todo.ID, body)
	if err != nil {
		rt.writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, updated)
}

func (rt *Router) PatchTodosIDDone(response http.ResponseWriter, request *http.Request, in guard.Resolved) {
	updated, err := rt.svc.MarkTodoDone(request.Context(), in.User.ID, in.Todo.ID)
	if err != nil {
		rt.writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, updated)
}

// DeleteTodosID removes the resolved todo. A todo already gone by the time
// of removal is answered with 404.
func (rt *Router) DeleteTodosID(response http.ResponseWriter, request *http.Request, in guard.Resolved) {
	if err := rt.svc.DeleteTodo(request.Context(), in.User.ID, in.Todo.ID); err != nil {
		rt.writeError(response, request, err)
		return
	}
	metrics.TodosDeletedTotal.Inc()

	response.WriteHeader(http.StatusNoContent)
}
