// Package router wires the HTTP surface of the service: ambient middleware,
// the per-route guard chains and the terminal handlers.
package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patric-chuzhbe/todoplan/internal/guard"
	"github.com/patric-chuzhbe/todoplan/internal/gzippedhttp"
	"github.com/patric-chuzhbe/todoplan/internal/logger"
	"github.com/patric-chuzhbe/todoplan/internal/metrics"
	"github.com/patric-chuzhbe/todoplan/internal/models"
	"github.com/patric-chuzhbe/todoplan/internal/todo"
	"github.com/patric-chuzhbe/todoplan/internal/user"
)

const compressionLevel = 5

type userService interface {
	CreateUser(ctx context.Context, name, username string) (*user.User, error)
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	ActivatePro(ctx context.Context, userID string) (*user.User, error)
	FreePlanLimit() int
}

type todoService interface {
	ListTodos(ctx context.Context, userID string) ([]todo.Todo, error)
	CreateTodo(ctx context.Context, userID string, request models.TodoRequest) (todo.Todo, error)
	UpdateTodo(ctx context.Context, userID, todoID string, request models.TodoRequest) (todo.Todo, error)
	MarkTodoDone(ctx context.Context, userID, todoID string) (todo.Todo, error)
	DeleteTodo(ctx context.Context, userID, todoID string) error
}

type internalService interface {
	Ping(ctx context.Context) error
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
}

type todoPlanService interface {
	userService
	todoService
	internalService
}

type trustedSubnetChecker interface {
	TrustedOnly(h http.Handler) http.Handler
}

// Router holds the dependencies of the HTTP handlers.
type Router struct {
	svc      todoPlanService
	guards   *guard.Guards
	validate *validator.Validate
}

func newRouter(svc todoPlanService) *Router {
	return &Router{
		svc:      svc,
		guards:   guard.New(svc),
		validate: newValidator(),
	}
}

func (rt *Router) chain(steps ...guard.Step) func(guard.Handler) http.HandlerFunc {
	return guard.Chain(rt.writeError, steps...)
}

// New builds the chi router of the service. Cross-origin requests are
// allowed from any origin; corsMaxAge is the preflight cache time in seconds.
func New(svc todoPlanService, ipChecker trustedSubnetChecker, corsMaxAge int) *chi.Mux {
	rt := newRouter(svc)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
		metrics.WithHTTPMetrics,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodPatch,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowedHeaders: []string{
				"Accept",
				"Accept-Encoding",
				"Content-Encoding",
				"Content-Type",
				guard.UsernameHeader,
			},
			MaxAge: corsMaxAge,
		}),
		gzippedhttp.UngzipRequest,
		middleware.Compress(compressionLevel, "application/json"),
	)

	router.Get(`/ping`, rt.GetPing)
	router.Handle(`/metrics`, promhttp.Handler())
	router.With(ipChecker.TrustedOnly).Get(`/api/internal/stats`, rt.GetApiinternalstats)

	router.Post(`/users`, rt.PostUsers)
	router.Get(`/users/{id}`, rt.chain(rt.guards.UserByPathID)(rt.GetUsersID))
	router.Patch(`/users/{id}/pro`, rt.chain(rt.guards.UserByPathID)(rt.PatchUsersIDPro))

	router.Get(`/todos`, rt.chain(rt.guards.ExistsUserAccount)(rt.GetTodos))
	router.Post(`/todos`, rt.chain(
		rt.guards.ExistsUserAccount,
		rt.guards.CreateTodosUserAvailability,
	)(rt.PostTodos))
	router.Put(`/todos/{id}`, rt.chain(rt.guards.TodoExists)(rt.PutTodosID))
	router.Patch(`/todos/{id}/done`, rt.chain(rt.guards.TodoExists)(rt.PatchTodosIDDone))
	router.Delete(`/todos/{id}`, rt.chain(
		rt.guards.ExistsUserAccount,
		rt.guards.TodoExists,
	)(rt.DeleteTodosID))

	return router
}
