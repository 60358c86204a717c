package router

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/todoplan/internal/config"
	"github.com/patric-chuzhbe/todoplan/internal/db/memorystorage"
	"github.com/patric-chuzhbe/todoplan/internal/db/storage"
	"github.com/patric-chuzhbe/todoplan/internal/identifier"
	"github.com/patric-chuzhbe/todoplan/internal/ipchecker"
	"github.com/patric-chuzhbe/todoplan/internal/logger"
	"github.com/patric-chuzhbe/todoplan/internal/mockstorage"
	"github.com/patric-chuzhbe/todoplan/internal/models"
	"github.com/patric-chuzhbe/todoplan/internal/service"
	"github.com/patric-chuzhbe/todoplan/internal/todo"
	"github.com/patric-chuzhbe/todoplan/internal/user"
)

type initOption func(*initOptions)

type initOptions struct {
	mockStorage   storage.Storage
	trustedSubnet string
}

func withMockStorage(db storage.Storage) initOption {
	return func(options *initOptions) {
		options.mockStorage = db
	}
}

func withTrustedSubnet(subnet string) initOption {
	return func(options *initOptions) {
		options.trustedSubnet = subnet
	}
}

func setupTestRouter(t *testing.T, optionsProto ...initOption) (*httptest.Server, storage.Storage) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	cfg, err := config.New(config.WithDisableFlagsParsing(true))
	if t != nil {
		require.NoError(t, err)
	}

	var db storage.Storage
	if options.mockStorage != nil {
		db = options.mockStorage
	} else {
		db, err = memorystorage.New()
		if t != nil {
			require.NoError(t, err)
		}
	}

	checker, err := ipchecker.New(options.trustedSubnet)
	if t != nil {
		require.NoError(t, err)
	}

	err = logger.Init("debug", "")
	if t != nil {
		require.NoError(t, err)
	}

	theRouter := New(
		service.New(db, cfg.FreePlanTodoLimit),
		checker,
		cfg.CORSMaxAge,
	)

	return httptest.NewServer(theRouter), db
}

func send(t *testing.T, method, url, username string, body interface{}) *resty.Response {
	t.Helper()

	req := resty.New().R()
	req.Method = method
	req.URL = url
	if username != "" {
		req.SetHeader("username", username)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}

	resp, err := req.Send()
	require.NoError(t, err, "error making HTTP request")

	return resp
}

func errorMessage(t *testing.T, resp *resty.Response) string {
	t.Helper()

	var payload models.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &payload), "body: %s", resp.String())

	return payload.Error
}

func createUser(t *testing.T, srv *httptest.Server, name, username string) user.User {
	t.Helper()

	resp := send(t, http.MethodPost, srv.URL+"/users", "", models.CreateUserRequest{Name: name, Username: username})
	require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())

	var created user.User
	require.NoError(t, json.Unmarshal(resp.Body(), &created))

	return created
}

func createTodo(t *testing.T, srv *httptest.Server, username, title string) *resty.Response {
	t.Helper()

	return send(t, http.MethodPost, srv.URL+"/todos", username, models.TodoRequest{
		Title:    title,
		Deadline: "2026-12-31T00:00:00Z",
	})
}

func decodeTodo(t *testing.T, resp *resty.Response) todo.Todo {
	t.Helper()

	var item todo.Todo
	require.NoError(t, json.Unmarshal(resp.Body(), &item), resp.String())

	return item
}

func TestPostUsers(t *testing.T) {
	srv, _ := setupTestRouter(t)
	defer srv.Close()

	created := createUser(t, srv, "Ana", "ana")

	assert.True(t, identifier.IsValid(created.ID))
	assert.Equal(t, "Ana", created.Name)
	assert.Equal(t, "ana", created.Username)
	assert.False(t, created.Pro)
	assert.Empty(t, created.Todos)

	testCases := []struct {
		name    string
		body    interface{}
		code    int
		message string
	}{
		{
			name:    "duplicate username",
			body:    models.CreateUserRequest{Name: "Another", Username: "ana"},
			code:    http.StatusBadRequest,
			message: "Username already exists",
		},
		{
			name:    "missing username",
			body:    map[string]string{"name": "Nobody"},
			code:    http.StatusBadRequest,
			message: "Field 'username' is required",
		},
		{
			name:    "missing name",
			body:    map[string]string{"username": "nobody"},
			code:    http.StatusBadRequest,
			message: "Field 'name' is required",
		},
		{
			name:    "malformed body",
			body:    `{"name":`,
			code:    http.StatusBadRequest,
			message: "Invalid request body",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp := send(t, http.MethodPost, srv.URL+"/users", "", testCase.body)

			assert.Equal(t, testCase.code, resp.StatusCode(), "Response code didn't match expected value")
			assert.Equal(t, testCase.message, errorMessage(t, resp))
		})
	}
}

func TestGetUsersID(t *testing.T) {
	srv, _ := setupTestRouter(t)
	defer srv.Close()

	created := createUser(t, srv, "Ana", "ana")
	require.Equal(t, http.StatusCreated, createTodo(t, srv, "ana", "first").StatusCode())

	resp := send(t, http.MethodGet, srv.URL+"/users/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var fetched user.User
	require.NoError(t, json.Unmarshal(resp.Body(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	require.Len(t, fetched.Todos, 1)
	assert.Equal(t, "first", fetched.Todos[0].Title)

	resp = send(t, http.MethodGet, srv.URL+"/users/"+identifier.New(), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Equal(t, "User not found", errorMessage(t, resp))
}

func TestGetUsersIDReturnsTheStoredRecord(t *testing.T) {
	srv, _ := setupTestRouter(t)
	defer srv.Close()

	created := createUser(t, srv, "Ana", "ana")

	resp := send(t, http.MethodGet, srv.URL+"/users/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var fetched user.User
	require.NoError(t, json.Unmarshal(resp.Body(), &fetched))
	assert.Equal(t, created, fetched)
}

func TestRequestBodyTooLarge(t *testing.T) {
	srv, _ := setupTestRouter(t)
	defer srv.Close()

	oversized := `{"name":"` + strings.Repeat("a", maxRequestBodySize) + `","username":"ana"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(oversized))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Config.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var payload models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "Request body too large", payload.Error)

	resp := send(t, http.MethodGet, srv.URL+"/todos", "ana", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestPatchUsersIDPro(t *testing.T) {
	srv, _ := setupTestRouter(t)
	defer srv.Close()

	created := createUser(t, srv, "Ana", "ana")

	resp := send(t, http.MethodPatch, srv.URL+"/users/"+created.ID+"/pro", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var upgraded user.User
	require.NoError(t, json.Unmarshal(resp.Body(), &upgraded))
	assert.True(t, upgraded.Pro)

	resp = send(t, http.MethodPatch, srv.URL+"/users/"+created.ID+"/pro", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Equal(t, "Pro plan is already activated.", errorMessage(t, resp))

	resp = send(t, http.MethodPatch, srv.URL+"/users/unknown/pro", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Equal(t, "User not found", errorMessage(t, resp))
}

func TestFreePlanQuota(t *testing.T) {
	srv, _ := setupTestRouter(t)
	defer srv.Close()

	created := createUser(t, srv, "Ana", "ana")

	for i := 0; i < service.DefaultFreePlanTodoLimit; i++ {
		resp := createTodo(t, srv, "ana", fmt.Sprintf("todo %d", i+1))
		require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())
	}

	resp := createTodo(t, srv, "ana", "one too many")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	assert.Equal(t, "User plan pro", errorMessage(t, resp))

	resp = send(t, http.MethodPatch, srv.URL+"/users/"+created.ID+"/pro", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	for i := 0; i < 5; i++ {
		resp := createTodo(t, srv, "ana", fmt.Sprintf("pro todo %d", i+1))
		require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())
	}

	resp = send(t, http.MethodGet, srv.URL+"/todos", "ana", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var todos []todo.Todo
	require.NoError(t, json.Unmarshal(resp.Body(), &todos))
	assert.Len(t, todos, service.DefaultFreePlanTodoLimit+5)
}

func TestTodoRoundTrip(t *testing.T) {
	srv, _ := setupTestRouter(t)
	defer srv.Close()

	createUser(t, srv, "Ana", "ana")

	resp := createTodo(t, srv, "ana", "write report")
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	created := decodeTodo(t, resp)
	assert.True(t, identifier.IsValid(created.ID))
	assert.Equal(t, "write report", created.Title)
	assert.False(t, created.Done)
	assert.Equal(t, "2026-12-31T00:00:00Z", created.Deadline.Format("2006-01-02T15:04:05Z07:00"))

	resp = send(t, http.MethodPut, srv.URL+"/todos/"+created.ID, "ana", models.TodoRequest{
		Title:    "write the report",
		Deadline: "2027-01-15",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

	updated := decodeTodo(t, resp)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "write the report", updated.Title)
	assert.Equal(t, "2027-01-15", updated.Deadline.Format("2006-01-02"))
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	for i := 0; i < 2; i++ {
		resp = send(t, http.MethodPatch, srv.URL+"/todos/"+created.ID+"/done", "ana", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		assert.True(t, decodeTodo(t, resp).Done)
	}

	resp = send(t, http.MethodGet, srv.URL+"/todos", "ana", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var todos []todo.Todo
	require.NoError(t, json.Unmarshal(resp.Body(), &todos))
	require.Len(t, todos, 1)
	assert.Equal(t, "write the report", todos[0].Title)
	assert.True(t, todos[0].Done)

	resp = send(t, http.MethodDelete, srv.URL+"/todos/"+created.ID, "ana", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	assert.Empty(t, resp.Body())

	resp = send(t, http.MethodDelete, srv.URL+"/todos/"+created.ID, "ana", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.Equal(t, "Todo not found", errorMessage(t, resp))
}

func TestTodoGuards(t *testing.T) {
	srv, _ := setupTestRouter(t)
	defer srv.Close()

	createUser(t, srv, "Ana", "ana")
	createUser(t, srv, "Bob", "bob")

	resp := createTodo(t, srv, "ana", "private")
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	anaTodo := decodeTodo(t, resp)

	update := models.TodoRequest{Title: "changed", Deadline: "2026-12-31"}

	testCases := []struct {
		name     string
		method   string
		path     string
		username string
		body     interface{}
		code     int
		message  string
	}{
		{
			name:    "list without username",
			method:  http.MethodGet,
			path:    "/todos",
			code:    http.StatusNotFound,
			message: "User not found",
		},
		{
			name:     "create for unknown user",
			method:   http.MethodPost,
			path:     "/todos",
			username: "ghost",
			body:     models.TodoRequest{Title: "x", Deadline: "2026-12-31"},
			code:     http.StatusNotFound,
			message:  "User not found",
		},
		{
			name:     "update with a non-uuid id",
			method:   http.MethodPut,
			path:     "/todos/123",
			username: "ana",
			body:     update,
			code:     http.StatusBadRequest,
			message:  "Id not uuid",
		},
		{
			name:     "non-uuid id wins over unknown user",
			method:   http.MethodPatch,
			path:     "/todos/not-a-uuid/done",
			username: "ghost",
			code:     http.StatusBadRequest,
			message:  "Id not uuid",
		},
		{
			name:     "done for unknown user",
			method:   http.MethodPatch,
			path:     "/todos/" + anaTodo.ID + "/done",
			username: "ghost",
			code:     http.StatusNotFound,
			message:  "User not found",
		},
		{
			name:     "another user's todo",
			method:   http.MethodPut,
			path:     "/todos/" + anaTodo.ID,
			username: "bob",
			body:     update,
			code:     http.StatusNotFound,
			message:  "Todo not found",
		},
		{
			name:     "delete unknown todo",
			method:   http.MethodDelete,
			path:     "/todos/" + identifier.New(),
			username: "ana",
			code:     http.StatusNotFound,
			message:  "Todo not found",
		},
		{
			name:     "delete for unknown user",
			method:   http.MethodDelete,
			path:     "/todos/" + anaTodo.ID,
			username: "ghost",
			code:     http.StatusNotFound,
			message:  "User not found",
		},
		{
			name:     "invalid deadline",
			method:   http.MethodPut,
			path:     "/todos/" + anaTodo.ID,
			username: "ana",
			body:     models.TodoRequest{Title: "changed", Deadline: "tomorrow"},
			code:     http.StatusBadRequest,
			message:  "Invalid deadline",
		},
		{
			name:     "missing title",
			method:   http.MethodPost,
			path:     "/todos",
			username: "ana",
			body:     map[string]string{"deadline": "2026-12-31"},
			code:     http.StatusBadRequest,
			message:  "Field 'title' is required",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp := send(t, testCase.method, srv.URL+testCase.path, testCase.username, testCase.body)

			assert.Equal(t, testCase.code, resp.StatusCode(), "Response code didn't match expected value")
			assert.Equal(t, testCase.message, errorMessage(t, resp))
		})
	}

	resp = send(t, http.MethodGet, srv.URL+"/todos", "ana", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var todos []todo.Todo
	require.NoError(t, json.Unmarshal(resp.Body(), &todos))
	require.Len(t, todos, 1)
	assert.Equal(t, "private", todos[0].Title)
}

func gzipString(input string) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	_, err := gzipWriter.Write([]byte(input))
	if err != nil {
		return nil, err
	}

	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func TestPostUsersForGzip(t *testing.T) {
	srv, _ := setupTestRouter(t)
	defer srv.Close()

	body, err := gzipString(`{"name":"Ana","username":"ana"}`)
	require.NoError(t, err)

	req := resty.New().R()
	req.SetHeader("Content-Type", "application/json")
	req.SetHeader("Content-Encoding", "gzip")
	req.SetBody(body)

	resp, err := req.Post(srv.URL + "/users")
	require.NoError(t, err, "error making HTTP request")
	assert.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())
	assert.Contains(t, resp.String(), `"username":"ana"`)

	req = resty.New().R()
	req.SetHeader("Content-Type", "application/json")
	req.SetHeader("Content-Encoding", "gzip")
	req.SetBody([]byte("definitely not gzip"))

	resp, err = req.Post(srv.URL + "/users")
	require.NoError(t, err, "error making HTTP request")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := setupTestRouter(t)
	defer srv.Close()

	req := resty.New().R()
	req.SetHeader("Origin", "http://example.com")
	req.SetHeader("Access-Control-Request-Method", http.MethodPost)
	req.SetHeader("Access-Control-Request-Headers", "username")

	resp, err := req.Options(srv.URL + "/todos")
	require.NoError(t, err, "error making HTTP request")

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(resp.Header().Get("Access-Control-Allow-Headers")), "username")
}

func TestGetApiinternalstats(t *testing.T) {
	t.Run("untrusted when no subnet is configured", func(t *testing.T) {
		srv, _ := setupTestRouter(t)
		defer srv.Close()

		resp := send(t, http.MethodGet, srv.URL+"/api/internal/stats", "", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	})

	t.Run("trusted subnet", func(t *testing.T) {
		srv, _ := setupTestRouter(t, withTrustedSubnet("127.0.0.0/8"))
		defer srv.Close()

		createUser(t, srv, "Ana", "ana")
		createUser(t, srv, "Bob", "bob")
		require.Equal(t, http.StatusCreated, createTodo(t, srv, "ana", "one").StatusCode())

		resp := send(t, http.MethodGet, srv.URL+"/api/internal/stats", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode())

		var stats models.InternalStatsResponse
		require.NoError(t, json.Unmarshal(resp.Body(), &stats))
		assert.Equal(t, models.InternalStatsResponse{Users: 2, Todos: 1}, stats)
	})

	t.Run("forwarded address outside the subnet", func(t *testing.T) {
		srv, _ := setupTestRouter(t, withTrustedSubnet("127.0.0.0/8"))
		defer srv.Close()

		resp, err := resty.New().R().
			SetHeader("X-Real-IP", "10.1.2.3").
			Get(srv.URL + "/api/internal/stats")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	})
}

func TestGetPing(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("Ping", mock.Anything).Return(nil).Once()
	db.On("Ping", mock.Anything).Return(errors.New("storage is down")).Once()

	srv, _ := setupTestRouter(t, withMockStorage(db))
	defer srv.Close()

	resp := send(t, http.MethodGet, srv.URL+"/ping", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	resp = send(t, http.MethodGet, srv.URL+"/ping", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())

	db.AssertExpectations(t)
}

func TestStorageFailureIsInternalError(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("GetUserByUsername", mock.Anything, "ana").Return(nil, errors.New("connection reset"))

	srv, _ := setupTestRouter(t, withMockStorage(db))
	defer srv.Close()

	resp := send(t, http.MethodGet, srv.URL+"/todos", "ana", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.Equal(t, "Internal server error", errorMessage(t, resp))

	db.AssertExpectations(t)
}

func TestGetMetrics(t *testing.T) {
	srv, _ := setupTestRouter(t)
	defer srv.Close()

	createUser(t, srv, "Ana", "ana")

	resp := send(t, http.MethodGet, srv.URL+"/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Contains(t, resp.String(), "todoplan_http_requests_total")
	assert.Contains(t, resp.String(), `route="/users"`)
	assert.Contains(t, resp.String(), "todoplan_users_created_total")
}

func TestConcurrentTodoCreationRespectsQuota(t *testing.T) {
	srv, db := setupTestRouter(t)
	defer srv.Close()

	created := createUser(t, srv, "Ana", "ana")

	const attempts = 30
	codes := make(chan int, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			resp, err := resty.New().R().
				SetHeader("username", "ana").
				SetHeader("Content-Type", "application/json").
				SetBody(models.TodoRequest{Title: "parallel", Deadline: "2026-12-31"}).
				Post(srv.URL + "/todos")
			if err != nil {
				codes <- 0
				return
			}
			codes <- resp.StatusCode()
		}()
	}

	accepted := 0
	for i := 0; i < attempts; i++ {
		code := <-codes
		assert.Contains(t, []int{http.StatusCreated, http.StatusForbidden}, code)
		if code == http.StatusCreated {
			accepted++
		}
	}

	assert.Equal(t, service.DefaultFreePlanTodoLimit, accepted)

	usr, err := db.GetUserByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, usr.Todos, service.DefaultFreePlanTodoLimit)
}
