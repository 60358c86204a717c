package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/todoplan/internal/logger"
	"github.com/patric-chuzhbe/todoplan/internal/metrics"
	"github.com/patric-chuzhbe/todoplan/internal/models"
	"github.com/patric-chuzhbe/todoplan/internal/service"
)

// maxRequestBodySize caps JSON request bodies at 1 MiB.
const maxRequestBodySize = 1 << 20

var (
	errInvalidBody  = errors.New("invalid request body")
	errBodyTooLarge = errors.New("request body too large")
)

// requestValidationError carries the message of a failed validator rule.
type requestValidationError struct {
	message string
}

func (e *requestValidationError) Error() string {
	return e.message
}

type errorMapping struct {
	target  error
	status  int
	message string
}

// errorMappings is checked in order with errors.Is.
var errorMappings = []errorMapping{
	{target: service.ErrInvalidTodoID, status: http.StatusBadRequest, message: "Id not uuid"},
	{target: service.ErrUserNotFound, status: http.StatusNotFound, message: "User not found"},
	{target: service.ErrTodoNotFound, status: http.StatusNotFound, message: "Todo not found"},
	{target: service.ErrProPlanRequired, status: http.StatusForbidden, message: "User plan pro"},
	{target: service.ErrUsernameTaken, status: http.StatusBadRequest, message: "Username already exists"},
	{target: service.ErrProAlreadyActivated, status: http.StatusBadRequest, message: "Pro plan is already activated."},
	{target: service.ErrInvalidDeadline, status: http.StatusBadRequest, message: "Invalid deadline"},
	{target: errBodyTooLarge, status: http.StatusRequestEntityTooLarge, message: "Request body too large"},
	{target: errInvalidBody, status: http.StatusBadRequest, message: "Invalid request body"},
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)

	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugw("encode response", zap.Error(err))
	}
}

// writeError sends {"error": message} with the status matching err.
func (rt *Router) writeError(response http.ResponseWriter, request *http.Request, err error) {
	var validationErr *requestValidationError
	if errors.As(err, &validationErr) {
		writeJSON(response, http.StatusBadRequest, models.ErrorResponse{Error: validationErr.message})
		return
	}

	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.target) {
			if mapping.target == service.ErrProPlanRequired {
				metrics.QuotaRejectionsTotal.Inc()
			}
			logger.Log.Debugw("request rejected", "uri", request.RequestURI, "status", mapping.status, "error", err)
			writeJSON(response, mapping.status, models.ErrorResponse{Error: mapping.message})
			return
		}
	}

	logger.Log.Errorw("request failed", "uri", request.RequestURI, "method", request.Method, zap.Error(err))
	writeJSON(response, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	return validate
}

// decodeRequest reads a JSON body of at most maxRequestBodySize bytes into
// dst and validates it.
func (rt *Router) decodeRequest(response http.ResponseWriter, request *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(response, request.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: %v", errBodyTooLarge, err)
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}

	if err := rt.validate.Struct(dst); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return &requestValidationError{message: describeFieldError(fieldErrors[0])}
		}
		return err
	}

	return nil
}

func describeFieldError(fieldErr validator.FieldError) string {
	if fieldErr.Tag() == "required" {
		return fmt.Sprintf("Field '%s' is required", fieldErr.Field())
	}

	return fmt.Sprintf("Field '%s' failed on the '%s' rule", fieldErr.Field(), fieldErr.Tag())
}
