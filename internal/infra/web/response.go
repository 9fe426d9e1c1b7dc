package web

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/infra/logging"
)

// envelope is the admin response shape. Code is 0 on success and mirrors the
// HTTP status otherwise.
type envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(w http.ResponseWriter, r *http.Request, message string, data interface{}) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, envelope{Code: 0, Message: message, Data: data})
}

func fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, envelope{Code: status, Message: message})
}

// statusOf maps domain errors onto admin HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrCardNotFound),
		errors.Is(err, domain.ErrAPIKeyNotFound),
		errors.Is(err, domain.ErrSettingNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrCardAlreadyOff),
		errors.Is(err, domain.ErrCardNotDisabled),
		errors.Is(err, domain.ErrCardNotBound),
		errors.Is(err, domain.ErrCardTypeMismatch),
		errors.Is(err, domain.ErrWrongPassword),
		errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// failErr writes the mapped status. Internal errors are logged and hidden.
func failErr(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, op string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logging.With(r.Context(), logger).Error().Err(err).Str("op", op).Msg("admin request failed")
		fail(w, r, status, "internal server error")
		return
	}
	fail(w, r, status, err.Error())
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst interface{}) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		return fmt.Errorf("%w: malformed request body", domain.ErrInvalidArgument)
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, formatFieldError(verrs[0]))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func formatFieldError(err validator.FieldError) string {
	field, param := err.Field(), err.Param()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
