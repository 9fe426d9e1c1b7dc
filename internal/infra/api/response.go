package api

import (
	"net/http"

	"github.com/go-chi/render"
)

// Public response codes of the verification API.
const (
	CodeSuccess            = 0
	CodeInvalidOrBound     = 1
	CodeAPIDisabled        = 2
	CodeSystemError        = 3
	CodeBadAPIKey          = 4
	CodeCardDisabled       = 5
	CodeReverifyNotAllowed = 6
	CodeCountExhausted     = 7
)

// Response is the {code, message, data} envelope. Data is never nil on the
// wire: failures carry an empty object.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// HTTPStatus maps a public code to its HTTP status.
func HTTPStatus(code int) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidOrBound:
		return http.StatusBadRequest
	case CodeBadAPIKey:
		return http.StatusUnauthorized
	case CodeAPIDisabled, CodeCardDisabled, CodeReverifyNotAllowed, CodeCountExhausted:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, r *http.Request, status int, body Response) {
	if body.Data == nil {
		body.Data = struct{}{}
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}

// fail writes a code-only envelope with the status derived from the code.
func fail(w http.ResponseWriter, r *http.Request, code int, message string) {
	respond(w, r, HTTPStatus(code), Response{Code: code, Message: message})
}
