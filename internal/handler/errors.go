package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
	Field  string `json:"field,omitempty"`
}

var kinds = []struct {
	kind   error
	status int
	code   string
}{
	{errs.ErrValidation, http.StatusBadRequest, "VALIDATION"},
	{errs.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{errs.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{errs.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{errs.ErrConflict, http.StatusConflict, "CONFLICT"},
	{errs.ErrFailedPrecondition, http.StatusConflict, "FAILED_PRECONDITION"},
	{errs.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
}

// ErrorHandler renders errors returned by handlers and middleware.
// Classified errors keep their message; anything else is logged with its
// stack and answered with a generic 500.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := render(err)
		if status >= http.StatusInternalServerError {
			log.ErrorContext(c.Request().Context(), "request failed",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.String("error", errs.Detail(err)))
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.ErrorContext(c.Request().Context(), "write error response", slog.String("error", err.Error()))
		}
	}
}

func render(err error) (int, errorBody) {
	if e := errs.Classify(err); e != nil {
		for _, k := range kinds {
			if errors.Is(e, k.kind) {
				return k.status, errorBody{Detail: e.Message, Code: k.code, Field: e.Field}
			}
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, errorBody{Detail: msg, Code: codeForStatus(he.Code)}
	}
	return http.StatusInternalServerError, errorBody{Detail: "internal server error", Code: "INTERNAL"}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL"
	}
	return "ERROR"
}
