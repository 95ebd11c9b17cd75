package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/platform/errs"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error string `json:"error"`
}

// StatusFor resolves the response status for a handler error. Internal
// failures are 500 whatever their cause, including deadlines hit in storage.
func StatusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, errs.ErrInternal):
		return http.StatusInternalServerError
	case errors.As(err, &he):
		return he.Code
	default:
		return errs.HTTPStatus(err)
	}
}

func messageFor(err error, status int) string {
	if status >= 500 {
		return "Internal server error"
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
		return fmt.Sprint(he.Message)
	}
	return errs.PublicMessage(err)
}

// HTTPErrorHandler renders errors as {"error": "..."}. Failures are logged by
// Logger, which sees the same error.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := StatusFor(err)
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, ErrorBody{Error: messageFor(err, status)})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}
