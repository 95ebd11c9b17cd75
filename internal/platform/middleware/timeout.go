package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medtrack/medtrack/internal/platform/errs"
)

// RequestTimeout puts a deadline on the request context. Storage calls observe
// it; if the deadline passed before anything was written the request fails
// as an internal error unless the handler already classified the failure.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				if err == nil {
					err = ctx.Err()
				}
				return errs.Storage("request timeout", err)
			}
			return err
		}
	}
}
