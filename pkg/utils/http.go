package utils

import (
	"github.com/labstack/echo/v4"
	"github.com/srand/jolt/node/pkg/log"
)

// HttpLogger returns echo middleware tracing every request to the logger.
func HttpLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			logger.Tracef("%4s %s %v", c.Request().Method, c.Request().URL, c.Response().Status)
			return err
		}
	}
}
