package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// instrument records request count, latency and in-flight gauge.
func (s *Server) instrument(next echo.HandlerFunc) echo.HandlerFunc {
	m := s.opts.Metrics
	if m == nil {
		return next
	}

	return func(c echo.Context) error {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		err := next(c)

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request().Method

		m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(responseStatus(c, err))).Inc()
		m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	if !s.opts.DebugLogger.IsEnabled() {
		return next
	}

	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.opts.DebugLogger.Printf("%s %s -> %d in %v (request %s)",
			c.Request().Method,
			c.Request().URL.Path,
			responseStatus(c, err),
			time.Since(start),
			c.Response().Header().Get(echo.HeaderXRequestID),
		)
		return err
	}
}

// responseStatus is the status the client will see. Errors are rendered
// after middleware returns, so the error's own code wins.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 500
}
