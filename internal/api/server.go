// Package api serves ChatDragon's HTTP surface.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"chatdragon/internal/actors"
	"chatdragon/internal/debug"
	"chatdragon/internal/observability"
	"chatdragon/internal/telemetry"
)

// IntentService classifies an utterance and runs the chosen function.
type IntentService interface {
	GetIntent(ctx context.Context, ask string) (string, error)
}

// NPCService generates a non-player character from a short prompt.
type NPCService interface {
	GenerateQuick(ctx context.Context, ask string) (*actors.NonPlayerCharacter, error)
}

type Options struct {
	// RequestTimeout bounds the work done for one API request. Zero means
	// only the client's own cancellation applies.
	RequestTimeout time.Duration
	BodyLimit      string
	Metrics        *telemetry.Metrics
	DebugLogger    *debug.Logger
	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}

type Server struct {
	echo    *echo.Echo
	intents IntentService
	npcs    NPCService
	opts    Options
}

func NewServer(intents IntentService, npcs NPCService, opts Options) *Server {
	if opts.BodyLimit == "" {
		opts.BodyLimit = "1M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		intents: intents,
		npcs:    npcs,
		opts:    opts,
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			Generator:        uuid.NewString,
			RequestIDHandler: tagRequestID,
		}),
		s.instrument,
		s.logRequests,
		middleware.BodyLimit(opts.BodyLimit),
	)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.healthz)

	if s.opts.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.opts.Metrics.Handler()))
	}
	if s.opts.MCPHandler != nil {
		s.echo.Any("/mcp", echo.WrapHandler(s.streaming(s.opts.MCPHandler)))
	}

	api := s.echo.Group("/api")
	api.POST("/getintent", s.getIntent)
	api.POST("/npc/generatequick", s.generateQuickNPC)
}

// streaming lifts the server's read and write deadlines for next. The MCP
// event stream stays open for the life of a client session, far longer than
// any API request.
func (s *Server) streaming(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(time.Time{}); err != nil {
			s.opts.DebugLogger.Printf("Failed to clear write deadline on %s: %v", r.URL.Path, err)
		}
		if err := rc.SetReadDeadline(time.Time{}); err != nil {
			s.opts.DebugLogger.Printf("Failed to clear read deadline on %s: %v", r.URL.Path, err)
		}
		next.ServeHTTP(w, r)
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown. It returns http.ErrServerClosed
// after a graceful shutdown.
func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s.echo.StartServer(srv)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// tagRequestID copies the generated request id into the request context so
// spans and completion log records carry it.
func tagRequestID(c echo.Context, id string) {
	req := c.Request()
	c.SetRequest(req.WithContext(observability.WithRequestID(req.Context(), id)))
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) && he.Internal != nil {
		s.opts.DebugLogger.Printf("%s %s failed: %v", c.Request().Method, c.Request().URL.Path, he.Internal)
	}
	s.echo.DefaultHTTPErrorHandler(err, c)
}
