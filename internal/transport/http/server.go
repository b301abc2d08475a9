// Package http provides the FinGenie HTTP server: the chat page, its
// WebSocket endpoint and read-only run log routes.
package http

import (
	"context"
	"embed"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/fingenie/internal/metrics"
	"github.com/xiaot623/fingenie/internal/service"
	"github.com/xiaot623/fingenie/internal/transport/ws"
)

//go:embed static/index.html
var staticFS embed.FS

// Server is the external HTTP server.
type Server struct {
	echo     *echo.Echo
	runs     *service.RunService
	metrics  *metrics.Service
	wsOpts   ws.Options
	upgrader websocket.Upgrader
}

// NewServer creates the server and registers its routes. A nil metrics
// service disables /metrics output.
func NewServer(runs *service.RunService, m *metrics.Service, wsOpts ws.Options) *Server {
	if m == nil {
		m = metrics.NewNoop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:    e,
		runs:    runs,
		metrics: m,
		wsOpts:  wsOpts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.RegisterRoutes(e)
	return s
}

// RegisterRoutes registers all routes with the echo server.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/", s.Index)
	e.GET("/ws/chat", s.Chat)
	e.GET("/healthz", s.Health)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	e.GET("/v1/runs/:run_id", s.GetRun)
	e.GET("/v1/runs/:run_id/events", s.GetRunEvents)
	e.GET("/v1/runs/:run_id/messages", s.GetRunMessages)
	e.GET("/v1/approvals/:approval_id", s.GetApproval)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Index serves the chat page.
func (s *Server) Index(c echo.Context) error {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, page)
}

// Health returns health status.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
