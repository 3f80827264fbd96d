// Package server exposes the annotation service over HTTP. REST routes run
// on a Fiber app; the change-notification WebSocket runs on its own
// net/http listener next to it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"github.com/vannot/vannot/internal/index"
	"github.com/vannot/vannot/internal/notify"
	"github.com/vannot/vannot/internal/service"
	"github.com/vannot/vannot/internal/vtt"
	"github.com/vannot/vannot/pkg/core"
)

// Config holds the HTTP surface configuration.
type Config struct {
	Host          string
	Port          int
	WSPort        int
	CORSOrigins   string
	UploadLimitMB int
}

// Server bundles the Fiber app and the WebSocket listener.
type Server struct {
	cfg      Config
	app      *fiber.App
	wsServer *http.Server
	svc      *service.Service
	repo     *index.Repository
	hub      *notify.Hub
	logger   *slog.Logger
}

// New builds the server with all routes registered.
func New(cfg Config, svc *service.Service, repo *index.Repository, hub *notify.Hub, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		repo:   repo,
		hub:    hub,
		logger: logger,
	}

	app := fiber.New(fiber.Config{
		AppName:      "vannot annotation server",
		BodyLimit:    cfg.UploadLimitMB * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: s.errorHandler,
	})

	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	var allowOrigins []string
	for _, origin := range strings.Split(cfg.CORSOrigins, ",") {
		allowOrigins = append(allowOrigins, strings.TrimSpace(origin))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
	}))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			s.logger.Error("Panic recovered", "panic", e, "path", c.Path())
		},
	}))

	s.registerRoutes(app)
	s.app = app
	return s
}

func (s *Server) registerRoutes(app *fiber.App) {
	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Post("/videos", s.handleCreateVideo)
	api.Get("/videos", s.handleListVideos)
	api.Get("/videos/:id", s.handleGetVideo)
	api.Delete("/videos/:id", s.handleDeleteVideo)

	api.Get("/videos/:id/objects", s.handleGetObjects)
	api.Post("/videos/:id/objects", s.handleSaveObjects)
	api.Delete("/videos/:id/objects/:name", s.handleDeleteObject)

	api.Get("/videos/:id/export", s.handleExport)
	api.Get("/videos/:id/project", s.handleProject)

	api.Get("/search", s.handleSearch)
}

// errorHandler maps service errors onto the uniform error JSON shape.
func (s *Server) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	errorCode := "internal_error"
	message := "Internal Server Error"

	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, core.ErrNotFound):
		code = fiber.StatusNotFound
		errorCode = "not_found"
		message = err.Error()
	case errors.Is(err, vtt.ErrNotContainer):
		code = fiber.StatusUnprocessableEntity
		errorCode = "invalid_container"
		message = err.Error()
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
		switch code {
		case fiber.StatusBadRequest:
			errorCode = "invalid_input"
		case fiber.StatusNotFound:
			errorCode = "not_found"
		default:
			errorCode = "request_error"
		}
	default:
		s.logger.Error("Request error", "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"status":  "error",
		"code":    errorCode,
		"message": message,
	})
}

// Run starts both listeners and blocks until the Fiber app stops.
func (s *Server) Run() error {
	go s.serveWS()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info("HTTP server listening", "addr", addr)
	return s.app.Listen(addr)
}

// serveWS runs the WebSocket listener used for change notifications.
func (s *Server) serveWS() {
	if s.hub == nil {
		return
	}

	upgrader := ws.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("WebSocket upgrade failed", "error", err)
			return
		}
		s.hub.Register(conn)
	})

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.WSPort)
	s.wsServer = &http.Server{Addr: addr, Handler: mux}
	s.logger.Info("WebSocket server listening", "addr", addr)

	if err := s.wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("WebSocket server stopped", "error", err)
	}
}

// Shutdown stops both listeners gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsServer != nil {
		_ = s.wsServer.Shutdown(ctx)
	}
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
