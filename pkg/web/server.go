// Package web serves the AR session to the browser: a REST API for menu,
// preference and catalog commands, an event websocket carrying overlay and
// menu updates, and the live camera feed.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/teslashibe/automatar/internal/log"
	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/ar"
	"github.com/teslashibe/automatar/pkg/hub"
	"github.com/teslashibe/automatar/pkg/protocol"
	"github.com/teslashibe/automatar/pkg/scenario"
)

// Session is the part of ar.Session the server drives
type Session interface {
	Status() ar.Status
	Menu() (animation.Menu, bool)
	Select(markerID int, animationID string) (animation.Animation, error)
	ResetPreference(markerID int) error
	CloseMenu()
	Settings() animation.Settings
	Refresh(ctx context.Context) error
	SetDisplaySize(width, height float64)
	Catalog() *scenario.Catalog
}

var _ Session = (*ar.Session)(nil)

// Config holds server settings
type Config struct {
	Port         string
	StaticDir    string // empty disables static files
	AllowOrigins string
}

// Server is the AR web server
type Server struct {
	app     *fiber.App
	cfg     Config
	session Session

	// Hubs for websocket broadcast
	eventHub  *hub.Hub
	cameraHub *hub.Hub

	// Camera API callbacks; unset when serving without a camera
	OnGetCameraConfig func() any
	OnSetCameraConfig func(params map[string]any) (any, error)

	log *slog.Logger
}

// NewServer creates the server. events must be the hub the session's
// Broadcaster publishes on.
func NewServer(cfg Config, session Session, events *hub.Hub) *Server {
	s := &Server{
		cfg:       cfg,
		session:   session,
		eventHub:  events,
		cameraHub: hub.New("camera"),
		log:       log.With("component", "web"),
	}
	events.SetHandler(s.handleCommand)

	app := fiber.New(fiber.Config{
		AppName:               "automatAR",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(cors.New(cors.Config{AllowOrigins: orDefault(cfg.AllowOrigins, "*")}))

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/menu", s.handleMenu)
	api.Post("/menu/close", s.handleCloseMenu)
	api.Post("/markers/:id/select", s.handleSelect)
	api.Delete("/markers/:id/preference", s.handleResetPreference)
	api.Get("/settings", s.handleSettings)
	api.Post("/animations/refresh", s.handleRefresh)
	api.Post("/viewport", s.handleViewport)
	api.Get("/scenarios", s.handleScenarios)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleSetCamera)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and listens on the configured port until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.log.Info("web server listening", "url", "http://localhost:"+s.cfg.Port)
	return s.Serve(ctx, ln)
}

// Serve runs the hubs and serves on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.eventHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			return err
		}
		return nil
	}
}

// PublishStatus broadcasts the per-tick status line
func (s *Server) PublishStatus(st ar.Status) {
	s.eventHub.Publish(protocol.TypeStatus, st)
}

// SendCameraFrame sends a camera frame to all connected clients
func (s *Server) SendCameraFrame(jpegData []byte) {
	if s.cameraHub.ClientCount() == 0 {
		return
	}
	s.cameraHub.BroadcastBinary(jpegData)
}

// EventHub returns the event hub
func (s *Server) EventHub() *hub.Hub {
	return s.eventHub
}

// CameraHub returns the camera hub
func (s *Server) CameraHub() *hub.Hub {
	return s.cameraHub
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
