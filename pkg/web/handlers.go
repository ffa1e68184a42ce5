package web

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/ar"
	"github.com/teslashibe/automatar/pkg/hub"
	"github.com/teslashibe/automatar/pkg/protocol"
)

// refreshTimeout bounds a catalog reload triggered by a client
const refreshTimeout = 30 * time.Second

// statusFor maps session errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, animation.ErrUnknownAnimation), errors.Is(err, animation.ErrNoCandidates):
		return fiber.StatusNotFound
	case errors.Is(err, animation.ErrNoSource):
		return fiber.StatusConflict
	case errors.Is(err, ar.ErrClosed):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func markerParam(c *fiber.Ctx) (int, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid marker id")
	}
	return id, nil
}

// handleStatus returns the last tick's status line
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.session.Status())
}

// handleMenu returns the open selection menu, or 204 when closed
func (s *Server) handleMenu(c *fiber.Ctx) error {
	menu, ok := s.session.Menu()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(menu)
}

// handleCloseMenu dismisses the menu
func (s *Server) handleCloseMenu(c *fiber.Ctx) error {
	s.session.CloseMenu()
	return c.SendStatus(fiber.StatusNoContent)
}

// SelectRequest is the request body for choosing an animation
type SelectRequest struct {
	AnimationID string `json:"animation_id"`
}

// handleSelect stores the user's animation choice for a marker
func (s *Server) handleSelect(c *fiber.Ctx) error {
	id, err := markerParam(c)
	if err != nil {
		return err
	}

	var req SelectRequest
	if err := c.BodyParser(&req); err != nil || req.AnimationID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "animation_id is required")
	}

	a, err := s.session.Select(id, req.AnimationID)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(fiber.Map{
		"marker_id": id,
		"animation": a,
	})
}

// handleResetPreference forgets the stored choice for a marker
func (s *Server) handleResetPreference(c *fiber.Ctx) error {
	id, err := markerParam(c)
	if err != nil {
		return err
	}
	if err := s.session.ResetPreference(id); err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleSettings returns the preference overview
func (s *Server) handleSettings(c *fiber.Ctx) error {
	return c.JSON(s.session.Settings())
}

// handleRefresh reloads the animation catalog
func (s *Server) handleRefresh(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), refreshTimeout)
	defer cancel()

	if err := s.session.Refresh(ctx); err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	st := s.session.Status()
	return c.JSON(fiber.Map{"animations": st.Animations, "loaded": st.LibraryLoaded})
}

// handleViewport records the client's display size
func (s *Server) handleViewport(c *fiber.Ctx) error {
	var vp protocol.ViewportData
	if err := c.BodyParser(&vp); err != nil || vp.Width <= 0 || vp.Height <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "width and height must be positive")
	}
	s.session.SetDisplaySize(vp.Width, vp.Height)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleScenarios lists the scenario catalog
func (s *Server) handleScenarios(c *fiber.Ctx) error {
	return c.JSON(s.session.Catalog().All())
}

var errNoCamera = fiber.NewError(fiber.StatusNotFound, "camera disabled")

// handleGetCamera returns the capture settings
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.OnGetCameraConfig == nil {
		return errNoCamera
	}
	return c.JSON(s.OnGetCameraConfig())
}

// handleSetCamera updates capture settings from a partial JSON object,
// optionally naming a preset
func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	if s.OnSetCameraConfig == nil {
		return errNoCamera
	}
	var params map[string]any
	if err := c.BodyParser(&params); err != nil || len(params) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "camera settings object is required")
	}
	cfg, err := s.OnSetCameraConfig(params)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(cfg)
}

// handleCommand serves client commands arriving on the event websocket
func (s *Server) handleCommand(msg *protocol.Message) *protocol.Message {
	var err error

	switch msg.Type {
	case protocol.TypeSelect:
		var cmd *protocol.SelectCommand
		if cmd, err = msg.GetSelectCommand(); err == nil {
			_, err = s.session.Select(cmd.MarkerID, cmd.AnimationID)
		}

	case protocol.TypeReset:
		var cmd *protocol.ResetCommand
		if cmd, err = msg.GetResetCommand(); err == nil {
			err = s.session.ResetPreference(cmd.MarkerID)
		}

	case protocol.TypeMenuClose:
		s.session.CloseMenu()

	case protocol.TypeViewport:
		var vp *protocol.ViewportData
		if vp, err = msg.GetViewportData(); err == nil && vp.Width > 0 && vp.Height > 0 {
			s.session.SetDisplaySize(vp.Width, vp.Height)
		}

	case protocol.TypeRefresh:
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			if err := s.session.Refresh(ctx); err != nil {
				s.log.Warn("refresh failed", "error", err)
			}
		}()

	default:
		s.log.Debug("unknown client message", "type", msg.Type)
		return nil
	}

	if err != nil {
		s.log.Warn("client command failed", "type", msg.Type, "error", err)
		n := animation.NewNotification(animation.KindWarning, -1, err.Error(), animation.DefaultNoticeDuration)
		reply, _ := protocol.NewNotifyMessage(n)
		return reply
	}
	return nil
}

// handleEventsWS streams session events and accepts client commands.
// A new client first receives the current status and the open menu.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	if msg, err := protocol.NewMessage(protocol.TypeStatus, s.session.Status()); err == nil {
		if raw, err := msg.Bytes(); err == nil {
			c.WriteMessage(websocket.TextMessage, raw)
		}
	}
	if menu, ok := s.session.Menu(); ok {
		if msg, err := protocol.NewMenuShowMessage(menu); err == nil {
			if raw, err := msg.Bytes(); err == nil {
				c.WriteMessage(websocket.TextMessage, raw)
			}
		}
	}

	client := hub.NewClient(s.eventHub, c)
	client.Run()
}

// handleCameraWS handles WebSocket connections for camera feed
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client := hub.NewClient(s.cameraHub, c)
	client.Run()
}
