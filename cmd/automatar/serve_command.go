package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/automatar/internal/config"
	"github.com/teslashibe/automatar/internal/log"
	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/ar"
	"github.com/teslashibe/automatar/pkg/camera"
	"github.com/teslashibe/automatar/pkg/hub"
	"github.com/teslashibe/automatar/pkg/marker/aruco"
	"github.com/teslashibe/automatar/pkg/web"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var preset string
	var noCamera bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the AR session with the camera and web interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(runCtx, ctx, cfg, preset, noCamera)
		},
	}

	cmd.Flags().StringVar(&preset, "camera-preset", "", fmt.Sprintf("Camera preset %v", camera.PresetNames()))
	cmd.Flags().BoolVar(&noCamera, "no-camera", false, "Serve the web interface without capturing")
	return cmd
}

func runServe(ctx context.Context, cc *commandContext, cfg *config.Config, preset string, noCamera bool) error {
	logger := log.With("component", "serve")

	catalog, err := cc.catalog()
	if err != nil {
		return fmt.Errorf("load scenario catalog: %w", err)
	}
	store, err := cc.store()
	if err != nil {
		return fmt.Errorf("open preference store: %w", err)
	}

	var source animation.Source
	if client, err := cc.supabase(); err == nil {
		source = client
	} else if errors.Is(err, errNoCatalogBackend) {
		logger.Warn("running without an animation catalog", "reason", err)
	} else {
		return err
	}

	events := hub.New("events")
	broadcaster := web.NewBroadcaster(events)

	deps := ar.Deps{
		Catalog:   catalog,
		Source:    source,
		Store:     store,
		Presenter: broadcaster,
		Display:   broadcaster,
		Renderer:  broadcaster,
	}

	var capture *camera.Capture
	var cameraManager *camera.Manager
	if !noCamera {
		detector, err := aruco.New(aruco.Config{Dictionary: cfg.Detector.Dictionary})
		if err != nil {
			return err
		}
		defer detector.Close()
		deps.Detector = detector

		manager := camera.NewManager(camera.Config{
			Device:    cfg.Camera.Device,
			Width:     cfg.Camera.Width,
			Height:    cfg.Camera.Height,
			Framerate: cfg.Camera.Framerate,
			Quality:   cfg.Camera.JPEGQuality,
		})
		if preset != "" {
			if err := manager.UsePreset(preset); err != nil {
				return err
			}
		}

		capture, err = camera.Open(manager.Config())
		if err != nil {
			return err
		}
		defer capture.Close()
		manager.Attach(capture)
		cameraManager = manager
	}

	session, err := ar.New(sessionConfig(cfg), deps)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		return err
	}

	server := web.NewServer(web.Config{
		Port:         cfg.Server.Port,
		StaticDir:    cfg.Server.StaticDir,
		AllowOrigins: cfg.Server.AllowOrigins,
	}, session, events)
	if cameraManager != nil {
		server.OnGetCameraConfig = func() any {
			return cameraManager.Settings()
		}
		server.OnSetCameraConfig = func(params map[string]any) (any, error) {
			return cameraManager.Update(params)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})

	if capture != nil {
		stream := cfg.Camera.Stream
		g.Go(func() error {
			err := session.Run(gctx, capture, func(frame ar.Frame, st ar.Status) {
				server.PublishStatus(st)
				if stream {
					server.SendCameraFrame(frame.JPEG)
				}
			})
			if errors.Is(err, ar.ErrClosed) {
				return nil
			}
			return err
		})
	}

	logger.Info("automatar running", "session", session.ID(), "port", cfg.Server.Port, "camera", capture != nil)
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
