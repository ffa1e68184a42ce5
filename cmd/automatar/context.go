package main

import (
	"errors"
	"strings"
	"sync"

	"github.com/teslashibe/automatar/internal/config"
	"github.com/teslashibe/automatar/internal/log"
	"github.com/teslashibe/automatar/pkg/ar"
	"github.com/teslashibe/automatar/pkg/confidence"
	"github.com/teslashibe/automatar/pkg/kvstore"
	"github.com/teslashibe/automatar/pkg/overlay"
	"github.com/teslashibe/automatar/pkg/render"
	"github.com/teslashibe/automatar/pkg/scenario"
	"github.com/teslashibe/automatar/pkg/supabase"
)

var errNoCatalogBackend = errors.New("no animation catalog configured; set supabase.url and supabase.key (or SUPABASE_URL / SUPABASE_KEY)")

type commandContext struct {
	configFlag *string
	levelFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, levelFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		levelFlag:  levelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.levelFlag != nil && strings.TrimSpace(*c.levelFlag) != "" {
			cfg.Logging.Level = *c.levelFlag
		}
		log.Init(cfg.Logging.Level)
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) store() (*kvstore.FileStore, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return kvstore.NewFileStore(cfg.Storage.PrefsDir)
}

func (c *commandContext) catalog() (*scenario.Catalog, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return scenario.LoadOrDefault(cfg.Catalog.Path)
}

func (c *commandContext) supabase() (*supabase.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Supabase.Enabled() {
		return nil, errNoCatalogBackend
	}
	return supabase.New(
		supabase.WithURL(cfg.Supabase.URL),
		supabase.WithKey(cfg.Supabase.Key),
		supabase.WithTable(cfg.Supabase.Table),
		supabase.WithTimeout(cfg.Supabase.Timeout()),
		supabase.WithLogger(log.With("component", "supabase")),
	)
}

// sessionConfig maps the file configuration onto session tunables
func sessionConfig(cfg *config.Config) ar.Config {
	s := cfg.Session
	return ar.Config{
		Voter: confidence.Config{
			Threshold:  s.ConfidenceThreshold,
			StaleAfter: s.StaleAfterFrames,
		},
		ExtraIDs: s.KnownIDs(),
		Overlay: overlay.Config{
			Size: s.OverlaySize,
			Viewport: render.Viewport{
				SourceWidth:   float64(cfg.Camera.Width),
				SourceHeight:  float64(cfg.Camera.Height),
				DisplayWidth:  s.DisplayWidth,
				DisplayHeight: s.DisplayHeight,
			},
		},
		TickInterval:   s.TickInterval(),
		ReopenDelay:    s.ReopenDelay(),
		NoticeDuration: s.NoticeDuration(),
	}
}
