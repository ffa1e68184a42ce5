// Package supabase is a small PostgREST client for the animation catalog.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teslashibe/automatar/internal/httpc"
	"github.com/teslashibe/automatar/pkg/animation"
)

// Client talks to the animations table over the Supabase REST API.
type Client struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	restURL string
}

// New creates a client.
func New(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpc.WithTransport(cfg.Timeout, authTransport(cfg.Key, httpc.NewTransport()))
	}

	return &Client{
		config:  cfg,
		client:  hc,
		logger:  cfg.Logger.With("component", "supabase"),
		restURL: strings.TrimRight(cfg.URL, "/") + "/rest/v1/" + cfg.Table,
	}, nil
}

// authTransport sends the key both as the apikey header and as a bearer
// token, which is what the Supabase gateway expects for anon access.
func authTransport(key string, base http.RoundTripper) http.RoundTripper {
	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: key, TokenType: "Bearer"}),
		Base:   &apiKeyTransport{key: key, base: base},
	}
}

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("apikey", t.key)
	return t.base.RoundTrip(r)
}

// ListAnimations returns every record, newest first.
func (c *Client) ListAnimations(ctx context.Context) ([]animation.Row, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	return c.list(ctx, q)
}

// ListByMarker returns the records whose marker_tags contain markerID.
func (c *Client) ListByMarker(ctx context.Context, markerID int) ([]animation.Row, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("marker_tags", "cs.{"+strconv.Itoa(markerID)+"}")
	q.Set("order", "created_at.desc")
	return c.list(ctx, q)
}

func (c *Client) list(ctx context.Context, q url.Values) ([]animation.Row, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase: list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var rows []animation.Row
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("supabase: decode rows: %w", err)
	}

	c.logger.Debug("listed animations",
		"rows", len(rows),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return rows, nil
}

// SaveAnimation inserts a record and returns the stored row. A missing id
// is filled with a new UUID.
func (c *Client) SaveAnimation(ctx context.Context, row animation.Row) (animation.Row, error) {
	if animation.IDString(row.ID) == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt == "" {
		row.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(row)
	if err != nil {
		return animation.Row{}, fmt.Errorf("supabase: marshal row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restURL, bytes.NewReader(body))
	if err != nil {
		return animation.Row{}, fmt.Errorf("supabase: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.client.Do(req)
	if err != nil {
		return animation.Row{}, fmt.Errorf("supabase: insert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return animation.Row{}, parseError(resp)
	}

	var rows []animation.Row
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return animation.Row{}, fmt.Errorf("supabase: decode insert: %w", err)
	}
	if len(rows) == 0 {
		return animation.Row{}, ErrEmptyResponse
	}

	c.logger.Info("animation saved", "id", animation.IDString(rows[0].ID), "name", rows[0].Name)
	return rows[0], nil
}

// DeleteAnimation removes the record with the given id.
func (c *Client) DeleteAnimation(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.restURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("supabase: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: delete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	c.logger.Info("animation deleted", "id", id)
	return nil
}

// parseError reads a PostgREST error body.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Hint    string `json:"hint"`
	}

	message := strings.TrimSpace(string(body))
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: message}
	if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
		apiErr.Message = errResp.Message
		apiErr.Code = errResp.Code
		apiErr.Hint = errResp.Hint
	}
	return apiErr
}

// Ensure Client implements animation.Source
var _ animation.Source = (*Client)(nil)
