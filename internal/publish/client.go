// Package publish delivers validated patient records to the destination
// clinical system. Authentication exchanges an API key for a short-lived
// JWT which is cached until shortly before expiry; records are keyed on
// their external patient identifier so republishing the same patient
// updates rather than duplicates.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chartflow/chartflow/internal/patient"
)

// Config holds destination connection settings.
type Config struct {
	// BaseURL is the destination API root, without a trailing slash.
	BaseURL string
	// APIKey authorizes the JWT exchange.
	APIKey string
	// AuthEmail identifies the integration account.
	AuthEmail string
	// AuthInternalID is the integration's identifier at the destination.
	AuthInternalID string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// AllowDemoFallback enters a simulated mode when authentication fails
	// instead of returning an error. Demo results are always marked as such.
	AllowDemoFallback bool
}

// DefaultConfig returns publish settings with sensible defaults. BaseURL and
// APIKey have no defaults and must be supplied.
func DefaultConfig() Config {
	return Config{
		Timeout:        15 * time.Second,
		AuthInternalID: "chartflow",
	}
}

// Validate checks the configuration for completeness. Demo fallback relaxes
// the credential requirement.
func (c Config) Validate() error {
	if c.BaseURL == "" && !c.AllowDemoFallback {
		return errors.New("publish: base URL is required")
	}
	if c.APIKey == "" && !c.AllowDemoFallback {
		return errors.New("publish: API key is required")
	}
	if c.Timeout <= 0 {
		return errors.New("publish: timeout must be positive")
	}
	return nil
}

// Result reports what the publish step did with a record.
type Result struct {
	// Action is "created", "updated", or "demo".
	Action string `json:"action"`
	// ID is the destination's identifier for the patient profile.
	ID string `json:"id"`
	// Demo is true when the result was simulated and nothing was sent.
	Demo bool `json:"demo"`
}

// Publisher is the capability contract the pipeline depends on.
type Publisher interface {
	CreateOrUpdate(ctx context.Context, rec patient.Record) (Result, error)
	DemoMode() bool
}

// Client publishes records over HTTP.
type Client struct {
	cfg  Config
	http *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	demo        bool
}

// NewClient builds a publish client. The configuration must already be
// validated.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// DemoMode reports whether the client has degraded to simulated publishing.
// The flag is sticky for the client's lifetime.
func (c *Client) DemoMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.demo
}

// tokenLifetimeSlack refreshes tokens slightly before the server-side expiry
// so in-flight requests do not race the cutoff.
const tokenLifetimeSlack = 60 * time.Second

type jwtResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// Authenticate obtains a JWT, using the cached token when still valid. With
// force it always re-exchanges the API key. On credential failure it either
// enters demo mode (when allowed) or returns an AuthError.
func (c *Client) Authenticate(ctx context.Context, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.demo {
		return nil
	}
	if !force && c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	err := c.exchangeLocked(ctx)
	if err == nil {
		return nil
	}
	// Transient faults must not trip demo mode: the orchestrator retries them.
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}
	if c.cfg.AllowDemoFallback {
		slog.Warn("Authentication failed, entering demo mode; records will NOT be published", "error", err)
		c.demo = true
		return nil
	}
	return &AuthError{Err: err}
}

// exchangeLocked performs the API key for JWT exchange. Callers hold c.mu.
func (c *Client) exchangeLocked(ctx context.Context) error {
	q := url.Values{}
	q.Set("email", c.cfg.AuthEmail)
	q.Set("third_party_internal_id", c.cfg.AuthInternalID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/jwt?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build jwt request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("jwt exchange: %w", err)}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return &TransientError{Status: resp.StatusCode,
			Err: fmt.Errorf("jwt exchange: %s", strings.TrimSpace(string(body)))}
	default:
		return fmt.Errorf("jwt exchange rejected (status %d): %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var jr jwtResponse
	if err := json.Unmarshal(body, &jr); err != nil || jr.Token == "" {
		return fmt.Errorf("jwt exchange: malformed token response")
	}
	lifetime := time.Duration(jr.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	c.token = jr.Token
	c.tokenExpiry = time.Now().Add(lifetime - tokenLifetimeSlack)
	slog.Debug("Obtained destination token", "expires_in", lifetime)
	return nil
}

type profileEnvelope struct {
	Data []profile `json:"data"`
}

type profile struct {
	ID                string `json:"id"`
	ExternalPatientID string `json:"external_patient_id"`
}

type createdEnvelope struct {
	ID string `json:"id"`
}

// CreateOrUpdate publishes one record. When a profile with the record's
// external patient ID already exists it is updated in place, otherwise a new
// profile is created. In demo mode the call returns a simulated result and
// performs no network I/O.
func (c *Client) CreateOrUpdate(ctx context.Context, rec patient.Record) (Result, error) {
	if err := c.Authenticate(ctx, false); err != nil {
		return Result{}, err
	}
	if c.DemoMode() {
		slog.Info("Demo mode: simulating publish", "external_patient_id", rec.ExternalPatientID)
		return Result{Action: "demo", ID: "demo-" + rec.ExternalPatientID, Demo: true}, nil
	}

	existing, err := c.lookup(ctx, rec.ExternalPatientID)
	if err != nil {
		return Result{}, err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return Result{}, fmt.Errorf("encode record: %w", err)
	}

	if existing != "" {
		if err := c.do(ctx, http.MethodPut, "/patient-profiles/"+existing, payload, nil); err != nil {
			return Result{}, err
		}
		return Result{Action: "updated", ID: existing}, nil
	}

	var created createdEnvelope
	if err := c.do(ctx, http.MethodPost, "/patient-profiles", payload, &created); err != nil {
		return Result{}, err
	}
	return Result{Action: "created", ID: created.ID}, nil
}

// lookup finds an existing profile by external patient ID. An empty ID skips
// the lookup and forces a create.
func (c *Client) lookup(ctx context.Context, externalID string) (string, error) {
	if externalID == "" {
		return "", nil
	}
	q := url.Values{}
	q.Set("external_patient_id", externalID)

	var env profileEnvelope
	if err := c.do(ctx, http.MethodGet, "/patient-profiles?"+q.Encode(), nil, &env); err != nil {
		return "", err
	}
	for _, p := range env.Data {
		if p.ExternalPatientID == externalID {
			return p.ID, nil
		}
	}
	return "", nil
}

// do performs one authenticated request, refreshing the token and retrying
// exactly once on 401. Retry of transient failures is the caller's policy.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	status, respBody, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		if err := c.Authenticate(ctx, true); err != nil {
			return err
		}
		if c.DemoMode() {
			return &AuthError{Err: errors.New("token rejected")}
		}
		status, respBody, err = c.send(ctx, method, path, body)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return &AuthError{Err: errors.New("token rejected after refresh")}
		}
	}

	switch {
	case status >= 200 && status < 300:
	case status >= 500 || status == http.StatusTooManyRequests:
		return &TransientError{Status: status,
			Err: fmt.Errorf("%s %s: %s", method, path, strings.TrimSpace(string(respBody)))}
	default:
		return &APIError{Status: status, Body: strings.TrimSpace(string(respBody))}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	c.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+c.token)
	c.mu.Unlock()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, respBody, nil
}
