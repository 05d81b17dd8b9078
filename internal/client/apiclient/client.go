// Package apiclient is the HTTP client for the bug tracker REST API.
//
// Every call is a single attempt with a bounded timeout. A 401 from any
// endpoint tears the local session down: the persisted session is removed,
// the credential is cleared, the navigator is sent to the login entry point
// and registered listeners are notified.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bugtracker/tracker-system/internal/client/session"
)

const (
	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second
	// LoginPath is where the navigator is sent after a 401.
	LoginPath = "/login"

	maxResponseBytes = 4 << 20
)

// Navigator moves the user agent to another view.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Credentials holds the bearer token attached to outbound requests. It is
// changed only through Set and Clear.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

func (c *Credentials) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Credentials) Clear() { c.Set("") }

func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:8080/api".
	BaseURL string
	// HTTPClient is used for all requests. Its Timeout is replaced by Timeout.
	HTTPClient *http.Client
	// Timeout defaults to DefaultTimeout.
	Timeout     time.Duration
	Credentials *Credentials
	// Storage and SessionKey locate the persisted session removed on 401.
	Storage    session.Storage
	SessionKey string
	Navigator  Navigator
	Logger     zerolog.Logger
}

// Client talks to the REST API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      *Credentials
	storage    session.Storage
	sessionKey string
	navigator  Navigator
	logger     zerolog.Logger

	mu             sync.Mutex
	onUnauthorized []func()

	Auth  *AuthAPI
	Bugs  *BugsAPI
	Users *UsersAPI
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("apiclient: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("apiclient: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := &http.Client{Timeout: timeout}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		copied.Timeout = timeout
		hc = &copied
	}

	creds := cfg.Credentials
	if creds == nil {
		creds = &Credentials{}
	}
	key := cfg.SessionKey
	if key == "" {
		key = session.AuthKey
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
		creds:      creds,
		storage:    cfg.Storage,
		sessionKey: key,
		navigator:  cfg.Navigator,
		logger:     cfg.Logger,
	}
	c.Auth = &AuthAPI{c: c}
	c.Bugs = &BugsAPI{c: c}
	c.Users = &UsersAPI{c: c}
	return c, nil
}

// Credentials returns the provider attached to outbound requests.
func (c *Client) Credentials() *Credentials { return c.creds }

// OnUnauthorized registers fn to run after every 401 response.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
	c.mu.Unlock()
}

// Request performs one HTTP call. body is JSON-encoded when non-nil; a 2xx
// response is decoded into out when out is non-nil.
func (c *Client) Request(ctx context.Context, method, path string, body any, params url.Values, out any) error {
	return c.do(ctx, method, path, body, params, out, true)
}

// do is Request with control over the 401 teardown. The credential exchange
// endpoints answer 401 for bad credentials, which must not end a session.
func (c *Client) do(ctx context.Context, method, path string, body any, params url.Values, out any, teardown bool) error {
	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return fmt.Errorf("apiclient: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Method: method, Path: path, Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(payload) == 0 {
			return nil
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("apiclient: decode %s %s response: %w", method, path, err)
		}
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: serverMessage(payload)}
	if resp.StatusCode == http.StatusUnauthorized && teardown {
		c.handleUnauthorized()
	} else {
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Str("error", apiErr.Message).Msg("api error")
	}
	return apiErr
}

func (c *Client) handleUnauthorized() {
	if c.storage != nil {
		if err := c.storage.Remove(c.sessionKey); err != nil {
			c.logger.Warn().Err(err).Msg("failed to remove persisted session")
		}
	}
	c.creds.Clear()
	if c.navigator != nil {
		c.navigator.Navigate(LoginPath)
	}

	c.mu.Lock()
	listeners := append([]func(){}, c.onUnauthorized...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// serverMessage extracts "message", then "error", from an error body.
func serverMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
