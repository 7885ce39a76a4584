package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prince4597/society-management-software-sub001/internal/errbus"
	"github.com/prince4597/society-management-software-sub001/internal/logging"
	"github.com/prince4597/society-management-software-sub001/internal/session"
)

var (
	// ErrUnauthorized is returned for HTTP 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLoginRejected is returned when the backend answers success=false.
	ErrLoginRejected = errors.New("login rejected")
)

// HTTPClient makes REST calls to the society backend. Every failure is also
// published on the error bus, if one is set.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	bus     errbus.Publisher
	log     *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewHTTPClient creates a client targeting the given base URL (e.g. "http://127.0.0.1:8080").
// token may be empty; a successful Login replaces it.
func NewHTTPClient(baseURL, token string, timeout time.Duration, bus errbus.Publisher, log *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		bus:     bus,
		log:     logging.OrNop(log).Named("http"),
	}
}

// Token returns the bearer token currently in use.
func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Me fetches the current identity.
func (c *HTTPClient) Me(ctx context.Context) (*session.Identity, error) {
	var out MeResponse
	if err := c.do(ctx, http.MethodGet, PathMe, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, c.fail(http.MethodGet, PathMe, session.ErrInvalidIdentity)
	}
	return out.User, nil
}

// Login exchanges credentials for an identity and keeps the issued token.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (*session.Identity, error) {
	var out LoginResponse
	body := LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, PathLogin, body, &out); err != nil {
		return nil, err
	}
	if !out.Success || out.User == nil {
		err := ErrLoginRejected
		if out.Message != "" {
			err = fmt.Errorf("%w: %s", ErrLoginRejected, out.Message)
		}
		return nil, c.fail(http.MethodPost, PathLogin, err)
	}

	if out.Token != "" {
		c.mu.Lock()
		c.token = out.Token
		c.mu.Unlock()
	}
	return out.User, nil
}

// Logout ends the server-side session. The local token is dropped whether
// or not the call succeeds.
func (c *HTTPClient) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, PathLogout, nil, nil)

	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return c.fail(method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return c.fail(method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return c.fail(method, path, ErrUnauthorized)
	}
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return c.fail(method, path, fmt.Errorf("%d %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return c.fail(method, path, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// fail wraps err with the request line, logs it and publishes it.
func (c *HTTPClient) fail(method, path string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", method, path, err)
	c.log.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
	if c.bus != nil {
		c.bus.Publish(errbus.FromError(errbus.CodeFetch, wrapped))
	}
	return wrapped
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
