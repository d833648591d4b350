package api

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

	"github.com/google/uuid"
	"github.com/jrsteele09/go-delivery-console/credentials"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
)

const (
	DefaultTimeout  = 10 * time.Second
	RequestIDHeader = "X-Request-ID"
)

// TokenSource supplies the bearer credentials for outbound requests. credentials.Store implements it.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// UnauthorizedHandler is told about every 401 answered to a session-authenticated request.
type UnauthorizedHandler func(ctx context.Context, err *UnauthorizedError)

// Client talks to the delivery backend. It attaches the stored bearer token to every request
// and turns 401 answers into an UnauthorizedError signal; it never touches session state itself.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker

	handlerLock    sync.RWMutex
	onUnauthorized UnauthorizedHandler
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request. It is ignored when WithHTTPClient supplies a client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(c *Client) {
		c.onUnauthorized = h
	}
}

// WithCircuitBreaker trips after repeated transport failures or 5xx answers. While open, calls fail
// fast with a NetworkError.
func WithCircuitBreaker(settings gobreaker.Settings) Option {
	return func(c *Client) {
		c.breaker = gobreaker.NewCircuitBreaker(settings)
	}
}

func DefaultBreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}
}

func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("[api.New] baseURL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("[api.New] invalid baseURL: %w", err)
	}
	if tokens == nil {
		return nil, fmt.Errorf("[api.New] token source is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// SetUnauthorizedHandler replaces the 401 handler. Used when the coordinator is built after the client.
func (c *Client) SetUnauthorizedHandler(h UnauthorizedHandler) {
	c.handlerLock.Lock()
	defer c.handlerLock.Unlock()
	c.onUnauthorized = h
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	// credential exchanges answer 401 about the submitted credentials, not the current session
	credentialExchange bool
}

type response struct {
	statusCode int
	body       []byte
}

// Do sends a JSON request to path (relative to the base URL) and decodes a JSON answer into out.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.do(ctx, call{method: method, path: path, query: query, body: body, out: out})
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, query, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) do(ctx context.Context, cl call) error {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return err
	}

	resp, err := c.send(req)
	if err != nil {
		return &NetworkError{Method: cl.method, Path: cl.path, Err: err}
	}

	switch {
	case resp.statusCode == http.StatusUnauthorized:
		uerr := &UnauthorizedError{Method: cl.method, Path: cl.path, Message: errorMessage(resp)}
		if !cl.credentialExchange {
			c.raiseUnauthorized(ctx, uerr)
		}
		return uerr
	case resp.statusCode < 200 || resp.statusCode > 299:
		return &StatusError{Method: cl.method, Path: cl.path, StatusCode: resp.statusCode, Message: errorMessage(resp)}
	}

	if cl.out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, cl.out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", cl.method, cl.path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(cl.path, "/")
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode request: %w", cl.method, cl.path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", cl.method, cl.path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.New().String())

	tok, err := c.tokens.Token(ctx)
	switch {
	case err == nil:
		tok.SetAuthHeader(req)
	case errors.Is(err, credentials.ErrNotFound):
		// no session: the request goes out unauthenticated and the server decides
	default:
		return nil, fmt.Errorf("%s %s: read credentials: %w", cl.method, cl.path, err)
	}
	return req, nil
}

// send performs the round trip. Transport errors and 5xx answers count as breaker failures.
func (c *Client) send(req *http.Request) (*response, error) {
	if c.breaker == nil {
		return c.roundTrip(req)
	}
	var last *response
	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.roundTrip(req)
		if err != nil {
			return nil, err
		}
		last = resp
		if resp.statusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server error %d", resp.statusCode)
		}
		return nil, nil
	})
	if last != nil {
		return last, nil
	}
	return nil, err
}

func (c *Client) roundTrip(req *http.Request) (*response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &response{statusCode: resp.StatusCode, body: body}, nil
}

func (c *Client) raiseUnauthorized(ctx context.Context, uerr *UnauthorizedError) {
	c.handlerLock.RLock()
	h := c.onUnauthorized
	c.handlerLock.RUnlock()

	if h == nil {
		log.Warn().Str("method", uerr.Method).Str("path", uerr.Path).Msg("Unauthorized response with no handler registered")
		return
	}
	h(ctx, uerr)
}

// errorMessage extracts the backend's "message" field, falling back to the status text.
func errorMessage(resp *response) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(resp.body, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(resp.statusCode)
}
