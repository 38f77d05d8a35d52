package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"io"
	"log/slog"
	"net/http"
	"pharmacy/internal/metrics"
	"pharmacy/internal/token"
	"strings"
	"sync"
	"time"
)

const maxBodySize = 1 << 20

// Credentials is the session surface the client needs: the current access token,
// a way to refresh it and the teardown used when refreshing is impossible.
type Credentials interface {
	AccessToken() string
	Refresh(ctx context.Context) (string, error)
	Logout()
}

// Notifier receives user-visible messages for failed requests. Display only.
type Notifier interface {
	Notify(kind Kind, message string)
}

type NotifierFunc func(kind Kind, message string)

func (f NotifierFunc) Notify(kind Kind, message string) { f(kind, message) }

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(kind Kind, message string) {
	n.Log.Warn("notification",
		slog.String("kind", string(kind)),
		slog.String("message", message))
}

type Options struct {
	BaseURL         string
	Timeout         time.Duration
	RefreshSkew     time.Duration
	HTTPClient      *http.Client
	Notifier        Notifier
	// OnLoginRequired runs after the session was torn down because a 401 could not be recovered.
	OnLoginRequired func()
	Metrics         *metrics.Metrics
	Log             *slog.Logger
}

type Client struct {
	baseURL         string
	http            *http.Client
	refreshSkew     time.Duration
	notifier        Notifier
	onLoginRequired func()
	metrics         *metrics.Metrics
	log             *slog.Logger

	mu    sync.RWMutex
	creds Credentials

	group singleflight.Group
	now   func() time.Time
}

type Request struct {
	Method    string
	Path      string
	Body      any
	Out       any
	// Anonymous requests carry no bearer token and never trigger a refresh.
	Anonymous bool
	// Quiet requests are classified but never reach the notifier.
	Quiet     bool

	retried bool
}

func New(opts Options) *Client {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          20,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				ForceAttemptHTTP2:     true,
			},
			Timeout: timeout,
		}
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}

	return &Client{
		baseURL:         strings.TrimSuffix(opts.BaseURL, "/"),
		http:            httpClient,
		refreshSkew:     opts.RefreshSkew,
		notifier:        notifier,
		onLoginRequired: opts.OnLoginRequired,
		metrics:         opts.Metrics,
		log:             log,
		now:             time.Now,
	}
}

// SetCredentials attaches the session. Requests made before this are sent without a token.
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
}

func (c *Client) credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Out: out})
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Out: out})
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body, Out: out})
}

// Do sends r. A 401 on an authenticated request triggers one refresh (shared with
// any concurrent 401s) and exactly one retry. When the refresh is impossible the
// session is logged out, OnLoginRequired runs and the original error is returned
// wrapped in ErrSessionExpired. A caller that gives up while the refresh is in
// flight, or a session replaced by a newer login, leaves the session untouched.
func (c *Client) Do(ctx context.Context, r Request) error {
	creds := c.credentials()

	var sent string
	if !r.Anonymous && creds != nil {
		sent = creds.AccessToken()
		if sent != "" && c.refreshSkew > 0 && token.ExpiresWithin(sent, c.refreshSkew, c.now()) {
			access, err := c.refresh(ctx, creds)
			switch {
			case err == nil:
				sent = access
			case canceled(err):
				return fmt.Errorf("proactive refresh: %w", err)
			case c.sessionGone(creds):
				c.expire(creds)
				return fmt.Errorf("%w: proactive refresh: %w", ErrSessionExpired, err)
			default:
				c.log.Debug("proactive refresh skipped", slog.String("error", err.Error()))
			}
		}
	}

	err := c.send(ctx, r, sent)
	if err == nil {
		return nil
	}

	if r.Anonymous || r.retried || creds == nil || !IsUnauthorized(err) {
		c.report(ctx, r, err)
		return err
	}
	r.retried = true

	access := creds.AccessToken()
	if access == "" || access == sent {
		access, err = c.refreshAfter401(ctx, creds, sent, err)
		if err != nil {
			return err
		}
	}

	if err := c.send(ctx, r, access); err != nil {
		c.report(ctx, r, err)
		return err
	}
	return nil
}

func (c *Client) refreshAfter401(ctx context.Context, creds Credentials, sent string, original error) (string, error) {
	access, err := c.refresh(ctx, creds)
	if err == nil {
		return access, nil
	}
	if canceled(err) {
		return "", fmt.Errorf("%w: %w", original, err)
	}
	// A newer login replaced the token this request was sent with.
	if current := creds.AccessToken(); current != "" && current != sent {
		c.log.Debug("session changed during refresh, retrying with current token",
			slog.String("error", err.Error()))
		return current, nil
	}

	c.log.Warn("refresh after 401 failed",
		slog.String("error", err.Error()))
	c.expire(creds)
	return "", fmt.Errorf("%w: %w", ErrSessionExpired, original)
}

// refresh runs at most one refresh at a time; concurrent callers share its result.
// The shared call is detached from the caller's cancellation.
func (c *Client) refresh(ctx context.Context, creds Credentials) (string, error) {
	ch := c.group.DoChan("refresh", func() (interface{}, error) {
		return creds.Refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// sessionGone reports that the credentials no longer hold any token.
func (c *Client) sessionGone(creds Credentials) bool {
	return creds.AccessToken() == ""
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) expire(creds Credentials) {
	creds.Logout()
	c.notifier.Notify(KindUnauthorized, Message(KindUnauthorized, ""))
	c.metrics.APIError(string(KindUnauthorized))
	if c.onLoginRequired != nil {
		c.onLoginRequired()
	}
}

func (c *Client) report(ctx context.Context, r Request, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return
	}
	c.metrics.APIError(string(apiErr.Kind))
	if r.Quiet || (apiErr.Kind == KindNetwork && ctx.Err() != nil) {
		return
	}
	c.notifier.Notify(apiErr.Kind, Message(apiErr.Kind, apiErr.Detail))
}

func (c *Client) send(ctx context.Context, r Request, access string) error {
	const op = "httpclient.send"

	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if access != "" && !r.Anonymous {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.Path),
			slog.String("error", err.Error()))
		return &APIError{Kind: KindNetwork, Method: r.Method, Path: r.Path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &APIError{Kind: KindNetwork, Status: resp.StatusCode, Method: r.Method, Path: r.Path, Err: err}
	}

	c.log.Debug("api response",
		slog.String("method", r.Method),
		slog.String("path", r.Path),
		slog.Int("status", resp.StatusCode),
		slog.Int("body_length", len(respBody)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Kind:   classify(resp.StatusCode),
			Status: resp.StatusCode,
			Method: r.Method,
			Path:   r.Path,
			Detail: Detail(respBody),
			Body:   respBody,
		}
	}

	if r.Out == nil {
		return nil
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return fmt.Errorf("%s %s: %w", r.Method, r.Path, ErrEmptyBody)
	}
	if err := json.Unmarshal(respBody, r.Out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
