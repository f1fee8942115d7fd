// Package client is an HTTP client for the tixhub API that signs requests
// with the session's access token and refreshes it once on 401.
package client

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
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirinyoku/tixhub/internal/session"
)

const (
	mimeLDJSON = "application/ld+json"
	mimeJSON   = "application/json"

	refreshPath    = "token/refresh"
	defaultTimeout = 30 * time.Second
)

var errRefreshFailed = errors.New("refresh failed")

type Config struct {
	// BaseURL is the API entrypoint, e.g. https://api.example.com.
	BaseURL string
	// Origin is sent with every request so the API applies its CORS rules.
	Origin  string
	Timeout time.Duration
	// HTTPClient overrides the transport. Its Timeout is replaced by Timeout.
	HTTPClient *http.Client
	Notifier   Notifier
	Logger     *slog.Logger
}

type Client struct {
	base     *url.URL
	http     *http.Client
	session  *session.Session
	origin   string
	notifier Notifier
	log      *slog.Logger
	refresh  singleflight.Group
}

func New(cfg Config, sess *session.Session) (*Client, error) {
	const op = "client.New"

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	hc := &http.Client{}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		hc = &c
	}
	hc.Timeout = timeout

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}

	if sess == nil {
		sess = session.New(nil)
	}

	return &Client{
		base:     base,
		http:     hc,
		session:  sess,
		origin:   cfg.Origin,
		notifier: notifier,
		log:      logger,
	}, nil
}

func (c *Client) Session() *session.Session { return c.session }

// RequestOptions describe one request. JSON is encoded as the body when Body
// is nil.
type RequestOptions struct {
	Header http.Header
	Body   io.Reader
	JSON   any
	Params Params

	// noAuth sends the request without credentials and without the refresh
	// protocol.
	noAuth bool
}

type preparedRequest struct {
	method string
	url    string
	header http.Header
	body   []byte
}

// Do sends a request to path, relative to the base URL.
//
// A 401 received while a token was attached triggers one token refresh,
// shared by all requests that hit 401 at the same time. On success the
// request is retried once with the new token and the retry response is
// returned as is. When the API rejects the refresh the session is cleared, the
// user is notified and the request is retried once without credentials; a
// second 401 then yields ErrSessionExpired. A transport failure during the
// refresh is returned as *NetworkError and leaves the session alone.
//
// Other responses outside 2xx/3xx are returned as *SubmissionError or
// *APIError with the body consumed. Transport failures are *NetworkError.
func (c *Client) Do(ctx context.Context, method, path string, opts *RequestOptions) (*http.Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	req, err := c.prepare(method, path, opts)
	if err != nil {
		return nil, err
	}

	token := ""
	if !opts.noAuth {
		token = c.session.Token()
	}

	resp, err := c.send(ctx, req, token)
	if err != nil {
		return nil, err
	}

	if ok(resp) {
		return resp, nil
	}

	if resp.StatusCode != http.StatusUnauthorized || token == "" {
		return nil, decodeError(resp)
	}

	drain(resp)

	fresh, err := c.refreshToken(ctx, token)
	if err != nil && !errors.Is(err, errRefreshFailed) {
		return nil, err
	}
	if err == nil {
		resp, err = c.send(ctx, req, fresh)
		if err != nil {
			return nil, err
		}
		if ok(resp) || resp.StatusCode == http.StatusUnauthorized {
			return resp, nil
		}
		return nil, decodeError(resp)
	}

	c.log.DebugContext(ctx, "token refresh failed", slog.String("err", err.Error()))
	c.expire(ctx)

	resp, err = c.send(ctx, req, "")
	if err != nil {
		return nil, err
	}
	if ok(resp) {
		return resp, nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		return nil, ErrSessionExpired
	}

	return nil, decodeError(resp)
}

func (c *Client) prepare(method, path string, opts *RequestOptions) (*preparedRequest, error) {
	const op = "client.prepare"

	u := c.resolve(path)
	if len(opts.Params) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		if q := opts.Params.Encode(); q != "" {
			u += sep + q
		}
	}

	header := http.Header{}
	for k, vs := range opts.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	if header.Get("Accept") == "" {
		header.Set("Accept", mimeLDJSON)
	}

	var body []byte
	switch {
	case opts.Body != nil:
		b, err := io.ReadAll(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: read body: %w", op, err)
		}
		body = b
	case opts.JSON != nil:
		b, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", op, err)
		}
		body = b
	}

	if body != nil && header.Get("Content-Type") == "" {
		header.Set("Content-Type", mimeLDJSON)
	}

	if c.origin != "" && header.Get("Origin") == "" {
		header.Set("Origin", c.origin)
	}

	return &preparedRequest{method: method, url: u, header: header, body: body}, nil
}

// resolve joins path to the base URL. Absolute API paths such as
// /api/events/1 lose their /api/ prefix.
func (c *Client) resolve(path string) string {
	path = strings.TrimPrefix(path, "/api/")
	path = strings.TrimLeft(path, "/")
	return c.base.String() + "/" + path
}

func (c *Client) send(ctx context.Context, pr *preparedRequest, token string) (*http.Response, error) {
	var body io.Reader
	if pr.body != nil {
		body = bytes.NewReader(pr.body)
	}

	req, err := http.NewRequestWithContext(ctx, pr.method, pr.url, body)
	if err != nil {
		return nil, &NetworkError{Method: pr.method, URL: pr.url, Err: err}
	}

	req.Header = pr.header.Clone()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: pr.method, URL: pr.url, Err: err}
	}

	return resp, nil
}

// refreshToken exchanges the stored refresh token for a new access token.
// Concurrent callers share one exchange; a caller whose token was already
// replaced gets the current token without a new exchange.
func (c *Client) refreshToken(ctx context.Context, stale string) (string, error) {
	ctx = context.WithoutCancel(ctx)

	v, err, _ := c.refresh.Do("refresh", func() (any, error) {
		if cur := c.session.Token(); cur != "" && cur != stale {
			return cur, nil
		}

		rt := c.session.RefreshToken()
		if rt == "" {
			return "", fmt.Errorf("%w: no refresh token", errRefreshFailed)
		}

		pr := &preparedRequest{
			method: http.MethodPost,
			url:    c.resolve(refreshPath),
			header: http.Header{"Content-Type": {mimeJSON}, "Accept": {mimeJSON}},
		}
		if c.origin != "" {
			pr.header.Set("Origin", c.origin)
		}
		pr.body, _ = json.Marshal(map[string]string{"refresh_token": rt})

		resp, err := c.send(ctx, pr, "")
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if !ok(resp) {
			return "", fmt.Errorf("%w: status %d", errRefreshFailed, resp.StatusCode)
		}

		var out struct {
			Token        string `json:"token"`
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("%w: %v", errRefreshFailed, err)
		}
		if out.Token == "" {
			return "", fmt.Errorf("%w: %w", errRefreshFailed, ErrMissingToken)
		}

		if err := c.session.SetToken(ctx, out.Token, out.RefreshToken); err != nil {
			return "", err
		}

		return out.Token, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// expire signs the user out after a rejected refresh. Only the caller that
// actually clears the session notifies.
func (c *Client) expire(ctx context.Context) {
	cleared, err := c.session.ClearIfSignedIn(ctx)
	if err != nil {
		c.log.WarnContext(ctx, "clear session", slog.String("err", err.Error()))
	}
	if !cleared {
		return
	}

	c.notifier.Notify(ctx, Notice{
		Level:         NoticeWarning,
		Message:       SessionExpiredMessage,
		LoginRequired: true,
	})
}

// GetJSON sends a GET request and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, params Params, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, &RequestOptions{Params: params}, out)
}

// SendJSON sends in as the request body and decodes the response into out.
// A nil out discards the response body.
func (c *Client) SendJSON(ctx context.Context, method, path string, in, out any) error {
	return c.doJSON(ctx, method, path, &RequestOptions{JSON: in}, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, opts *RequestOptions, out any) error {
	resp, err := c.Do(ctx, method, path, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !ok(resp) {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client.doJSON: decode %s %s: %w", method, path, err)
	}

	return nil
}

func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
