package bsky

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	go_json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/garrettladley/bnotif/internal/xhttp"
	"github.com/garrettladley/bnotif/internal/xslog"
)

type Client struct {
	Notification NotificationService
	Feed         FeedService

	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(tokenSource oauth2.TokenSource, opts ...Option) *Client {
	const baseURL = "https://bsky.social"

	cfg := &clientConfig{
		baseURL:     baseURL,
		tokenSource: tokenSource,
		logger:      slog.Default(),
		timeout:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	base := cfg.base
	if base == nil {
		base = xhttp.NewTransport(
			xhttp.WithSessionID(cfg.sessionID),
			xhttp.WithRateLimit(cfg.requestsPerSecond, 1),
		)
	}

	transport := &authTransport{
		base:        base,
		tokenSource: cfg.tokenSource,
	}

	c := &Client{
		baseURL:    cfg.baseURL,
		httpClient: xhttp.NewHTTPClient(xhttp.WithTransport(transport), xhttp.WithTimeout(cfg.timeout)),
		logger:     xslog.OrDiscard(cfg.logger),
	}

	c.Notification = &notificationService{client: c}
	c.Feed = &feedService{client: c}

	return c
}

type clientConfig struct {
	baseURL           string
	tokenSource       oauth2.TokenSource
	logger            *slog.Logger
	sessionID         string
	requestsPerSecond float64
	timeout           time.Duration
	base              http.RoundTripper
}

type Option func(*clientConfig)

func WithServiceURL(baseURL string) Option {
	return func(cfg *clientConfig) { cfg.baseURL = baseURL }
}

func WithSessionID(sessionID string) Option {
	return func(cfg *clientConfig) { cfg.sessionID = sessionID }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

func WithRateLimit(perSecond float64) Option {
	return func(cfg *clientConfig) { cfg.requestsPerSecond = perSecond }
}

// WithTransport replaces the default header/rate-limit transport. Auth is still applied on top.
func WithTransport(rt http.RoundTripper) Option {
	return func(cfg *clientConfig) { cfg.base = rt }
}

func (c *Client) get(ctx context.Context, nsid string, query url.Values, result any) error {
	return c.do(ctx, http.MethodGet, nsid, query, nil, result)
}

func (c *Client) post(ctx context.Context, nsid string, body any, result any) error {
	data, err := go_json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.do(ctx, http.MethodPost, nsid, nil, data, result)
}

func (c *Client) do(ctx context.Context, method string, nsid string, query url.Values, body []byte, result any) error {
	u := c.baseURL + "/xrpc/" + nsid
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		xhttp.SetRequestHeaderContentTypeJSON(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "xrpc request",
		slog.String("nsid", nsid),
		xslog.HTTPStatus(resp.StatusCode),
		xslog.Duration(time.Since(start)))

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		if err := go_json.NewDecoder(bytes.NewReader(data)).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w\nbody: %s", err, string(data))
		}
	}

	return nil
}

type authTransport struct {
	base        http.RoundTripper
	tokenSource oauth2.TokenSource
}

var _ http.RoundTripper = (*authTransport)(nil)

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	req = req.Clone(req.Context())
	xhttp.SetRequestHeaderBearer(req, token.AccessToken)
	xhttp.SetRequestHeaderAcceptJSON(req)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("round trip: %w", err)
	}
	return resp, nil
}
