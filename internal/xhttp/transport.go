package xhttp

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/garrettladley/bnotif/internal/version"
)

type bnotifTransport struct {
	base      http.RoundTripper
	sessionID string
	limiter   *rate.Limiter
}

var _ http.RoundTripper = (*bnotifTransport)(nil)

func (t *bnotifTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	// RoundTrippers must not mutate the caller's request
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", version.UserAgent(version.Get()))
	req.Header.Set(version.Header, version.Get())
	if t.sessionID != "" {
		SetRequestHeaderSessionID(req, t.sessionID)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform round trip: %w", err)
	}
	return resp, nil
}

type TransportOption func(*bnotifTransport)

func WithBase(base http.RoundTripper) TransportOption {
	return func(t *bnotifTransport) { t.base = base }
}

func WithSessionID(sessionID string) TransportOption {
	return func(t *bnotifTransport) { t.sessionID = sessionID }
}

// WithRateLimit caps outgoing requests per second. A non-positive rate disables the limiter.
func WithRateLimit(perSecond float64, burst int) TransportOption {
	return func(t *bnotifTransport) {
		if perSecond <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewTransport returns an http.RoundTripper with standard bnotif headers.
func NewTransport(opts ...TransportOption) http.RoundTripper {
	t := &bnotifTransport{base: http.DefaultTransport}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
