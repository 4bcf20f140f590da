package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RefreshPath renews the session credential.
const RefreshPath = "/user/refresh-token"

const defaultUserAgent = "conduit-client/1.0"

// Request describes one API call. It is a value and is never modified by the Gateway.
type Request struct {
	Method string
	Path   string
	Body   any
}

// Response is a successful (2xx) API response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("decoding response: empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type Config struct {
	BaseURL   string
	UserAgent string
	// RateLimit caps requests per second; zero disables limiting.
	RateLimit float64
	// OnSessionInvalid runs when a refresh attempt fails.
	OnSessionInvalid func()
	Logger           *logrus.Logger
}

// Gateway is the single path for every outbound API request. It attaches the ambient
// credential through the client's cookie jar and recovers once from an expired session.
type Gateway struct {
	baseURL          *url.URL
	client           *http.Client
	userAgent        string
	limiter          *rate.Limiter
	onSessionInvalid func()
	logger           *logrus.Logger
}

func New(cfg Config, client *http.Client) (*Gateway, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	g := &Gateway{
		baseURL:          base,
		client:           client,
		userAgent:        cfg.UserAgent,
		onSessionInvalid: cfg.OnSessionInvalid,
		logger:           cfg.Logger,
	}
	if cfg.RateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return g, nil
}

// BaseURL returns the API root every request path is resolved against.
func (g *Gateway) BaseURL() *url.URL {
	u := *g.baseURL
	return &u
}

// Send issues req. An unauthorized response triggers exactly one refresh; if that
// succeeds the original request is replayed once and its outcome returned as is.
// If the refresh fails the session-invalid handler runs and ErrSessionInvalid is returned.
func (g *Gateway) Send(ctx context.Context, req Request) (*Response, error) {
	requestID := uuid.NewString()

	resp, err := g.attempt(ctx, req, requestID, 1)
	if err == nil || !IsUnauthorized(err) {
		return resp, err
	}

	g.logger.WithFields(logrus.Fields{
		"method":     req.Method,
		"path":       req.Path,
		"request_id": requestID,
	}).Info("session expired, refreshing")

	if rerr := g.refresh(ctx, requestID); rerr != nil {
		g.logger.WithError(rerr).Warn("session refresh failed")
		if g.onSessionInvalid != nil {
			g.onSessionInvalid()
		}
		return nil, fmt.Errorf("%w: %w", ErrSessionInvalid, rerr)
	}

	return g.attempt(ctx, req, requestID, 2)
}

func (g *Gateway) refresh(ctx context.Context, requestID string) error {
	_, err := g.attempt(ctx, Request{Method: http.MethodPost, Path: RefreshPath}, requestID, 1)
	return err
}

func (g *Gateway) attempt(ctx context.Context, req Request, requestID string, n int) (*Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limit: %w", err)
		}
	}

	httpReq, err := g.newHTTPRequest(ctx, req, requestID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending %s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"method":     req.Method,
		"path":       req.Path,
		"status":     httpResp.StatusCode,
		"attempt":    n,
		"request_id": requestID,
		"elapsed":    time.Since(start),
	}).Debug("api request")

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, newAPIError(httpResp.StatusCode, body)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (g *Gateway) newHTTPRequest(ctx context.Context, req Request, requestID string) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := g.baseURL.String() + "/" + strings.TrimLeft(req.Path, "/")
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", g.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	return httpReq, nil
}
