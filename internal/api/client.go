// Package api is the HTTP client for the warehouse REST backend. Every call
// carries the bearer token from the injected credential supplier, runs under
// an OpenTelemetry span and maps failures onto NetworkError, APIError and
// DecodeError.
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
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/stockdesk/stockdesk/internal/logging"
	"github.com/stockdesk/stockdesk/internal/session"
	"github.com/stockdesk/stockdesk/pkg/version"
)

var tracer = otel.Tracer("stockdesk/api")

// Client defaults.
const (
	DefaultTimeout = 30 * time.Second

	// bodyExcerptLimit bounds how much of a failed response is logged.
	bodyExcerptLimit = 512

	headerRequestID = "X-Request-Id"
)

// Client talks to one backend base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      session.CredentialSupplier
	logger     zerolog.Logger
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for baseURL. A nil creds sends no
// Authorization header.
func NewClient(baseURL string, creds session.CredentialSupplier, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid api base URL %q: %w", baseURL, err)
	}
	if creds == nil {
		creds = session.NewMemoryStore("")
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		creds:      creds,
		logger:     zerolog.Nop(),
		userAgent:  "stockdesk/" + version.GetVersion(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "api").Logger()
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Credentials returns the credential supplier.
func (c *Client) Credentials() session.CredentialSupplier { return c.creds }

// doJSON sends body as JSON and returns the raw 2xx response body.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	return c.do(ctx, method, path, query, "application/json", reader)
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	contentType string,
	body io.Reader,
) ([]byte, error) {
	start := time.Now()
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	ctx, span := tracer.Start(ctx, "api."+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", target),
		),
	)
	defer span.End()

	logger := c.logger.With().Str("method", method).Str("path", path).Logger()
	traceID := logging.TraceIDFromContext(ctx)
	if traceID != "" {
		logger = logger.With().Str("trace_id", traceID).Logger()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if traceID != "" {
		req.Header.Set(headerRequestID, traceID)
	}

	token, err := c.creds.Get(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("reading credentials failed; sending unauthenticated request")
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		netErr := &NetworkError{Method: method, URL: target, Err: err}
		span.RecordError(netErr)
		span.SetStatus(codes.Error, "network failure")
		logger.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("request failed before a response")
		return nil, netErr
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		netErr := &NetworkError{Method: method, URL: target, Err: fmt.Errorf("read response: %w", err)}
		span.RecordError(netErr)
		return nil, netErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, raw)
		apiErr.Method = method
		apiErr.Path = path
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		logger.Debug().
			Int("status", resp.StatusCode).
			Str("body", excerpt(raw)).
			Dur("elapsed", time.Since(start)).
			Msg("request returned an error status")
		return nil, apiErr
	}

	logger.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("request complete")
	return raw, nil
}

// errorEnvelope is the server's error body. Status and timestamp are
// rendered as strings or numbers depending on the backend.
type errorEnvelope struct {
	Status       json.RawMessage `json:"status"`
	Timestamp    json.RawMessage `json:"timestamp"`
	Message      string          `json:"message"`
	DebugMessage string          `json:"debugMessage"`
	SubErrors    []SubError      `json:"subErrors"`
}

func parseAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{
		Status:     status,
		StatusText: http.StatusText(status),
		Body:       excerpt(raw),
	}

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apiErr
	}
	if s := rawString(env.Status); s != "" {
		apiErr.StatusText = s
	}
	apiErr.Timestamp = rawString(env.Timestamp)
	apiErr.Message = env.Message
	apiErr.DebugMessage = env.DebugMessage
	apiErr.SubErrors = env.SubErrors
	return apiErr
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// decode unmarshals a 2xx body into out. An empty body leaves out unchanged.
func decode(path string, raw []byte, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Path: path, Body: excerpt(raw), Err: err}
	}
	return nil
}

func excerpt(raw []byte) string {
	if len(raw) <= bodyExcerptLimit {
		return string(raw)
	}
	return string(raw[:bodyExcerptLimit]) + "..."
}

// entityPath joins path segments, escaping each.
func entityPath(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// errMissingField is wrapped by DecodeError when a required field is absent.
var errMissingField = errors.New("required field missing")
