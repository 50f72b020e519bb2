package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/errors"
	"github.com/Digital-Creators-Team/arcade-client/pkg/providers"
	"github.com/Digital-Creators-Team/arcade-client/types"
)

// TraceHeader carries the request trace id
const TraceHeader = "X-Trace-ID"

// Client is an HTTP client wrapper with logging, bearer credentials and
// error classification
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
	baseURL    string
	headers    map[string]string
	creds      providers.Credentials
}

// Config holds HTTP client configuration
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Logger      zerolog.Logger
	Headers     map[string]string
	Credentials providers.Credentials
	Transport   http.RoundTripper
}

// New creates a new HTTP client
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger:  cfg.Logger.With().Str("component", "http-client").Logger(),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: cfg.Headers,
		creds:   cfg.Credentials,
	}
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// IsSuccess checks if the response indicates success
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with JSON body
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// GetJSON performs a GET and decodes the success envelope's data into dest
func (c *Client) GetJSON(ctx context.Context, path string, dest interface{}) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return decode(resp, dest)
}

// PostJSON performs a POST and decodes the success envelope's data into dest
func (c *Client) PostJSON(ctx context.Context, path string, body, dest interface{}) error {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return err
	}
	return decode(resp, dest)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInvalidRequest, "failed to marshal request body")
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidRequest, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	req.Header.Set(TraceHeader, traceID)

	if c.creds != nil {
		token, err := c.creds.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	startTime := time.Now()
	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Str("trace_id", traceID).
		Msg("HTTP request started")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("method", method).
			Str("url", url).
			Str("trace_id", traceID).
			Dur("duration", time.Since(startTime)).
			Msg("HTTP request failed")
		return nil, errors.Wrap(err, errors.ErrNetworkFailure, "game service unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrNetworkFailure, "failed to read response body")
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Str("trace_id", traceID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("HTTP request completed")

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    resp.Header,
	}, nil
}

// decode unwraps a success envelope or classifies an error response
func decode(resp *Response, dest interface{}) error {
	if !resp.IsSuccess() {
		return Classify(resp)
	}
	if dest == nil || len(resp.Body) == 0 {
		return nil
	}
	envelope := types.SuccessResponse[json.RawMessage]{}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return errors.Wrap(err, errors.ErrPayload, "malformed response envelope")
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return errors.Wrap(err, errors.ErrPayload, "failed to unmarshal response")
	}
	return nil
}

// Classify maps an unsuccessful response onto the error taxonomy: 401/403
// are credential failures, other 4xx are service rejections carrying the
// server's reason, 5xx are network failures
func Classify(resp *Response) error {
	var envelope types.ErrorResponse
	_ = json.Unmarshal(resp.Body, &envelope)

	msg := envelope.Error.ErrorMessage
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	debug := fmt.Sprintf("status %d", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.NewWithDebug(errors.ErrUnauthorized, msg, debug)
	case resp.StatusCode >= 500:
		return errors.NewWithDebug(errors.ErrNetworkFailure, msg, debug)
	default:
		return &errors.AppError{
			Code:         errors.ErrServiceRejection,
			Reason:       envelope.Error.Reason,
			Message:      msg,
			DebugMessage: debug,
		}
	}
}

type traceKey struct{}

// WithTraceID attaches a trace id to outgoing requests made with ctx
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceIDFromContext returns the trace id attached to ctx, if any
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
