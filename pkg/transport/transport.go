// Package transport executes request descriptors against the math AI backend
// over HTTP.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/mathai/pkg/logger"
	"github.com/papercomputeco/mathai/pkg/request"
	"github.com/papercomputeco/mathai/pkg/stream"
)

const (
	headerRequestID = "X-Request-Id"
	headerAccept    = "Accept"

	contentTypeEventStream = "text/event-stream"
)

// Config is the transport configuration.
type Config struct {
	// BaseURL is the backend address. Empty means api.DefaultBaseURL.
	BaseURL string

	// Token supplies the bearer token at request time.
	Token request.TokenFunc

	// HTTPClient defaults to a client with no timeout: completions can
	// legitimately stream for minutes.
	HTTPClient *http.Client

	Logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTrace copies every raw stream body read through Open to w.
func WithTrace(w io.Writer) Option {
	return func(c *Client) {
		c.trace = w
	}
}

// Client is a thin HTTP transport. It is safe for concurrent use.
type Client struct {
	builder *request.Builder
	http    *http.Client
	logger  *zap.Logger
	trace   io.Writer
}

// New returns a Client for cfg.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		builder: request.NewBuilder(cfg.BaseURL, cfg.Token),
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.builder.BaseURL
}

// Build exposes the request builder for callers that need the descriptor
// without sending it.
func (c *Client) Build(call request.Call) (*request.Descriptor, error) {
	return c.builder.Build(call)
}

// Do sends call and returns the raw JSON body. A 204 response yields nil.
func (c *Client) Do(ctx context.Context, call request.Call) (json.RawMessage, error) {
	desc, err := c.builder.Build(call)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, desc)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		httpErr := newHTTPError(resp, truncateBody(body))
		c.logger.Debug("request failed",
			zap.String("url", desc.URL),
			zap.Int("status", resp.StatusCode),
			zap.String("body", trimBody(httpErr.Body)),
		)
		return nil, httpErr
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("decoding response from %s: invalid JSON body", desc.URL)
	}
	return json.RawMessage(body), nil
}

// DoJSON sends call and decodes the response into out. A 204 response leaves
// out untouched.
func (c *Client) DoJSON(ctx context.Context, call request.Call, out any) error {
	raw, err := c.Do(ctx, call)
	if err != nil {
		return err
	}
	if raw == nil || out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Fetch sends call and copies a successful response body to w as-is. It
// returns the number of bytes copied. Statuses outside 2xx are *HTTPError.
func (c *Client) Fetch(ctx context.Context, call request.Call, w io.Writer) (int64, error) {
	desc, err := c.builder.Build(call)
	if err != nil {
		return 0, err
	}

	resp, err := c.send(ctx, desc)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("fetch failed",
			zap.String("url", desc.URL),
			zap.Int("status", resp.StatusCode),
		)
		return 0, newHTTPError(resp, body)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("copying response body: %w", err)
	}
	return n, nil
}

// Open sends call with "stream": true set and returns the response once its
// status is known. The caller owns the body.
//
// Failures are *stream.TransportError, except when ctx was canceled before the
// response arrived: then context.Canceled is returned unwrapped.
func (c *Client) Open(ctx context.Context, call request.Call) (*http.Response, error) {
	call, err := request.WithStream(call)
	if err != nil {
		return nil, err
	}
	call = call.WithHeaders(map[string]string{headerAccept: contentTypeEventStream})

	desc, err := c.builder.Build(call)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, desc)
	if err != nil {
		if stream.IsAbort(err) {
			return nil, context.Canceled
		}
		return nil, &stream.TransportError{Err: err}
	}

	if !isSuccess(resp.StatusCode) {
		_ = resp.Body.Close()
		c.logger.Debug("stream open failed",
			zap.String("url", desc.URL),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &stream.TransportError{Err: statusError(resp)}
	}

	if c.trace != nil {
		resp.Body = &teeBody{Reader: io.TeeReader(resp.Body, c.trace), Closer: resp.Body}
	}
	return resp, nil
}

// Upload posts a single file as multipart form data under the "file" field.
//
// A nil headers map keeps the default headers, including authentication.
// Otherwise headers replace the default set entirely.
func (c *Client) Upload(ctx context.Context, path string, file request.File, headers map[string]string) (json.RawMessage, error) {
	file.Field = uploadField
	call := request.New(path, http.MethodPost, nil)
	call.Multipart = &request.Form{Files: []request.File{file}}

	desc, err := c.builder.Build(call)
	if err != nil {
		return nil, err
	}
	if headers != nil {
		desc.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			desc.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	resp, err := c.send(ctx, desc)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upload response: %w", err)
	}
	if !json.Valid(body) {
		return nil, errors.New("decoding upload response: invalid JSON body")
	}
	return json.RawMessage(body), nil
}

// send turns desc into an *http.Request and executes it.
func (c *Client) send(ctx context.Context, desc *request.Descriptor) (*http.Response, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case desc.Form != nil:
		r, ct, err := encodeMultipart(desc.Form)
		if err != nil {
			return nil, err
		}
		body, contentType = r, ct
	case desc.Body != nil:
		body = bytes.NewReader(desc.Body)
	}

	req, err := http.NewRequestWithContext(ctx, desc.Method, desc.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range desc.Headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get(headerRequestID) == "" {
		req.Header.Set(headerRequestID, uuid.NewString())
	}

	c.logger.Debug("sending request",
		zap.String("method", desc.Method),
		zap.String("url", desc.URL),
		zap.String("request_id", req.Header.Get(headerRequestID)),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", desc.URL, err)
	}

	c.logger.Debug("received response",
		zap.String("url", desc.URL),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", req.Header.Get(headerRequestID)),
	)
	return resp, nil
}

type teeBody struct {
	io.Reader
	io.Closer
}
