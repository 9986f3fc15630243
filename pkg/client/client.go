// Package client is the high-level math AI backend client. It composes the
// request builder, the HTTP transport and the stream dispatcher into the three
// call shapes the backend supports: plain JSON calls, streamed completions and
// file uploads.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"

	"go.uber.org/zap"

	"github.com/papercomputeco/mathai/pkg/api"
	"github.com/papercomputeco/mathai/pkg/logger"
	"github.com/papercomputeco/mathai/pkg/request"
	"github.com/papercomputeco/mathai/pkg/stream"
	"github.com/papercomputeco/mathai/pkg/transport"
)

// Config is the client configuration.
type Config struct {
	BaseURL    string
	Tokens     TokenStore
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the math AI backend. It is safe for concurrent use.
type Client struct {
	transport *transport.Client
	tokens    TokenStore
	logger    *zap.Logger
}

// New returns a Client for cfg. A nil token store means an empty in-memory
// one.
func New(cfg Config, opts ...transport.Option) *Client {
	if cfg.Tokens == nil {
		cfg.Tokens = NewMemoryTokenStore("")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return &Client{
		transport: transport.New(transport.Config{
			BaseURL:    cfg.BaseURL,
			Token:      cfg.Tokens.Token,
			HTTPClient: cfg.HTTPClient,
			Logger:     cfg.Logger,
		}, opts...),
		tokens: cfg.Tokens,
		logger: cfg.Logger,
	}
}

// BaseURL returns the backend address requests are sent to.
func (c *Client) BaseURL() string {
	return c.transport.BaseURL()
}

// Request performs a non-streaming JSON call.
func (c *Client) Request(ctx context.Context, call request.Call) (json.RawMessage, error) {
	return c.transport.Do(ctx, call)
}

// Stream performs a streaming call and drives cb to exactly one final OnData.
//
// It returns nil when the stream completes or ctx is canceled. Any other
// failure, including a bad status when opening the stream, is reported to
// OnData as "[error] ..." with final set, and then returned.
func (c *Client) Stream(ctx context.Context, call request.Call, cb stream.Callbacks, opts ...stream.Option) error {
	resp, err := c.transport.Open(ctx, call)
	if err != nil {
		c.logger.Debug("could not open stream", zap.String("path", call.Path), zap.Error(err))
		return cb.Finish(ctx, "", err)
	}
	defer resp.Body.Close()

	opts = append([]stream.Option{stream.WithLogger(c.logger)}, opts...)
	return stream.Dispatch(ctx, resp.Body, cb, opts...)
}

// StreamDeltas is the sequence form of Stream. The sequence ends when the
// stream completes or ctx is canceled. A failure is yielded once as its last
// element.
func (c *Client) StreamDeltas(ctx context.Context, call request.Call, opts ...stream.Option) iter.Seq2[stream.Delta, error] {
	return func(yield func(stream.Delta, error) bool) {
		resp, err := c.transport.Open(ctx, call)
		if err != nil {
			if !stream.IsAbort(err) {
				yield(stream.Delta{}, err)
			}
			return
		}
		defer resp.Body.Close()

		readerOpts := append([]stream.Option{stream.WithLogger(c.logger)}, opts...)
		for d, err := range stream.Deltas(ctx, resp.Body, readerOpts...) {
			if !yield(d, err) {
				return
			}
		}
	}
}

// UploadFile posts file to path as multipart form data.
//
// On success cb.OnData receives the response's message with final set, then
// cb.OnComplete receives the raw JSON response. On failure cb.OnData receives
// the formatted error and the error is returned. Headers follow
// transport.Client.Upload: nil keeps the default authenticated headers.
func (c *Client) UploadFile(ctx context.Context, path string, file request.File, headers map[string]string, cb stream.Callbacks) (json.RawMessage, error) {
	raw, err := c.transport.Upload(ctx, path, file, headers)
	if err != nil {
		if cb.OnData != nil {
			cb.OnData(stream.FormatError(err), true)
		}
		return nil, err
	}

	var resp api.UploadResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Debug("upload response is not an object", zap.Error(err))
	}

	if cb.OnData != nil {
		cb.OnData(resp.Message, true)
	}
	if cb.OnComplete != nil {
		if err := cb.OnComplete(ctx, string(raw)); err != nil {
			return raw, fmt.Errorf("completion callback: %w", err)
		}
	}
	return raw, nil
}
