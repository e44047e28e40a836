// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/allium-project/allium/internal/ferrors"
	"github.com/allium-project/allium/internal/timeoutctx"
)

// Result is the outcome of a single Fetch call.
type Result struct {
	Body         []byte
	LastModified string
	StatusCode   int
	// NotModified is true on a 304 response (Body is empty in that case).
	NotModified bool
}

// Client performs total-timeout HTTP fetches (component A, spec §4.A).
type Client struct {
	transport http.RoundTripper
}

// NewClient builds a fetch Client. middlewares wrap http.DefaultTransport in
// the order given (the first middleware listed runs outermost).
func NewClient(middlewares ...Middleware) *Client {
	var transport http.RoundTripper = http.DefaultTransport
	if len(middlewares) > 0 {
		transport = Chain(middlewares...)(transport)
	}
	return &Client{transport: transport}
}

// Fetch issues one GET against url with a hard wall-clock deadline. It
// guarantees the call returns within deadline (plus small scheduling slack)
// regardless of how slowly the upstream streams its body: the request runs
// on a background goroutine, and if the deadline fires first, the request's
// context is canceled, tearing down the in-flight connection rather than
// waiting on the transport's own idle timeout.
//
// ifModifiedSince, when non-empty, is attached as the If-Modified-Since
// header for a conditional request (spec §4.C step 3).
func (c *Client) Fetch(ctx context.Context, url string, deadline time.Duration, ifModifiedSince string) (*Result, error) {
	reqCtx, cancel := timeoutctx.WithDeadline(ctx, deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ferrors.Classify(url, err)
	}
	if ifModifiedSince != "" {
		req.Header.Set("If-Modified-Since", ifModifiedSince)
	}

	type outcome struct {
		resp *http.Response
		body []byte
		err  error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		resp, err := c.transport.RoundTrip(req)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotModified {
			done <- outcome{resp: resp}
			return
		}

		body, readErr := io.ReadAll(resp.Body)
		done <- outcome{resp: resp, body: body, err: readErr}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, ferrors.Classify(url, o.err)
		}
		return &Result{
			Body:         o.body,
			LastModified: o.resp.Header.Get("Last-Modified"),
			StatusCode:   o.resp.StatusCode,
			NotModified:  o.resp.StatusCode == http.StatusNotModified,
		}, nil
	case <-reqCtx.Done():
		cancel()
		elapsed := time.Since(start)
		return nil, ferrors.Timeout(url, elapsed)
	}
}
