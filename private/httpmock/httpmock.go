// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package httpmock provides an http.RoundTripper that serves queued canned
// responses, for testing clients of hosted APIs without a network.
package httpmock

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

// Response represents a mocked HTTP response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Request is a request that was served by the Transport.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// Transport serves responses registered per method and path.
type Transport struct {
	mu        sync.Mutex
	responses map[string][]Response
	requests  []Request
}

// NewTransport creates a new instance of Transport.
func NewTransport() *Transport {
	return &Transport{
		responses: make(map[string][]Response),
	}
}

// AddResponse queues a response for method and URL path. Multiple responses
// for the same key are returned in sequence; the last one is repeated.
func (t *Transport) AddResponse(method, path string, response Response) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := method + " " + path
	t.responses[key] = append(t.responses[key], response)
}

// Requests returns the requests served so far.
func (t *Transport) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]Request(nil), t.requests...)
}

// RoundTrip implements the http.RoundTripper interface.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()
		body = string(data)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests = append(t.requests, Request{
		Method: req.Method,
		Path:   req.URL.Path,
		Header: req.Header.Clone(),
		Body:   body,
	})

	key := req.Method + " " + req.URL.Path
	queue := t.responses[key]
	if len(queue) == 0 {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader(`{"error":{"message":"not found"}}`)),
			Request:    req,
		}, nil
	}

	response := queue[0]
	if len(queue) > 1 {
		t.responses[key] = queue[1:]
	}

	headers := make(http.Header)
	for name, value := range response.Headers {
		headers.Set(name, value)
	}

	return &http.Response{
		StatusCode: response.StatusCode,
		Header:     headers,
		Body:       io.NopCloser(strings.NewReader(response.Body)),
		Request:    req,
	}, nil
}
