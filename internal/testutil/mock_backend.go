// Package testutil provides testing utilities for the query engine.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of one mock backend endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBackend is a configurable mock of the query backend for tests.
type MockBackend struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
}

// NewMockBackend creates a new mock backend server.
func NewMockBackend() *MockBackend {
	mock := &MockBackend{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockBackend) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockBackend) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetResponseSequence serves the given responses in order, repeating
// the last one once the script runs out. Useful for retry tests.
func (m *MockBackend) SetResponseSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockBackend) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// defaultHandler returns an empty successful listing.
func (m *MockBackend) defaultHandler(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"entries": []}`))
}

// NewHealthyResponse creates a standard 200 OK JSON response.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response with a
// Retry-After hint.
func NewRateLimitResponse(retryAfterSeconds string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  retryAfterSeconds,
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewUnauthorizedResponse creates a 401 response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error": "Invalid credentials"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
