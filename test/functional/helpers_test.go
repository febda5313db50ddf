//go:build functional

// Package functional provides functional tests for the items API server.
package functional

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/types/optional"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/config"
	"github.com/vyrodovalexey/items-api/internal/server"
	"github.com/vyrodovalexey/items-api/internal/store"
)

// Environment variable names for test configuration.
const (
	EnvTestServerHost    = "TEST_SERVER_HOST"
	EnvTestServerPort    = "TEST_SERVER_PORT"
	EnvTestTimeout       = "TEST_TIMEOUT"
	EnvTestMetricsEnable = "TEST_METRICS_ENABLED"
	EnvTestStoreDriver   = "TEST_STORE_DRIVER"
	EnvTestDatabaseDSN   = "TEST_DATABASE_DSN"
)

// Default test configuration values.
const (
	DefaultTestHost        = "localhost"
	DefaultTestPort        = 0 // 0 means auto-assign
	DefaultTestTimeout     = 30 * time.Second
	DefaultRequestTimeout  = 5 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultMetricsEnabled  = true
	DefaultStoreDriver     = store.DriverMemory
)

// TestConfig holds test configuration loaded from environment.
type TestConfig struct {
	Host           string
	Port           int
	Timeout        time.Duration
	MetricsEnabled bool
	StoreDriver    string
	DatabaseDSN    string
}

// LoadTestConfig loads test configuration from environment variables.
func LoadTestConfig() *TestConfig {
	cfg := &TestConfig{
		Host:           DefaultTestHost,
		Port:           DefaultTestPort,
		Timeout:        DefaultTestTimeout,
		MetricsEnabled: DefaultMetricsEnabled,
		StoreDriver:    DefaultStoreDriver,
	}

	if host := os.Getenv(EnvTestServerHost); host != "" {
		cfg.Host = host
	}

	if portStr := os.Getenv(EnvTestServerPort); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = port
		}
	}

	if timeoutStr := os.Getenv(EnvTestTimeout); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}

	if metricsStr := os.Getenv(EnvTestMetricsEnable); metricsStr != "" {
		if enabled, err := strconv.ParseBool(metricsStr); err == nil {
			cfg.MetricsEnabled = enabled
		}
	}

	if driver := os.Getenv(EnvTestStoreDriver); driver != "" {
		cfg.StoreDriver = driver
	}

	cfg.DatabaseDSN = os.Getenv(EnvTestDatabaseDSN)

	return cfg
}

// TestServer wraps the server for testing purposes.
type TestServer struct {
	Server   *server.Server
	Store    store.Store
	BaseURL  string
	listener net.Listener
	t        *testing.T
	mu       sync.Mutex
	started  bool
}

// NewTestServer creates a new test server instance backed by the store
// selected through TEST_STORE_DRIVER. A sqlite store without an explicit DSN
// uses a fresh file in the test's temp directory.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	testCfg := LoadTestConfig()

	// Find an available port
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", testCfg.Host, testCfg.Port))
	if err != nil {
		t.Fatalf("Failed to find available port: %v", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port

	dsn := testCfg.DatabaseDSN
	if testCfg.StoreDriver == store.DriverSQLite && dsn == "" {
		dsn = filepath.Join(t.TempDir(), "items.db")
	}

	cfg := &config.Config{
		ServerPort:         port,
		LogLevel:           "error",
		ShutdownTimeout:    DefaultShutdownTimeout,
		MetricsEnabled:     testCfg.MetricsEnabled,
		StoreDriver:        testCfg.StoreDriver,
		DatabaseDSN:        dsn,
		CORSAllowedOrigins: []string{"*"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), testCfg.Timeout)
	defer cancel()

	itemStore, err := store.Open(ctx, cfg.StoreDriver, cfg.DatabaseDSN)
	if err != nil {
		listener.Close()
		t.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}

	// Use nop logger for tests to reduce noise
	srv := server.New(cfg, zap.NewNop(), itemStore)

	return &TestServer{
		Server:   srv,
		Store:    itemStore,
		BaseURL:  fmt.Sprintf("http://%s:%d", testCfg.Host, port),
		listener: listener,
		t:        t,
	}
}

// Start starts the test server.
func (ts *TestServer) Start() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return
	}

	// Close the listener we used to find the port
	ts.listener.Close()

	go func() {
		if err := ts.Server.Start(); err != nil {
			ts.t.Logf("Server error: %v", err)
		}
	}()

	ts.waitForReady()
	ts.started = true
}

// waitForReady waits for the server to be ready to accept connections.
func (ts *TestServer) waitForReady() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.t.Fatalf("Server did not become ready within timeout")
		case <-ticker.C:
			resp, err := http.Get(ts.BaseURL + "/ready")
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return
				}
			}
		}
	}
}

// Stop stops the test server and closes its store.
func (ts *TestServer) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()

		if err := ts.Server.Shutdown(ctx); err != nil {
			ts.t.Logf("Server shutdown error: %v", err)
		}
		ts.started = false
	}

	if err := ts.Store.Close(); err != nil {
		ts.t.Logf("Store close error: %v", err)
	}
}

// HTTPClient sends JSON requests to a running test server.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient returns a client rooted at baseURL.
func NewHTTPClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	return &HTTPClient{
		client:  &http.Client{Timeout: DefaultRequestTimeout},
		baseURL: baseURL,
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// send issues one request. A string body is sent verbatim so tests can post
// malformed JSON; any other non-nil body is JSON-encoded.
func (c *HTTPClient) send(ctx context.Context, method, path string, body any, headers map[string]string) (*Response, error) {
	var payload io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		payload = strings.NewReader(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

// Get performs a GET request with optional extra headers.
func (c *HTTPClient) Get(ctx context.Context, path string, headers map[string]string) (*Response, error) {
	return c.send(ctx, http.MethodGet, path, nil, headers)
}

// Post sends body to path.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.send(ctx, http.MethodPost, path, body, nil)
}

// Put sends body to path.
func (c *HTTPClient) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.send(ctx, http.MethodPut, path, body, nil)
}

// Delete performs a DELETE request.
func (c *HTTPClient) Delete(ctx context.Context, path string) (*Response, error) {
	return c.send(ctx, http.MethodDelete, path, nil, nil)
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ItemResponse represents an item in API responses.
type ItemResponse struct {
	ID          int64                   `json:"id"`
	Name        string                  `json:"name"`
	Description optional.Option[string] `json:"description"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ParseErrorResponse parses an error response from bytes.
func ParseErrorResponse(body []byte) (*ErrorResponse, error) {
	var resp ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse error response: %w", err)
	}
	return &resp, nil
}

// ParseItem parses an item from a response body.
func ParseItem(body []byte) (*ItemResponse, error) {
	var item ItemResponse
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to parse item: %w", err)
	}
	return &item, nil
}

// ParseItems parses a list of items from a response body. The body must be a
// JSON array; null is rejected.
func ParseItems(body []byte) ([]ItemResponse, error) {
	var items []ItemResponse
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse items: %w", err)
	}
	if items == nil {
		return nil, fmt.Errorf("expected JSON array, got %s", string(body))
	}
	return items, nil
}

// ParseHealthResponse parses a health response from a response body.
func ParseHealthResponse(body []byte) (*HealthResponse, error) {
	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &health, nil
}

// CreateItemRequest represents a request to create an item.
type CreateItemRequest struct {
	Name        string                  `json:"name"`
	Description optional.Option[string] `json:"description"`
}

// AssertStatusCode asserts that the response has the expected status code.
func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d. Body: %s", expected, resp.StatusCode, string(resp.Body))
	}
}

// AssertHeader asserts that the response has the expected header value.
func AssertHeader(t *testing.T, resp *Response, key, expected string) {
	t.Helper()
	actual := resp.Headers.Get(key)
	if actual != expected {
		t.Errorf("Expected header %s to be %q, got %q", key, expected, actual)
	}
}

// AssertEmptyBody asserts that the response has no body.
func AssertEmptyBody(t *testing.T, resp *Response) {
	t.Helper()
	if len(resp.Body) != 0 {
		t.Errorf("Expected empty body, got %q", string(resp.Body))
	}
}

// MustCreateItem creates an item and fails the test if the request does not
// return 201.
func MustCreateItem(ctx context.Context, t *testing.T, client *HTTPClient, req CreateItemRequest) *ItemResponse {
	t.Helper()

	resp, err := client.Post(ctx, "/items", req)
	if err != nil {
		t.Fatalf("Create request failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Create returned %d: %s", resp.StatusCode, string(resp.Body))
	}

	item, err := ParseItem(resp.Body)
	if err != nil {
		t.Fatalf("Failed to parse created item: %v", err)
	}
	return item
}

// LogTestStart logs the start of a test.
func LogTestStart(t *testing.T, testID, testName string) {
	t.Helper()
	t.Logf("Starting test %s: %s", testID, testName)
}

// LogTestEnd logs the end of a test.
func LogTestEnd(t *testing.T, testID string) {
	t.Helper()
	t.Logf("Completed test %s", testID)
}
