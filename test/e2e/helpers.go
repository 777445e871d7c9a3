//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/corpusai/corpusd/internal/api/handlers"
	"github.com/corpusai/corpusd/internal/domain"
	"github.com/corpusai/corpusd/internal/server"
	"github.com/corpusai/corpusd/internal/service"
)

const testVersion = "1.0.0"

var testModels = []string{"gpt-4o-mini", "gpt-4o"}

// E2ETestEnv holds the in-process server and the resources behind it.
// It runs in memory mode with a canned chat client, so the full HTTP
// surface is exercised without external services.
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	Service      *service.RAGService
	Chat         *cannedChatClient
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv wires the memory-mode stack behind a real HTTP listener.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	store, err := service.NewSettingsStore(ctx, nil)
	if err != nil {
		t.Fatalf("failed to create settings store: %v", err)
	}

	chat := &cannedChatClient{}
	svc := service.NewRAGService(
		service.NewMemoryIndex(),
		service.NewMemoryRegistry(),
		store,
		chat,
		nil,
		nil,
		service.RAGConfig{Model: "gpt-4o-mini", Temperature: 0.2},
	)

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, svc, store, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		Service:      svc,
		Chat:         chat,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("PUT", path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// UploadDocument registers a document through the API and returns its ID.
func (e *E2ETestEnv) UploadDocument(content, filename string, tags []string, metadata map[string]any) (string, error) {
	resp, err := e.Post("/documents", map[string]any{
		"content":  content,
		"filename": filename,
		"tags":     tags,
		"metadata": metadata,
	})
	if err != nil {
		return "", err
	}

	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, svc *service.RAGService, store *service.SettingsStore, port int) (string, func()) {
	cfg := server.RouterConfig{
		QueryHandler:    handlers.NewQueryHandler(svc),
		DocumentHandler: handlers.NewDocumentHandler(svc),
		SettingsHandler: handlers.NewSettingsHandler(store),
		AgentHandler:    handlers.NewAgentHandler(svc, 0.2),
		StatusHandler:   handlers.NewStatusHandler(svc, false, testVersion, testModels),
	}

	router := server.NewRouter(cfg)
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// cannedChatClient returns queued replies, or a deterministic default
// answer when the queue is empty. Safe for concurrent requests.
type cannedChatClient struct {
	mu      sync.Mutex
	replies []domain.ChatMessage
}

// Enqueue appends replies to be returned by subsequent completions.
func (c *cannedChatClient) Enqueue(replies ...domain.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, replies...)
}

func (c *cannedChatClient) ChatCompletion(ctx context.Context, req domain.ChatRequest) (domain.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) > 0 {
		reply := c.replies[0]
		c.replies = c.replies[1:]
		return reply, nil
	}
	return domain.ChatMessage{
		Role:    domain.ChatRoleAssistant,
		Content: "Answered from the provided context.",
	}, nil
}
