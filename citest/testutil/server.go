// Package testutil provides helpers for end-to-end tests: a real server on a
// random loopback port, a scriptable editor, and an SSE test client.
package testutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/opencode-ai/editorbridge/internal/editor"
	"github.com/opencode-ai/editorbridge/internal/server"
	"github.com/opencode-ai/editorbridge/internal/session"
	"github.com/opencode-ai/editorbridge/internal/tool"
)

// OpenCall records one editor invocation.
type OpenCall struct {
	Kind string // "file", "diff" or "command"
	Path string
	Ref  string
	Opts editor.OpenOptions
}

// ScriptedEditor records calls instead of launching anything. FailPaths lets
// tests inject per-file failures.
type ScriptedEditor struct {
	mu        sync.Mutex
	calls     []OpenCall
	FailPaths map[string]bool
}

func NewScriptedEditor() *ScriptedEditor {
	return &ScriptedEditor{FailPaths: make(map[string]bool)}
}

func (e *ScriptedEditor) OpenFile(ctx context.Context, path string, opts editor.OpenOptions) error {
	return e.record(OpenCall{Kind: "file", Path: path, Opts: opts})
}

func (e *ScriptedEditor) OpenDiff(ctx context.Context, path, ref string, opts editor.OpenOptions) error {
	return e.record(OpenCall{Kind: "diff", Path: path, Ref: ref, Opts: opts})
}

func (e *ScriptedEditor) ExecuteCommand(ctx context.Context, command string, args []string) (any, error) {
	if err := e.record(OpenCall{Kind: "command", Path: command}); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (e *ScriptedEditor) record(call OpenCall) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FailPaths[call.Path] {
		return fmt.Errorf("scripted failure for %s", call.Path)
	}
	e.calls = append(e.calls, call)
	return nil
}

// Calls returns a copy of the recorded invocations.
func (e *ScriptedEditor) Calls() []OpenCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]OpenCall, len(e.calls))
	copy(out, e.calls)
	return out
}

// Reset clears recorded invocations.
func (e *ScriptedEditor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

// TestServer wraps a running server instance for testing.
type TestServer struct {
	Server   *server.Server
	BaseURL  string
	Editor   *ScriptedEditor
	Sessions *session.Manager
	ToolReg  *tool.Registry
	port     int
}

// StartTestServer starts a real server on a random loopback port and waits
// until it answers health checks.
func StartTestServer() (*TestServer, error) {
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load(".env")

	port, err := findAvailablePort()
	if err != nil {
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}

	ed := NewScriptedEditor()
	registry := tool.NewRegistry(ed)
	sessions := session.NewManager()

	cfg := server.DefaultConfig()
	cfg.Port = port
	cfg.Version = "citest"

	srv := server.New(cfg, registry, sessions)

	go func() {
		_ = srv.Start()
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := waitForServer(baseURL, 10*time.Second); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		return nil, fmt.Errorf("server failed to start: %w", err)
	}

	return &TestServer{
		Server:   srv,
		BaseURL:  baseURL,
		Editor:   ed,
		Sessions: sessions,
		ToolReg:  registry,
		port:     port,
	}, nil
}

// Stop shuts down the test server.
func (ts *TestServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return ts.Server.Shutdown(ctx)
}

// SSEClient returns a new SSE client for this server.
func (ts *TestServer) SSEClient() *SSEClient {
	return NewSSEClient(ts.BaseURL)
}

// findAvailablePort finds an available TCP port.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// waitForServer polls /health until the server answers or the timeout lapses.
func waitForServer(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %s", timeout)
}
