// Package client implements the bridge's wire protocol from the caller's
// side: it acquires a session by connecting to the SSE stream and reading the
// first endpoint event, then correlates asynchronous JSON-RPC responses back
// to their requests.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/opencode-ai/editorbridge/internal/logging"
	"github.com/opencode-ai/editorbridge/internal/protocol"
)

// rpcResponse mirrors protocol.Response with a raw result for decoding.
type rpcResponse struct {
	JSONRPC string                  `json:"jsonrpc"`
	ID      json.RawMessage         `json:"id"`
	Result  json.RawMessage         `json:"result"`
	Error   *protocol.ResponseError `json:"error"`
}

// Client is a connected bridge session.
type Client struct {
	baseURL  string
	endpoint string
	http     *http.Client

	nextID  int64
	mu      sync.Mutex
	pending map[int64]chan *rpcResponse

	body   io.ReadCloser
	cancel context.CancelFunc
	closed bool
}

// Connect opens the SSE stream and blocks until the server announces the
// session's message endpoint in the first event.
func Connect(ctx context.Context, baseURL string) (*Client, error) {
	streamCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, baseURL+"/sse", nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connect %s: %w", baseURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("connect %s: unexpected status %d", baseURL, resp.StatusCode)
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		pending: make(map[int64]chan *rpcResponse),
		body:    resp.Body,
		cancel:  cancel,
	}

	reader := bufio.NewReader(resp.Body)

	// The session handshake is exactly one frame: event "endpoint" carrying
	// the message path. Reading it synchronously (honoring ctx) replaces the
	// timed-race scrape this flow used to be.
	endpointCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		event, data, err := readFrame(reader)
		if err != nil {
			errCh <- err
			return
		}
		if event != "endpoint" {
			errCh <- fmt.Errorf("expected endpoint event, got %q", event)
			return
		}
		endpointCh <- data
	}()

	select {
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	case err := <-errCh:
		c.Close()
		return nil, fmt.Errorf("session handshake: %w", err)
	case endpoint := <-endpointCh:
		c.endpoint = endpoint
	}

	go c.readLoop(reader)

	return c, nil
}

// Endpoint returns the session's message endpoint path.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// readFrame reads one SSE frame, skipping heartbeat comments.
func readFrame(reader *bufio.Reader) (event, data string, err error) {
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if data != "" {
				return event, data, nil
			}
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

// readLoop routes stream responses to their pending calls.
func (c *Client) readLoop(reader *bufio.Reader) {
	for {
		_, data, err := readFrame(reader)
		if err != nil {
			c.failPending(err)
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			logging.Debug().Err(err).Str("data", data).Msg("skipping unparseable stream frame")
			continue
		}

		var id int64
		if err := json.Unmarshal(resp.ID, &id); err != nil {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[id]
		if ok {
			delete(c.pending, id)
		}
		c.mu.Unlock()

		if ok {
			ch <- &resp
		}
	}
}

// failPending closes all outstanding calls when the stream dies.
func (c *Client) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if len(c.pending) > 0 && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
		logging.Warn().Err(err).Int("pending", len(c.pending)).Msg("stream closed with calls outstanding")
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Call submits a JSON-RPC request and waits for its response on the stream.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("connection closed")
	}
	c.mu.Unlock()

	id := atomic.AddInt64(&c.nextID, 1)
	ch := make(chan *rpcResponse, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	req := protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      json.RawMessage(fmt.Sprintf("%d", id)),
		Method:  method,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		req.Params = data
	}

	if err := c.submit(ctx, req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp == nil {
			return nil, fmt.Errorf("connection closed")
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// submit posts the request to the session's message endpoint. The server
// only acknowledges receipt here; results arrive on the stream.
func (c *Client) submit(ctx context.Context, req protocol.Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("submit rejected: %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

// Initialize performs the MCP initialize handshake.
func (c *Client) Initialize(ctx context.Context) (*protocol.InitializeResult, error) {
	raw, err := c.Call(ctx, "initialize", nil)
	if err != nil {
		return nil, err
	}
	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTools returns the server's tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	raw, err := c.Call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var result protocol.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a named tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, args any) (*protocol.CallToolResult, error) {
	raw, err := c.Call(ctx, "tools/call", protocol.CallToolParams{
		Name:      name,
		Arguments: mustMarshal(args),
	})
	if err != nil {
		return nil, err
	}
	var result protocol.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func mustMarshal(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// Close tears down the stream; the server removes the session in response.
func (c *Client) Close() error {
	c.cancel()
	return c.body.Close()
}

// Health reports the server's health endpoint without opening a session.
func Health(ctx context.Context, baseURL string) (status string, tools int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
		Tools  int    `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, err
	}
	return body.Status, body.Tools, nil
}

// Status fetches the server's operator-facing status document.
func Status(ctx context.Context, baseURL string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}
