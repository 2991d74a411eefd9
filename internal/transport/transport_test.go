package transport

// file: internal/transport/transport_test.go

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/marekdano/weather-mcp-server/internal/fsm"
	"github.com/marekdano/weather-mcp-server/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observerSpy struct {
	opened atomic.Int32
	closed atomic.Int32
}

func (o *observerSpy) BindingOpened() { o.opened.Add(1) }
func (o *observerSpy) BindingClosed() { o.closed.Add(1) }

type closedBindings struct {
	mu       sync.Mutex
	bindings []*Binding
}

func (c *closedBindings) add(b *Binding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = append(c.bindings, b)
}

func (c *closedBindings) list() []*Binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Binding(nil), c.bindings...)
}

type testServer struct {
	url      string
	started  chan struct{}
	release  chan struct{}
	closed   *closedBindings
	observer *observerSpy
	adapter  *Adapter
}

// newTestServer serves an MCP server with an "echo" tool that answers
// immediately and a "wait" tool that blocks until release is closed or its
// context ends.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		started:  make(chan struct{}, 4),
		release:  make(chan struct{}),
		closed:   &closedBindings{},
		observer: &observerSpy{},
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: "transport-test", Version: "0.0.1"}, nil)
	object := &gschema.Schema{Type: "object"}
	srv.AddTool(&mcp.Tool{Name: "echo", InputSchema: object}, func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "echoed"}}}, nil
	})
	srv.AddTool(&mcp.Tool{Name: "wait", InputSchema: object}, func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ts.started <- struct{}{}
		select {
		case <-ts.release:
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "released"}}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	ts.adapter = NewAdapter(srv, logging.GetNoopLogger(), WithObserver(ts.observer))
	ts.adapter.OnBindingClosed = ts.closed.add

	httpSrv := httptest.NewServer(ts.adapter)
	t.Cleanup(func() {
		select {
		case <-ts.release:
		default:
			close(ts.release)
		}
		httpSrv.Close()
	})
	ts.url = httpSrv.URL
	return ts
}

func callTool(ctx context.Context, url, name string) (*http.Response, error) {
	body, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": map[string]any{}},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	return http.DefaultClient.Do(req)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestAdapter_Request_WalksLifecycleInOrder(t *testing.T) {
	ts := newTestServer(t)

	resp, err := callTool(context.Background(), ts.url, "echo")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "echoed")

	require.Eventually(t, func() bool { return len(ts.closed.list()) == 1 }, time.Second, 5*time.Millisecond)
	b := ts.closed.list()[0]
	assert.Equal(t, []fsm.State{StateIdle, StateTransportCreated, StateConnected, StateHandling, StateClosed}, b.History())
	assert.Equal(t, StateClosed, b.State())
	assert.Error(t, b.Context().Err(), "Binding context should be canceled on close.")
	assert.Equal(t, int32(1), ts.observer.opened.Load())
	assert.Equal(t, int32(1), ts.observer.closed.Load())
}

func TestAdapter_ConcurrentRequests_GetIndependentBindings(t *testing.T) {
	ts := newTestServer(t)

	slowDone := make(chan string, 1)
	go func() {
		resp, err := callTool(context.Background(), ts.url, "wait")
		if err != nil {
			slowDone <- err.Error()
			return
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		slowDone <- string(data)
	}()

	select {
	case <-ts.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Slow tool never started.")
	}

	// The second request completes while the first is still in flight.
	resp, err := callTool(context.Background(), ts.url, "echo")
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), "echoed")

	close(ts.release)
	select {
	case body := <-slowDone:
		assert.Contains(t, body, "released")
	case <-time.After(2 * time.Second):
		t.Fatal("Slow request never completed.")
	}

	require.Eventually(t, func() bool { return len(ts.closed.list()) == 2 }, time.Second, 5*time.Millisecond)
	bindings := ts.closed.list()
	assert.NotEqual(t, bindings[0].ID(), bindings[1].ID())
}

func TestAdapter_ClientDisconnect_ClosesOnlyThatBinding(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		resp, err := callTool(ctx, ts.url, "wait")
		if err == nil {
			resp.Body.Close()
		}
		errCh <- err
	}()

	select {
	case <-ts.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Slow tool never started.")
	}
	cancel()
	assert.Error(t, <-errCh)

	require.Eventually(t, func() bool { return len(ts.closed.list()) == 1 }, 2*time.Second, 5*time.Millisecond)
	dropped := ts.closed.list()[0]
	assert.Equal(t, StateClosed, dropped.State())
	assert.ErrorIs(t, dropped.Context().Err(), context.Canceled)

	resp, err := callTool(context.Background(), ts.url, "echo")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "echoed")
}

func TestBinding_Close_IsIdempotent(t *testing.T) {
	observer := &observerSpy{}
	a := NewAdapter(mcp.NewServer(&mcp.Implementation{Name: "t", Version: "0"}, nil), nil, WithObserver(observer))
	var hookCalls atomic.Int32
	a.OnBindingClosed = func(*Binding) { hookCalls.Add(1) }

	b, err := a.open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateTransportCreated, b.State())

	b.Close()
	b.Close()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, int32(1), hookCalls.Load())
	assert.Equal(t, int32(1), observer.closed.Load())
	assert.Equal(t, []fsm.State{StateIdle, StateTransportCreated, StateClosed}, b.History())
}

func TestBinding_ClosedBeforeConnect_RefusesConnect(t *testing.T) {
	a := NewAdapter(mcp.NewServer(&mcp.Implementation{Name: "t", Version: "0"}, nil), nil)
	b, err := a.open(context.Background())
	require.NoError(t, err)

	b.Close()
	assert.Error(t, b.connect(a.server))
	assert.Equal(t, StateClosed, b.State())
}

func TestLifecycle_CloseFromIdle_IsRejected(t *testing.T) {
	m, err := newLifecycle(logging.GetNoopLogger(), func(fsm.State) {})
	require.NoError(t, err)

	assert.False(t, m.CanTransition(EventClose))
	assert.Error(t, m.Transition(context.Background(), EventHandle, nil))
	assert.Equal(t, StateIdle, m.CurrentState())
}
