// Package transport adapts inbound HTTP requests to the MCP streamable HTTP
// transport, one short-lived binding per request.
// file: internal/transport/transport.go
package transport

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/marekdano/weather-mcp-server/internal/fsm"
	"github.com/marekdano/weather-mcp-server/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// BindingObserver is notified when bindings open and close.
type BindingObserver interface {
	BindingOpened()
	BindingClosed()
}

// Adapter is an http.Handler that gives every request its own stateless
// transport bound to one shared MCP server. No state survives a request.
type Adapter struct {
	server   *mcp.Server
	observer BindingObserver
	logger   logging.Logger

	// OnBindingClosed, if set, runs once per binding after it reaches
	// StateClosed. Set it before serving.
	OnBindingClosed func(*Binding)
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithObserver attaches a binding observer.
func WithObserver(o BindingObserver) Option {
	return func(a *Adapter) { a.observer = o }
}

// NewAdapter creates an adapter serving srv.
func NewAdapter(srv *mcp.Server, logger logging.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	a := &Adapter{
		server: srv,
		logger: logger.WithField("component", "transport_adapter"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Binding couples one request with one transport instance.
type Binding struct {
	id        string
	adapter   *Adapter
	lifecycle fsm.FSM
	handler   http.Handler
	logger    logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	server  *mcp.Server
	history []fsm.State

	closeOnce sync.Once
}

// ID returns the binding's unique id.
func (b *Binding) ID() string { return b.id }

// State returns the current lifecycle state.
func (b *Binding) State() fsm.State { return b.lifecycle.CurrentState() }

// History returns every state the binding has been in, starting with StateIdle.
func (b *Binding) History() []fsm.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]fsm.State(nil), b.history...)
}

// Context is canceled when the binding closes.
func (b *Binding) Context() context.Context { return b.ctx }

func (b *Binding) observe(s fsm.State) {
	b.mu.Lock()
	b.history = append(b.history, s)
	b.mu.Unlock()
}

// resolve is the transport's server resolver. It yields nil until the
// binding is connected, which the transport reports as a bad request.
func (b *Binding) resolve(*http.Request) *mcp.Server {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.server
}

// Close releases the binding. Safe to call more than once and from any
// goroutine; only the first call has effect.
func (b *Binding) Close() {
	b.closeOnce.Do(func() {
		b.cancel()
		if err := b.lifecycle.Transition(context.Background(), EventClose, nil); err != nil {
			b.logger.Debug("Binding close transition skipped.", "state", b.State(), "error", err)
		}
		if b.adapter.observer != nil {
			b.adapter.observer.BindingClosed()
		}
		b.logger.Debug("Binding closed.")
		if hook := b.adapter.OnBindingClosed; hook != nil {
			hook(b)
		}
	})
}

// ServeHTTP runs one request through a fresh binding.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, err := a.open(r.Context())
	if err != nil {
		a.logger.Error("Failed to create transport binding.", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer b.Close()
	// Client disconnect closes the binding before the handler returns.
	stop := context.AfterFunc(r.Context(), b.Close)
	defer stop()

	if err := b.connect(a.server); err != nil {
		b.logger.Debug("Binding closed before connect.", "error", err)
		return
	}
	if err := b.lifecycle.Transition(b.ctx, EventHandle, nil); err != nil {
		b.logger.Debug("Binding closed before handling.", "error", err)
		return
	}
	b.handler.ServeHTTP(w, r.WithContext(b.ctx))
}

// open creates a binding in StateTransportCreated.
func (a *Adapter) open(parent context.Context) (*Binding, error) {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	b := &Binding{
		id:      id,
		adapter: a,
		ctx:     ctx,
		cancel:  cancel,
		logger:  a.logger.WithField("binding_id", id),
		history: []fsm.State{StateIdle},
	}

	lifecycle, err := newLifecycle(b.logger, b.observe)
	if err != nil {
		cancel()
		return nil, err
	}
	b.lifecycle = lifecycle

	b.handler = mcp.NewStreamableHTTPHandler(b.resolve, &mcp.StreamableHTTPOptions{
		Stateless:    true,
		JSONResponse: true,
	})
	if err := lifecycle.Transition(ctx, EventCreate, nil); err != nil {
		cancel()
		return nil, err
	}
	if a.observer != nil {
		a.observer.BindingOpened()
	}
	b.logger.Debug("Binding created.")
	return b, nil
}

func (b *Binding) connect(srv *mcp.Server) error {
	b.mu.Lock()
	b.server = srv
	b.mu.Unlock()
	return b.lifecycle.Transition(b.ctx, EventConnect, nil)
}
