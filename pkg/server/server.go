package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Server is an embeddable HTTP and WebSocket server. It owns the listening
// socket, the route table, and the connection registry, and reports events
// to a registered Observer.
//
// A stopped Server can be started again; each run gets its own event
// dispatch goroutine.
type Server struct {
	config     *Config
	logger     *slog.Logger
	routes     *routeTable
	registry   *registry
	upgrader   websocket.Upgrader
	middleware []Middleware

	// sem bounds parallel HTTP request handling when Concurrency is set.
	sem chan struct{}

	mu         sync.Mutex
	observer   Observer
	running    bool
	port       uint16
	host       string
	listener   net.Listener
	httpServer *http.Server
	events     *dispatcher
	stopped    *sync.Once
}

// New creates a Server with the given configuration.
// A nil config uses DefaultConfig; unset fields are filled with defaults.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.Clone()
		defaults := DefaultConfig()
		if config.ReadTimeout == 0 {
			config.ReadTimeout = defaults.ReadTimeout
		}
		if config.WriteTimeout == 0 {
			config.WriteTimeout = defaults.WriteTimeout
		}
		if config.PingInterval == 0 {
			config.PingInterval = defaults.PingInterval
		}
		if config.MaxMessageSize == 0 {
			config.MaxMessageSize = defaults.MaxMessageSize
		}
		if config.ReadBufferSize == 0 {
			config.ReadBufferSize = defaults.ReadBufferSize
		}
		if config.WriteBufferSize == 0 {
			config.WriteBufferSize = defaults.WriteBufferSize
		}
		if config.SendBufferSize == 0 {
			config.SendBufferSize = defaults.SendBufferSize
		}
		if config.EventQueueSize == 0 {
			config.EventQueueSize = defaults.EventQueueSize
		}
		if config.CheckOrigin == nil {
			config.CheckOrigin = defaults.CheckOrigin
		}
	}

	s := &Server{
		config:   config,
		logger:   slog.Default().With("component", "server"),
		routes:   newRouteTable(),
		registry: newRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	if config.Concurrency > 0 {
		s.sem = make(chan struct{}, config.Concurrency)
	}
	return s
}

// SetObserver registers the observer receiving server events.
// Call it before Start; the observer is fixed for the duration of a run.
func (s *Server) SetObserver(o Observer) {
	s.mu.Lock()
	s.observer = o
	s.mu.Unlock()
}

// SetLogger sets the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Config returns the server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Use appends middleware applied around matched route handlers.
// Call it before Start.
func (s *Server) Use(mw ...Middleware) {
	s.middleware = append(s.middleware, mw...)
}

// Route registers a handler for the given method and path pattern.
// Safe to call before or after Start. Patterns may contain literal
// segments, ":name" parameter segments, and a trailing "*name" wildcard;
// the first registered matching route wins.
func (s *Server) Route(method, pattern string, h Handler) {
	s.routes.add(method, pattern, h)
}

// GET registers a GET route.
func (s *Server) GET(pattern string, h Handler) { s.Route(http.MethodGet, pattern, h) }

// POST registers a POST route.
func (s *Server) POST(pattern string, h Handler) { s.Route(http.MethodPost, pattern, h) }

// PUT registers a PUT route.
func (s *Server) PUT(pattern string, h Handler) { s.Route(http.MethodPut, pattern, h) }

// DELETE registers a DELETE route.
func (s *Server) DELETE(pattern string, h Handler) { s.Route(http.MethodDelete, pattern, h) }

// PATCH registers a PATCH route.
func (s *Server) PATCH(pattern string, h Handler) { s.Route(http.MethodPatch, pattern, h) }

// HEAD registers a HEAD route.
func (s *Server) HEAD(pattern string, h Handler) { s.Route(http.MethodHead, pattern, h) }

// OPTIONS registers an OPTIONS route.
func (s *Server) OPTIONS(pattern string, h Handler) { s.Route(http.MethodOptions, pattern, h) }

// Start binds the listening socket and begins accepting connections.
// Port 0 requests an ephemeral port; Port reports the bound value.
// An optional interface restricts the bind address ("" binds all).
//
// Returns a *BindError when the socket cannot be bound and
// ErrAlreadyRunning when the server is already started. On success the
// observer's OnStart fires exactly once.
func (s *Server) Start(port uint16, iface ...string) error {
	host := ""
	if len(iface) > 0 {
		host = iface[0]
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		s.mu.Unlock()
		return &BindError{Port: port, Interface: host, Err: err}
	}
	boundPort := uint16(ln.Addr().(*net.TCPAddr).Port)

	d := newDispatcher(s.observer, s.config.EventQueueSize, s.config.Metrics.recordEventDropped)
	srv := &http.Server{Handler: s}
	once := new(sync.Once)

	s.running = true
	s.port = boundPort
	s.host = host
	s.listener = ln
	s.httpServer = srv
	s.events = d
	s.stopped = once
	s.mu.Unlock()

	go d.run()
	d.mustDispatch(func() {
		d.observer.OnStart(host, boundPort)
	})

	s.logger.Info("server started", "host", host, "port", boundPort)

	go s.serveLoop(srv, ln, d, once)
	return nil
}

// serveLoop runs the accept loop for one run. A fatal accept error stops
// that run; a loop whose run has already been superseded by a restart must
// not touch the new run, so the captured server is checked against the
// current one before acting.
func (s *Server) serveLoop(srv *http.Server, ln net.Listener, d *dispatcher, once *sync.Once) {
	err := srv.Serve(ln)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}

	s.mu.Lock()
	current := s.httpServer == srv
	s.mu.Unlock()
	if !current {
		return
	}

	d.mustDispatch(func() {
		d.observer.OnError(err)
	})
	s.finishStop(once, d, srv, err)
}

// Stop ceases accepting new connections, force-closes all WebSocket
// connections, and stops the HTTP listener. It is idempotent: stopping an
// already-stopped server is a no-op, and the observer's OnStop fires
// exactly once per run.
func (s *Server) Stop() {
	s.stopWith(nil)
}

// stopWith stops the current run. cause is nil for a deliberate stop, or
// the fatal transport error that forced it.
//
// When called from an observer callback the stop completes on its own
// goroutine: finishing inline would deadlock, because shutdown waits for
// the dispatch goroutine, which is the one running the callback.
func (s *Server) stopWith(cause error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	once, d, srv := s.stopped, s.events, s.httpServer
	s.mu.Unlock()

	if d.onDispatchGoroutine() {
		go s.finishStop(once, d, srv, cause)
		return
	}
	s.finishStop(once, d, srv, cause)
}

// finishStop performs the stop sequence for the run identified by once.
// The run state is cleared before the registry is drained, so an upgrade
// racing with the stop either registers in time to be torn down here or
// sees the run gone and closes its connection.
func (s *Server) finishStop(once *sync.Once, d *dispatcher, srv *http.Server, cause error) {
	once.Do(func() {
		s.mu.Lock()
		s.running = false
		s.listener = nil
		s.httpServer = nil
		s.events = nil
		s.mu.Unlock()

		srv.Close()

		for _, c := range s.registry.snapshot() {
			c.teardown(nil)
		}

		d.mustDispatch(func() {
			d.observer.OnStop(cause)
		})
		d.shutdown()

		s.logger.Info("server stopped", "error", cause)
	})
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Port returns the bound port of the current (or most recent) run.
// For Start(0) this is the OS-assigned ephemeral port.
func (s *Server) Port() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Handler returns an http.Handler for mounting the server's route dispatch
// inside an external router (chi, stdlib mux, ...). Observer events and
// WebSocket upgrades require the server's own transport via Start; mounted
// handlers serve HTTP routes only.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.ServeHTTP)
}

// ServeHTTP implements http.Handler. WebSocket upgrade requests are routed
// to the connection handler on any path; everything else goes through the
// route table.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.handleWebSocket(w, r)
		return
	}

	if s.sem != nil {
		s.sem <- struct{}{}
		defer func() { <-s.sem }()
	}

	start := time.Now()
	resp := s.handleHTTP(r)
	if err := resp.write(w); err != nil {
		s.logger.Debug("response write failed", "path", r.URL.Path, "error", err)
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	s.config.Metrics.recordHTTPRequest(r.Method, status, time.Since(start))
}

// handleHTTP translates the request, matches a route, and runs the handler
// through the middleware chain.
func (s *Server) handleHTTP(r *http.Request) *Response {
	req, err := newRequest(r)
	if err != nil {
		return Text(http.StatusBadRequest, "Bad Request")
	}

	handler, params, ok := s.routes.match(req.Method, req.Path)
	if !ok {
		return s.unmatched(req)
	}
	req.Params = params

	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}

	resp := s.invoke(handler, req)
	if resp == nil {
		resp = NewResponse(http.StatusOK)
	}
	return resp
}

// invoke runs a handler with panic recovery. A panic is reported through
// the observer's error event and answered with a 500.
func (s *Server) invoke(h Handler, req *Request) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("handler panic",
				"method", req.Method,
				"path", req.Path,
				"panic", rec,
				"stack", string(debug.Stack()))
			s.notify(func(o Observer) {
				o.OnError(fmt.Errorf("server: handler panic on %s %s: %v", req.Method, req.Path, rec))
			})
			resp = Text(http.StatusInternalServerError, "Internal Server Error")
		}
	}()
	return h(req)
}

// unmatched handles the defined no-route branch: consult the observer's
// unmatched-request hook on the dispatch context, and fall back to a
// generic 404 when it declines.
func (s *Server) unmatched(req *Request) *Response {
	s.mu.Lock()
	d := s.events
	s.mu.Unlock()

	if d != nil {
		var resp *Response
		if d.call(func() { resp = d.observer.OnHTTPRequestUnmatched(req) }) && resp != nil {
			return resp
		}
	}
	return Text(http.StatusNotFound, "Not Found")
}

// handleWebSocket upgrades the request and registers the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	d := s.events
	s.mu.Unlock()
	if d == nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "path", r.URL.Path, "error", err)
		return
	}

	c := &client{
		server: s,
		conn:   conn,
		events: d,
		path:   r.URL.Path,
		send:   make(chan outbound, s.config.SendBufferSize),
		done:   make(chan struct{}),
	}

	// The upgrade hijacked the connection, so a concurrent Stop no longer
	// reaches it through the http.Server. Register under the server lock
	// only if this run is still current; otherwise the connection would
	// outlive the stop unobserved.
	s.mu.Lock()
	if !s.running || s.events != d {
		s.mu.Unlock()
		conn.Close()
		return
	}
	c.id = s.registry.register(c)
	s.mu.Unlock()

	c.logger = s.logger.With("client_id", c.id)
	s.config.Metrics.recordConnect()

	d.mustDispatch(func() {
		d.observer.OnWebSocketConnect(c.id, c.path)
	})

	go c.writePump()
	go c.readLoop()
}

// notify queues an observer callback on the current run's dispatcher.
// No-op when the server is not running.
func (s *Server) notify(fn func(Observer)) {
	s.mu.Lock()
	d := s.events
	s.mu.Unlock()
	if d == nil {
		return
	}
	d.dispatch(func() { fn(d.observer) })
}

// SendText sends a text message to the identified client.
// An unknown ID is a silent no-op: the client may have disconnected
// between the caller's decision and the send.
func (s *Server) SendText(id, text string) {
	s.sendTo(id, outbound{opcode: websocket.TextMessage, data: []byte(text)})
}

// SendData sends a binary message to the identified client.
// An unknown ID is a silent no-op.
func (s *Server) SendData(id string, data []byte) {
	s.sendTo(id, outbound{opcode: websocket.BinaryMessage, data: data})
}

func (s *Server) sendTo(id string, out outbound) {
	c, ok := s.registry.lookup(id)
	if !ok {
		return
	}
	c.trySend(out)
}

// BroadcastText sends a text message to every currently registered
// connection. Delivery is best-effort over a registry snapshot:
// connections that disconnect mid-broadcast are skipped, and connections
// arriving mid-broadcast are not guaranteed to receive it.
func (s *Server) BroadcastText(text string) {
	s.broadcast(outbound{opcode: websocket.TextMessage, data: []byte(text)})
}

// BroadcastData sends a binary message to every currently registered
// connection, with the same best-effort semantics as BroadcastText.
func (s *Server) BroadcastData(data []byte) {
	s.broadcast(outbound{opcode: websocket.BinaryMessage, data: data})
}

func (s *Server) broadcast(out outbound) {
	s.config.Metrics.recordBroadcast()
	for _, c := range s.registry.snapshot() {
		c.trySend(out)
	}
}

// Disconnect gracefully closes the identified connection: in-flight writes
// finish, then a close frame is sent. Unknown IDs are a silent no-op.
func (s *Server) Disconnect(id string) {
	if c, ok := s.registry.lookup(id); ok {
		c.closeGraceful()
	}
}

// DisconnectImmediately aborts the identified connection without waiting
// for queued writes. Unknown IDs are a silent no-op.
func (s *Server) DisconnectImmediately(id string) {
	if c, ok := s.registry.lookup(id); ok {
		c.teardown(nil)
	}
}

// ConnectionIDs returns a snapshot of the identifiers of currently open
// WebSocket connections.
func (s *Server) ConnectionIDs() []string {
	return s.registry.ids()
}

// ConnectionCount returns the number of open WebSocket connections.
func (s *Server) ConnectionCount() int {
	return s.registry.len()
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
