package server

import (
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Observer receives server lifecycle, connection, and message events.
//
// All callbacks are delivered on a single dispatch goroutine, so
// implementations never need their own synchronization and observe a
// serialized view of the event stream. Callbacks must not block
// indefinitely; long-running work should be handed off to its own
// goroutine rather than executed inline, since it delays later events.
//
// Embed NoopObserver to implement only the methods you need.
type Observer interface {
	// OnStart is called exactly once after the server begins accepting
	// connections. host is the bound interface ("" for all interfaces) and
	// port is the bound port, which for an ephemeral Start(0) is the
	// OS-assigned value.
	OnStart(host string, port uint16)

	// OnStop is called exactly once per run after the server has stopped.
	// err is nil for a deliberate Stop, or the fatal transport error that
	// forced the stop.
	OnStop(err error)

	// OnError reports a transport error during an active run. It does not
	// by itself mean the server stopped; a fatal error is followed by
	// OnStop.
	OnError(err error)

	// OnHTTPRequestUnmatched is consulted when no route matches a request.
	// Returning a non-nil response serves it; returning nil makes the
	// server respond with a generic 404.
	OnHTTPRequestUnmatched(req *Request) *Response

	// OnWebSocketConnect is called after a connection is registered.
	// path is the request path of the upgrade, without the query string.
	OnWebSocketConnect(id string, path string)

	// OnWebSocketDisconnect is called after a connection is removed from
	// the registry. err is nil for a clean close. A disconnected ID is
	// never reused; a reconnect produces a brand-new ID.
	OnWebSocketDisconnect(id string, err error)

	// OnWebSocketMessage is called for every message received from a
	// client.
	OnWebSocketMessage(id string, msg Message)
}

// NoopObserver implements Observer with no-ops for every method.
type NoopObserver struct{}

// OnStart implements Observer.
func (NoopObserver) OnStart(string, uint16) {}

// OnStop implements Observer.
func (NoopObserver) OnStop(error) {}

// OnError implements Observer.
func (NoopObserver) OnError(error) {}

// OnHTTPRequestUnmatched implements Observer.
func (NoopObserver) OnHTTPRequestUnmatched(*Request) *Response { return nil }

// OnWebSocketConnect implements Observer.
func (NoopObserver) OnWebSocketConnect(string, string) {}

// OnWebSocketDisconnect implements Observer.
func (NoopObserver) OnWebSocketDisconnect(string, error) {}

// OnWebSocketMessage implements Observer.
func (NoopObserver) OnWebSocketMessage(string, Message) {}

// dispatcher serializes observer callbacks onto a single goroutine.
// One dispatcher exists per server run; it is created in Start and drained
// in Stop after the stopped event has been queued.
type dispatcher struct {
	observer Observer
	queue    chan func()
	done     chan struct{}

	// runGoid is the ID of the dispatch goroutine, recorded when run
	// starts. Used to detect observer callbacks re-entering the server.
	runGoid atomic.Uint64

	mu     sync.Mutex
	closed bool

	// onDrop is invoked when a droppable event is discarded because the
	// queue is full.
	onDrop func()
}

func newDispatcher(observer Observer, size int, onDrop func()) *dispatcher {
	if observer == nil {
		observer = NoopObserver{}
	}
	if size <= 0 {
		size = 256
	}
	return &dispatcher{
		observer: observer,
		queue:    make(chan func(), size),
		done:     make(chan struct{}),
		onDrop:   onDrop,
	}
}

// run delivers queued events until shutdown. It must be the only goroutine
// invoking observer callbacks.
func (d *dispatcher) run() {
	d.runGoid.Store(goroutineID())
	defer close(d.done)
	for fn := range d.queue {
		if fn == nil {
			return
		}
		fn()
	}
}

// dispatch queues an event, dropping it if the queue is full or the
// dispatcher has shut down. Used for message-rate events where dropping
// under pressure is preferable to stalling transport reads.
func (d *dispatcher) dispatch(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	select {
	case d.queue <- fn:
	default:
		if d.onDrop != nil {
			d.onDrop()
		}
	}
}

// mustDispatch queues an event, blocking until there is room.
// Used for lifecycle and connection events, which are never dropped.
// The lock is held through the send so shutdown cannot slip in between the
// closed check and the enqueue; the run goroutine drains independently, so
// the send always completes.
//
// When called from the dispatch goroutine itself (an observer callback
// re-entered the server, e.g. a disconnect issued from a message handler)
// the event is delivered inline instead: the caller is the only goroutine
// allowed to invoke callbacks, and a blocking enqueue from it would
// deadlock once the queue fills.
func (d *dispatcher) mustDispatch(fn func()) {
	if d.onDispatchGoroutine() {
		d.mu.Lock()
		closed := d.closed
		d.mu.Unlock()
		if !closed {
			fn()
		}
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.queue <- fn
}

// onDispatchGoroutine reports whether the caller is the dispatch goroutine.
func (d *dispatcher) onDispatchGoroutine() bool {
	id := d.runGoid.Load()
	return id != 0 && id == goroutineID()
}

// call queues fn and waits for the dispatch goroutine to execute it.
// It returns false without executing fn when the dispatcher has shut down.
// Used for the unmatched-request hook, whose result the caller needs while
// still honoring the single-callback-context contract.
func (d *dispatcher) call(fn func()) bool {
	ran := make(chan struct{})
	d.mustDispatch(func() {
		fn()
		close(ran)
	})

	select {
	case <-ran:
		return true
	case <-d.done:
		return false
	}
}

// shutdown stops the dispatcher after all queued events have been
// delivered, and waits for the dispatch goroutine to exit.
func (d *dispatcher) shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	d.queue <- nil
	d.mu.Unlock()

	<-d.done
}

// goroutineID returns the numeric ID of the calling goroutine, parsed from
// its stack header ("goroutine N [running]: ...").
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = b[len("goroutine "):]
	for i := 0; i < len(b); i++ {
		if b[i] == ' ' {
			b = b[:i]
			break
		}
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
