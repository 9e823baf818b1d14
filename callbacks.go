package ttylog

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Callback receives every event logged at the level it was registered for.
type Callback func(ev Event)

type callbackEntry struct {
	callback Callback
	id       string
}

// callbackHandler sits next to the appenders in the fan-out and queues
// events for the registered callbacks.
type callbackHandler struct {
	level  slog.Leveler
	pid    int
	attrs  []slog.Attr
	groups []string
}

func newCallbackHandler(level slog.Leveler, pid int) slog.Handler {
	return &callbackHandler{level: level, pid: pid}
}

func (h *callbackHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *callbackHandler) Handle(ctx context.Context, r slog.Record) error {
	p := currentProcessor()
	if p == nil || p.stopped.Load() || !p.hasCallbacks(r.Level) {
		return nil
	}

	ev := newEvent(ctx, h.pid, r, h.groups, h.attrs)
	level := r.Level

	// never block the logging call
	select {
	case p.eventChan <- queuedEvent{level: level, event: ev}:
	default:
		log.Println("ttylog: callback event queue full, dropping event")
	}
	return nil
}

func (h *callbackHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *callbackHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

type queuedEvent struct {
	level slog.Level
	event Event
}

const callbackQueueSize = 1000

// eventProcessor dispatches queued events off the logging path. Each
// callback runs on its own goroutine, so a callback may call Shutdown or
// RestartProcessor without waiting on itself.
type eventProcessor struct {
	eventChan   chan queuedEvent
	callbacks   map[slog.Level][]callbackEntry
	callbacksMu sync.RWMutex
	wg          sync.WaitGroup
	shutdown    chan struct{}
	once        sync.Once
	stopped     atomic.Bool
}

var (
	processor   *eventProcessor
	processorMu sync.Mutex
	callbackSeq atomic.Uint64
)

func init() {
	processor = startProcessor()
}

// currentProcessor returns the running processor, nil after Shutdown.
func currentProcessor() *eventProcessor {
	processorMu.Lock()
	defer processorMu.Unlock()
	return processor
}

// ensureProcessor returns the running processor, starting one after Shutdown.
func ensureProcessor() *eventProcessor {
	processorMu.Lock()
	defer processorMu.Unlock()
	if processor == nil {
		processor = startProcessor()
	}
	return processor
}

func startProcessor() *eventProcessor {
	p := &eventProcessor{
		eventChan: make(chan queuedEvent, callbackQueueSize),
		callbacks: make(map[slog.Level][]callbackEntry),
		shutdown:  make(chan struct{}),
	}
	p.wg.Add(1)
	go p.processEvents()
	return p
}

func (p *eventProcessor) hasCallbacks(level slog.Level) bool {
	p.callbacksMu.RLock()
	defer p.callbacksMu.RUnlock()
	return len(p.callbacks[level]) > 0
}

func (p *eventProcessor) processEvents() {
	defer p.wg.Done()

	for {
		select {
		case qe := <-p.eventChan:
			p.executeCallbacks(qe)
		case <-p.shutdown:
			// drain what is already queued
			for {
				select {
				case qe := <-p.eventChan:
					p.executeCallbacks(qe)
				default:
					return
				}
			}
		}
	}
}

func (p *eventProcessor) executeCallbacks(qe queuedEvent) {
	p.callbacksMu.RLock()
	callbacks := p.callbacks[qe.level]
	p.callbacksMu.RUnlock()

	for _, entry := range callbacks {
		go safeExecuteCallback(entry.callback, qe.event)
	}
}

func safeExecuteCallback(callback Callback, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ttylog: callback panic recovered: %v\n%s", r, debug.Stack())
		}
	}()
	callback(ev)
}

// stop dispatches what is already queued and ends the processor goroutine.
// It does not wait for dispatched callbacks to return.
func (p *eventProcessor) stop() {
	p.once.Do(func() {
		p.stopped.Store(true)
		close(p.shutdown)
		p.wg.Wait()
	})
}

// RegisterCallback registers callback for events at level and returns an id
// for UnregisterCallback.
func RegisterCallback(level slog.Level, callback Callback) string {
	p := ensureProcessor()

	p.callbacksMu.Lock()
	defer p.callbacksMu.Unlock()

	id := fmt.Sprintf("callback_%d_%d", level, callbackSeq.Add(1))
	p.callbacks[level] = append(p.callbacks[level], callbackEntry{callback: callback, id: id})
	return id
}

// UnregisterCallback removes a callback by id. It reports whether one was removed.
func UnregisterCallback(level slog.Level, callbackID string) bool {
	p := currentProcessor()
	if p == nil {
		return false
	}

	p.callbacksMu.Lock()
	defer p.callbacksMu.Unlock()

	callbacks := p.callbacks[level]
	for i, entry := range callbacks {
		if entry.id == callbackID {
			p.callbacks[level] = append(callbacks[:i:i], callbacks[i+1:]...)
			return true
		}
	}
	return false
}

// ClearCallbacks removes all callbacks for level.
func ClearCallbacks(level slog.Level) {
	p := currentProcessor()
	if p == nil {
		return
	}

	p.callbacksMu.Lock()
	defer p.callbacksMu.Unlock()
	delete(p.callbacks, level)
}

// ClearAllCallbacks removes every registered callback.
func ClearAllCallbacks() {
	p := currentProcessor()
	if p == nil {
		return
	}

	p.callbacksMu.Lock()
	defer p.callbacksMu.Unlock()
	p.callbacks = make(map[slog.Level][]callbackEntry)
}

// CallbackCount returns the number of callbacks registered for level.
func CallbackCount(level slog.Level) int {
	p := currentProcessor()
	if p == nil {
		return 0
	}

	p.callbacksMu.RLock()
	defer p.callbacksMu.RUnlock()
	return len(p.callbacks[level])
}

// Shutdown dispatches the queued events and stops the callback processor.
// Registered callbacks are dropped; a later RegisterCallback starts a new
// processor. It is safe to call from inside a callback.
func Shutdown() {
	processorMu.Lock()
	p := processor
	processor = nil
	processorMu.Unlock()

	if p != nil {
		p.stop()
	}
}

// RestartProcessor drains and replaces the callback processor. Registered
// callbacks are dropped. Mostly useful between tests.
func RestartProcessor() {
	processorMu.Lock()
	p := processor
	processor = startProcessor()
	processorMu.Unlock()

	if p != nil {
		p.stop()
	}
}
