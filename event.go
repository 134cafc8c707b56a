package colog

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// LogEvent represents a log event passed to callbacks
type LogEvent struct {
	Record  slog.Record
	Context context.Context
}

// LogCallback is the function signature for log event callbacks
type LogCallback func(event LogEvent)

// EventHandler is a slog.Handler that forwards records to registered
// callbacks through the asynchronous event processor.
type EventHandler struct{}

func NewEventHandler() slog.Handler {
	return &EventHandler{}
}

func (h *EventHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *EventHandler) WithGroup(name string) slog.Handler       { return h }

func (h *EventHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *EventHandler) Handle(ctx context.Context, record slog.Record) error {
	if processor == nil {
		return nil
	}

	processor.callbacksMu.RLock()
	hasCallbacks := len(processor.callbacks[record.Level]) > 0
	processor.callbacksMu.RUnlock()

	if !hasCallbacks {
		return nil
	}

	event := LogEvent{Record: record, Context: ctx}

	// Non-blocking send to avoid affecting logging performance
	select {
	case processor.eventChan <- event:
	default:
		log.Println("colog: callback event queue full, dropping event")
	}
	return nil
}

// callbackEntry holds a callback with its metadata
type callbackEntry struct {
	callback LogCallback
	id       string
}

// eventProcessor handles asynchronous callback execution
type eventProcessor struct {
	eventChan   chan LogEvent
	callbacks   map[slog.Level][]callbackEntry
	callbacksMu sync.RWMutex
	wg          sync.WaitGroup
	shutdown    chan struct{}
	once        sync.Once
}

var (
	processor   *eventProcessor // global event processor
	processorMu sync.Mutex      // protects processor initialization
)

func newEventProcessor() *eventProcessor {
	ep := &eventProcessor{
		eventChan: make(chan LogEvent, 1000),
		callbacks: make(map[slog.Level][]callbackEntry),
		shutdown:  make(chan struct{}),
	}
	ep.wg.Add(1)
	go ep.processEvents()
	return ep
}

// initializeProcessor sets up the event processor
func initializeProcessor() {
	processorMu.Lock()
	defer processorMu.Unlock()

	if processor != nil {
		return
	}
	processor = newEventProcessor()
}

// processEvents handles incoming log events and executes callbacks
func (ep *eventProcessor) processEvents() {
	defer ep.wg.Done()

	for {
		select {
		case event := <-ep.eventChan:
			ep.executeCallbacks(event)
		case <-ep.shutdown:
			// Drain remaining events before returning
			for {
				select {
				case event := <-ep.eventChan:
					ep.executeCallbacks(event)
				default:
					return
				}
			}
		}
	}
}

// executeCallbacks runs all callbacks for a specific log level
func (ep *eventProcessor) executeCallbacks(event LogEvent) {
	ep.callbacksMu.RLock()
	callbacks := ep.callbacks[event.Record.Level]
	ep.callbacksMu.RUnlock()

	for _, entry := range callbacks {
		go ep.safeExecuteCallback(entry.callback, event)
	}
}

// safeExecuteCallback executes a callback with panic recovery
func (ep *eventProcessor) safeExecuteCallback(callback LogCallback, event LogEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("colog: callback panic recovered: %v\n%s", r, debug.Stack())
		}
	}()
	callback(event)
}

// RegisterCallback registers a callback for a specific log level.
// Returns a callback ID that can be used to unregister the callback.
func RegisterCallback(level slog.Level, callback LogCallback) string {
	initializeProcessor()

	processor.callbacksMu.Lock()
	defer processor.callbacksMu.Unlock()

	id := fmt.Sprintf("callback_%d_%d", level, time.Now().UnixNano())
	processor.callbacks[level] = append(processor.callbacks[level], callbackEntry{
		callback: callback,
		id:       id,
	})
	return id
}

// UnregisterCallback removes a callback by its ID
func UnregisterCallback(level slog.Level, callbackID string) bool {
	if processor == nil {
		return false
	}

	processor.callbacksMu.Lock()
	defer processor.callbacksMu.Unlock()

	callbacks := processor.callbacks[level]
	for i, entry := range callbacks {
		if entry.id == callbackID {
			processor.callbacks[level] = append(callbacks[:i], callbacks[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAllCallbacks removes all registered callbacks
func ClearAllCallbacks() {
	if processor == nil {
		return
	}

	processor.callbacksMu.Lock()
	defer processor.callbacksMu.Unlock()
	processor.callbacks = make(map[slog.Level][]callbackEntry)
}

// GetCallbackCount returns the number of callbacks registered for a level
func GetCallbackCount(level slog.Level) int {
	if processor == nil {
		return 0
	}

	processor.callbacksMu.RLock()
	defer processor.callbacksMu.RUnlock()
	return len(processor.callbacks[level])
}

// Shutdown gracefully shuts down the event processor
func Shutdown() {
	if processor == nil {
		return
	}

	processor.once.Do(func() {
		close(processor.shutdown)
		processor.wg.Wait()
	})
}

// RestartProcessor shuts down the current processor and creates a new
// one. This is mainly used for testing to ensure clean state.
func RestartProcessor() {
	processorMu.Lock()
	defer processorMu.Unlock()

	if processor != nil {
		select {
		case <-processor.shutdown:
		default:
			close(processor.shutdown)
		}
		processor.wg.Wait()
	}
	processor = newEventProcessor()
}
