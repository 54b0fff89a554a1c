package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"delayed-task-queue/internal/types"
	"delayed-task-queue/pkg/logger"
)

var ErrNoHandler = errors.New("no handler registered for task kind")

// Handler performs the effect of one task kind.
type Handler func(ctx context.Context, task types.Task) error

// Executor dispatches claimed tasks to the handler registered for their
// kind.
type Executor struct {
	mu       sync.RWMutex
	handlers map[types.TaskKind]Handler

	out    io.Writer
	outMu  sync.Mutex
	client *http.Client
	barURL string
}

type Option func(*Executor)

// WithOutput sets where the built-in handlers print. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Executor) { e.out = w }
}

func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) { e.client = c }
}

func WithBarURL(url string) Option {
	return func(e *Executor) { e.barURL = url }
}

// New returns an executor with the Foo, Bar and Baz handlers registered.
func New(opts ...Option) *Executor {
	e := &Executor{
		handlers: make(map[types.TaskKind]Handler),
		out:      os.Stdout,
		client:   &http.Client{Timeout: 30 * time.Second},
		barURL:   "https://www.whattimeisitrightnow.com/",
	}
	for _, opt := range opts {
		opt(e)
	}

	e.handlers[types.KindFoo] = e.runFoo
	e.handlers[types.KindBar] = e.runBar
	e.handlers[types.KindBaz] = e.runBaz
	return e
}

// Register replaces the handler for kind.
func (e *Executor) Register(kind types.TaskKind, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[kind] = h
}

// Execute runs the handler for task.Kind once. A panicking handler is
// reported as an error.
func (e *Executor) Execute(ctx context.Context, task types.Task) (err error) {
	e.mu.RLock()
	h, ok := e.handlers[task.Kind]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, task.Kind)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("task %s panicked: %v\n%s", task.ID, r, debug.Stack())
			err = fmt.Errorf("task %s panicked: %v", task.ID, r)
		}
	}()
	return h(ctx, task)
}

func (e *Executor) writeLine(format string, args ...any) {
	e.outMu.Lock()
	defer e.outMu.Unlock()
	fmt.Fprintf(e.out, format+"\n", args...)
}
