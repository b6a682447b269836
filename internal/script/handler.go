package script

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/weakbus/internal/event"
)

// DefaultTimeout bounds a single on_event call.
const DefaultTimeout = 2 * time.Second

// Global names a script uses to talk to the handler.
const (
	globalInterest = "interest"
	globalID       = "id"
	globalCallback = "on_event"
	globalLog      = "log"
)

// Option configures a Handler.
type Option func(*Handler)

// WithTimeout sets the limit for one on_event call. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.timeout = d
	}
}

// WithLogger sets the logger behind the script's log function.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Handler is an event.Handler backed by a Lua script.
//
// The Lua state is guarded by a mutex, so a Handler may be registered on
// buses driven by different goroutines.
type Handler struct {
	name    string
	id      int
	flags   event.Flags
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	L        *lua.LState
	callback *lua.LFunction
	closed   bool
	calls    int
}

// Load reads and runs the script at path and returns its handler.
func Load(path string, opts ...Option) (*Handler, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return LoadString(name, string(code), opts...)
}

// LoadString runs code as a script called name and returns its handler.
func LoadString(name, code string, opts ...Option) (*Handler, error) {
	h := &Handler{
		name:    name,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("script", name)

	h.L = newState()
	h.L.SetGlobal(globalLog, h.L.NewFunction(h.luaLog))

	if err := h.init(code); err != nil {
		h.L.Close()
		return nil, &ScriptError{Script: name, Err: err}
	}
	return h, nil
}

// LoadDir loads every *.lua file in dir, in file name order. A missing
// directory yields no handlers.
func LoadDir(dir string, opts ...Option) ([]*Handler, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	sort.Strings(paths)

	handlers := make([]*Handler, 0, len(paths))
	for _, path := range paths {
		h, err := Load(path, opts...)
		if err != nil {
			for _, loaded := range handlers {
				loaded.Close()
			}
			return nil, err
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}

func (h *Handler) init(code string) error {
	if err := h.L.DoString(code); err != nil {
		return err
	}

	switch v := h.L.GetGlobal(globalInterest).(type) {
	case lua.LNumber:
		h.flags = event.Flags(uint32(int64(v)))
	case *lua.LNilType:
		h.flags = event.FlagAll
	default:
		return fmt.Errorf("%w, got %s", ErrBadInterest, v.Type())
	}

	if v, ok := h.L.GetGlobal(globalID).(lua.LNumber); ok {
		h.id = int(v)
	} else {
		h.id = event.NextID()
	}

	fn, ok := h.L.GetGlobal(globalCallback).(*lua.LFunction)
	if !ok {
		return ErrNoCallback
	}
	h.callback = fn
	return nil
}

// Name returns the script name.
func (h *Handler) Name() string {
	return h.name
}

// ID implements event.Handler.
func (h *Handler) ID() int {
	return h.id
}

// InterestFlags implements event.Handler.
func (h *Handler) InterestFlags() event.Flags {
	return h.flags
}

// Calls returns how many events the script has received.
func (h *Handler) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// Update implements event.Handler by calling the script's on_event.
// A string returned by the script becomes the delivery error.
func (h *Handler) Update(e event.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	h.calls++

	if h.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		h.L.SetContext(ctx)
		defer h.L.RemoveContext()
	}

	err := h.L.CallByParam(lua.P{
		Fn:      h.callback,
		NRet:    1,
		Protect: true,
	}, h.eventTable(e))
	if err != nil {
		return &ScriptError{Script: h.name, Err: err}
	}

	ret := h.L.Get(-1)
	h.L.Pop(1)
	if msg, ok := ret.(lua.LString); ok {
		return &ScriptError{Script: h.name, Err: fmt.Errorf("%s", string(msg))}
	}
	return nil
}

// Close releases the Lua state. Later deliveries fail with ErrClosed.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.L.Close()
	h.closed = true
}

// eventTable builds the argument passed to on_event.
func (h *Handler) eventTable(e event.Event) *lua.LTable {
	tbl := h.L.NewTable()
	flags := e.Flags()
	tbl.RawSetString("flags", lua.LNumber(flags))
	tbl.RawSetString("flags_name", lua.LString(flags.String()))

	if m, ok := e.(*event.Message); ok {
		tbl.RawSetString("id", lua.LString(m.ID.String()))
		tbl.RawSetString("source", lua.LString(m.Source))
		tbl.RawSetString("payload", toLValue(h.L, m.Payload))
		tbl.RawSetString("timestamp", lua.LNumber(m.Timestamp.Unix()))
	}
	return tbl
}

// luaLog is the script's log(msg) function.
func (h *Handler) luaLog(L *lua.LState) int {
	h.logger.Info(L.CheckString(1))
	return 0
}

var _ event.Handler = (*Handler)(nil)
