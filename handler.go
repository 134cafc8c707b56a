package colog

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/colog-io/colog/termcap"
)

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Level reports the minimum record level. Defaults to slog.LevelInfo.
	Level slog.Leveler

	// Format is the message-format template, DefaultFormat when empty.
	Format string

	// Name is the logger name rendered for the {logger} tag. Groups
	// opened with WithGroup are appended dot-separated.
	Name string

	// Rule overrides, merged over the package defaults.
	AttributeStyles map[string]Style
	LevelStyles     map[string]Style
	KeywordRules    []KeywordRule

	// Registry overrides the process-wide default registry.
	Registry *termcap.Registry
}

// Handler is a slog.Handler that renders records through a
// ColoredFormatter and writes one line per record.
type Handler struct {
	opts      HandlerOptions
	formatter *ColoredFormatter
	w         io.Writer
	mu        *sync.Mutex
	name      string
	attrs     []slog.Attr
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler creates a colorizing handler writing to w.
func NewHandler(w io.Writer, opts *HandlerOptions) (*Handler, error) {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	o := *opts
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Name == "" {
		o.Name = "root"
	}

	var fopts []FormatterOption
	if o.Registry != nil {
		fopts = append(fopts, WithRegistry(o.Registry))
	}
	if o.AttributeStyles != nil {
		fopts = append(fopts, WithAttributeStyles(o.AttributeStyles))
	}
	if o.LevelStyles != nil {
		fopts = append(fopts, WithLevelStyles(o.LevelStyles))
	}
	if o.KeywordRules != nil {
		fopts = append(fopts, WithKeywordRules(o.KeywordRules))
	}
	formatter, err := NewColoredFormatter(o.Format, fopts...)
	if err != nil {
		return nil, err
	}

	return &Handler{
		opts:      o,
		formatter: formatter,
		w:         w,
		mu:        &sync.Mutex{},
		name:      o.Name,
	}, nil
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	function, line := sourceOf(r.PC)
	rendered, err := h.formatter.Format(Record{
		Level:    LevelName(r.Level),
		Logger:   h.name,
		Line:     line,
		Function: function,
		Message:  r.Message,
	})
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(rendered)
	for _, attr := range h.attrs {
		b.WriteByte(' ')
		b.WriteString(attr.String())
	}
	r.Attrs(func(attr slog.Attr) bool {
		b.WriteByte(' ')
		b.WriteString(attr.String())
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	h2.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.name = h.name + "." + name
	return h2
}

func (h *Handler) clone() *Handler {
	h2 := *h
	return &h2
}

// sourceOf resolves the record PC into a short function name and line.
func sourceOf(pc uintptr) (function string, line int) {
	if pc == 0 {
		return "unknown", 0
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown", 0
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	function = frame.Function
	if idx := strings.LastIndex(function, "."); idx != -1 {
		function = function[idx+1:]
	}
	return function, frame.Line
}
