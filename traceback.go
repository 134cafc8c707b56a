package colog

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
	"gitlab.com/tozd/go/errors"

	"github.com/colog-io/colog/termcap"
)

// ErrHighlightingUnavailable reports that the syntax highlighter cannot
// serve colored tracebacks. It is returned from EnableColoredPanics, not
// deferred to the first panic.
var ErrHighlightingUnavailable = errors.Base("traceback highlighting is unavailable")

const (
	tracebackLexer    = "go"
	terminalFormatter = "terminal256"
	darkStyle         = "monokai"
	lightStyle        = "friendly"
)

// panicHook is the process-wide registration for colored panic output.
// Enable and disable are idempotent.
type panicHook struct {
	mu      sync.Mutex
	colored bool
	dark    bool
}

var hook panicHook

// EnableColoredPanics arms the panic hook so HandlePanic renders
// syntax-highlighted tracebacks, using a dark or light color scheme.
// It is a no-op when the terminal has no color support, and fails up
// front with ErrHighlightingUnavailable when the highlighter cannot
// produce terminal output.
func EnableColoredPanics(dark bool) error {
	if !termcap.IsColorEnabled() {
		return nil
	}
	if lexers.Get(tracebackLexer) == nil || formatters.Get(terminalFormatter) == nil {
		return errors.WithDetails(ErrHighlightingUnavailable,
			"lexer", tracebackLexer, "formatter", terminalFormatter)
	}

	hook.mu.Lock()
	defer hook.mu.Unlock()
	hook.colored = true
	hook.dark = dark
	return nil
}

// DisableColoredPanics disarms the panic hook. Idempotent.
func DisableColoredPanics() {
	hook.mu.Lock()
	defer hook.mu.Unlock()
	hook.colored = false
}

// HighlightTraceback renders traceback text through the syntax
// highlighter with a dark or light terminal color scheme. A highlighting
// failure returns the error; callers fall back to the plain text.
func HighlightTraceback(text string, dark bool) (string, error) {
	style := lightStyle
	if dark {
		style = darkStyle
	}
	var b strings.Builder
	if err := quick.Highlight(&b, text, tracebackLexer, terminalFormatter, style); err != nil {
		return "", errors.WithMessage(err, "highlighting traceback")
	}
	return b.String(), nil
}

// HandlePanic is deferred at the top of main. When the goroutine is
// panicking it prints the traceback to stderr, highlighted if the hook
// is armed, and exits nonzero. Highlighting failure never drops the
// traceback text.
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}

	text := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())

	hook.mu.Lock()
	colored, dark := hook.colored, hook.dark
	hook.mu.Unlock()

	if colored {
		if highlighted, err := HighlightTraceback(text, dark); err == nil {
			text = highlighted
		}
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	os.Stderr.WriteString(text)
	os.Exit(2)
}
