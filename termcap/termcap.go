// Package termcap resolves symbolic color and attribute names to the
// control sequences supported by the terminal attached to stderr.
//
// The resolution is performed once per process by querying the terminfo
// database through tput. When stderr is not an interactive color-capable
// terminal, or when color is disabled through the environment, every
// name resolves to the empty string so callers degrade to plain text.
package termcap

import (
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"gitlab.com/tozd/go/errors"
)

// Symbolic code names understood by Resolve.
const (
	Black       = "black"
	Red         = "red"
	Green       = "green"
	Yellow      = "yellow"
	Blue        = "blue"
	Purple      = "purple"
	Cyan        = "cyan"
	Gray        = "gray"
	LightBlack  = "light_black"
	LightRed    = "light_red"
	LightGreen  = "light_green"
	LightYellow = "light_yellow"
	LightBlue   = "light_blue"
	LightPurple = "light_purple"
	LightCyan   = "light_cyan"
	White       = "white"
	Blink       = "blink"
	Bold        = "bold"
	Italics     = "italics"
	Standout    = "standout"
	Underline   = "underline"
	Reset       = "reset"
)

// Default environment toggles, following the CLICOLOR convention.
const (
	DefaultDisableVar = "CLICOLOR"
	DefaultForceVar   = "CLICOLOR_FORCE"
)

// ErrCapabilityMissing reports that the terminfo database has no entry
// for the requested capability on the current terminal. Queries failing
// with this error degrade to an empty code instead of an error.
var ErrCapabilityMissing = errors.Base("terminal capability missing")

// codenameToCapname maps symbolic names to terminfo capability queries.
var codenameToCapname = map[string]string{
	Black:       "setaf 0",
	Red:         "setaf 1",
	Green:       "setaf 2",
	Yellow:      "setaf 3",
	Blue:        "setaf 4",
	Purple:      "setaf 5",
	Cyan:        "setaf 6",
	Gray:        "setaf 7",
	LightBlack:  "setaf 8",
	LightRed:    "setaf 9",
	LightGreen:  "setaf 10",
	LightYellow: "setaf 11",
	LightBlue:   "setaf 12",
	LightPurple: "setaf 13",
	LightCyan:   "setaf 14",
	White:       "setaf 15",
	Blink:       "blink",
	Bold:        "bold",
	Italics:     "sitm",
	Standout:    "smso",
	Underline:   "smul",
	Reset:       "sgr0",
}

// colorNames marks the names that belong to the color family. These are
// the only names suppressed when the terminal has fewer than 8 colors.
var colorNames = map[string]struct{}{
	Black: {}, Red: {}, Green: {}, Yellow: {}, Blue: {}, Purple: {},
	Cyan: {}, Gray: {}, LightBlack: {}, LightRed: {}, LightGreen: {},
	LightYellow: {}, LightBlue: {}, LightPurple: {}, LightCyan: {}, White: {},
}

// QueryFunc performs one terminfo capability lookup. The capability is a
// space-separated tput argument list such as "setaf 1" or "colors".
type QueryFunc func(capability string) (string, error)

// Options configures a Registry. Zero values select the real process
// environment: a tput subprocess, isatty on stderr, os.LookupEnv and the
// build GOOS. Tests inject fakes through these fields.
type Options struct {
	Query      QueryFunc
	IsTerminal func() bool
	LookupEnv  func(string) (string, bool)
	GOOS       string

	// ForceVar and DisableVar name the environment toggles. DisableVar
	// always wins over ForceVar and over terminal interactivity.
	ForceVar   string
	DisableVar string
}

// Registry is the process-wide source of truth for terminal control
// sequences. The full code table is initialized exactly once, on first
// use, and is immutable afterwards even if the terminal state changes.
type Registry struct {
	opts Options

	colorOnce    sync.Once
	colorEnabled bool

	initOnce sync.Once
	codes    map[string]string
	initErr  error
}

// New returns a Registry with unset options replaced by their real
// process-environment defaults.
func New(opts Options) *Registry {
	if opts.Query == nil {
		opts.Query = tputQuery
	}
	if opts.IsTerminal == nil {
		opts.IsTerminal = func() bool { return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) }
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if opts.ForceVar == "" {
		opts.ForceVar = DefaultForceVar
	}
	if opts.DisableVar == "" {
		opts.DisableVar = DefaultDisableVar
	}
	return &Registry{opts: opts}
}

var std = New(Options{})

// Default returns the process-wide registry bound to stderr.
func Default() *Registry { return std }

// Resolve resolves name through the default registry.
func Resolve(name string) (string, error) { return std.Resolve(name) }

// IsColorEnabled reports the default registry's color decision.
func IsColorEnabled() bool { return std.IsColorEnabled() }

// enabledValue reports whether an environment value is an explicit
// "on" token: on/enabled/activated/yes/true or a nonzero digit string.
func enabledValue(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "on", "enabled", "activated", "yes", "true":
		return true
	}
	n, err := strconv.Atoi(value)
	return err == nil && n != 0
}

// disabledValue reports whether an environment value is an explicit
// "off" token: off/disabled/deactivated/no/false or a zero digit string.
func disabledValue(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "off", "disabled", "deactivated", "no", "false":
		return true
	}
	n, err := strconv.Atoi(value)
	return err == nil && n == 0
}

// EnvEnabled reports whether the named variable is set to an "on" token.
func EnvEnabled(name string) bool {
	value, ok := os.LookupEnv(name)
	return ok && enabledValue(value)
}

// EnvDisabled reports whether the named variable is set to an "off" token.
func EnvDisabled(name string) bool {
	value, ok := os.LookupEnv(name)
	return ok && disabledValue(value)
}

func (r *Registry) envEnabled(name string) bool {
	value, ok := r.opts.LookupEnv(name)
	return ok && enabledValue(value)
}

func (r *Registry) envDisabled(name string) bool {
	value, ok := r.opts.LookupEnv(name)
	return ok && disabledValue(value)
}

// streamColorable reports whether the stream may carry color at all:
// not explicitly disabled, and either forced or an interactive terminal.
func (r *Registry) streamColorable() bool {
	return !r.envDisabled(r.opts.DisableVar) &&
		(r.envEnabled(r.opts.ForceVar) || r.opts.IsTerminal())
}

// terminalSupported additionally gates on platforms with a terminfo
// facility. Elsewhere capability support is considered entirely absent.
func (r *Registry) terminalSupported() bool {
	switch r.opts.GOOS {
	case "linux", "darwin":
		return r.streamColorable()
	}
	return false
}

// IsColorEnabled reports whether color codes should be emitted: color is
// not disabled, and is either forced or the terminal advertises at least
// 8 colors. The decision is made once and never re-evaluated.
func (r *Registry) IsColorEnabled() bool {
	r.colorOnce.Do(func() {
		if r.envDisabled(r.opts.DisableVar) {
			return
		}
		if r.envEnabled(r.opts.ForceVar) {
			r.colorEnabled = true
			return
		}
		r.colorEnabled = r.terminalSupported() && r.colorCount() >= 8
	})
	return r.colorEnabled
}

// colorCount queries the number of colors the terminal supports. Any
// query failure counts as no color support.
func (r *Registry) colorCount() int {
	out, err := r.opts.Query("colors")
	if err != nil {
		return 0
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return 0
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0
	}
	return n
}

// Resolve returns the control sequence for a symbolic name, or "" when
// the capability is unsupported or color output is not wanted. The first
// call initializes the whole table; an environment fault during that
// initialization (an unexpected tput failure) is returned from every
// call, since color support cannot be determined safely.
func (r *Registry) Resolve(name string) (string, error) {
	r.initOnce.Do(r.initCodes)
	if r.initErr != nil {
		return "", r.initErr
	}
	code, ok := r.codes[name]
	if !ok {
		return "", errors.Errorf("unknown terminal code name %q", name)
	}
	return code, nil
}

func (r *Registry) initCodes() {
	codes := make(map[string]string, len(codenameToCapname))
	if !r.terminalSupported() {
		for name := range codenameToCapname {
			codes[name] = ""
		}
		r.codes = codes
		return
	}
	hasColor := r.IsColorEnabled()
	for name, capname := range codenameToCapname {
		if _, isColor := colorNames[name]; isColor && !hasColor {
			codes[name] = ""
			continue
		}
		code, err := r.queryCode(capname)
		if err != nil {
			r.initErr = err
			return
		}
		codes[name] = code
	}
	r.codes = codes
}

// queryCode wraps the capability query with the degradation rules: a
// missing tput binary or a missing capability yields an empty code, any
// other failure is an environment fault.
func (r *Registry) queryCode(capability string) (string, error) {
	out, err := r.opts.Query(capability)
	if err != nil {
		if errors.Is(err, ErrCapabilityMissing) || errors.Is(err, exec.ErrNotFound) {
			return "", nil
		}
		return "", errors.WithMessage(err, "querying terminfo database")
	}
	return out, nil
}

// tputQuery shells out to tput. A return code of 1 indicates a missing
// terminal capability and maps to ErrCapabilityMissing.
func tputQuery(capability string) (string, error) {
	out, err := exec.Command("tput", strings.Fields(capability)...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == 1 {
				return "", errors.WithMessage(ErrCapabilityMissing, capability)
			}
			return "", errors.WithDetails(
				errors.Errorf("tput %s: %w", capability, err),
				"stderr", string(exitErr.Stderr),
			)
		}
		return "", errors.WithStack(err)
	}
	return string(out), nil
}
