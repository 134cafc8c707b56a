// Package colog colorizes log lines written to a terminal, falling back
// transparently to plain text when color is unsupported.
//
// The package determines once per process, by querying the terminfo
// database, which control sequences are safe to emit on stderr (see the
// termcap subpackage), and provides a log/slog handler that wraps
// severity levels, record fields and keyword matches in message text
// with the resolved codes. Every colored span is followed by a reset.
//
// # Basic Usage
//
//	package main
//
//	import (
//	    "log/slog"
//
//	    "github.com/colog-io/colog"
//	)
//
//	func main() {
//	    defer colog.HandlePanic()
//
//	    if err := colog.Setup(); err != nil {
//	        panic(err)
//	    }
//
//	    slog.Info(`loading "config.yml"`)
//	    slog.Error("operation failed")
//	}
//
// Messages are scanned for severity words (colorized with word-boundary
// matching, so "warning" matches but "forewarning" does not), quoted
// strings, and lightweight markup: *italics*, **bold**, __underline__
// and `standout`, with the delimiters stripped from the output.
//
// # Color decision
//
// Color is emitted only when stderr is an interactive terminal that
// advertises at least 8 colors. The CLICOLOR_FORCE variable forces color
// on a non-terminal stream; CLICOLOR set to an "off" token disables it
// regardless of everything else. When tput is not installed, or a
// capability is missing from the terminfo database, output degrades to
// plain text without error.
//
// # Rule overrides
//
// Handler rule sets merge over the defaults, so overriding one rule
// keeps the rest:
//
//	handler, err := colog.NewHandler(os.Stderr, &colog.HandlerOptions{
//	    KeywordRules: []colog.KeywordRule{
//	        {Pattern: `\berror\b`, Style: colog.Style{termcap.Purple, termcap.Bold}},
//	    },
//	})
//
// # Colored panic tracebacks
//
// EnableColoredPanics arms a process-wide hook (or set
// COLOG_COLORED_PANICS in the environment before Setup); a deferred
// HandlePanic in main then prints uncaught panics syntax-highlighted
// through chroma, using a dark or light color scheme.
package colog
