package colog

import (
	"log/slog"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/fatih/color"
	slogformatter "github.com/samber/slog-formatter"
	"gitlab.com/tozd/go/errors"
)

// maxStackFrames caps rendered stack traces to keep lines readable.
const maxStackFrames = 20

func stackTraceFormatter(frames *runtime.Frames) string {
	var stackLines []string

	for len(stackLines) < maxStackFrames {
		frame, more := frames.Next()
		stackLines = append(stackLines, color.GreenString(frame.File)+":"+
			color.BlueString(strconv.Itoa(frame.Line))+": "+
			color.HiWhiteString(frame.Function))
		if !more {
			break
		}
	}

	return strings.Join(stackLines, " -> ")
}

// ErrorFormatter transforms a plain go error attribute into a group with
// its message and concrete type. It is the fallback for errors without
// stack information.
func ErrorFormatter(fieldName string) slogformatter.Formatter {
	return slogformatter.FormatByFieldType(fieldName, func(err error) slog.Value {
		return slog.GroupValue(
			slog.String("message", err.Error()),
			slog.String("type", reflect.TypeOf(err).String()),
		)
	})
}

// TozdErrorFormatter formats gitlab.com/tozd/go/errors values with their
// details, cause chain and a colored stack trace.
func TozdErrorFormatter() slogformatter.Formatter {
	return slogformatter.FormatByType(func(v errors.E) slog.Value {
		attrs := []slog.Attr{slog.String("message", v.Error())}

		if details := errors.Details(v); len(details) > 0 {
			var detailAttrs []any
			for k, val := range details {
				detailAttrs = append(detailAttrs, slog.Any(k, val))
			}
			attrs = append(attrs, slog.Group("details", detailAttrs...))
		}

		if stackTracer, ok := v.(interface{ StackTrace() []uintptr }); ok {
			if stackTrace := stackTracer.StackTrace(); len(stackTrace) > 0 {
				frames := runtime.CallersFrames(stackTrace)
				attrs = append(attrs, slog.String("stacktrace", stackTraceFormatter(frames)))
			}
		}

		if cause := errors.Cause(v); cause != nil && cause != error(v) {
			attrs = append(attrs, slog.String("cause", cause.Error()))
		}

		return slog.GroupValue(attrs...)
	})
}
