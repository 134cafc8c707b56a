package colog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/valyala/fasttemplate"
	"gitlab.com/tozd/go/errors"

	"github.com/colog-io/colog/termcap"
)

// Style is an ordered list of symbolic termcap code names applied as one
// combined control sequence, e.g. Style{termcap.Red, termcap.Bold}.
type Style []string

// KeywordRule colorizes free-text message content matching Pattern
// (case-insensitive). A pattern with one capture group colorizes only
// the captured span and drops the surrounding delimiter characters.
type KeywordRule struct {
	Pattern string
	Style   Style
}

// DefaultFormat is the default message-format template. Tags are
// substituted with the record's rendered fields.
const DefaultFormat = "[{level}] ({logger}:{line}:{function}): {message}"

// DefaultAttributeStyles colorizes structured record fields.
var DefaultAttributeStyles = map[string]Style{
	"function": {termcap.Blue},
	"line":     {termcap.Yellow},
	"logger":   {termcap.Cyan},
}

// DefaultLevelStyles colorizes the severity-level token.
var DefaultLevelStyles = map[string]Style{
	"DEBUG":    {termcap.Green, termcap.Bold},
	"INFO":     {termcap.Blue, termcap.Bold},
	"WARNING":  {termcap.Yellow, termcap.Bold},
	"ERROR":    {termcap.Red, termcap.Bold},
	"CRITICAL": {termcap.Red, termcap.Blink, termcap.Bold},
}

// DefaultKeywordRules colorizes severity words and lightweight markup in
// message text. Order matters: the first rule matching at a position
// wins, so specific word patterns come before generic markup patterns.
var DefaultKeywordRules = []KeywordRule{
	{`\bcritical(?: error)?\b`, Style{termcap.Red, termcap.Blink, termcap.Bold}},
	{`\bdebug(?:ged|ging)?\b`, Style{termcap.Green, termcap.Bold}},
	{`\berror\b`, Style{termcap.Red, termcap.Bold}},
	{`\bfail(?:ed|ing)?\b`, Style{termcap.Red, termcap.Bold}},
	{`\binfo\b`, Style{termcap.Blue, termcap.Bold}},
	{`\bwarn(?:ed|ing)?\b`, Style{termcap.Yellow, termcap.Bold}},
	{`"[^"]*"`, Style{termcap.Yellow}},
	{`\*([^*]+)\*`, Style{termcap.Italics}},
	{`\*\*([^*]+)\*\*`, Style{termcap.Bold}},
	{`__([^_]+)__`, Style{termcap.Underline}},
	{"`([^`]+)`", Style{termcap.Standout}},
}

// Record is the presentation-only view of one log record consumed by the
// formatter. It never influences routing or level decisions.
type Record struct {
	Level    string
	Logger   string
	Line     int
	Function string
	Message  string
}

// ColoredFormatter renders a Record as one styled line. Rule sets are
// fixed at construction: supplied entries override same-keyed defaults,
// non-overridden defaults survive.
type ColoredFormatter struct {
	template        *fasttemplate.Template
	codes           *termcap.Registry
	attributeStyles map[string]Style
	levelStyles     map[string]Style
	keywordRules    []KeywordRule
	combined        *regexp.Regexp
	ruleMatchers    []*regexp.Regexp
}

// FormatterOption configures a ColoredFormatter.
type FormatterOption func(*ColoredFormatter)

// WithAttributeStyles merges styles over DefaultAttributeStyles.
func WithAttributeStyles(styles map[string]Style) FormatterOption {
	return func(f *ColoredFormatter) {
		for attr, style := range styles {
			f.attributeStyles[attr] = style
		}
	}
}

// WithLevelStyles merges styles over DefaultLevelStyles.
func WithLevelStyles(styles map[string]Style) FormatterOption {
	return func(f *ColoredFormatter) {
		for level, style := range styles {
			f.levelStyles[level] = style
		}
	}
}

// WithKeywordRules merges rules over DefaultKeywordRules: a rule whose
// pattern matches an existing one replaces its style in place, keeping
// the default precedence order; new patterns are appended after it.
func WithKeywordRules(rules []KeywordRule) FormatterOption {
	return func(f *ColoredFormatter) {
		for _, rule := range rules {
			replaced := false
			for i := range f.keywordRules {
				if f.keywordRules[i].Pattern == rule.Pattern {
					f.keywordRules[i].Style = rule.Style
					replaced = true
					break
				}
			}
			if !replaced {
				f.keywordRules = append(f.keywordRules, rule)
			}
		}
	}
}

// WithRegistry resolves codes through reg instead of the process-wide
// default registry.
func WithRegistry(reg *termcap.Registry) FormatterOption {
	return func(f *ColoredFormatter) { f.codes = reg }
}

// NewColoredFormatter builds a formatter for the given message-format
// template. It fails on an invalid template or keyword pattern.
func NewColoredFormatter(format string, opts ...FormatterOption) (*ColoredFormatter, error) {
	template, err := fasttemplate.NewTemplate(format, "{", "}")
	if err != nil {
		return nil, errors.WithMessage(err, "parsing message format")
	}

	f := &ColoredFormatter{
		template:        template,
		codes:           termcap.Default(),
		attributeStyles: make(map[string]Style, len(DefaultAttributeStyles)),
		levelStyles:     make(map[string]Style, len(DefaultLevelStyles)),
		keywordRules:    make([]KeywordRule, len(DefaultKeywordRules)),
	}
	for attr, style := range DefaultAttributeStyles {
		f.attributeStyles[attr] = style
	}
	for level, style := range DefaultLevelStyles {
		f.levelStyles[level] = style
	}
	copy(f.keywordRules, DefaultKeywordRules)
	for _, opt := range opts {
		opt(f)
	}

	patterns := make([]string, len(f.keywordRules))
	f.ruleMatchers = make([]*regexp.Regexp, len(f.keywordRules))
	for i, rule := range f.keywordRules {
		matcher, err := regexp.Compile(`(?i)^(?:` + rule.Pattern + `)`)
		if err != nil {
			return nil, errors.WithMessage(err, "compiling keyword pattern")
		}
		f.ruleMatchers[i] = matcher
		patterns[i] = rule.Pattern
	}
	f.combined, err = regexp.Compile(`(?i)` + strings.Join(patterns, `|`))
	if err != nil {
		return nil, errors.WithMessage(err, "compiling keyword patterns")
	}
	return f, nil
}

// Format renders one record. An error is only returned for registry
// environment faults; rendering itself cannot fail.
func (f *ColoredFormatter) Format(rec Record) (string, error) {
	fields := map[string]any{
		"level":    rec.Level,
		"logger":   rec.Logger,
		"line":     strconv.Itoa(rec.Line),
		"function": rec.Function,
		"message":  rec.Message,
	}

	for attr, style := range f.attributeStyles {
		if attr == "level" || attr == "message" {
			continue
		}
		value, ok := fields[attr]
		if !ok {
			continue
		}
		wrapped, err := f.wrap(value.(string), style)
		if err != nil {
			return "", err
		}
		fields[attr] = wrapped
	}

	if style, ok := f.levelStyles[rec.Level]; ok {
		wrapped, err := f.wrap(rec.Level, style)
		if err != nil {
			return "", err
		}
		fields["level"] = wrapped
	}

	message, err := f.colorizeMessage(rec.Message)
	if err != nil {
		return "", err
	}
	fields["message"] = message

	return f.template.ExecuteString(fields), nil
}

// colorizeMessage rewrites every non-overlapping leftmost keyword match
// in one pass; unmatched text is untouched.
func (f *ColoredFormatter) colorizeMessage(message string) (string, error) {
	var firstErr error
	result := f.combined.ReplaceAllStringFunc(message, func(match string) string {
		replaced, err := f.colorizeMatch(match)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return match
		}
		return replaced
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// colorizeMatch finds the rule that produced a match and applies it. A
// non-empty style with a capture group colorizes only the captured span,
// dropping the delimiters; an empty resolved style leaves the match
// unchanged. A match without a producing rule means the combined pattern
// and the rule list fell out of sync, which is a programming error.
func (f *ColoredFormatter) colorizeMatch(match string) (string, error) {
	for i, rule := range f.keywordRules {
		groups := f.ruleMatchers[i].FindStringSubmatch(match)
		if groups == nil {
			continue
		}
		code, err := f.styleCode(rule.Style)
		if err != nil {
			return "", err
		}
		if code == "" {
			return groups[0], nil
		}
		text := groups[0]
		if len(groups) > 1 {
			text = groups[1]
		}
		reset, err := f.codes.Resolve(termcap.Reset)
		if err != nil {
			return "", err
		}
		return code + text + reset, nil
	}
	panic(fmt.Sprintf("colog: keyword match %q has no colorization rule", match))
}

// styleCode concatenates the resolved codes of a style.
func (f *ColoredFormatter) styleCode(style Style) (string, error) {
	var b strings.Builder
	for _, name := range style {
		code, err := f.codes.Resolve(name)
		if err != nil {
			return "", err
		}
		b.WriteString(code)
	}
	return b.String(), nil
}

// wrap surrounds text with a style's codes and the reset sequence. An
// empty resolved style returns the text unchanged.
func (f *ColoredFormatter) wrap(text string, style Style) (string, error) {
	code, err := f.styleCode(style)
	if err != nil || code == "" {
		return text, err
	}
	reset, err := f.codes.Resolve(termcap.Reset)
	if err != nil {
		return text, err
	}
	return code + text + reset, nil
}
