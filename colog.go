package colog

import (
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/lmittmann/tint"
	slogformatter "github.com/samber/slog-formatter"
	slogmulti "github.com/samber/slog-multi"
	"gitlab.com/tozd/go/errors"

	"github.com/colog-io/colog/termcap"
)

// Custom log levels extending slog.Level
const (
	LevelDebug    slog.Level = slog.LevelDebug
	LevelInfo     slog.Level = slog.LevelInfo
	LevelWarning  slog.Level = slog.LevelWarn
	LevelError    slog.Level = slog.LevelError
	LevelCritical slog.Level = 12
)

// levelNames maps level strings to slog.Level values
var levelNames = map[string]slog.Level{
	"debug":    LevelDebug,
	"info":     LevelInfo,
	"warn":     LevelWarning, // alias for warning
	"warning":  LevelWarning,
	"error":    LevelError,
	"critical": LevelCritical,
}

// reverseLevelNames maps slog.Level values to canonical string names
var reverseLevelNames = map[slog.Level]string{
	LevelDebug:    "DEBUG",
	LevelInfo:     "INFO",
	LevelWarning:  "WARNING",
	LevelError:    "ERROR",
	LevelCritical: "CRITICAL",
}

// levelColorNumbers drives tint's level coloring in the tint renderer.
var levelColorNumbers = map[string]uint8{
	"DEBUG":    2,
	"INFO":     4,
	"WARNING":  3,
	"ERROR":    1,
	"CRITICAL": 9,
}

// LevelName returns the canonical name of a level. Levels outside the
// canonical set render through slog.Level.String and pass through the
// level-rule table unstyled.
func LevelName(level slog.Level) string {
	if name, ok := reverseLevelNames[level]; ok {
		return name
	}
	return level.String()
}

// Renderer selects the rendering backend for the global logger.
type Renderer int

const (
	// RendererTemplate renders through the ColoredFormatter template.
	RendererTemplate Renderer = iota
	// RendererTint renders through lmittmann/tint's layout instead.
	RendererTint
)

// Config holds configuration for the global stderr logger.
type Config struct {
	EnableColors bool // disabled automatically if the terminal has no color support
	Renderer     Renderer
	Format       string // message-format template for RendererTemplate
	TimeFormat   string // timestamp format for RendererTint and time attrs
}

// defaultConfig provides default configuration
var defaultConfig = Config{
	EnableColors: true,
	Renderer:     RendererTemplate,
	Format:       DefaultFormat,
	TimeFormat:   time.RFC3339,
}

// Environment toggles consumed by Setup for the panic hook.
const (
	envColoredPanics  = "COLOG_COLORED_PANICS"
	envDarkBackground = "COLOG_DARK_BACKGROUND"
)

var (
	programLevel = new(slog.LevelVar) // Info by default
	mu           sync.RWMutex         // protects logger configuration changes
	config       Config               // current configuration
	configMu     sync.RWMutex         // protects configuration changes
	installed    bool                 // Setup has installed the default logger
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	config = defaultConfig
	initializeProcessor()
}

// colorsActive reports the effective color decision for a config.
func colorsActive(c Config) bool {
	return c.EnableColors && termcap.IsColorEnabled()
}

// plainRegistry resolves every code to "", for color-disabled rendering.
var plainRegistry = termcap.New(termcap.Options{
	IsTerminal: func() bool { return false },
	LookupEnv:  func(string) (string, bool) { return "", false },
})

// createBaseHandler creates the stderr handler chain for the current
// configuration: the configured renderer, wrapped with the error and
// time formatters, fanned out to the callback event handler.
func createBaseHandler(level slog.Leveler) (slog.Handler, error) {
	configMu.RLock()
	c := config
	configMu.RUnlock()

	colors := colorsActive(c)

	// Keep third-party output on the same color decision.
	pp.SetDefaultOutput(os.Stderr)
	pp.Default.SetColoringEnabled(colors)
	color.NoColor = !colors

	var base slog.Handler
	switch c.Renderer {
	case RendererTint:
		base = tint.NewHandler(os.Stderr, &tint.Options{
			Level:       level,
			TimeFormat:  c.TimeFormat,
			NoColor:     !colors,
			AddSource:   true,
			ReplaceAttr: replaceLogLevel,
		})
	default:
		opts := &HandlerOptions{Level: level, Format: c.Format}
		if !c.EnableColors {
			opts.Registry = plainRegistry
		}
		handler, err := NewHandler(os.Stderr, opts)
		if err != nil {
			return nil, err
		}
		base = handler
	}

	formatterHandler := slogformatter.NewFormatterHandler(
		TozdErrorFormatter(),
		ErrorFormatter("error"),
		slogformatter.TimeFormatter(c.TimeFormat, time.Local),
	)

	return slogmulti.Fanout(formatterHandler(base), NewEventHandler()), nil
}

// replaceLogLevel customizes level display names for the tint renderer.
func replaceLogLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			if name, exists := reverseLevelNames[level]; exists {
				a.Value = slog.StringValue(name)
				a = tint.Attr(levelColorNumbers[name], a)
			}
		}
	}
	return a
}

// Setup builds the colorized stderr handler chain and installs it as the
// slog default logger. When COLOG_COLORED_PANICS is enabled in the
// environment the panic hook is armed as well; an unavailable
// highlighter only disables that extra, never the logger.
func Setup() error {
	handler, err := createBaseHandler(programLevel)
	if err != nil {
		return err
	}

	mu.Lock()
	slog.SetDefault(slog.New(handler))
	installed = true
	mu.Unlock()

	if termcap.EnvEnabled(envColoredPanics) {
		_ = EnableColoredPanics(termcap.EnvEnabled(envDarkBackground))
	}
	return nil
}

// reinstall rebuilds the default logger after a configuration change,
// if Setup has run before.
func reinstall() error {
	mu.RLock()
	active := installed
	mu.RUnlock()
	if !active {
		return nil
	}
	handler, err := createBaseHandler(programLevel)
	if err != nil {
		return err
	}
	mu.Lock()
	slog.SetDefault(slog.New(handler))
	mu.Unlock()
	return nil
}

// SetLevel sets the minimum log level
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// GetLevel returns the current minimum log level
func GetLevel() slog.Level {
	return programLevel.Level()
}

// SetLevelFromString sets the log level from a string representation.
// Supported levels: debug, info, warn/warning, error, critical.
// The comparison is case-insensitive.
func SetLevelFromString(levelStr string) error {
	if levelStr == "" {
		return errors.New("log level cannot be empty")
	}

	normalizedLevel := strings.ToLower(strings.TrimSpace(levelStr))

	level, exists := levelNames[normalizedLevel]
	if !exists {
		return errors.Errorf("invalid log level %q: supported levels are %s",
			levelStr, supportedLevelsString())
	}

	programLevel.Set(level)
	return nil
}

// GetLevelString returns the current log level as a string
func GetLevelString() string {
	return LevelName(GetLevel())
}

// IsLevelEnabled checks if logging is enabled for the given level
func IsLevelEnabled(level slog.Level) bool {
	return GetLevel() <= level
}

// supportedLevelsString returns a comma-separated string of supported log levels
func supportedLevelsString() string {
	var levels []string
	seen := make(map[slog.Level]bool)

	for name, level := range levelNames {
		if !seen[level] {
			levels = append(levels, name)
			seen[level] = true
		}
	}

	return strings.Join(levels, ", ")
}

// SetConfig updates the configuration and reinstalls the logger.
func SetConfig(c Config) error {
	configMu.Lock()
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.TimeFormat == "" {
		c.TimeFormat = defaultConfig.TimeFormat
	}
	config = c
	configMu.Unlock()
	return reinstall()
}

// GetConfig returns the current configuration
func GetConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return config
}

// EnableColors enables or disables colored output
func EnableColors(enabled bool) error {
	configMu.Lock()
	config.EnableColors = enabled
	configMu.Unlock()
	return reinstall()
}

// IsColorsEnabled returns true if colors are enabled and the terminal
// supports them
func IsColorsEnabled() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return colorsActive(config)
}

// SetTimeFormat sets the time format for log timestamps
func SetTimeFormat(format string) error {
	configMu.Lock()
	config.TimeFormat = format
	configMu.Unlock()
	return reinstall()
}

// Dump pretty-prints values to stderr for quick diagnostics, honoring
// the process color decision.
func Dump(values ...any) {
	pp.Println(values...)
}
