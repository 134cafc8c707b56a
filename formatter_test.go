package colog

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gitlab.com/tozd/go/errors"

	"github.com/colog-io/colog/termcap"
)

// testCodes is a readable stand-in for resolved terminfo codes.
var testCodes = map[string]string{
	"colors":   "256",
	"setaf 0":  "<black>",
	"setaf 1":  "<red>",
	"setaf 2":  "<green>",
	"setaf 3":  "<yellow>",
	"setaf 4":  "<blue>",
	"setaf 5":  "<purple>",
	"setaf 6":  "<cyan>",
	"setaf 7":  "<gray>",
	"setaf 8":  "<light_black>",
	"setaf 9":  "<light_red>",
	"setaf 10": "<light_green>",
	"setaf 11": "<light_yellow>",
	"setaf 12": "<light_blue>",
	"setaf 13": "<light_purple>",
	"setaf 14": "<light_cyan>",
	"setaf 15": "<white>",
	"blink":    "<blink>",
	"bold":     "<bold>",
	"sitm":     "<italics>",
	"smso":     "<standout>",
	"smul":     "<underline>",
	"sgr0":     "<reset>",
}

func testRegistry() *termcap.Registry {
	return termcap.New(termcap.Options{
		Query: func(capability string) (string, error) {
			code, ok := testCodes[capability]
			if !ok {
				return "", errors.WithMessage(termcap.ErrCapabilityMissing, capability)
			}
			return code, nil
		},
		IsTerminal: func() bool { return true },
		LookupEnv:  func(string) (string, bool) { return "", false },
		GOOS:       "linux",
	})
}

func plainTestRegistry() *termcap.Registry {
	return termcap.New(termcap.Options{
		Query:      func(string) (string, error) { return "", errors.New("must not be queried") },
		IsTerminal: func() bool { return false },
		LookupEnv:  func(string) (string, bool) { return "", false },
		GOOS:       "linux",
	})
}

type FormatterSuite struct {
	suite.Suite
}

func (suite *FormatterSuite) newFormatter(opts ...FormatterOption) *ColoredFormatter {
	opts = append([]FormatterOption{WithRegistry(testRegistry())}, opts...)
	f, err := NewColoredFormatter(DefaultFormat, opts...)
	suite.Require().NoError(err)
	return f
}

func (suite *FormatterSuite) format(f *ColoredFormatter, rec Record) string {
	line, err := f.Format(rec)
	suite.Require().NoError(err)
	return line
}

func (suite *FormatterSuite) TestFullLine() {
	f := suite.newFormatter()
	line := suite.format(f, Record{
		Level: "INFO", Logger: "root", Line: 42, Function: "main", Message: "ready",
	})
	suite.Equal(
		"[<blue><bold>INFO<reset>] (<cyan>root<reset>:<yellow>42<reset>:<blue>main<reset>): ready",
		line)
}

func (suite *FormatterSuite) TestKeywordAndQuoteColorized() {
	f := suite.newFormatter()
	message, err := f.colorizeMessage(`The operation failed: "disk full"`)
	suite.Require().NoError(err)
	suite.Equal(
		`The operation <red><bold>failed<reset>: <yellow>"disk full"<reset>`,
		message)
}

func (suite *FormatterSuite) TestColorDisabledIsByteIdentical() {
	f, err := NewColoredFormatter(DefaultFormat, WithRegistry(plainTestRegistry()))
	suite.Require().NoError(err)

	for _, message := range []string{
		`The operation failed: "disk full"`,
		"a *marked* and **bold** __span__ with `code`",
		"critical error while debugging",
	} {
		colorized, err := f.colorizeMessage(message)
		suite.Require().NoError(err)
		suite.Equal(message, colorized)
	}
}

func (suite *FormatterSuite) TestMarkupStripsDelimiters() {
	f := suite.newFormatter()

	cases := map[string]string{
		"open `config.yml` now": "open <standout>config.yml<reset> now",
		"a *slanted* word":      "a <italics>slanted<reset> word",
		"a **strong** word":     "a <bold>strong<reset> word",
		"an __underlined__ one": "an <underline>underlined<reset> one",
	}
	for input, expected := range cases {
		colorized, err := f.colorizeMessage(input)
		suite.Require().NoError(err)
		suite.Equal(expected, colorized)
	}
}

func (suite *FormatterSuite) TestWordBoundaryMatching() {
	f := suite.newFormatter()

	colorized, err := f.colorizeMessage("a forewarning is not colorized")
	suite.Require().NoError(err)
	suite.Equal("a forewarning is not colorized", colorized)

	colorized, err = f.colorizeMessage("a warning is")
	suite.Require().NoError(err)
	suite.Equal("a <yellow><bold>warning<reset> is", colorized)
}

func (suite *FormatterSuite) TestCaseInsensitiveMatching() {
	f := suite.newFormatter()
	colorized, err := f.colorizeMessage("FAILED again")
	suite.Require().NoError(err)
	suite.Equal("<red><bold>FAILED<reset> again", colorized)
}

func (suite *FormatterSuite) TestCriticalErrorMatchesAsOneSpan() {
	f := suite.newFormatter()
	colorized, err := f.colorizeMessage("a critical error occurred")
	suite.Require().NoError(err)
	suite.Equal("a <red><blink><bold>critical error<reset> occurred", colorized)
}

func (suite *FormatterSuite) TestKeywordOverrideMergesOverDefaults() {
	f := suite.newFormatter(WithKeywordRules([]KeywordRule{
		{Pattern: `\berror\b`, Style: Style{termcap.Purple}},
	}))

	colorized, err := f.colorizeMessage("an error and a warning")
	suite.Require().NoError(err)
	suite.Equal("an <purple>error<reset> and a <yellow><bold>warning<reset>", colorized)
}

func (suite *FormatterSuite) TestKeywordOverrideAppendsNewPatterns() {
	f := suite.newFormatter(WithKeywordRules([]KeywordRule{
		{Pattern: `\bdeprecated\b`, Style: Style{termcap.Purple, termcap.Bold}},
	}))

	colorized, err := f.colorizeMessage("this call is deprecated")
	suite.Require().NoError(err)
	suite.Equal("this call is <purple><bold>deprecated<reset>", colorized)
}

func (suite *FormatterSuite) TestLevelRuleAndPassthrough() {
	f := suite.newFormatter()

	line := suite.format(f, Record{Level: "INFO", Logger: "root", Function: "f", Message: "m"})
	suite.Contains(line, "[<blue><bold>INFO<reset>]")

	// A level absent from the rule table passes through unmodified.
	line = suite.format(f, Record{Level: "TRACE", Logger: "root", Function: "f", Message: "m"})
	suite.Contains(line, "[TRACE]")
}

func (suite *FormatterSuite) TestLevelStyleOverride() {
	f := suite.newFormatter(WithLevelStyles(map[string]Style{
		"INFO": {termcap.White},
	}))

	line := suite.format(f, Record{Level: "INFO", Logger: "root", Function: "f", Message: "m"})
	suite.Contains(line, "[<white>INFO<reset>]")

	// Non-overridden defaults survive.
	line = suite.format(f, Record{Level: "ERROR", Logger: "root", Function: "f", Message: "m"})
	suite.Contains(line, "[<red><bold>ERROR<reset>]")
}

func (suite *FormatterSuite) TestAttributeStyleOverride() {
	f := suite.newFormatter(WithAttributeStyles(map[string]Style{
		"logger": {termcap.Green},
	}))

	line := suite.format(f, Record{Level: "INFO", Logger: "db", Line: 7, Function: "open", Message: "m"})
	suite.Contains(line, "(<green>db<reset>:")
	suite.Contains(line, ":<yellow>7<reset>:")
}

func (suite *FormatterSuite) TestCustomFormatTemplate() {
	f, err := NewColoredFormatter("{level} {message}", WithRegistry(testRegistry()))
	suite.Require().NoError(err)

	line, err := f.Format(Record{Level: "DEBUG", Message: "debugging session"})
	suite.Require().NoError(err)
	suite.Equal("<green><bold>DEBUG<reset> <green><bold>debugging<reset> session", line)
}

func (suite *FormatterSuite) TestInvalidKeywordPatternFailsConstruction() {
	_, err := NewColoredFormatter(DefaultFormat,
		WithRegistry(testRegistry()),
		WithKeywordRules([]KeywordRule{{Pattern: `(unclosed`, Style: Style{termcap.Red}}}))
	suite.Error(err)
}

func (suite *FormatterSuite) TestMatchWithoutRulePanics() {
	f := suite.newFormatter()
	suite.Panics(func() { _, _ = f.colorizeMatch("no rule matches this") })
}

func (suite *FormatterSuite) TestRegistryFaultPropagates() {
	broken := errors.New("tput exploded")
	reg := termcap.New(termcap.Options{
		Query: func(capability string) (string, error) {
			if capability == "colors" {
				return "256", nil
			}
			return "", broken
		},
		IsTerminal: func() bool { return true },
		LookupEnv:  func(string) (string, bool) { return "", false },
		GOOS:       "linux",
	})
	f, err := NewColoredFormatter(DefaultFormat, WithRegistry(reg))
	suite.Require().NoError(err)

	_, err = f.Format(Record{Level: "INFO", Message: "failed"})
	suite.ErrorIs(err, broken)
}

func TestFormatterSuite(t *testing.T) {
	suite.Run(t, new(FormatterSuite))
}
