package colog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type TracebackSuite struct {
	suite.Suite
}

func (suite *TracebackSuite) TearDownTest() {
	DisableColoredPanics()
}

func (suite *TracebackSuite) TestHighlightTracebackKeepsContent() {
	text := "panic: runtime error: index out of range [3] with length 2\n\ngoroutine 1 [running]:\nmain.main()\n\t/src/main.go:12 +0x1d\n"

	for _, dark := range []bool{false, true} {
		highlighted, err := HighlightTraceback(text, dark)
		suite.Require().NoError(err)
		suite.NotEmpty(highlighted)

		// All original content survives highlighting.
		plain := stripControlSequences(highlighted)
		suite.Contains(plain, "index out of range")
		suite.Contains(plain, "main.main()")
	}
}

func (suite *TracebackSuite) TestEnableIsNoopWithoutColor() {
	// The process registry sees no interactive terminal under go test,
	// so enabling must succeed without arming the hook.
	suite.NoError(EnableColoredPanics(true))

	hook.mu.Lock()
	defer hook.mu.Unlock()
	suite.False(hook.colored)
}

func (suite *TracebackSuite) TestDisableIsIdempotent() {
	DisableColoredPanics()
	DisableColoredPanics()

	hook.mu.Lock()
	defer hook.mu.Unlock()
	suite.False(hook.colored)
}

// stripControlSequences removes CSI escape sequences from s.
func stripControlSequences(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			i += 2
			for i < len(s) && (s[i] < 0x40 || s[i] > 0x7e) {
				i++
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func TestTracebackSuite(t *testing.T) {
	suite.Run(t, new(TracebackSuite))
}
