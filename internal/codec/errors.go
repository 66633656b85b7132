package codec

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNoDecoder is returned for source formats this build cannot read.
	ErrNoDecoder = errors.New("no decoder for source format")
	// ErrUnsupportedTarget is returned for target formats with no encoder.
	ErrUnsupportedTarget = errors.New("unsupported target format")
)

// ToolError reports a failed external encoder run.
type ToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	if last := lastLine(e.Stderr); last != "" {
		msg += ": " + last
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// lastLine returns the final non-empty line of s; encoders put the reason
// for a failure there.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
