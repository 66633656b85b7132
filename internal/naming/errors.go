package naming

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
)

// ErrNameCollision is the sentinel wrapped by CollisionError.
var ErrNameCollision = errors.New("output name collision")

// CollisionError reports sources whose natural output name is the same.
type CollisionError struct {
	Output  catalog.RelPath
	Sources []catalog.RelPath
}

func (e *CollisionError) Error() string {
	names := make([]string, len(e.Sources))
	for i, s := range e.Sources {
		names[i] = string(s)
	}
	return fmt.Sprintf("%v: %s <- %s", ErrNameCollision, e.Output, strings.Join(names, ", "))
}

func (e *CollisionError) Unwrap() error { return ErrNameCollision }
