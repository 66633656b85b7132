package codec

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/pkg/errors"
)

// CwebpTool is the external WebP encoder looked up on PATH.
var CwebpTool = "cwebp"

// cwebpArgs builds the cwebp argument list for one file.
func cwebpArgs(opts Options, in, out string) []string {
	args := []string{"-quiet", "-metadata", "none"}
	if opts.Lossless {
		args = append(args, "-lossless")
	} else {
		args = append(args, "-q", strconv.Itoa(clampQuality(opts.Quality)))
	}
	return append(args, in, "-o", out)
}

func clampQuality(q int) int {
	switch {
	case q < 0:
		return 0
	case q > 100:
		return 100
	}
	return q
}

// encodeWebP stages img as a PNG next to out and hands it to cwebp.
func encodeWebP(ctx context.Context, img image.Image, out string, opts Options) error {
	stage, err := os.CreateTemp(dirOf(out), ".tmp-stage-*.png")
	if err != nil {
		return errors.Wrap(err, "create staging file")
	}
	stagePath := stage.Name()
	defer os.Remove(stagePath)

	if err := png.Encode(stage, img); err != nil {
		_ = stage.Close()
		return errors.Wrap(err, "stage png")
	}
	if err := stage.Close(); err != nil {
		return errors.Wrap(err, "stage png")
	}
	return runTool(ctx, CwebpTool, cwebpArgs(opts, stagePath, out), opts.Stderr)
}

// runTool runs an external encoder. Stderr is captured for the error and,
// when tee is non-nil, copied there in real time.
func runTool(ctx context.Context, name string, args []string, tee io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderrBuf bytes.Buffer
	if tee != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, tee)
	} else {
		cmd.Stderr = &stderrBuf
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ToolError{Tool: name, Args: args, Stderr: stderrBuf.String(), Err: err}
	}
	return nil
}
