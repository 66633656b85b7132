package codec

import (
	"context"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
)

// Result describes one finished conversion.
type Result struct {
	InputBytes  int64
	OutputBytes int64
	Width       int
	Height      int
}

// Encode writes img to dst in the target format. The file appears under
// dst only once it is complete.
func Encode(ctx context.Context, img image.Image, dst, target string, opts Options) error {
	target = catalog.NormalizeTarget(target)
	if !Supported(target) {
		return errors.Wrapf(ErrUnsupportedTarget, "%q", target)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	img = prepare(img, target)

	tmp, err := os.CreateTemp(dirOf(dst), ".tmp-imgconv-*."+target)
	if err != nil {
		return errors.Wrap(err, "create temp output")
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if NeedsTool(target) {
		_ = tmp.Close()
		if err := encodeWebP(ctx, img, tmpPath, opts); err != nil {
			return err
		}
	} else {
		if err := nativeEncoders[target](tmp, img, opts); err != nil {
			_ = tmp.Close()
			return errors.Wrapf(err, "encode %s", target)
		}
		if err := tmp.Close(); err != nil {
			return errors.Wrap(err, "close temp output")
		}
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return errors.Wrap(err, "chmod output")
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return errors.Wrap(err, "rename output")
	}
	committed = true
	return nil
}

// ConvertFile decodes src and encodes it to dst.
func ConvertFile(ctx context.Context, src, dst, target string, opts Options) (Result, error) {
	var res Result
	fi, err := os.Stat(src)
	if err != nil {
		return res, errors.Wrap(err, "stat source")
	}
	res.InputBytes = fi.Size()

	img, err := Decode(src)
	if err != nil {
		return res, err
	}
	b := img.Bounds()
	res.Width, res.Height = b.Dx(), b.Dy()

	if err := Encode(ctx, img, dst, target, opts); err != nil {
		return res, err
	}
	if fi, err := os.Stat(dst); err == nil {
		res.OutputBytes = fi.Size()
	}
	return res, nil
}

func dirOf(path string) string { return filepath.Dir(path) }
