package codec

import (
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	// Decoders registered with image.Decode. Encoding webp goes through cwebp.
	_ "github.com/biessek/golang-ico"
	_ "github.com/spakin/netpbm"
	_ "golang.org/x/image/webp"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
)

// Options tunes lossy and lossless encoders. Quality applies to jpeg and
// webp; Lossless applies to webp.
type Options struct {
	Quality  int
	Lossless bool

	// Stderr, when set, receives external tool stderr as it is produced
	// (verbose mode). It is captured for *ToolError either way.
	Stderr io.Writer
}

type encodeFunc func(w io.Writer, img image.Image, opts Options) error

// nativeEncoders are the in-process encoders, keyed by target extension.
var nativeEncoders = map[string]encodeFunc{
	"png": func(w io.Writer, img image.Image, _ Options) error {
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		return enc.Encode(w, img)
	},
	"jpg":  encodeJPEG,
	"jpeg": encodeJPEG,
	"gif": func(w io.Writer, img image.Image, _ Options) error {
		return gif.Encode(w, img, &gif.Options{NumColors: 256})
	},
	"bmp": func(w io.Writer, img image.Image, _ Options) error {
		return bmp.Encode(w, img)
	},
	"tiff": encodeTIFF,
	"tif":  encodeTIFF,
}

func encodeJPEG(w io.Writer, img image.Image, opts Options) error {
	q := opts.Quality
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: q})
}

func encodeTIFF(w io.Writer, img image.Image, _ Options) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// noAlpha lists targets whose output is flattened onto white. jpeg and bmp
// cannot store transparency; webp output is always opaque too.
var noAlpha = map[string]bool{"jpg": true, "jpeg": true, "bmp": true, "webp": true}

// decodable lists source extensions image.Decode can read in this build.
var decodable = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tiff": true, ".tif": true, ".webp": true,
	".ico": true, ".ppm": true, ".pgm": true, ".pbm": true, ".pnm": true,
}

// Supported reports whether target (any case, with or without dot) can be
// produced.
func Supported(target string) bool {
	t := catalog.NormalizeTarget(target)
	_, ok := nativeEncoders[t]
	return ok || t == "webp"
}

// NeedsTool reports whether producing target requires an external tool.
func NeedsTool(target string) bool {
	return catalog.NormalizeTarget(target) == "webp"
}

// CanDecode reports whether the source file at path has a decoder.
func CanDecode(path string) bool {
	return decodable[catalog.ExtOf(path)]
}

// Sniff reads only the header of the image at path and reports whether
// Decode would accept it. Unknown formats yield ErrNoDecoder.
func Sniff(path string) error {
	if !CanDecode(path) {
		return errors.Wrapf(ErrNoDecoder, "%s", catalog.ExtOf(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open source")
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		if errors.Is(err, image.ErrFormat) {
			return errors.Wrap(ErrNoDecoder, err.Error())
		}
		return errors.Wrapf(err, "read header of %s", path)
	}
	return nil
}

// Decode reads the image at path. Animated GIFs yield their first frame.
func Decode(path string) (image.Image, error) {
	if !CanDecode(path) {
		return nil, errors.Wrapf(ErrNoDecoder, "%s", catalog.ExtOf(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open source")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, errors.Wrap(ErrNoDecoder, err.Error())
		}
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}

// Flatten composites img onto an opaque white background. Images that are
// already opaque are returned unchanged.
func Flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

// prepare applies the per-target pixel adjustments before encoding.
func prepare(img image.Image, target string) image.Image {
	if noAlpha[target] {
		return Flatten(img)
	}
	return img
}
