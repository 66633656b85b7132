package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	ico "github.com/biessek/golang-ico"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
	"github.com/VTVIMAL/WebP-Converter/internal/config"
	"github.com/VTVIMAL/WebP-Converter/internal/logging"
	"github.com/VTVIMAL/WebP-Converter/internal/reconcile"
)

// --- Helpers ---

func quietLogger() *logging.Logger {
	return logging.New(io.Discard, io.Discard, false)
}

func testImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 60), B: 120, A: 255})
		}
	}
	return img
}

// writeImage encodes a small image at root/rel using the encoder matching
// the extension. Unknown extensions get a few junk bytes.
func writeImage(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	switch catalog.ExtOf(path) {
	case ".png":
		require.NoError(t, png.Encode(f, testImage()))
	case ".jpg", ".jpeg":
		require.NoError(t, jpeg.Encode(f, testImage(), &jpeg.Options{Quality: 90}))
	case ".gif":
		require.NoError(t, gif.Encode(f, testImage(), nil))
	case ".ico":
		require.NoError(t, ico.Encode(f, testImage()))
	default:
		_, err = f.Write([]byte{0, 0, 1, 0})
		require.NoError(t, err)
	}
}

func touch(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func testConfig(t *testing.T) (*config.Config, string, string) {
	t.Helper()
	base := t.TempDir()
	in := filepath.Join(base, "photos")
	out := filepath.Join(base, "photos_png")
	require.NoError(t, os.MkdirAll(in, 0o755))

	cfg := config.DefaultConfig()
	cfg.Command = config.CmdConvert
	cfg.InputDir = in
	cfg.OutputDir = out
	cfg.Target = "png"
	return &cfg, in, out
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err, path)
	assert.Positive(t, fi.Size(), path)
}

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "%s should not exist", path)
}

// --- Discover ---

func TestDiscover_PlansConvertibleOnly(t *testing.T) {
	cfg, in, _ := testConfig(t)
	writeImage(t, in, "a.jpg")
	writeImage(t, in, "a.gif")
	writeImage(t, in, "logo.png")
	touch(t, in, "notes.txt")
	touch(t, in, "node_modules/pkg/icon.jpg")

	inv, err := Discover(cfg)
	require.NoError(t, err)

	assert.Equal(t, []catalog.RelPath{"a.gif", "a.jpg"}, inv.Plan.Sources())
	assert.Equal(t, catalog.RelPath("a_jpg.png"), inv.Plan.Outputs["a.jpg"])
	assert.Equal(t, catalog.RelPath("a_gif.png"), inv.Plan.Outputs["a.gif"])
	assert.True(t, inv.Scan.TargetFiles.Has("logo.png"))
	assert.Equal(t, []catalog.RelPath{"node_modules"}, inv.Excluded)
}

func TestDiscover_MissingInput(t *testing.T) {
	cfg, _, _ := testConfig(t)
	cfg.InputDir = filepath.Join(t.TempDir(), "nope")
	_, err := Discover(cfg)
	assert.Error(t, err)
}

// --- Run ---

func TestRun_DryRunWritesNothing(t *testing.T) {
	cfg, in, out := testConfig(t)
	cfg.DryRun = true
	writeImage(t, in, "photo.jpg")
	writeImage(t, in, "sub/anim.gif")

	stats, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Converted)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.TotalOutputBytes)
	assertNoFile(t, out)
}

func TestRun_ConvertsAndMirrorsTree(t *testing.T) {
	cfg, in, out := testConfig(t)
	writeImage(t, in, "photo.jpg")
	writeImage(t, in, "sub/anim.gif")
	writeImage(t, in, "sub/deeper/pic.jpeg")
	writeImage(t, in, "logo.png")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "empty", "nested"), 0o755))

	stats, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Converted)
	assert.Equal(t, 1, stats.AlreadyTarget)
	assert.Zero(t, stats.Failed)
	assert.Positive(t, stats.TotalInputBytes)
	assert.Positive(t, stats.TotalOutputBytes)
	assert.Equal(t, stats.TotalInputBytes-stats.TotalOutputBytes, stats.SpaceSaved())
	assert.Equal(t, map[string]int{".jpg": 1, ".jpeg": 1, ".gif": 1}, stats.FormatCounts)

	assertFile(t, filepath.Join(out, "photo.png"))
	assertFile(t, filepath.Join(out, "sub", "anim.png"))
	assertFile(t, filepath.Join(out, "sub", "deeper", "pic.png"))
	assertNoFile(t, filepath.Join(out, "logo.png"))
	assert.DirExists(t, filepath.Join(out, "empty", "nested"))

	r, err := reconcile.Reconcile(in, out, reconcile.Options{Target: "png", Scan: cfg.ScanOptions()})
	require.NoError(t, err)
	assert.True(t, r.Complete())
	assert.Empty(t, r.MissingDirectories)
	assert.Equal(t, reconcile.VerdictPerfect, r.Verdict())
}

func TestRun_SkipsExistingOutputs(t *testing.T) {
	cfg, in, out := testConfig(t)
	writeImage(t, in, "photo.jpg")
	writeImage(t, in, "other.gif")

	first, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	require.Equal(t, 2, first.Converted)

	before, err := os.Stat(filepath.Join(out, "photo.png"))
	require.NoError(t, err)

	second, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Zero(t, second.Converted)
	assert.Equal(t, 2, second.Skipped)

	after, err := os.Stat(filepath.Join(out, "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestRun_RenamePolicyKeepsExisting(t *testing.T) {
	cfg, in, out := testConfig(t)
	cfg.OnExisting = config.ExistingRename
	writeImage(t, in, "photo.jpg")
	touch(t, out, "photo.png")

	stats, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Converted)

	existing, err := os.ReadFile(filepath.Join(out, "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(existing), "existing output left untouched")
	assertFile(t, filepath.Join(out, "photo_jpg.png"))
}

func TestRun_SizeCap(t *testing.T) {
	cfg, in, out := testConfig(t)
	cfg.MaxImageBytes = 10
	writeImage(t, in, "photo.jpg")

	stats, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SkippedLarge)
	assert.Zero(t, stats.Converted)
	assertNoFile(t, filepath.Join(out, "photo.png"))
}

func TestRun_UndecodableFails(t *testing.T) {
	cfg, in, out := testConfig(t)
	touch(t, in, "broken.bmp")
	writeImage(t, in, "photo.jpg")
	writeImage(t, in, "favicon.ico")

	stats, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Converted)
	assertNoFile(t, filepath.Join(out, "broken.png"))
	assertFile(t, filepath.Join(out, "favicon.png"))
}

func TestRun_CrossGroupClashGetsFreshName(t *testing.T) {
	cfg, in, out := testConfig(t)
	// a.jpg and a.gif share a stem and plan a_jpg.png / a_gif.png; the
	// singleton a_jpg.gif also plans a_jpg.png but sorts after a.jpg.
	writeImage(t, in, "a.jpg")
	writeImage(t, in, "a.gif")
	writeImage(t, in, "a_jpg.gif")

	stats, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Converted)

	assertFile(t, filepath.Join(out, "a_jpg.png"))
	assertFile(t, filepath.Join(out, "a_gif.png"))
	assertFile(t, filepath.Join(out, "a_jpg_gif.png"))

	// The second run finds every output in place and leaves it alone.
	again, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Zero(t, again.Converted)
	assert.Equal(t, 3, again.Skipped)

	r, err := reconcile.Reconcile(in, out, reconcile.Options{Target: "png", Scan: cfg.ScanOptions()})
	require.NoError(t, err)
	assert.True(t, r.Complete(), "missing: %v", r.Missing)
	assert.Empty(t, r.Unexpected)
	assert.Contains(t, r.Entries, reconcile.Entry{
		Source: "a_jpg.gif", Output: "a_jpg_gif.png", Status: reconcile.StatusConverted,
	})
}

func TestRun_RenamePolicyUsesSourceStem(t *testing.T) {
	cfg, in, out := testConfig(t)
	cfg.OnExisting = config.ExistingRename
	writeImage(t, in, "a.jpg")
	writeImage(t, in, "a.gif")
	touch(t, out, "a_jpg.png")

	stats, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Converted)

	existing, err := os.ReadFile(filepath.Join(out, "a_jpg.png"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(existing))
	assertFile(t, filepath.Join(out, "a.png"))
	assertFile(t, filepath.Join(out, "a_gif.png"))
	assertNoFile(t, filepath.Join(out, "a_jpg_jpg.png"))
}

func TestRun_Canceled(t *testing.T) {
	cfg, in, out := testConfig(t)
	writeImage(t, in, "photo.jpg")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := Run(ctx, cfg, quietLogger())
	require.NoError(t, err)
	assert.Zero(t, stats.Converted)
	assertNoFile(t, filepath.Join(out, "photo.png"))
}

// --- Stats ---

func TestRunStats(t *testing.T) {
	s := newRunStats()
	assert.Equal(t, float64(100), s.SuccessRate())

	s.Total, s.Converted = 4, 3
	s.TotalInputBytes, s.TotalOutputBytes = 1000, 1200
	s.FormatCounts[".png"] = 1
	s.FormatCounts[".jpg"] = 2
	s.FormatCounts[".bmp"] = 1

	assert.Equal(t, 75.0, s.SuccessRate())
	assert.Equal(t, int64(-200), s.SpaceSaved())
	assert.Equal(t, []string{".jpg", ".bmp", ".png"}, s.Formats())
}

// --- Predict ---

func TestPredict_Table(t *testing.T) {
	cfg, in, out := testConfig(t)
	writeImage(t, in, "a.jpg")
	writeImage(t, in, "a.gif")
	writeImage(t, in, "a_jpg.gif")
	touch(t, in, "broken.bmp")
	writeImage(t, in, "done.jpeg")
	touch(t, out, "done.png")

	var buf bytes.Buffer
	pred, err := Predict(context.Background(), cfg, quietLogger(), &buf)
	require.NoError(t, err)

	assert.Equal(t, 5, pred.Planned)
	assert.Equal(t, 1, pred.Clashes)
	assert.Equal(t, 1, pred.NoDecoder)
	assert.Equal(t, 1, pred.Exists)

	table := buf.String()
	assert.Contains(t, table, "Source")
	assert.Contains(t, table, "a_jpg.png")
	assert.Contains(t, table, "a_gif.png")
	assert.Contains(t, table, "name clash")
	assert.Contains(t, table, "no decoder")
	assert.Contains(t, table, "exists")

	assertNoFile(t, filepath.Join(out, "a_jpg.png"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
	got := truncate("日本語の写真.png", 4)
	assert.Equal(t, "日本語…", got)
	assert.True(t, utf8.ValidString(got))
}

func TestPredict_Empty(t *testing.T) {
	cfg, _, _ := testConfig(t)
	var buf bytes.Buffer
	pred, err := Predict(context.Background(), cfg, quietLogger(), &buf)
	require.NoError(t, err)
	assert.Zero(t, pred.Planned)
	assert.Empty(t, buf.String())
}

func TestComputeStats(t *testing.T) {
	b := computeStats([]float64{10, 11, 12, 13, 14, 100})
	require.True(t, b.valid)
	assert.Equal(t, "", b.classify(12))
	assert.Equal(t, "extreme", b.classify(100))

	assert.False(t, computeStats([]float64{1, 2, 3}).valid, "too few values")
	assert.InDelta(t, 2.5, percentile([]float64{1, 2, 3, 4}, 50), 1e-9)
}
