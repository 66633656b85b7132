package naming

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		files  []catalog.RelPath
		target string
		want   map[catalog.RelPath]catalog.RelPath
	}{
		{
			name:   "distinct stems",
			files:  []catalog.RelPath{"a.png", "b.jpg", "c.bmp"},
			target: "webp",
			want:   map[catalog.RelPath]catalog.RelPath{"a.png": "a.webp", "b.jpg": "b.webp", "c.bmp": "c.webp"},
		},
		{
			name:   "shared stem gets extension suffix",
			files:  []catalog.RelPath{"photo.png", "photo.jpg"},
			target: "webp",
			want:   map[catalog.RelPath]catalog.RelPath{"photo.png": "photo_png.webp", "photo.jpg": "photo_jpg.webp"},
		},
		{
			name:   "suffix extension is lowercased",
			files:  []catalog.RelPath{"pic.PNG", "pic.Jpeg"},
			target: "png",
			want:   map[catalog.RelPath]catalog.RelPath{"pic.PNG": "pic_png.png", "pic.Jpeg": "pic_jpeg.png"},
		},
		{
			name:   "stems group case-insensitively but keep their case",
			files:  []catalog.RelPath{"Photo.jpg", "photo.png"},
			target: "webp",
			want:   map[catalog.RelPath]catalog.RelPath{"Photo.jpg": "Photo_jpg.webp", "photo.png": "photo_png.webp"},
		},
		{
			name:   "same stem in different directories does not group",
			files:  []catalog.RelPath{"a/x.png", "b/x.jpg"},
			target: "webp",
			want:   map[catalog.RelPath]catalog.RelPath{"a/x.png": "a/x.webp", "b/x.jpg": "b/x.webp"},
		},
		{
			name:   "extension differing only by case gets a numeric suffix",
			files:  []catalog.RelPath{"img.jpg", "img.JPG", "img.png"},
			target: "webp",
			want: map[catalog.RelPath]catalog.RelPath{
				"img.JPG": "img_jpg.webp",
				"img.jpg": "img_jpg_1.webp",
				"img.png": "img_png.webp",
			},
		},
		{
			name:   "target given with dot and capitals",
			files:  []catalog.RelPath{"a.png"},
			target: ".WEBP",
			want:   map[catalog.RelPath]catalog.RelPath{"a.png": "a.webp"},
		},
		{
			name:   "multi-dot names keep everything before the last dot",
			files:  []catalog.RelPath{"shot.2024.01.png"},
			target: "webp",
			want:   map[catalog.RelPath]catalog.RelPath{"shot.2024.01.png": "shot.2024.01.webp"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Resolve(tt.files, tt.target)
			assert.Equal(t, tt.want, plan.Outputs)
			assert.Empty(t, plan.Collisions)
			assert.NoError(t, plan.Err())
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	files := []catalog.RelPath{"z/a.png", "z/a.gif", "b.tif", "B.tiff", "c.jpg"}
	first := ExpectedOutputs(files, "webp")
	reversed := make([]catalog.RelPath, len(files))
	for i, f := range files {
		reversed[len(files)-1-i] = f
	}
	assert.Equal(t, first, ExpectedOutputs(files, "webp"))
	assert.Equal(t, first, ExpectedOutputs(reversed, "webp"), "input order must not matter")
}

func TestResolve_CrossGroupCollision(t *testing.T) {
	files := []catalog.RelPath{"a.jpg", "a.png", "a_jpg.gif"}
	plan := Resolve(files, "webp")

	assert.Equal(t, map[catalog.RelPath]catalog.RelPath{
		"a.jpg":     "a_jpg.webp",
		"a.png":     "a_png.webp",
		"a_jpg.gif": "a_jpg_gif.webp",
	}, plan.Outputs)
	assert.Len(t, plan.Expected(), len(files), "every source has its own output")

	require.Len(t, plan.Collisions, 1)
	c := plan.Collisions[0]
	assert.Equal(t, catalog.RelPath("a_jpg.webp"), c.Output)
	assert.Equal(t, catalog.RelPath("a.jpg"), c.Owner)
	assert.Equal(t, []catalog.RelPath{"a_jpg.gif"}, c.Others)

	err := plan.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNameCollision))
	var ce *CollisionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []catalog.RelPath{"a.jpg", "a_jpg.gif"}, ce.Sources)
}

func TestResolve_CollisionLosersSkipPlannedNames(t *testing.T) {
	// x_jpg.gif loses x_jpg.png to x.jpg, and the singleton x_jpg_gif.tif
	// already plans the second allocator tier, so the loser ends on the third.
	files := []catalog.RelPath{"x.jpg", "x.gif", "x_jpg.gif", "x_jpg_gif.tif"}
	plan := Resolve(files, "png")

	assert.Equal(t, catalog.RelPath("x_jpg.png"), plan.Outputs["x.jpg"])
	assert.Equal(t, catalog.RelPath("x_jpg_gif.png"), plan.Outputs["x_jpg_gif.tif"])
	assert.Equal(t, catalog.RelPath("x_jpg_gif_1.png"), plan.Outputs["x_jpg.gif"])
	assert.Len(t, plan.Expected(), len(files))
	assert.Equal(t, plan.Outputs, Resolve([]catalog.RelPath{"x_jpg_gif.tif", "x_jpg.gif", "x.gif", "x.jpg"}, "png").Outputs)
}

func TestGroupByStem(t *testing.T) {
	groups := GroupByStem([]catalog.RelPath{"d/x.png", "b.jpg", "d/X.gif", "a.png"})
	require.Len(t, groups, 3)
	assert.Equal(t, StemKey{Dir: ".", Stem: "a"}, groups[0].Key)
	assert.Equal(t, StemKey{Dir: ".", Stem: "b"}, groups[1].Key)
	assert.Equal(t, StemKey{Dir: "d", Stem: "x"}, groups[2].Key)
	assert.Equal(t, []catalog.RelPath{"d/X.gif", "d/x.png"}, groups[2].Members)
}

// Any stem group whose members have pairwise distinct extensions (ignoring
// case) resolves to pairwise distinct names.
func TestResolve_GroupBijection(t *testing.T) {
	exts := []string{"jpg", "jpeg", "png", "bmp", "tiff", "tif", "gif", "ico", "ppm", "pgm", "pbm", "pnm"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		var files []catalog.RelPath
		stems := 1 + rng.Intn(5)
		for s := 0; s < stems; s++ {
			stem := fmt.Sprintf("s%d", rng.Intn(1000))
			perm := rng.Perm(len(exts))
			n := 1 + rng.Intn(4)
			for _, k := range perm[:n] {
				ext := exts[k]
				if rng.Intn(2) == 0 {
					ext = strings.ToUpper(ext)
				}
				files = append(files, catalog.RelPath(stem+"."+ext))
			}
		}
		files = dedupe(files)

		plan := Resolve(files, "webp")
		require.Len(t, plan.Outputs, len(files))
		assert.Len(t, plan.Expected(), len(files), "outputs must be distinct: %v", files)
	}
}

// With no shared stems the batch prediction equals the allocator's first
// candidate against an empty directory.
func TestResolve_AgreesWithAllocate(t *testing.T) {
	files := []catalog.RelPath{"a.png", "sub/b.jpg", "sub/deep/c.GIF"}
	root := filepath.FromSlash("/out")
	never := func(string) bool { return false }

	for src, want := range ExpectedOutputs(files, "webp") {
		stem, ext := catalog.SplitExt(src.Base())
		base := catalog.Join(src.Dir(), stem).Under(root)
		got := Allocate(base, ext, "webp", never)
		assert.Equal(t, want.Under(root), got)
	}
}

func dedupe(files []catalog.RelPath) []catalog.RelPath {
	seen := catalog.Set{}
	out := files[:0]
	for _, f := range files {
		if seen.Has(f) {
			continue
		}
		seen.Add(f)
		out = append(out, f)
	}
	return out
}
