package naming

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		origExt  string
		want     string
	}{
		{"free base name", nil, ".jpg", "out/photo.webp"},
		{"falls back to extension suffix", []string{"out/photo.webp"}, ".JPG", "out/photo_jpg.webp"},
		{"then numbers", []string{"out/photo.webp", "out/photo_jpg.webp"}, "jpg", "out/photo_jpg_1.webp"},
		{
			"skips taken numbers",
			[]string{"out/photo.webp", "out/photo_jpg.webp", "out/photo_jpg_1.webp", "out/photo_jpg_2.webp"},
			".jpg",
			"out/photo_jpg_3.webp",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taken := map[string]bool{}
			for _, p := range tt.existing {
				taken[p] = true
			}
			got := Allocate("out/photo", tt.origExt, "WEBP", func(p string) bool { return taken[p] })
			assert.Equal(t, tt.want, got)
			assert.False(t, taken[got])
		})
	}
}

func TestClaims_OwnerAndConflict(t *testing.T) {
	c := NewClaims()
	assert.True(t, c.Claim("in/a.png", "out/a.webp"))
	assert.True(t, c.Claim("in/a.png", "out/a.webp"), "re-claim by the owner is fine")
	assert.False(t, c.Claim("in/a.gif", "out/a.webp"))

	owner, ok := c.Owner("out/a.webp")
	require.True(t, ok)
	assert.Equal(t, "in/a.png", owner)

	c.Release("out/a.webp")
	_, ok = c.Owner("out/a.webp")
	assert.False(t, ok)
}

func TestClaims_ExistsSeesDisk(t *testing.T) {
	dir := t.TempDir()
	onDisk := filepath.Join(dir, "x.webp")
	require.NoError(t, os.WriteFile(onDisk, nil, 0o644))

	c := NewClaims()
	assert.True(t, c.Exists(onDisk))
	assert.False(t, c.Exists(filepath.Join(dir, "y.webp")))

	got := c.AllocateAndClaim("x.png", filepath.Join(dir, "x"), ".png", "webp")
	assert.Equal(t, filepath.Join(dir, "x_png.webp"), got)
	assert.True(t, c.Exists(got), "allocated path is claimed even though nothing is written")
}

func TestClaims_ConcurrentAllocationIsUnique(t *testing.T) {
	c := NewClaims()
	c.stat = func(string) bool { return false }
	base := filepath.Join("out", "same")

	const n = 50
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.AllocateAndClaim("src", base, ".png", "webp")
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, r := range results {
		assert.False(t, seen[r], "duplicate allocation %s", r)
		seen[r] = true
	}
}
