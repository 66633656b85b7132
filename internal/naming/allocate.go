package naming

import (
	"fmt"
	"strings"

	"github.com/VTVIMAL/WebP-Converter/internal/catalog"
)

// Allocate returns an output path for a file being converted now. base is
// the output path without extension, origExt the source extension (with or
// without dot) and exists a live existence check. Candidates, first free
// wins:
//
//	base.target
//	base_<ext>.target
//	base_<ext>_1.target, base_<ext>_2.target, ...
//
// The result is only unique while a single writer owns the output directory;
// use Claims to serialize allocation and creation.
func Allocate(base, origExt, target string, exists func(string) bool) string {
	target = catalog.NormalizeTarget(target)
	ext := strings.ToLower(strings.TrimPrefix(origExt, "."))

	if cand := base + "." + target; !exists(cand) {
		return cand
	}
	if cand := base + "_" + ext + "." + target; !exists(cand) {
		return cand
	}
	for n := 1; ; n++ {
		cand := fmt.Sprintf("%s_%s_%d.%s", base, ext, n, target)
		if !exists(cand) {
			return cand
		}
	}
}
