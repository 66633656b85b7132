package catalog

import (
	"strings"
)

// SupportedExtensions lists the image extensions (lowercase, with leading
// dot) the converter accepts as sources. ".webp" is a source only when the
// target is something else; classification checks the target first.
var SupportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".gif":  true,
	".ico":  true,
	".ppm":  true,
	".pgm":  true,
	".pbm":  true,
	".pnm":  true,
	".webp": true,
}

// SplitExt splits a filename into stem and extension. Unlike filepath.Ext, a
// name that only has a leading dot (".png") has no extension.
func SplitExt(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || strings.Trim(name[:i], ".") == "" {
		return name, ""
	}
	return name[:i], name[i:]
}

// ExtOf returns the lowercase extension of name, including the dot.
func ExtOf(name string) string {
	_, ext := SplitExt(name)
	return strings.ToLower(ext)
}

// NormalizeTarget lowercases a target extension and strips any leading dot:
// ".WEBP" and "webp" both become "webp".
func NormalizeTarget(target string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(target), "."))
}

// IsSupported reports whether ext (any case, with dot) is a supported image
// extension.
func IsSupported(ext string) bool {
	return SupportedExtensions[strings.ToLower(ext)]
}
