// Package codec decodes source images and encodes them into the target
// format.
//
// PNG, JPEG, GIF, BMP and TIFF are encoded in process. WebP output is
// delegated to the external cwebp tool, whose stderr is captured into a
// *ToolError on failure. Every output is written to a temporary file in the
// destination directory and renamed into place, so an interrupted run never
// leaves a truncated image under its final name.
//
// Decoding covers png, jpeg, gif, bmp, tiff, webp, ico and the netpbm
// family. A file whose bytes match none of the registered formats fails
// with ErrNoDecoder.
package codec
