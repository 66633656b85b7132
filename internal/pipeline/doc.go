// Package pipeline orchestrates discovery, per-file conversion, and batch
// summary reporting.
//
// Discover scans the input tree and resolves the naming plan once. Run then
// mirrors the directory structure under the output root and converts each
// planned source sequentially, in lexical order. Predict prints the same
// plan as a table without writing anything.
package pipeline
