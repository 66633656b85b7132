// Package naming maps source images to output filenames.
//
// Two entry points share one naming scheme:
//
//   - Resolve (batch, order-independent): groups sources by directory and
//     lowercased stem and predicts every output name from the input set
//     alone. The verifier and the converter both start from it.
//   - Allocate (incremental): picks a free name at write time against a live
//     existence check, falling back to extension and numeric suffixes.
//
// They agree whenever Resolve's name is still free when Allocate runs, which
// is the normal case for a fresh output directory. Claims serializes
// allocation within a run.
package naming
