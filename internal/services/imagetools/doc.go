// Package imagetools resizes images and applies blended colour filters using
// disintegration/imaging. Output encoding follows the output file extension.
//
// Batch runs per-file work for one request in parallel, bounded by the CPU
// count, while callers keep results in input order by index.
package imagetools
