// Package pdftools merges, splits, counts and compresses PDF documents.
//
// Structural work uses pdfcpu in relaxed validation mode with its on-disk
// configuration directory disabled. Compression hands image recompression to
// Ghostscript through a services.Executor when the binary is available and
// always finishes with a pdfcpu optimisation pass.
package pdftools
