// Package textutil provides filename and token sanitization.
//
// Client filenames never become paths; they only supply the stem of the
// download name a transformation hands back. SanitizeFileName and Stem make
// that stem safe for Content-Disposition headers and zip member names, and
// SanitizeToken turns labels such as workspace tags into filesystem-safe
// tokens.
package textutil
