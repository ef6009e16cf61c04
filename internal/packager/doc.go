// Package packager turns the ordered outputs of a transformation into the one
// file a route sends back: the output itself when there is exactly one, or a
// Deflate zip built inside the request workspace when there are several.
package packager
