// Package httpapi exposes Workbench over HTTP using gin.
//
// File routes (image, PDF and video tools) validate the multipart form before
// anything touches disk, then hand a processing.Job to the runner so the
// request's workspace exists only while the transformation runs and the
// result streams back. Failures answer {"error": msg}. The todo routes keep
// their {"success": ...} envelope, and /api/status and /api/history expose
// dependency health and recent runs.
package httpapi
