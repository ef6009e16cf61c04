// Package params validates multipart requests for the file-processing routes.
//
// Each Parse function checks, in order and failing on the first violation:
// the required file field, the file count, the presence and type of scalar
// fields, and finally domain constraints. Nothing here touches the
// filesystem, so a rejected request never allocates a workspace. Errors are
// services validation failures whose message is returned to the client.
package params
