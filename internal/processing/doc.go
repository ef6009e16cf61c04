// Package processing wraps every file transformation in a request workspace.
//
// Runner.Run is the single path from an accepted request to a streamed
// result: uploads are saved under regenerated names, the transformation runs
// exactly once, outputs are packaged, and the response is written while the
// workspace still exists. The workspace is removed on success, failure and
// panic alike, and the outcome is recorded in the history store.
package processing
