// Package fs abstracts the file operations of blobstore.LocalStore so tests
// can inject I/O failures.
//
//   - [LocalFS]: the os package
//   - [FaultyFS]: wraps another FileSystem and fails writes, syncs, closes
//     or renames that match a rule
//
// Operations take no context.Context; local file calls are not
// interruptible. Cancellation is checked by the caller between calls.
package fs
