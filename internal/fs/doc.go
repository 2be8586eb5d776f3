// Package fs abstracts the file operations of blobstore.LocalStore so tests
// can inject write, sync and rename failures with [FaultyFS].
package fs
