// Package blobstore stores the immutable blobs that overflowing facet classes
// are spilled to.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, mmap reads, atomic rename on write
//   - MemoryStore: in-process, for tests and single-node deployments
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with multipart uploads
//
// Implementations must be safe for concurrent use.
package blobstore
