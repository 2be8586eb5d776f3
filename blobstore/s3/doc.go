// Package s3 implements blobstore.BlobStore on Amazon S3.
//
// Spilled facet classes are written with the multipart upload manager and
// read back with ranged GetObject requests.
//
//	store, err := s3.New(ctx, "my-bucket", "ingrid/facets/")
package s3
