// Package minio stores spilled facet classes in MinIO or any other
// S3-compatible object store (Ceph, Garage, SeaweedFS).
//
//	store, err := minio.New(minio.Options{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "ingrid",
//	    Prefix:    "facets/",
//	})
package minio
