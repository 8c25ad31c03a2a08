// Package minio provides a blobstore.Store implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible systems such as Ceph, SeaweedFS
// and Garage, and does not pull in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minio.NewFromEndpoint("localhost:9000", "minioadmin", "minioadmin", false, "arenas", "players/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = arena.SaveSnapshot(ctx, store, "snap-0001.gar")
//
// Use NewStore to pass a preconfigured *minio.Client instead.
package minio
