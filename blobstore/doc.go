// Package blobstore stores arena snapshots as named, immutable blobs.
//
// Store is the interface every backend implements. Implementations must be
// safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and demos
//   - LocalStore: local filesystem with atomic rename
//   - s3.Store: Amazon S3 (managed multipart uploads, range reads)
//   - s3.DDBCommitStore: S3 plus a DynamoDB-backed CURRENT pointer
//   - minio.Store: MinIO and other S3-compatible services
//
// # The CURRENT pointer
//
// Snapshot writers store each snapshot under its own name and then Put the
// name into the blob called Current. Readers Open Current first and follow
// it. Backends that can do better than last-writer-wins (DDBCommitStore)
// intercept Current.
package blobstore
