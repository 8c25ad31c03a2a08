// Package s3 stores arena snapshots in Amazon S3.
//
// # Usage
//
//	store, err := s3.NewFromConfig(ctx, "my-bucket", "arenas/players")
//	if err != nil { ... }
//	err = arena.SaveSnapshot(ctx, store, "snap-0001.gar")
//
// Store gives last-writer-wins semantics for the CURRENT pointer. When several
// processes save snapshots for the same prefix, wrap the Store in a
// DDBCommitStore so CURRENT moves through DynamoDB conditional writes.
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads for large snapshots
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
