// Package provider defines abstractions for object storage operations.
//
// Providers implement the minimal surface the replication engine needs:
// metadata lookup, streaming reads, and streaming writes. Authentication
// uses SDK default credential chains - providers should not implement
// custom auth logic.
package provider

import (
	"context"
	"time"
)

// Provider abstracts object storage metadata operations.
//
// A Provider represents a connection to one store (an endpoint plus
// credentials), not a single bucket: replication requests address a
// caller-supplied namespace per invocation.
//
// Implementations should:
//   - Use SDK default credential chains (AWS default config or equivalent)
//   - Be safe for concurrent use
type Provider interface {
	// Head returns metadata for a single object without fetching its body.
	// Returns ErrNotFound if the object does not exist.
	Head(ctx context.Context, bucket, key string) (*ObjectMeta, error)

	// Close releases any resources held by the provider.
	Close() error
}

// ObjectMeta contains metadata for a single object, as returned by Head.
type ObjectMeta struct {
	// Key is the full object key (path) in the bucket.
	Key string

	// Size is the object size in bytes.
	Size int64

	// ETag is the entity tag, an opaque content-identity string. Providers
	// normalize it (strip quoting) so values compare directly across stores.
	ETag string

	// LastModified is when the object was last modified.
	LastModified time.Time

	// ContentType is the MIME type of the object, if the store declares one.
	ContentType string

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string
}

// ProviderType identifies an object storage provider.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage.
	ProviderS3 ProviderType = "s3"

	// ProviderFile represents local filesystem storage.
	ProviderFile ProviderType = "file"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}
