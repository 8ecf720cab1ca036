package provider

import (
	"context"
	"io"
)

// Optional provider capability interfaces.
//
// These interfaces are used for feature detection (type assertions). The core
// Provider interface remains intentionally small.

// Object is a streamed object body with its declared attributes.
//
// Body is not buffered; callers own it and must close it on every path.
type Object struct {
	// Body is the object content stream.
	Body io.ReadCloser

	// ContentLength is the declared size in bytes, or -1 if unknown.
	ContentLength int64

	// ContentType is the MIME type declared by the store, if any.
	ContentType string
}

// ObjectGetter can download objects as a stream.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string) (*Object, error)
}

// PutOptions carries attributes attached to an object at write time.
type PutOptions struct {
	// ContentLength is the size of the body in bytes.
	ContentLength int64

	// ContentType is the MIME type to record on the object.
	ContentType string

	// Metadata contains user-defined key-value pairs stored alongside the
	// object. Keys should be lowercase; S3 lowercases them on read.
	Metadata map[string]string
}

// ObjectPutter can create/overwrite objects from a stream.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader, opts PutOptions) error
}
