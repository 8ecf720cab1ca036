// Package replicate implements single-object replication between two
// object stores.
//
// One invocation copies one named object: inspect the source's metadata,
// skip if the destination already holds byte-identical content (decided by
// comparing the provenance etag stored on the destination object), or
// stream the bytes across with provenance metadata attached. Metadata
// lookups and the streamed upload are retried with exponential backoff on
// transient failures.
//
// The engine is stateless between invocations and safe to invoke
// concurrently for different objects. Concurrent invocations for the same
// object are uncoordinated; last write wins, which is acceptable because
// identical content uploads are idempotent in effect.
package replicate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lakeshift/relay/pkg/provider"
	"github.com/lakeshift/relay/pkg/retry"
)

// Provenance metadata keys written on every replicated object.
// Keys are lowercase because S3 lowercases user metadata on read.
const (
	MetaSourceETag   = "source-etag"
	MetaSourceBucket = "source-bucket"
	MetaSourceKey    = "source-key"
	MetaReplicatedAt = "replicated-at"
)

// DefaultUploadTimeout bounds a single upload attempt.
const DefaultUploadTimeout = 300 * time.Second

// OnCheckError selects the existence-check failure policy.
type OnCheckError string

const (
	// OnCheckErrorRecopy treats a failed destination check as "not
	// replicated" and proceeds to upload. Never skips on a failed check.
	OnCheckErrorRecopy OnCheckError = "recopy"

	// OnCheckErrorFail aborts the invocation when the destination check
	// itself fails.
	OnCheckErrorFail OnCheckError = "fail"
)

// Config configures the replication engine.
//
// Values are read once at construction; the engine never consults ambient
// configuration afterwards.
type Config struct {
	// DestinationBucket is the namespace all replicas are written to (required).
	DestinationBucket string

	// MaxRetries is the attempt budget for each retried store call.
	// Zero uses retry.DefaultMaxAttempts.
	MaxRetries int

	// RetryBaseDelay is the unit of the backoff schedule.
	// Zero uses retry.DefaultBaseDelay.
	RetryBaseDelay time.Duration

	// UploadTimeout bounds each upload attempt. Zero uses DefaultUploadTimeout.
	UploadTimeout time.Duration

	// OnCheckError selects the existence-check failure policy.
	// Empty defaults to OnCheckErrorRecopy.
	OnCheckError OnCheckError
}

func (c Config) withDefaults() Config {
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = DefaultUploadTimeout
	}
	if c.OnCheckError == "" {
		c.OnCheckError = OnCheckErrorRecopy
	}
	return c
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.DestinationBucket == "" {
		return fmt.Errorf("destination bucket is required")
	}
	if c.OnCheckError != "" && c.OnCheckError != OnCheckErrorRecopy && c.OnCheckError != OnCheckErrorFail {
		return fmt.Errorf("on_check_error must be %q or %q", OnCheckErrorRecopy, OnCheckErrorFail)
	}
	return nil
}

// Engine replicates single objects from a source store to a destination
// store.
//
// Engine holds no per-invocation state; the store providers are long-lived
// handles safe for concurrent reuse.
type Engine struct {
	src    provider.Provider
	getter provider.ObjectGetter
	dst    provider.Provider
	putter provider.ObjectPutter
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
}

// New creates a replication engine.
//
// The source must support streamed reads and the destination streamed
// writes; capability gaps are construction errors, not runtime surprises.
func New(src, dst provider.Provider, cfg Config, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	getter, ok := src.(provider.ObjectGetter)
	if !ok {
		return nil, fmt.Errorf("source provider does not support GetObject")
	}
	putter, ok := dst.(provider.ObjectPutter)
	if !ok {
		return nil, fmt.Errorf("destination provider does not support PutObject")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		src:    src,
		getter: getter,
		dst:    dst,
		putter: putter,
		cfg:    cfg.withDefaults(),
		log:    log,
		now:    time.Now,
	}, nil
}

// DestinationKey derives the destination object key for a source object.
//
// The source bucket prefixes the key, so objects from different source
// namespaces cannot collide at the destination.
func DestinationKey(srcBucket, srcKey string) string {
	return srcBucket + "/" + srcKey
}

// Replicate copies one object from the source store into the destination
// bucket, unless identical content is already there.
//
// The returned error is non-nil only for failure outcomes; it carries the
// provider classification (use provider.IsNotFound etc. or Failure to map
// it to a transport response). Skip and success outcomes return a Result.
func (e *Engine) Replicate(ctx context.Context, srcBucket, srcKey string) (*Result, error) {
	sourcePath := srcBucket + "/" + srcKey
	log := e.log.With(zap.String("source", sourcePath))

	log.Info("replication requested")

	meta, err := retry.Do(ctx, e.retryConfig(), log, provider.IsRetryable,
		func(ctx context.Context) (*provider.ObjectMeta, error) {
			return e.src.Head(ctx, srcBucket, srcKey)
		})
	if err != nil {
		return nil, fmt.Errorf("inspect source: %w", err)
	}

	log.Info("source metadata retrieved",
		zap.Int64("size", meta.Size),
		zap.String("etag", meta.ETag))

	dstKey := DestinationKey(srcBucket, srcKey)

	replicated, err := e.alreadyReplicated(ctx, dstKey, meta.ETag, log)
	if err != nil {
		return nil, fmt.Errorf("check destination: %w", err)
	}
	if replicated {
		return &Result{
			Status:          StatusSkipped,
			Message:         "identical content already present",
			SourcePath:      sourcePath,
			DestinationPath: dstKey,
		}, nil
	}

	_, err = retry.Do(ctx, e.retryConfig(), log, provider.IsRetryable,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.transfer(ctx, srcBucket, srcKey, dstKey, meta)
		})
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}

	log.Info("replicated",
		zap.String("destination", dstKey),
		zap.Int64("size", meta.Size))

	return &Result{
		Status:          StatusSuccess,
		Message:         "object replicated",
		SourcePath:      sourcePath,
		DestinationPath: dstKey,
		// Size from the inspect step; not re-measured after upload.
		SizeBytes: meta.Size,
	}, nil
}

// alreadyReplicated reports whether the destination already holds content
// byte-identical to the source, decided by an exact match between the
// source etag and the provenance etag stored on the destination object.
//
// Under the default recopy policy any check failure yields false: a broken
// check may cost a redundant upload but must never cause a silent skip.
func (e *Engine) alreadyReplicated(ctx context.Context, dstKey, srcETag string, log *zap.Logger) (bool, error) {
	meta, err := e.dst.Head(ctx, e.cfg.DestinationBucket, dstKey)
	if err != nil {
		if provider.IsNotFound(err) {
			return false, nil
		}
		if e.cfg.OnCheckError == OnCheckErrorFail {
			return false, err
		}
		log.Warn("destination check failed, treating as not replicated", zap.Error(err))
		return false, nil
	}

	stored := meta.Metadata[MetaSourceETag]
	if stored != "" && stored == srcETag {
		log.Info("destination already holds identical content", zap.String("destination", dstKey))
		return true, nil
	}

	log.Info("destination object present but content differs, re-uploading",
		zap.String("destination", dstKey),
		zap.String("stored_etag", stored))
	return false, nil
}

// transfer streams the source object into the destination bucket with
// provenance metadata attached. The whole open-and-upload sequence is one
// retry unit; a failed attempt restarts from a fresh stream.
func (e *Engine) transfer(ctx context.Context, srcBucket, srcKey, dstKey string, meta *provider.ObjectMeta) error {
	obj, err := e.getter.GetObject(ctx, srcBucket, srcKey)
	if err != nil {
		return err
	}
	defer func() { _ = obj.Body.Close() }()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = meta.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	putCtx, cancel := context.WithTimeout(ctx, e.cfg.UploadTimeout)
	defer cancel()

	return e.putter.PutObject(putCtx, e.cfg.DestinationBucket, dstKey, obj.Body, provider.PutOptions{
		ContentLength: meta.Size,
		ContentType:   contentType,
		Metadata: map[string]string{
			MetaSourceETag:   meta.ETag,
			MetaSourceBucket: srcBucket,
			MetaSourceKey:    srcKey,
			MetaReplicatedAt: e.now().UTC().Format(time.RFC3339),
		},
	})
}

func (e *Engine) retryConfig() retry.Config {
	return retry.Config{MaxAttempts: e.cfg.MaxRetries, BaseDelay: e.cfg.RetryBaseDelay}
}
