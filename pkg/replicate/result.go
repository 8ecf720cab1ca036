package replicate

import "github.com/lakeshift/relay/pkg/provider"

// Status is the terminal outcome class of a replication invocation.
type Status string

const (
	// StatusSkipped means identical content was already present at the
	// destination and no bytes were transferred.
	StatusSkipped Status = "skipped"

	// StatusSuccess means the object was streamed to the destination.
	StatusSuccess Status = "success"

	// StatusFailure means the invocation ended without replicating.
	StatusFailure Status = "failure"
)

// Result is the terminal record of one replication invocation.
//
// This is the wire contract the HTTP layer serializes; field names are
// stable.
type Result struct {
	// Status is skipped, success, or failure.
	Status Status `json:"status"`

	// Message is a human-readable summary of the outcome.
	Message string `json:"message"`

	// SourcePath is "bucket/key" of the source object.
	SourcePath string `json:"source_path,omitempty"`

	// DestinationPath is the destination object key.
	DestinationPath string `json:"destination_path,omitempty"`

	// SizeBytes is the source object size. Zero for skips and failures.
	SizeBytes int64 `json:"size_bytes,omitempty"`

	// ErrorKind classifies failures (e.g. "not_found", "retries_exhausted").
	// Empty unless Status is failure.
	ErrorKind string `json:"error_kind,omitempty"`
}

// Error kind labels used in failure results.
const (
	ErrorKindNotFound    = "source_not_found"
	ErrorKindPermanent   = "permanent"
	ErrorKindTransient   = "retries_exhausted"
	ErrorKindBadRequest  = "bad_request"
	ErrorKindKeyRejected = "key_rejected"
)

// Failure converts a replication error into a failure Result.
//
// The classification mirrors the error taxonomy: source-not-found keeps its
// own kind (callers map it to a 404-class response), retryable errors that
// survived the retry budget are labeled exhausted, everything else is a
// permanent remote failure.
func Failure(sourcePath string, err error) *Result {
	kind := ErrorKindPermanent
	switch {
	case provider.IsNotFound(err):
		kind = ErrorKindNotFound
	case provider.IsRetryable(err):
		kind = ErrorKindTransient
	}
	return &Result{
		Status:     StatusFailure,
		Message:    err.Error(),
		SourcePath: sourcePath,
		ErrorKind:  kind,
	}
}
