package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lakeshift/relay/internal/server/middleware"
	"github.com/lakeshift/relay/pkg/match"
	"github.com/lakeshift/relay/pkg/replicate"
)

// Replicator is the engine surface the HTTP layer depends on.
type Replicator interface {
	Replicate(ctx context.Context, srcBucket, srcKey string) (*replicate.Result, error)
}

// ReplicateRequest is the POST /v1/replicate request body.
type ReplicateRequest struct {
	SourceBucket string `json:"source_bucket"`
	SourceKey    string `json:"source_key"`
}

// ReplicateHandler serves POST /v1/replicate.
type ReplicateHandler struct {
	engine Replicator
	guard  *match.Guard
	log    *zap.Logger
}

// NewReplicateHandler creates the replicate endpoint handler. The guard
// may be nil when no admission patterns are configured.
func NewReplicateHandler(engine Replicator, guard *match.Guard, log *zap.Logger) *ReplicateHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReplicateHandler{engine: engine, guard: guard, log: log}
}

// ServeHTTP handles one replication request.
//
// Response status maps the outcome: 200 for success and skip, 400 for a
// malformed request, 403 for a key the admission guard rejects, 404 when
// the source object does not exist, 500 for everything else. Failure
// bodies carry the result record, not the bare error envelope, so
// callers always get the same JSON shape from the endpoint.
func (h *ReplicateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ReplicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest,
			"VALIDATION_ERROR", "invalid JSON body")
		return
	}
	if req.SourceBucket == "" || req.SourceKey == "" {
		middleware.WriteError(w, r, http.StatusBadRequest,
			"VALIDATION_ERROR", "source_bucket and source_key are required")
		return
	}

	sourcePath := req.SourceBucket + "/" + req.SourceKey

	if h.guard != nil && !h.guard.Admit(req.SourceBucket, req.SourceKey) {
		h.log.Warn("replication rejected by admission patterns",
			zap.String("source", sourcePath))
		writeResult(w, http.StatusForbidden, &replicate.Result{
			Status:     replicate.StatusFailure,
			Message:    "source path does not match admission patterns",
			SourcePath: sourcePath,
			ErrorKind:  replicate.ErrorKindKeyRejected,
		})
		return
	}

	res, err := h.engine.Replicate(r.Context(), req.SourceBucket, req.SourceKey)
	if err != nil {
		failure := replicate.Failure(sourcePath, err)
		status := http.StatusInternalServerError
		if failure.ErrorKind == replicate.ErrorKindNotFound {
			status = http.StatusNotFound
		}
		h.log.Error("replication failed",
			zap.String("source", sourcePath),
			zap.String("error_kind", failure.ErrorKind),
			zap.Error(err))
		writeResult(w, status, failure)
		return
	}

	writeResult(w, http.StatusOK, res)
}

func writeResult(w http.ResponseWriter, status int, res *replicate.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}
