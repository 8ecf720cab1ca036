package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lakeshift/relay/internal/server/middleware"
	"github.com/lakeshift/relay/pkg/match"
	"github.com/lakeshift/relay/pkg/provider"
	"github.com/lakeshift/relay/pkg/replicate"
)

type stubEngine struct {
	res       *replicate.Result
	err       error
	gotBucket string
	gotKey    string
}

func (s *stubEngine) Replicate(ctx context.Context, srcBucket, srcKey string) (*replicate.Result, error) {
	s.gotBucket = srcBucket
	s.gotKey = srcKey
	return s.res, s.err
}

func postReplicate(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/replicate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) replicate.Result {
	t.Helper()
	var res replicate.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func TestReplicateHandler_Success(t *testing.T) {
	engine := &stubEngine{res: &replicate.Result{
		Status:          replicate.StatusSuccess,
		Message:         "object replicated",
		SourcePath:      "raw-logs/2024/01/01.log",
		DestinationPath: "raw-logs/2024/01/01.log",
		SizeBytes:       4096,
	}}
	h := NewReplicateHandler(engine, nil, zap.NewNop())

	rec := postReplicate(t, h, `{"source_bucket":"raw-logs","source_key":"2024/01/01.log"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	res := decodeResult(t, rec)
	assert.Equal(t, replicate.StatusSuccess, res.Status)
	assert.Equal(t, int64(4096), res.SizeBytes)

	assert.Equal(t, "raw-logs", engine.gotBucket)
	assert.Equal(t, "2024/01/01.log", engine.gotKey)
}

func TestReplicateHandler_Skipped(t *testing.T) {
	engine := &stubEngine{res: &replicate.Result{
		Status:  replicate.StatusSkipped,
		Message: "identical content already present",
	}}
	h := NewReplicateHandler(engine, nil, zap.NewNop())

	rec := postReplicate(t, h, `{"source_bucket":"raw-logs","source_key":"a.log"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, replicate.StatusSkipped, decodeResult(t, rec).Status)
}

func TestReplicateHandler_BadJSON(t *testing.T) {
	h := NewReplicateHandler(&stubEngine{}, nil, zap.NewNop())

	rec := postReplicate(t, h, `{not json`)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestReplicateHandler_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing key", `{"source_bucket":"raw-logs"}`},
		{"missing bucket", `{"source_key":"a.log"}`},
		{"empty body object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReplicateHandler(&stubEngine{}, nil, zap.NewNop())
			rec := postReplicate(t, h, tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp middleware.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			assert.Contains(t, resp.Error.Message, "required")
		})
	}
}

func TestReplicateHandler_GuardRejects(t *testing.T) {
	guard, err := match.New(match.Config{Includes: []string{"raw-logs/**"}})
	require.NoError(t, err)

	engine := &stubEngine{}
	h := NewReplicateHandler(engine, guard, zap.NewNop())

	rec := postReplicate(t, h, `{"source_bucket":"secrets","source_key":"k"}`)

	require.Equal(t, http.StatusForbidden, rec.Code)

	res := decodeResult(t, rec)
	assert.Equal(t, replicate.StatusFailure, res.Status)
	assert.Equal(t, replicate.ErrorKindKeyRejected, res.ErrorKind)

	// Engine must not be invoked for rejected keys.
	assert.Empty(t, engine.gotBucket)
}

func TestReplicateHandler_GuardAdmits(t *testing.T) {
	guard, err := match.New(match.Config{Includes: []string{"raw-logs/**"}})
	require.NoError(t, err)

	engine := &stubEngine{res: &replicate.Result{Status: replicate.StatusSuccess}}
	h := NewReplicateHandler(engine, guard, zap.NewNop())

	rec := postReplicate(t, h, `{"source_bucket":"raw-logs","source_key":"2024/01/01.log"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "raw-logs", engine.gotBucket)
}

func TestReplicateHandler_SourceNotFound(t *testing.T) {
	engine := &stubEngine{err: &provider.ProviderError{
		Op: "Head", Provider: provider.ProviderS3,
		Bucket: "raw-logs", Key: "missing.log",
		Err: provider.ErrNotFound,
	}}
	h := NewReplicateHandler(engine, nil, zap.NewNop())

	rec := postReplicate(t, h, `{"source_bucket":"raw-logs","source_key":"missing.log"}`)

	require.Equal(t, http.StatusNotFound, rec.Code)

	res := decodeResult(t, rec)
	assert.Equal(t, replicate.StatusFailure, res.Status)
	assert.Equal(t, replicate.ErrorKindNotFound, res.ErrorKind)
	assert.Equal(t, "raw-logs/missing.log", res.SourcePath)
}

func TestReplicateHandler_TransientFailure(t *testing.T) {
	engine := &stubEngine{err: &provider.ProviderError{
		Op: "PutObject", Provider: provider.ProviderS3,
		Err: provider.ErrThrottled,
	}}
	h := NewReplicateHandler(engine, nil, zap.NewNop())

	rec := postReplicate(t, h, `{"source_bucket":"raw-logs","source_key":"a.log"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	res := decodeResult(t, rec)
	assert.Equal(t, replicate.StatusFailure, res.Status)
	assert.Equal(t, replicate.ErrorKindTransient, res.ErrorKind)
}

func TestVersionHandler(t *testing.T) {
	h := VersionHandler(VersionInfo{Version: "1.0.0", Commit: "abc123", BuildDate: "2026-08-30"})

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var info VersionInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "abc123", info.Commit)
}
