package file

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeshift/relay/pkg/provider"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	return p
}

func TestNew_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base dir is required")
}

func TestPutObject_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	content := []byte("log line one\nlog line two\n")
	meta := map[string]string{
		"source-etag":   "abc123",
		"source-bucket": "raw-logs",
		"source-key":    "2024/01/01.log",
	}

	err := p.PutObject(ctx, "dst", "raw-logs/2024/01/01.log", bytes.NewReader(content), provider.PutOptions{
		ContentLength: int64(len(content)),
		ContentType:   "text/plain",
		Metadata:      meta,
	})
	require.NoError(t, err)

	head, err := p.Head(ctx, "dst", "raw-logs/2024/01/01.log")
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), head.Size)
	assert.Equal(t, "text/plain", head.ContentType)
	assert.Equal(t, meta, head.Metadata)
	assert.NotEmpty(t, head.ETag)

	obj, err := p.GetObject(ctx, "dst", "raw-logs/2024/01/01.log")
	require.NoError(t, err)
	defer func() { _ = obj.Body.Close() }()

	got, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, int64(len(content)), obj.ContentLength)
	assert.Equal(t, "text/plain", obj.ContentType)
}

func TestPutObject_OverwriteReplacesMetadata(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	require.NoError(t, p.PutObject(ctx, "b", "k", bytes.NewReader([]byte("v1")), provider.PutOptions{
		ContentLength: 2,
		Metadata:      map[string]string{"source-etag": "one"},
	}))
	first, err := p.Head(ctx, "b", "k")
	require.NoError(t, err)

	require.NoError(t, p.PutObject(ctx, "b", "k", bytes.NewReader([]byte("v2 longer")), provider.PutOptions{
		ContentLength: 9,
		Metadata:      map[string]string{"source-etag": "two"},
	}))
	second, err := p.Head(ctx, "b", "k")
	require.NoError(t, err)

	assert.Equal(t, "two", second.Metadata["source-etag"])
	assert.NotEqual(t, first.ETag, second.ETag)
	assert.Equal(t, int64(9), second.Size)
}

func TestHead_NotFound(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	_, err := p.Head(ctx, "b", "missing")
	require.Error(t, err)
	assert.True(t, provider.IsNotFound(err))
}

func TestHead_ExternalFileGetsHashedETag(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	// File dropped in place without going through PutObject.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b", "raw.bin"), []byte("payload"), 0o644))

	head, err := p.Head(ctx, "b", "raw.bin")
	require.NoError(t, err)
	assert.Len(t, head.ETag, 32) // hex md5
	assert.NotEmpty(t, head.ContentType)
}

func TestGetObject_NotFound(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	_, err := p.GetObject(ctx, "b", "missing")
	require.Error(t, err)
	assert.True(t, provider.IsNotFound(err))
}

func TestKeyTraversalRejected(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	_, err := p.Head(ctx, "b", "../../etc/passwd")
	require.Error(t, err)
	assert.False(t, provider.IsNotFound(err))
}
