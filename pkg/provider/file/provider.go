// Package file implements the provider interface for local filesystem paths.
//
// Buckets map to directories under BaseDir; keys are relative paths inside
// a bucket directory. Object attributes (etag, content type, user metadata)
// live in a sidecar tree under BaseDir/.relay-meta so the data files stay
// byte-identical to their source objects.
//
// This provider is intended for local development and tests.
package file

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/lakeshift/relay/pkg/provider"
)

// metaDirName is the sidecar tree root under BaseDir.
const metaDirName = ".relay-meta"

// Provider implements provider.Provider for local filesystem paths.
type Provider struct {
	baseDir string
}

// Ensure Provider implements provider capability interfaces.
var (
	_ provider.Provider     = (*Provider)(nil)
	_ provider.ObjectGetter = (*Provider)(nil)
	_ provider.ObjectPutter = (*Provider)(nil)
)

type Config struct {
	BaseDir string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	return nil
}

func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := filepath.Clean(cfg.BaseDir)
	return &Provider{baseDir: base}, nil
}

func (p *Provider) Close() error { return nil }

// sidecar holds the attributes a filesystem cannot store natively.
type sidecar struct {
	ETag        string            `json:"etag"`
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (p *Provider) Head(ctx context.Context, bucket, key string) (*provider.ObjectMeta, error) {
	_ = ctx
	full, err := p.objectPath(bucket, key)
	if err != nil {
		return nil, p.wrapError("Head", bucket, key, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &provider.ProviderError{Op: "Head", Provider: provider.ProviderFile, Bucket: bucket, Key: key, Err: provider.ErrNotFound}
		}
		return nil, p.wrapError("Head", bucket, key, err)
	}
	if st.IsDir() {
		return nil, &provider.ProviderError{Op: "Head", Provider: provider.ProviderFile, Bucket: bucket, Key: key, Err: provider.ErrNotFound}
	}

	sc, err := p.readSidecar(bucket, key)
	if err != nil {
		return nil, p.wrapError("Head", bucket, key, err)
	}
	if sc.ETag == "" {
		// No sidecar (object not written through this provider): hash on demand.
		sc.ETag, err = hashFile(full)
		if err != nil {
			return nil, p.wrapError("Head", bucket, key, err)
		}
	}
	if sc.ContentType == "" {
		if mt, err := mimetype.DetectFile(full); err == nil {
			sc.ContentType = mt.String()
		}
	}

	return &provider.ObjectMeta{
		Key:          strings.TrimPrefix(key, "/"),
		Size:         st.Size(),
		ETag:         sc.ETag,
		LastModified: st.ModTime(),
		ContentType:  sc.ContentType,
		Metadata:     sc.Metadata,
	}, nil
}

func (p *Provider) GetObject(ctx context.Context, bucket, key string) (*provider.Object, error) {
	_ = ctx
	full, err := p.objectPath(bucket, key)
	if err != nil {
		return nil, p.wrapError("GetObject", bucket, key, err)
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &provider.ProviderError{Op: "GetObject", Provider: provider.ProviderFile, Bucket: bucket, Key: key, Err: provider.ErrNotFound}
		}
		return nil, p.wrapError("GetObject", bucket, key, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, p.wrapError("GetObject", bucket, key, err)
	}

	sc, err := p.readSidecar(bucket, key)
	if err != nil {
		_ = f.Close()
		return nil, p.wrapError("GetObject", bucket, key, err)
	}
	contentType := sc.ContentType
	if contentType == "" {
		if mt, err := mimetype.DetectFile(full); err == nil {
			contentType = mt.String()
		}
	}

	return &provider.Object{Body: f, ContentLength: st.Size(), ContentType: contentType}, nil
}

func (p *Provider) PutObject(ctx context.Context, bucket, key string, body io.Reader, opts provider.PutOptions) error {
	_ = ctx
	full, err := p.objectPath(bucket, key)
	if err != nil {
		return p.wrapError("PutObject", bucket, key, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return p.wrapError("PutObject", bucket, key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".relay-put-*")
	if err != nil {
		return p.wrapError("PutObject", bucket, key, err)
	}

	h := md5.New()
	_, err = io.Copy(io.MultiWriter(tmp, h), body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return p.wrapError("PutObject", bucket, key, err)
	}

	if err := os.Rename(tmp.Name(), full); err != nil {
		_ = os.Remove(tmp.Name())
		return p.wrapError("PutObject", bucket, key, err)
	}

	sc := sidecar{
		ETag:        hex.EncodeToString(h.Sum(nil)),
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
	}
	if err := p.writeSidecar(bucket, key, sc); err != nil {
		return p.wrapError("PutObject", bucket, key, err)
	}
	return nil
}

func (p *Provider) objectPath(bucket, key string) (string, error) {
	return p.safeJoin(p.baseDir, bucket, key)
}

func (p *Provider) sidecarPath(bucket, key string) (string, error) {
	path, err := p.safeJoin(filepath.Join(p.baseDir, metaDirName), bucket, key)
	if err != nil {
		return "", err
	}
	return path + ".json", nil
}

// safeJoin joins bucket and key under root, rejecting traversal outside it.
func (p *Provider) safeJoin(root, bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key are required")
	}
	full := filepath.Join(root, bucket, filepath.FromSlash(strings.TrimPrefix(key, "/")))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key escapes base dir: %s", key)
	}
	return full, nil
}

func (p *Provider) readSidecar(bucket, key string) (sidecar, error) {
	var sc sidecar
	path, err := p.sidecarPath(bucket, key)
	if err != nil {
		return sc, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sc, nil
		}
		return sc, err
	}
	if err := json.Unmarshal(data, &sc); err != nil {
		return sidecar{}, fmt.Errorf("corrupt sidecar for %s/%s: %w", bucket, key, err)
	}
	return sc, nil
}

func (p *Provider) writeSidecar(bucket, key string, sc sidecar) error {
	path, err := p.sidecarPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (p *Provider) wrapError(op, bucket, key string, err error) error {
	return &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Bucket: bucket, Key: key, Err: err}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
