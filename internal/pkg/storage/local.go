package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidKey indicates an object key that would escape the base directory.
var ErrInvalidKey = errors.New("storage: invalid object key")

// LocalAdapter implements Storage on the local filesystem.
//
// Objects live under BaseDir/<bucket>/<key> with a sidecar .meta file for
// content type and user metadata. PresignGet returns a plain public URL
// because local files need no signing.
type LocalAdapter struct {
	baseDir   string
	publicURL string
}

// LocalOptions configures the local filesystem backend.
type LocalOptions struct {
	// BaseDir is the directory holding all buckets.
	BaseDir string
	// PublicURL is the URL prefix under which BaseDir is served.
	PublicURL string
}

type localMeta struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewLocal constructs a local filesystem adapter.
func NewLocal(opts LocalOptions) (*LocalAdapter, error) {
	if opts.BaseDir == "" {
		opts.BaseDir = "uploads"
	}
	if err := os.MkdirAll(opts.BaseDir, 0o755); err != nil {
		return nil, err
	}

	return &LocalAdapter{
		baseDir:   opts.BaseDir,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}, nil
}

func (l *LocalAdapter) objectPath(bucket, key string) (string, error) {
	p := filepath.Join(l.baseDir, bucket, filepath.FromSlash(key))
	base, err := filepath.Abs(l.baseDir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return p, nil
}

// PutObject writes data to disk and returns metadata.
func (l *LocalAdapter) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	p, err := l.objectPath(bucket, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return ObjectInfo{}, err
	}

	f, err := os.Create(p)
	if err != nil {
		return ObjectInfo{}, err
	}

	sum := md5.New()
	size, err := io.Copy(io.MultiWriter(f, sum), r)
	if err != nil {
		f.Close()
		os.Remove(p)
		return ObjectInfo{}, err
	}
	if err := f.Close(); err != nil {
		return ObjectInfo{}, err
	}

	meta := localMeta{ContentType: opts.ContentType, Metadata: opts.Metadata}
	raw, err := json.Marshal(meta)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := os.WriteFile(p+".meta", raw, 0o644); err != nil {
		return ObjectInfo{}, err
	}

	return ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        size,
		ETag:        hex.EncodeToString(sum.Sum(nil)),
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
		UpdatedAt:   time.Now(),
	}, nil
}

// GetObject opens the file and returns its metadata.
func (l *LocalAdapter) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	info, err := l.StatObject(ctx, bucket, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	p, err := l.objectPath(bucket, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	return f, info, nil
}

// StatObject returns metadata without reading the object body.
func (l *LocalAdapter) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	p, err := l.objectPath(bucket, key)
	if err != nil {
		return ObjectInfo{}, err
	}

	fi, err := os.Stat(p)
	if err != nil {
		return ObjectInfo{}, err
	}

	info := ObjectInfo{
		Bucket:    bucket,
		Key:       key,
		Size:      fi.Size(),
		UpdatedAt: fi.ModTime(),
	}

	if raw, err := os.ReadFile(p + ".meta"); err == nil {
		var meta localMeta
		if err := json.Unmarshal(raw, &meta); err == nil {
			info.ContentType = meta.ContentType
			info.Metadata = meta.Metadata
		}
	}

	return info, nil
}

// DeleteObject removes the object and its sidecar metadata.
func (l *LocalAdapter) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := l.objectPath(bucket, key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil {
		return err
	}
	if err := os.Remove(p + ".meta"); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// PresignGet returns a public URL for the object.
func (l *LocalAdapter) PresignGet(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	if l.publicURL == "" {
		return "/" + strings.Join([]string{l.baseDir, bucket, key}, "/"), nil
	}

	return l.publicURL + "/" + bucket + "/" + key, nil
}

// FileHandler serves stored objects over HTTP. The path remainder after
// prefix is resolved as <bucket>/<key>, so the handler backs the public URL
// the adapter hands out from PresignGet. Sidecar metadata files are never
// served.
func (l *LocalAdapter) FileHandler(prefix string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := strings.TrimPrefix(r.URL.Path, prefix)
		rel = strings.TrimPrefix(rel, "/")
		if rel == "" || strings.HasSuffix(rel, ".meta") {
			http.NotFound(w, r)
			return
		}

		parts := strings.SplitN(rel, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			http.NotFound(w, r)
			return
		}

		rc, info, err := l.GetObject(r.Context(), parts[0], parts[1])
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer rc.Close()

		if info.ContentType != "" {
			w.Header().Set("Content-Type", info.ContentType)
		}
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))

		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(w, rc); err != nil {
			return
		}
	})
}

// Close releases local adapter resources.
func (l *LocalAdapter) Close() error {
	return nil
}
