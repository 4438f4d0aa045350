// Package media stores school images. Uploads go to the primary storage
// driver with bounded retries and fall back to local disk when the primary
// stays unavailable, so registration keeps working through storage outages.
package media

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"github.com/schoolhub/schoolhub/internal/pkg/storage"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	Bucket        string
	BaseURL       string
	UploadTimeout time.Duration
	MaxRetries    uint64
}

// Media uploads through primary first, then fallback. Either may be nil;
// at least one must be set.
type Media struct {
	primary  storage.Storage
	fallback storage.Storage
	cfg      Config
	ins      instrument.Instrumentation
}

func NewMedia(primary, fallback storage.Storage, cfg Config, ins instrument.Instrumentation) *Media {
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = time.Minute
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	return &Media{primary: primary, fallback: fallback, cfg: cfg, ins: ins}
}

func (m *Media) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return m.ins.Tracer("school.outbound.media").Start(ctx, name)
}

// Upload stores the image and returns its public URL.
func (m *Media) Upload(ctx context.Context, key string, body io.Reader, contentType string) (url string, err error) {
	ctx, span := m.startSpan(ctx, "Upload")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.UploadTimeout)
	defer cancel()

	if m.primary != nil {
		seeker, canRewind := body.(io.Seeker)

		backoff := retry.WithMaxRetries(m.cfg.MaxRetries, retry.NewFibonacci(200*time.Millisecond))
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			if canRewind {
				if _, err := seeker.Seek(0, io.SeekStart); err != nil {
					return err
				}
			}

			_, putErr := m.primary.PutObject(ctx, m.cfg.Bucket, key, body, storage.PutOptions{
				Size:        -1,
				ContentType: contentType,
			})
			if putErr != nil && canRewind {
				return retry.RetryableError(putErr)
			}

			return putErr
		})
		if err == nil {
			return m.publicURL(key), nil
		}

		if m.fallback == nil {
			return "", err
		}

		slog.WarnContext(ctx, "primary image storage unavailable, using fallback",
			"key", key, "error", err)

		if canRewind {
			if _, serr := seeker.Seek(0, io.SeekStart); serr != nil {
				return "", serr
			}
		}
	}

	if _, err = m.fallback.PutObject(ctx, m.cfg.Bucket, key, body, storage.PutOptions{
		Size:        -1,
		ContentType: contentType,
	}); err != nil {
		return "", err
	}

	return m.publicURL(key), nil
}

// Remove deletes the image from both stores. Missing objects are not errors.
func (m *Media) Remove(ctx context.Context, imageURL string) error {
	ctx, span := m.startSpan(ctx, "Remove")
	defer span.End()

	key, ok := m.keyFromURL(imageURL)
	if !ok {
		return nil
	}

	var errs []error
	for _, st := range []storage.Storage{m.primary, m.fallback} {
		if st == nil {
			continue
		}
		if err := st.DeleteObject(ctx, m.cfg.Bucket, key); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		slog.WarnContext(ctx, "failed to delete school image from storage",
			"key", key, "errors", errs)
		return errs[0]
	}

	return nil
}

func (m *Media) publicURL(key string) string {
	return strings.TrimSuffix(m.cfg.BaseURL, "/") + "/" + key
}

func (m *Media) keyFromURL(imageURL string) (string, bool) {
	base := strings.TrimSuffix(m.cfg.BaseURL, "/") + "/"
	if !strings.HasPrefix(imageURL, base) {
		return "", false
	}

	return strings.TrimPrefix(imageURL, base), true
}
