package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newLocalAdapter(t *testing.T) *LocalAdapter {
	t.Helper()

	l, err := NewLocal(LocalOptions{
		BaseDir:   t.TempDir(),
		PublicURL: "http://localhost:8080/uploads",
	})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	return l
}

func TestLocalFileHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("ServesStoredObjectAtItsPublicURL", func(t *testing.T) {
		// Arrange
		l := newLocalAdapter(t)
		_, err := l.PutObject(ctx, "schools", "7/springfield.png", strings.NewReader("png-bytes"), PutOptions{
			ContentType: "image/png",
		})
		if err != nil {
			t.Fatalf("PutObject: %v", err)
		}
		url, err := l.PresignGet(ctx, "schools", "7/springfield.png", 0)
		if err != nil {
			t.Fatalf("PresignGet: %v", err)
		}
		path := strings.TrimPrefix(url, "http://localhost:8080")

		// Act
		rec := httptest.NewRecorder()
		l.FileHandler("/uploads").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		// Assert
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != "image/png" {
			t.Fatalf("unexpected content type: %q", got)
		}
		if rec.Body.String() != "png-bytes" {
			t.Fatalf("unexpected body: %q", rec.Body.String())
		}
	})

	t.Run("HidesSidecarMetadata", func(t *testing.T) {
		// Arrange
		l := newLocalAdapter(t)
		if _, err := l.PutObject(ctx, "schools", "7/a.png", strings.NewReader("x"), PutOptions{}); err != nil {
			t.Fatalf("PutObject: %v", err)
		}

		// Act
		rec := httptest.NewRecorder()
		l.FileHandler("/uploads").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/schools/7/a.png.meta", nil))

		// Assert
		if rec.Code != http.StatusNotFound {
			t.Fatalf("metadata sidecar must not be served, got %d", rec.Code)
		}
	})

	t.Run("RejectsPathTraversal", func(t *testing.T) {
		// Arrange
		l := newLocalAdapter(t)

		// Act
		req := httptest.NewRequest(http.MethodGet, "/uploads/schools/x", nil)
		req.URL.Path = "/uploads/schools/../../etc/passwd"
		rec := httptest.NewRecorder()
		l.FileHandler("/uploads").ServeHTTP(rec, req)

		// Assert
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for traversal, got %d", rec.Code)
		}
	})

	t.Run("UnknownObjectAnswers404", func(t *testing.T) {
		// Arrange
		l := newLocalAdapter(t)

		// Act
		rec := httptest.NewRecorder()
		l.FileHandler("/uploads").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/schools/missing.png", nil))

		// Assert
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
