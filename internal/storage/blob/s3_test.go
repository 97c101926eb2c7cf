package blob

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/newthinker/stockwatch/internal/core"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Config_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "file.txt", "file.txt"},
		{"watchlists", "file.txt", "watchlists/file.txt"},
		{"watchlists/", "file.txt", "watchlists/file.txt"},
	}

	for _, tt := range tests {
		s := &S3Storage{prefix: strings.TrimSuffix(tt.prefix, "/")}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
	}
}

// fakeS3 understands just enough of the path-style S3 API for conditional
// puts, heads and deletes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := r.URL.Path
	switch r.Method {
	case http.MethodPut:
		io.Copy(io.Discard, r.Body)
		if r.Header.Get("If-None-Match") == "*" && f.objects[key] {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusPreconditionFailed)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>PreconditionFailed</Code><Message>At least one of the pre-conditions you specified did not hold</Message></Error>`)
			return
		}
		f.objects[key] = true
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if !f.objects[key] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeS3(t *testing.T) *S3Storage {
	t.Helper()
	srv := httptest.NewServer(&fakeS3{objects: make(map[string]bool)})
	t.Cleanup(srv.Close)

	s, err := NewS3(S3Config{
		Bucket:    "stockwatch",
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test",
		Prefix:    "data",
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	return s
}

func TestS3Storage_CreateConditional(t *testing.T) {
	s := newFakeS3(t)
	ctx := context.Background()

	if err := s.Create(ctx, "watchlists/u1/AAPL.json", []byte(`{}`)); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := s.Create(ctx, "watchlists/u1/AAPL.json", []byte(`{}`))
	if !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("expected ALREADY_EXISTS, got %v", err)
	}
}

func TestS3Storage_ExistsAndDelete(t *testing.T) {
	s := newFakeS3(t)
	ctx := context.Background()

	exists, err := s.exists(ctx, "watchlists/u1/AAPL.json")
	if err != nil || exists {
		t.Fatalf("expected missing object, got exists=%v err=%v", exists, err)
	}

	if err := s.Delete(ctx, "watchlists/u1/AAPL.json"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected NOT_FOUND deleting missing object, got %v", err)
	}

	s.Create(ctx, "watchlists/u1/AAPL.json", []byte(`{}`))
	exists, err = s.exists(ctx, "watchlists/u1/AAPL.json")
	if err != nil || !exists {
		t.Fatalf("expected object to exist, got exists=%v err=%v", exists, err)
	}

	if err := s.Delete(ctx, "watchlists/u1/AAPL.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	exists, _ = s.exists(ctx, "watchlists/u1/AAPL.json")
	if exists {
		t.Error("expected object to be gone after delete")
	}
}
