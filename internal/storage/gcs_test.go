package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURLAndObjectPath(t *testing.T) {
	u := PublicURL("bookstore", "imagenes/abc123.png")
	assert.Equal(t, "https://firebasestorage.googleapis.com/v0/b/bookstore/o/imagenes%2Fabc123.png?alt=media", u)

	name, err := ObjectPath(u)
	require.NoError(t, err)
	assert.Equal(t, "imagenes/abc123.png", name)
}

func TestObjectPath_Invalid(t *testing.T) {
	for _, raw := range []string{
		"https://example.com/imagenes/abc.png",
		"https://firebasestorage.googleapis.com/v0/b/bookstore/o/",
		"::not a url",
	} {
		_, err := ObjectPath(raw)
		assert.ErrorIs(t, err, ErrInvalidAssetURL, raw)
	}
}

func TestObjectName(t *testing.T) {
	name := objectName(FolderDocuments, "Libro Final.PDF")
	assert.True(t, strings.HasPrefix(name, "files/"))
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(name, "files/"), ".pdf"), 32)
	assert.NotEqual(t, name, objectName(FolderDocuments, "Libro Final.PDF"))
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/upload/storage/v1/b/test-bucket/o"):
		name := r.URL.Query().Get("name")
		body, _ := io.ReadAll(r.Body)
		b.objects[name] = body
		_, _ = w.Write([]byte(`{"bucket":"test-bucket","name":"` + name + `"}`))
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/storage/v1/b/test-bucket/o/"):
		name := strings.TrimPrefix(r.URL.Path, "/storage/v1/b/test-bucket/o/")
		if _, ok := b.objects[name]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
			return
		}
		delete(b.objects, name)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestGCSStore_UploadAndDelete(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{}}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)
	t.Setenv("STORAGE_EMULATOR_HOST", srv.URL)

	ctx := context.Background()
	client, err := gcs.NewClient(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewGCSStore(client, "test-bucket")

	assetURL, err := store.Upload(ctx, FolderImages, "cover.PNG", "image/png", bytes.NewReader([]byte("png-bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(assetURL, "https://firebasestorage.googleapis.com/v0/b/test-bucket/o/imagenes%2F"))

	name, err := ObjectPath(assetURL)
	require.NoError(t, err)
	bucket.mu.Lock()
	stored, ok := bucket.objects[name]
	bucket.mu.Unlock()
	require.True(t, ok)
	assert.Contains(t, string(stored), "png-bytes")

	require.NoError(t, store.Delete(ctx, assetURL))
	// second delete hits a missing object
	require.NoError(t, store.Delete(ctx, assetURL))

	assert.ErrorIs(t, store.Delete(ctx, "https://example.com/x.png"), ErrInvalidAssetURL)
}
