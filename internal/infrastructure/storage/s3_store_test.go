package storage

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/ledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewS3DocumentStore_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3DocumentStore(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3DocumentStore(ctx, &config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3DocumentStore(ctx, &config.StorageConfig{Bucket: "b", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3DocumentStore(ctx, &config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates store", func(t *testing.T) {
		store, err := NewS3DocumentStore(ctx, &config.StorageConfig{
			Bucket:       "ledger",
			AccessKey:    "k",
			SecretKey:    "s",
			Endpoint:     "localhost:9000",
			UsePathStyle: true,
			Prefix:       "/env/",
		}, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, "ledger", store.GetBucket())
		assert.Equal(t, "env/", store.prefix)
		assert.Equal(t, "env/tenant/t1", store.objectKey("tenant/t1"))
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		useSSL   bool
		want     string
	}{
		{"empty uses default resolution", "", false, ""},
		{"adds http when missing", "localhost:9000", false, "http://localhost:9000"},
		{"adds https when ssl", "s3.example.com", true, "https://s3.example.com"},
		{"keeps explicit scheme", "https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3DocumentStore_EmptyKey(t *testing.T) {
	store, err := NewS3DocumentStore(context.Background(), &config.StorageConfig{
		Bucket: "b", AccessKey: "k", SecretKey: "s", Endpoint: "http://localhost:9000", UsePathStyle: true,
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Exists(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = store.Read(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, store.Write(ctx, "", []byte("{}")), ErrInvalidKey)
	assert.ErrorIs(t, store.Delete(ctx, ""), ErrInvalidKey)
}

// fakeS3 is a minimal path-style object server covering the calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

type listResult struct {
	XMLName     xml.Name `xml:"ListBucketResult"`
	Name        string   `xml:"Name"`
	Prefix      string   `xml:"Prefix"`
	KeyCount    int      `xml:"KeyCount"`
	IsTruncated bool     `xml:"IsTruncated"`
	Contents    []struct {
		Key  string `xml:"Key"`
		Size int    `xml:"Size"`
	} `xml:"Contents"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if bucket != f.bucket {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}

	if key == "" && r.Method == http.MethodGet {
		prefix := r.URL.Query().Get("prefix")
		res := listResult{Name: f.bucket, Prefix: prefix}
		keys := make([]string, 0)
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			res.Contents = append(res.Contents, struct {
				Key  string `xml:"Key"`
				Size int    `xml:"Size"`
			}{Key: k, Size: len(f.objects[k])})
		}
		res.KeyCount = len(keys)
		w.Header().Set("Content-Type", "application/xml")
		_ = xml.NewEncoder(w).Encode(res)
		return
	}

	switch r.Method {
	case http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>`+code+`</Message></Error>`)
}

func newFakeS3Store(t *testing.T) (*S3DocumentStore, *fakeS3) {
	t.Helper()
	fake := &fakeS3{bucket: "ledger", objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3DocumentStore(context.Background(), &config.StorageConfig{
		Bucket:       "ledger",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     srv.URL,
		UsePathStyle: true,
		Prefix:       "test",
	})
	require.NoError(t, err)
	return store, fake
}

func TestS3DocumentStore_RoundTrip(t *testing.T) {
	store, fake := newFakeS3Store(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "tenant/t1/products/A")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Read(ctx, "tenant/t1/products/A")
	assert.True(t, IsNotFound(err))

	require.NoError(t, store.Write(ctx, "tenant/t1/products/A", []byte(`{"sku":"A"}`)))
	require.NoError(t, store.Write(ctx, "tenant/t1/products/B", []byte(`{"sku":"B"}`)))
	require.NoError(t, store.Write(ctx, "tenant/t2/products/C", []byte(`{"sku":"C"}`)))

	assert.Contains(t, fake.objects, "test/tenant/t1/products/A")

	ok, err = store.Exists(ctx, "tenant/t1/products/A")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := store.Read(ctx, "tenant/t1/products/A")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sku":"A"}`, string(data))

	keys, err := store.ListByPrefix(ctx, "tenant/t1/products/")
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant/t1/products/A", "tenant/t1/products/B"}, keys)

	require.NoError(t, store.Delete(ctx, "tenant/t1/products/A"))
	ok, err = store.Exists(ctx, "tenant/t1/products/A")
	require.NoError(t, err)
	assert.False(t, ok)
}
