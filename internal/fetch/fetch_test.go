package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrustedRef(t *testing.T) {
	allowed := []string{"storage.example.com", "localhost"}

	tests := []struct {
		name string
		ref  string
		want bool
	}{
		{"allowed https host", "https://storage.example.com/uploads/a.jpg", true},
		{"allowed host mixed case", "https://Storage.Example.com/uploads/a.jpg", true},
		{"localhost http allowed", "http://localhost:9000/uploads/a.jpg", true},
		{"untrusted host", "https://evil.example.net/a.jpg", false},
		{"http on public host", "http://storage.example.com/a.jpg", false},
		{"missing path", "https://storage.example.com", false},
		{"bare root path", "https://storage.example.com/", false},
		{"ftp scheme", "ftp://storage.example.com/a.jpg", false},
		{"empty", "", false},
		{"not a url", "::::", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TrustedRef(tc.ref, allowed))
		})
	}
}

func TestFetchAllPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("img:" + r.URL.Path))
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)
	refs := []string{srv.URL + "/a.png", srv.URL + "/b.png", srv.URL + "/c.png"}
	images, err := client.FetchAll(context.Background(), refs)
	require.NoError(t, err)
	require.Len(t, images, 3)
	for i, img := range images {
		assert.Equal(t, refs[i], img.Ref)
		assert.Equal(t, "image/png", img.MIME)
		u, err := url.Parse(refs[i])
		require.NoError(t, err)
		assert.Equal(t, "img:"+u.Path, string(img.Data))
	}
}

func TestFetchAllFailsWhole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)
	_, err := client.FetchAll(context.Background(), []string{srv.URL + "/a.png", srv.URL + "/missing.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchAllEmptyInput(t *testing.T) {
	client := NewClient(time.Second)
	_, err := client.FetchAll(context.Background(), nil)
	require.Error(t, err)
}
