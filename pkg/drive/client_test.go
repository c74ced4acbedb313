package drive

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	var sharedID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		switch {
		case strings.HasPrefix(r.URL.Path, "/upload/drive/v3/files"):
			mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			require.NoError(t, err)
			assert.Equal(t, "multipart/related", mediaType)

			mr := multipart.NewReader(r.Body, params["boundary"])

			metaPart, err := mr.NextPart()
			require.NoError(t, err)
			meta, err := io.ReadAll(metaPart)
			require.NoError(t, err)
			assert.Contains(t, string(meta), `"name":"leads_clean.csv"`)
			assert.Contains(t, string(meta), `"parents":["folder-1"]`)

			mediaPart, err := mr.NextPart()
			require.NoError(t, err)
			media, err := io.ReadAll(mediaPart)
			require.NoError(t, err)
			assert.Equal(t, "Name,Limpio\nAna,Si\n", string(media))

			_, _ = w.Write([]byte(`{"id": "file-42"}`))

		case strings.HasPrefix(r.URL.Path, "/drive/v3/files/"):
			sharedID = strings.Split(strings.TrimPrefix(r.URL.Path, "/drive/v3/files/"), "/")[0]
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"type":"anyone"`)
			_, _ = w.Write([]byte(`{}`))

		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient("tok-123", "folder-1", WithBaseURL(srv.URL))
	link, err := c.Upload(context.Background(), strings.NewReader("Name,Limpio\nAna,Si\n"), "leads_clean.csv")
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/file/d/file-42/view?usp=sharing", link)
	assert.Equal(t, "file-42", sharedID)
}

func TestUpload_CreateFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "insufficient permissions"}`))
	}))
	defer srv.Close()

	c := NewClient("tok-123", "", WithBaseURL(srv.URL))
	_, err := c.Upload(context.Background(), strings.NewReader("x"), "f.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload status 403")
}

func TestUpload_MissingFileID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("tok-123", "", WithBaseURL(srv.URL))
	_, err := c.Upload(context.Background(), strings.NewReader("x"), "f.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing file id")
}

func TestUpload_ShareFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/upload/") {
			_, _ = w.Write([]byte(`{"id": "file-42"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("tok-123", "", WithBaseURL(srv.URL))
	_, err := c.Upload(context.Background(), strings.NewReader("x"), "f.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission status 500")
}
