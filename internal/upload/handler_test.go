package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newUploadRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"), func(c *gin.Context) { c.Next() })
	return r
}

func postFile(t *testing.T, r http.Handler, field, name string, data []byte) (int, map[string]string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	out := map[string]string{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestUploadStoresImage(t *testing.T) {
	dir := t.TempDir()
	r := newUploadRouter(NewHandler(NewLocalStorage(dir, "/uploads"), true, 0, zap.NewNop()))

	code, out := postFile(t, r, "image", "poster.txt", pngHeader)
	require.Equal(t, http.StatusOK, code, out)

	url := out["imageUrl"]
	assert.True(t, strings.HasPrefix(url, "/uploads/image-"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	saved, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, saved)
}

func TestUploadRejections(t *testing.T) {
	r := newUploadRouter(NewHandler(NewLocalStorage(t.TempDir(), "/uploads"), true, DefaultMaxBytes, zap.NewNop()))

	code, out := postFile(t, r, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No file uploaded", out["error"])

	code, out = postFile(t, r, "file", "a.png", pngHeader)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No file uploaded", out["error"])

	code, out = postFile(t, r, "image", "evil.png", []byte("#!/bin/sh\necho hi\n"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Only image files are allowed", out["error"])

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(document.domain)</script></svg>`)
	code, out = postFile(t, r, "image", "logo.svg", svg)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Only image files are allowed", out["error"])

	big := append(append([]byte{}, pngHeader...), make([]byte, DefaultMaxBytes)...)
	code, out = postFile(t, r, "image", "big.png", big)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "File size too large (max 5MB)", out["error"])
}

func TestUploadAcceptsRasterFormats(t *testing.T) {
	r := newUploadRouter(NewHandler(NewLocalStorage(t.TempDir(), "/uploads"), true, 0, zap.NewNop()))

	cases := map[string][]byte{
		".jpg": []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00"),
		".gif": []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00"),
	}
	for ext, data := range cases {
		code, out := postFile(t, r, "image", "x"+ext, data)
		require.Equal(t, http.StatusOK, code, ext)
		assert.True(t, strings.HasSuffix(out["imageUrl"], ext), out["imageUrl"])
	}
}

func TestUploadDisabled(t *testing.T) {
	r := newUploadRouter(NewHandler(NewLocalStorage(t.TempDir(), "/uploads"), false, 0, zap.NewNop()))
	code, _ := postFile(t, r, "image", "a.png", pngHeader)
	assert.Equal(t, http.StatusGone, code)
}

type failingStorage struct{}

func (failingStorage) Save(context.Context, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func TestUploadStorageFailure(t *testing.T) {
	r := newUploadRouter(NewHandler(failingStorage{}, true, 0, zap.NewNop()))
	code, out := postFile(t, r, "image", "a.png", pngHeader)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Upload failed", out["error"])
}

func TestLocalStorageRejectsPaths(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), "/uploads")
	_, err := s.Save(context.Background(), "../escape.png", pngHeader)
	assert.Error(t, err)
}
