package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadFiles_NoDirectoryListing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rec-1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec-1", "selfie-1.png"), []byte("png-bytes"), 0644))

	h := http.StripPrefix("/uploads/", uploadFiles(dir))

	for _, path := range []string{"/uploads/", "/uploads/rec-1/", "/uploads/rec-1", "/uploads/missing.png"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.NotContains(t, rr.Body.String(), "selfie-1.png", path)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/rec-1/selfie-1.png", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "png-bytes", rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}
