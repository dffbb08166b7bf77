package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"p9e.in/verifyops/pkg/casework"
	"p9e.in/verifyops/pkg/reports"
)

// MaxUploadBytes bounds a single evidence upload.
const MaxUploadBytes = 10 << 20

// allowedUploadTypes maps sniffed content types onto stored extensions.
var allowedUploadTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

type uploadResp struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// Upload stores one evidence file ("file" field) and returns the reference
// to put in a submission. Officers and admins use it before submitting.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	a.storeUpload(w, r, "officer")
}

// CandidateUpload is Upload for candidates, gated by a valid token.
func (a *App) CandidateUpload(w http.ResponseWriter, r *http.Request) {
	c, err := a.Cases.ValidateCandidateToken(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.storeUpload(w, r, "candidate/"+reports.SanitizeFilename(c.ReferenceNumber))
}

func (a *App) storeUpload(w http.ResponseWriter, r *http.Request, folder string) {
	if a.Evidence == nil {
		writeError(w, r, casework.NewError(casework.KindExternal, "evidence storage not configured", nil))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		badRequest(w, r, "file", "bad multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, r, "file", "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		badRequest(w, r, "file", "unreadable upload")
		return
	}
	if len(data) > MaxUploadBytes {
		badRequest(w, r, "file", fmt.Sprintf("larger than %d bytes", MaxUploadBytes))
		return
	}
	contentType := http.DetectContentType(data)
	ext, ok := allowedUploadTypes[contentType]
	if !ok {
		badRequest(w, r, "file", "unsupported file type "+contentType)
		return
	}

	base := strings.TrimSuffix(path.Base(header.Filename), path.Ext(header.Filename))
	base = reports.SanitizeFilename(strings.ReplaceAll(base, ".", "_"))
	name := fmt.Sprintf("files/%s/%s/%s-%s%s", folder, time.Now().UTC().Format("20060102"), uuid.NewString()[:8], base, ext)
	ref, err := a.Evidence.Put(r.Context(), name, contentType, data)
	if err != nil {
		writeError(w, r, casework.NewError(casework.KindExternal, "store upload", err))
		return
	}
	zap.S().Infow("evidence uploaded", "ref", ref, "size", len(data), "contentType", contentType)
	writeJSON(w, http.StatusCreated, uploadResp{URL: ref, Filename: header.Filename, ContentType: contentType, Size: len(data)})
}
