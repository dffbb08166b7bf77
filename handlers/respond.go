package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/casework"
	"p9e.in/verifyops/pkg/store"
)

// maxJSONBody bounds request bodies; inline evidence makes submissions large.
const maxJSONBody = 32 << 20

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("failed to encode response", "error", err)
	}
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(kind casework.Kind) int {
	switch kind {
	case casework.KindValidation, casework.KindMissingLocation:
		return http.StatusBadRequest
	case casework.KindUnauthorized:
		return http.StatusUnauthorized
	case casework.KindForbidden:
		return http.StatusForbidden
	case casework.KindNotFound:
		return http.StatusNotFound
	case casework.KindInvalidTransition, casework.KindConflict:
		return http.StatusConflict
	case casework.KindExpired, casework.KindAlreadyUsed:
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

// writeError renders err. Internal failures are logged and the body stays
// generic.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *casework.Error
	if !errors.As(err, &ce) {
		ce = &casework.Error{Kind: casework.KindStorage, Message: "internal error", Err: err}
	}
	status := statusFor(ce.Kind)
	body := errorBody{Error: string(ce.Kind), Message: ce.Message, Fields: ce.Fields}
	if status == http.StatusInternalServerError {
		zap.S().Errorw("request failed", "method", r.Method, "path", r.URL.Path, "kind", ce.Kind, "error", err)
		body.Message = "internal error"
		body.Fields = nil
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, r *http.Request, field, reason string) {
	writeError(w, r, casework.Validation(field, reason))
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, r, "body", "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// pathID parses the uuid mux variable name.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		badRequest(w, r, name, "must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// storeError maps raw store errors from packages that do not classify them.
func storeError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return casework.NewError(casework.KindNotFound, "case not found", err)
	}
	return casework.FromStore(op, err)
}

// recordFilter reads the list query string: status (repeatable or comma
// separated), q, vendorId, from, to, page, limit.
func recordFilter(r *http.Request) (store.RecordFilter, error) {
	q := r.URL.Query()
	var f store.RecordFilter
	for _, raw := range q["status"] {
		for _, s := range splitComma(raw) {
			st := models.CaseStatus(s)
			if !st.Valid() {
				return f, casework.Validation("status", fmt.Sprintf("unknown status %q", s))
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	f.Search = q.Get("q")
	if v := q.Get("vendorId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, casework.Validation("vendorId", "must be a UUID")
		}
		f.VendorID = &id
	}
	if v := q.Get("from"); v != "" {
		t, err := models.ParseTime(v)
		if err != nil {
			return f, casework.Validation("from", "must be a date, e.g. 2026-03-01")
		}
		f.CreatedFrom = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := models.ParseTime(v)
		if err != nil {
			return f, casework.Validation("to", "must be a date, e.g. 2026-03-31")
		}
		if models.IsDateOnly(t) {
			// a bare date includes the whole day
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.CreatedTo = &t
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f, nil
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
}
