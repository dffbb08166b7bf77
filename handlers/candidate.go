package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"p9e.in/verifyops/middleware"
	"p9e.in/verifyops/pkg/casework"
)

// CandidateCase validates the token in the path and returns the limited
// case view. Expired or used tokens answer 410.
func (a *App) CandidateCase(w http.ResponseWriter, r *http.Request) {
	c, err := a.Cases.ValidateCandidateToken(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CandidateSubmit stores the candidate's self-submission and consumes the
// token.
func (a *App) CandidateSubmit(w http.ResponseWriter, r *http.Request) {
	var p casework.CandidateSubmission
	if !decodeJSON(w, r, &p) {
		return
	}
	rec, err := a.Cases.SubmitCandidate(r.Context(), mux.Vars(r)["token"], middleware.ClientIP(r), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"referenceNumber": rec.ReferenceNumber,
		"status":          rec.Status,
		"submittedAt":     rec.SubmittedAt,
	})
}

// ShortLink redirects a short code to the long candidate URL.
func (a *App) ShortLink(w http.ResponseWriter, r *http.Request) {
	target, err := a.Cases.ResolveShortLink(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
