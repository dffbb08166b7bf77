package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"p9e.in/verifyops/middleware"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/casework"
	"p9e.in/verifyops/pkg/reports"
)

// maxImportUpload bounds xlsx uploads.
const maxImportUpload = 20 << 20

type commentReq struct {
	Comment string `json:"comment"`
}

type decisionReq struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
}

type officerReq struct {
	FieldOfficerID uuid.UUID `json:"fieldOfficerId"`
}

type listResp struct {
	Cases interface{} `json:"cases"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func (a *App) CreateCase(w http.ResponseWriter, r *http.Request) {
	var in casework.RecordInput
	if !decodeJSON(w, r, &in) {
		return
	}
	rec, err := a.Cases.CreateRecord(r.Context(), in, middleware.ActorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ImportCases creates cases from an uploaded xlsx ("file" field). Rows are
// independent: the response lists the outcome of each.
func (a *App) ImportCases(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportUpload); err != nil {
		badRequest(w, r, "file", "bad multipart form: "+err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		badRequest(w, r, "file", "missing file field")
		return
	}
	defer file.Close()

	rows, first, err := reports.ReadCaseRows(file)
	if err != nil {
		badRequest(w, r, "file", err.Error())
		return
	}
	if len(rows) == 0 {
		badRequest(w, r, "file", "no data rows")
		return
	}
	summary := a.Cases.ImportRecords(r.Context(), rows, first, middleware.ActorFrom(r))
	writeJSON(w, http.StatusOK, summary)
}

// ImportTemplate downloads an empty import sheet.
func (a *App) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	f, err := reports.ImportTemplate()
	if err != nil {
		writeError(w, r, casework.NewError(casework.KindStorage, "build template", err))
		return
	}
	defer f.Close()
	attachment(w, xlsxContentType, "case_import_template.xlsx")
	if err := f.Write(w); err != nil {
		writeError(w, r, casework.NewError(casework.KindStorage, "write template", err))
	}
}

// ListCases returns a page of cases visible to the caller.
func (a *App) ListCases(w http.ResponseWriter, r *http.Request) {
	f, err := recordFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, total, err := a.Cases.ListCases(r.Context(), f, middleware.ActorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, limit := f.Offset()
	writeJSON(w, http.StatusOK, listResp{Cases: records, Total: total, Page: offset/limit + 1, Limit: limit})
}

func (a *App) GetCase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := a.Cases.GetCase(r.Context(), id, middleware.ActorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateAssignment sets vendor and/or field officer.
func (a *App) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in casework.AssignmentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	rec, err := a.Cases.UpdateAssignment(r.Context(), id, in, middleware.ActorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// AssignFieldOfficer is the vendor shortcut for placing one of its officers.
func (a *App) AssignFieldOfficer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req officerReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FieldOfficerID == uuid.Nil {
		badRequest(w, r, "fieldOfficerId", "required")
		return
	}
	rec, err := a.Cases.AssignFieldOfficer(r.Context(), id, req.FieldOfficerID, middleware.ActorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// AssignCandidate routes the case to self-submission and reports the link
// and per-channel notification outcome.
func (a *App) AssignCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req casework.CandidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := a.Cases.AssignCandidate(r.Context(), id, req, middleware.ActorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SubmitVerification is the field officer submission.
func (a *App) SubmitVerification(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var p casework.OfficerSubmission
	if !decodeJSON(w, r, &p) {
		return
	}
	rec, err := a.Cases.SubmitFieldOfficer(r.Context(), id, p, middleware.ActorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Decide approves or rejects a submitted or insufficient case.
func (a *App) Decide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req decisionReq
	if !decodeJSON(w, r, &req) {
		return
	}
	var approve bool
	switch req.Decision {
	case "approve", "approved":
		approve = true
	case "reject", "rejected":
	default:
		badRequest(w, r, "decision", "must be approve or reject")
		return
	}
	rec, err := a.Cases.Decide(r.Context(), id, approve, req.Comment, middleware.ActorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type controlOp func(ctx context.Context, id uuid.UUID, comment string, actor casework.Actor) (*models.Record, error)

// control adapts the reinitiate/stop/revert operations, which share a shape.
func (a *App) control(op controlOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var req commentReq
		if !decodeJSON(w, r, &req) {
			return
		}
		rec, err := op(r.Context(), id, req.Comment, middleware.ActorFrom(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (a *App) Reinitiate(w http.ResponseWriter, r *http.Request) {
	a.control(a.Cases.Reinitiate)(w, r)
}

func (a *App) Stop(w http.ResponseWriter, r *http.Request) {
	a.control(a.Cases.Stop)(w, r)
}

func (a *App) Revert(w http.ResponseWriter, r *http.Request) {
	a.control(a.Cases.Revert)(w, r)
}

// History lists the audit trail of a case.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	out, err := a.Cases.History(r.Context(), id, middleware.ActorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transitions": out})
}
