package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"p9e.in/verifyops/middleware"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/accounts"
	"p9e.in/verifyops/pkg/casework"
)

type statusReq struct {
	Status models.AccountStatus `json:"status"`
}

// CreateUser adds another admin.
func (a *App) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in accounts.UserInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := a.Accounts.CreateUser(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (a *App) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var in accounts.VendorInput
	if !decodeJSON(w, r, &in) {
		return
	}
	v, err := a.Accounts.CreateVendor(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (a *App) ListVendors(w http.ResponseWriter, r *http.Request) {
	out, err := a.Accounts.ListVendors(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"vendors": out, "total": len(out)})
}

func (a *App) GetVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "vendorId")
	if !ok {
		return
	}
	v, err := a.Accounts.GetVendor(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetVendorStatus activates or deactivates a vendor; deactivation cascades
// to its officers.
func (a *App) SetVendorStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "vendorId")
	if !ok {
		return
	}
	var req statusReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.Accounts.SetVendorStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": req.Status})
}

// officerScope resolves which vendor an officer request is about: the
// {vendorId} path variable on admin routes, the caller's own vendor
// otherwise.
func officerScope(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if _, ok := mux.Vars(r)["vendorId"]; ok {
		return pathID(w, r, "vendorId")
	}
	actor := middleware.ActorFrom(r)
	if actor.VendorID == nil {
		writeError(w, r, casework.NewError(casework.KindForbidden, "vendor scope missing", nil))
		return uuid.Nil, false
	}
	return *actor.VendorID, true
}

func (a *App) CreateFieldOfficer(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := officerScope(w, r)
	if !ok {
		return
	}
	var in accounts.OfficerInput
	if !decodeJSON(w, r, &in) {
		return
	}
	f, err := a.Accounts.CreateFieldOfficer(r.Context(), vendorID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (a *App) ListFieldOfficers(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := officerScope(w, r)
	if !ok {
		return
	}
	out, err := a.Accounts.ListFieldOfficers(r.Context(), vendorID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"officers": out, "total": len(out)})
}

// SetFieldOfficerStatus is open to admins for any officer and to vendors for
// their own.
func (a *App) SetFieldOfficerStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "officerId")
	if !ok {
		return
	}
	var req statusReq
	if !decodeJSON(w, r, &req) {
		return
	}
	var scope *uuid.UUID
	if actor := middleware.ActorFrom(r); actor.Role != models.RoleAdmin {
		if actor.VendorID == nil {
			writeError(w, r, casework.NewError(casework.KindForbidden, "vendor scope missing", nil))
			return
		}
		scope = actor.VendorID
	}
	if err := a.Accounts.SetFieldOfficerStatus(r.Context(), scope, id, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": req.Status})
}
