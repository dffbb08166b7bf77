// handlers/auth.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"p9e.in/verifyops/middleware"
	"p9e.in/verifyops/pkg/casework"
	"p9e.in/verifyops/utils"
)

type loginReq struct {
	Type     string `json:"type"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResp struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

type userPayload struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Role     string     `json:"role"`
	VendorID *uuid.UUID `json:"vendorId,omitempty"`
}

// Login authenticates an admin or vendor by email, or a field officer by
// phone, and returns a signed JWT.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}
	login := req.Email
	if req.Phone != "" {
		login = req.Phone
	}
	p, err := a.Accounts.Authenticate(r.Context(), req.Type, login, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, err := middleware.GenerateToken(p.ID.String(), p.Role, p.Name, p.VendorID)
	if err != nil {
		writeError(w, r, casework.NewError(casework.KindStorage, "couldn't create token", err))
		return
	}
	zap.S().Infow("login", "userId", p.ID, "role", p.Role)
	writeJSON(w, http.StatusOK, loginResp{
		Token: token,
		User:  userPayload{ID: p.ID, Name: p.Name, Role: p.Role, VendorID: p.VendorID},
	})
}

// Profile echoes the caller's identity and permission patterns.
func (a *App) Profile(w http.ResponseWriter, r *http.Request) {
	c := middleware.GetClaims(r)
	if c == nil {
		writeError(w, r, casework.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId":      c.UserID,
		"name":        c.Name,
		"role":        c.Role,
		"vendorId":    c.VendorID,
		"permissions": utils.PermissionsForRole(c.Role),
	})
}
