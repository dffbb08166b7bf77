package routes

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"p9e.in/verifyops/handlers"
	"p9e.in/verifyops/middleware"
	"p9e.in/verifyops/utils"
)

// Options are the non-handler knobs of the router.
type Options struct {
	// UploadDir, when set, is served under /uploads/ for local evidence.
	UploadDir string
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(app *handlers.App, opts Options) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recover, middleware.RequestLogger)

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/login", app.Login).Methods("POST")
	r.HandleFunc("/s/{code}", app.ShortLink).Methods("GET")
	if opts.UploadDir != "" {
		r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", uploadFiles(opts.UploadDir)))
	}

	// Candidate routes are gated by the token in the path only
	candidate := r.PathPrefix("/candidate/{token}").Subrouter()
	candidate.HandleFunc("", app.CandidateCase).Methods("GET")
	candidate.HandleFunc("/submit", app.CandidateSubmit).Methods("POST")
	candidate.HandleFunc("/uploads", app.CandidateUpload).Methods("POST")

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	api.HandleFunc("/profile", app.Profile).Methods("GET")
	api.Handle("/uploads", guard(utils.PermCaseSubmit, app.Upload)).Methods("POST")

	registerCaseRoutes(api, app)
	registerExportRoutes(api, app)

	// =====================================================
	// Admin Routes
	// =====================================================
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Handle("/users", guard(utils.PermUserManage, app.CreateUser)).Methods("POST")
	admin.Handle("/vendors", guard(utils.PermVendorManage, app.CreateVendor)).Methods("POST")
	admin.Handle("/vendors", guard(utils.PermVendorManage, app.ListVendors)).Methods("GET")
	admin.Handle("/vendors/{vendorId}", guard(utils.PermVendorManage, app.GetVendor)).Methods("GET")
	admin.Handle("/vendors/{vendorId}/status", guard(utils.PermVendorManage, app.SetVendorStatus)).Methods("PUT")
	admin.Handle("/vendors/{vendorId}/officers", guard(utils.PermVendorManage, app.CreateFieldOfficer)).Methods("POST")
	admin.Handle("/vendors/{vendorId}/officers", guard(utils.PermVendorManage, app.ListFieldOfficers)).Methods("GET")
	admin.Handle("/officers/{officerId}/status", guard(utils.PermVendorManage, app.SetFieldOfficerStatus)).Methods("PUT")

	// =====================================================
	// Vendor Routes (own officers)
	// =====================================================
	vendor := api.PathPrefix("/vendor").Subrouter()
	vendor.Handle("/officers", guard(utils.PermOfficerWrite, app.CreateFieldOfficer)).Methods("POST")
	vendor.Handle("/officers", guard(utils.PermOfficerRead, app.ListFieldOfficers)).Methods("GET")
	vendor.Handle("/officers/{officerId}/status", guard(utils.PermOfficerWrite, app.SetFieldOfficerStatus)).Methods("PUT")

	return r
}

// registerCaseRoutes wires the case endpoints. Scoping by vendor or officer
// happens in the case service, so one set of routes serves every role.
func registerCaseRoutes(api *mux.Router, app *handlers.App) {
	api.Handle("/cases", guard(utils.PermCaseCreate, app.CreateCase)).Methods("POST")
	api.Handle("/cases", guard(utils.PermCaseRead, app.ListCases)).Methods("GET")
	api.Handle("/cases/import", guard(utils.PermCaseCreate, app.ImportCases)).Methods("POST")
	api.Handle("/cases/import/template", guard(utils.PermCaseCreate, app.ImportTemplate)).Methods("GET")

	api.Handle("/cases/{id}", guard(utils.PermCaseRead, app.GetCase)).Methods("GET")
	api.Handle("/cases/{id}/history", guard(utils.PermCaseRead, app.History)).Methods("GET")

	api.Handle("/cases/{id}/assignment", guard(utils.PermCaseAssign, app.UpdateAssignment)).Methods("PUT")
	api.Handle("/cases/{id}/officer", guard(utils.PermCaseAssign, app.AssignFieldOfficer)).Methods("POST")
	api.Handle("/cases/{id}/candidate", guard(utils.PermCaseAssign, app.AssignCandidate)).Methods("POST")

	api.Handle("/cases/{id}/submit", guard(utils.PermCaseSubmit, app.SubmitVerification)).Methods("POST")

	api.Handle("/cases/{id}/decision", guard(utils.PermCaseDecide, app.Decide)).Methods("POST")
	api.Handle("/cases/{id}/reinitiate", guard(utils.PermCaseControl, app.Reinitiate)).Methods("POST")
	api.Handle("/cases/{id}/stop", guard(utils.PermCaseControl, app.Stop)).Methods("POST")
	api.Handle("/cases/{id}/revert", guard(utils.PermCaseControl, app.Revert)).Methods("POST")
}

func registerExportRoutes(api *mux.Router, app *handlers.App) {
	api.Handle("/exports/cases.xlsx", guard(utils.PermReportExport, app.ExportXLSX)).Methods("GET")
	api.Handle("/exports/cases.csv", guard(utils.PermReportExport, app.ExportCSV)).Methods("GET")
	api.Handle("/exports/cases.zip", guard(utils.PermReportExport, app.ExportZip)).Methods("GET")
	api.Handle("/cases/{id}/pdf", guard(utils.PermReportExport, app.ExportPDF)).Methods("GET")
}

// filesOnly hides directories so stored evidence cannot be enumerated.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

func uploadFiles(dir string) http.Handler {
	files := http.FileServer(filesOnly{http.Dir(dir)})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}

func guard(perm string, h http.HandlerFunc) http.Handler {
	return middleware.RequirePermission(perm)(h)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
