package handlers_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
	"p9e.in/verifyops/handlers"
	"p9e.in/verifyops/middleware"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/accounts"
	"p9e.in/verifyops/pkg/casework"
	"p9e.in/verifyops/pkg/evidence"
	"p9e.in/verifyops/pkg/notify"
	"p9e.in/verifyops/pkg/reports"
	"p9e.in/verifyops/pkg/store/memstore"
	"p9e.in/verifyops/routes"
)

const password = "s3cret-pass"

type testEnv struct {
	t       *testing.T
	handler http.Handler
	cases   *casework.Service
	acc     *accounts.Service
	store   *memstore.Store

	mu  sync.Mutex
	now time.Time

	adminToken   string
	vendor       *models.Vendor
	vendorToken  string
	officer      *models.FieldOfficer
	officerToken string
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	e.now = e.now.Add(d)
	e.mu.Unlock()
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	middleware.SetSecret("handler-test-secret")
	ctx := context.Background()

	st := memstore.New()
	uploads, err := evidence.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	e := &testEnv{t: t, store: st, now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	e.cases = casework.New(st, uploads, notify.NewDispatcher(notify.Config{}, nil, nil), casework.Options{
		PublicBaseURL: "https://verify.test",
		TokenTTLHours: 48,
		TATDays:       7,
	})
	e.cases.SetClock(e.clock)
	e.acc = accounts.New(st)
	e.acc.SetHashCost(bcrypt.MinCost)

	app := handlers.New(e.cases, e.acc, reports.NewExporter(st, evidence.NewResolver(uploads)), uploads)
	e.handler = routes.RegisterRoutes(app, routes.Options{})

	_, err = e.acc.CreateUser(ctx, accounts.UserInput{Name: "Root", Email: "root@verify.test", Password: password})
	require.NoError(t, err)
	e.vendor, err = e.acc.CreateVendor(ctx, accounts.VendorInput{Name: "Acme Checks", Email: "ops@acme.test", Password: password})
	require.NoError(t, err)
	e.officer, err = e.acc.CreateFieldOfficer(ctx, e.vendor.ID, accounts.OfficerInput{Name: "Ravi", Phone: "9876543210", Password: password})
	require.NoError(t, err)

	e.adminToken = e.login(map[string]string{"type": "admin", "email": "root@verify.test", "password": password})
	e.vendorToken = e.login(map[string]string{"type": "vendor", "email": "ops@acme.test", "password": password})
	e.officerToken = e.login(map[string]string{"type": "field_officer", "phone": "9876543210", "password": password})
	return e
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) login(body map[string]string) string {
	e.t.Helper()
	rr := e.do(http.MethodPost, "/login", "", body)
	require.Equal(e.t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	decode(e.t, rr, &out)
	require.NotEmpty(e.t, out.Token)
	return out.Token
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func errorKind(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rr, &body)
	return body.Error
}

func (e *testEnv) createCase(caseNumber string) models.Record {
	e.t.Helper()
	rr := e.do(http.MethodPost, "/api/v1/cases", e.adminToken, map[string]interface{}{
		"caseNumber":  caseNumber,
		"name":        "Asha Rao",
		"addressLine": "12 MG Road",
		"city":        "Pune",
		"gpsLat":      18.5204,
		"gpsLng":      73.8567,
	})
	require.Equal(e.t, http.StatusCreated, rr.Code, rr.Body.String())
	var rec models.Record
	decode(e.t, rr, &rec)
	return rec
}

func (e *testEnv) assignOfficer(id uuid.UUID) {
	e.t.Helper()
	rr := e.do(http.MethodPut, "/api/v1/cases/"+id.String()+"/assignment", e.adminToken, map[string]interface{}{
		"vendorId":       e.vendor.ID,
		"fieldOfficerId": e.officer.ID,
	})
	require.Equal(e.t, http.StatusOK, rr.Code, rr.Body.String())
}

func officerPayload() map[string]interface{} {
	return map[string]interface{}{
		"respondentName":      "Meena Rao",
		"respondentRelation":  "mother",
		"gpsLat":              18.5207,
		"gpsLng":              73.8569,
		"photos":              []string{"/uploads/seed/p1.jpg"},
		"respondentSignature": "/uploads/seed/rs.png",
		"officerSignature":    "/uploads/seed/os.png",
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong password", map[string]string{"type": "admin", "email": "root@verify.test", "password": "nope-nope"}, http.StatusUnauthorized},
		{"unknown vendor", map[string]string{"type": "vendor", "email": "who@acme.test", "password": password}, http.StatusUnauthorized},
		{"unknown kind", map[string]string{"type": "robot", "email": "root@verify.test", "password": password}, http.StatusBadRequest},
		{"missing password", map[string]string{"type": "admin", "email": "root@verify.test"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(http.MethodPost, "/login", "", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}

	rr := e.do(http.MethodGet, "/api/v1/profile", e.vendorToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var profile map[string]interface{}
	decode(t, rr, &profile)
	assert.Equal(t, "vendor", profile["role"])
	assert.Equal(t, e.vendor.ID.String(), profile["vendorId"])
}

func TestLogin_InactiveVendor(t *testing.T) {
	e := newEnv(t)
	rr := e.do(http.MethodPut, "/api/v1/admin/vendors/"+e.vendor.ID.String()+"/status", e.adminToken, map[string]string{"status": "inactive"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(http.MethodPost, "/login", "", map[string]string{"type": "vendor", "email": "ops@acme.test", "password": password})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// deactivation cascades to the vendor's officers
	rr = e.do(http.MethodPost, "/login", "", map[string]string{"type": "field_officer", "phone": "9876543210", "password": password})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDeactivatedAccountTokensCannotMutateCases(t *testing.T) {
	e := newEnv(t)
	rec := e.createCase("CASE-001")
	e.assignOfficer(rec.ID)
	path := "/api/v1/cases/" + rec.ID.String()

	rr := e.do(http.MethodPut, "/api/v1/admin/vendors/"+e.vendor.ID.String()+"/status", e.adminToken, map[string]string{"status": "inactive"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// tokens issued before deactivation are still well formed
	rr = e.do(http.MethodPost, path+"/submit", e.officerToken, officerPayload())
	assert.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())
	assert.Equal(t, "forbidden", errorKind(t, rr))

	rr = e.do(http.MethodPost, path+"/candidate", e.vendorToken, map[string]interface{}{"name": "Asha Rao", "mobile": "9876543210"})
	assert.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())

	rr = e.do(http.MethodGet, path, e.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var detail struct {
		Record models.Record `json:"record"`
	}
	decode(t, rr, &detail)
	assert.Equal(t, models.StatusAssigned, detail.Record.Status)
}

func TestCreateCase(t *testing.T) {
	e := newEnv(t)
	rec := e.createCase("CASE-001")
	assert.Equal(t, "REC-2026-00001", rec.ReferenceNumber)
	assert.Equal(t, models.StatusPending, rec.Status)

	rr := e.do(http.MethodPost, "/api/v1/cases", e.adminToken, map[string]interface{}{
		"caseNumber": "CASE-001", "name": "Someone", "addressLine": "Elsewhere",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "conflict", errorKind(t, rr))

	rr = e.do(http.MethodPost, "/api/v1/cases", e.adminToken, map[string]interface{}{"caseNumber": "CASE-002"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, rr, &body)
	assert.Equal(t, "validation_error", body.Error)
	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "addressLine")

	rr = e.do(http.MethodPost, "/api/v1/cases", e.vendorToken, map[string]interface{}{
		"caseNumber": "CASE-003", "name": "X", "addressLine": "Y",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(http.MethodPost, "/api/v1/cases", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetCase_NotFoundAndBadID(t *testing.T) {
	e := newEnv(t)
	rr := e.do(http.MethodGet, "/api/v1/cases/"+uuid.NewString(), e.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", errorKind(t, rr))

	rr = e.do(http.MethodGet, "/api/v1/cases/not-a-uuid", e.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOfficerFlow(t *testing.T) {
	e := newEnv(t)
	rec := e.createCase("CASE-010")
	e.assignOfficer(rec.ID)
	path := "/api/v1/cases/" + rec.ID.String()

	// the officer sees only their own cases
	rr := e.do(http.MethodGet, "/api/v1/cases", e.officerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Total int64           `json:"total"`
		Cases []models.Record `json:"cases"`
	}
	decode(t, rr, &list)
	assert.EqualValues(t, 1, list.Total)

	e.advance(24 * time.Hour)
	rr = e.do(http.MethodPost, path+"/submit", e.officerToken, officerPayload())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var submitted models.Record
	decode(t, rr, &submitted)
	assert.Equal(t, models.StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.GpsDistanceMeters)
	assert.InDelta(t, 38, *submitted.GpsDistanceMeters, 10)
	assert.False(t, submitted.IsLateSubmission)

	// officers cannot decide
	rr = e.do(http.MethodPost, path+"/decision", e.officerToken, map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(http.MethodPost, path+"/decision", e.adminToken, map[string]string{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(http.MethodPost, path+"/decision", e.adminToken, map[string]string{"decision": "approve", "comment": "looks good"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// a decided case cannot be submitted again
	rr = e.do(http.MethodPost, path+"/submit", e.officerToken, officerPayload())
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "invalid_transition", errorKind(t, rr))

	rr = e.do(http.MethodGet, path+"/history", e.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var hist struct {
		Transitions []models.CaseTransition `json:"transitions"`
	}
	decode(t, rr, &hist)
	require.Len(t, hist.Transitions, 3)
	assert.Equal(t, models.StatusApproved, hist.Transitions[2].ToStatus)

	rr = e.do(http.MethodGet, path, e.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var detail casework.CaseDetail
	decode(t, rr, &detail)
	require.NotNil(t, detail.Verification)
	assert.Equal(t, "Meena Rao", detail.Verification.RespondentName)
}

func TestSubmit_MissingLocation(t *testing.T) {
	e := newEnv(t)
	rec := e.createCase("CASE-020")
	e.assignOfficer(rec.ID)

	body := officerPayload()
	delete(body, "gpsLat")
	delete(body, "gpsLng")
	rr := e.do(http.MethodPost, "/api/v1/cases/"+rec.ID.String()+"/submit", e.officerToken, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "missing_location", errorKind(t, rr))

	got, err := e.store.GetRecord(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, got.Status)
}

func TestVendorScoping(t *testing.T) {
	e := newEnv(t)
	own := e.createCase("CASE-030")
	other := e.createCase("CASE-031")

	rr := e.do(http.MethodPut, "/api/v1/cases/"+own.ID.String()+"/assignment", e.adminToken, map[string]interface{}{"vendorId": e.vendor.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(http.MethodGet, "/api/v1/cases/"+other.ID.String(), e.vendorToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(http.MethodPost, "/api/v1/cases/"+own.ID.String()+"/officer", e.vendorToken, map[string]interface{}{"fieldOfficerId": e.officer.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var rec models.Record
	decode(t, rr, &rec)
	assert.Equal(t, models.StatusAssigned, rec.Status)

	// vendors manage their own officers only
	rr = e.do(http.MethodPost, "/api/v1/vendor/officers", e.vendorToken, map[string]string{"name": "Sita", "phone": "9123456780", "password": password})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = e.do(http.MethodGet, "/api/v1/vendor/officers", e.vendorToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var officers struct {
		Total int `json:"total"`
	}
	decode(t, rr, &officers)
	assert.Equal(t, 2, officers.Total)

	rr = e.do(http.MethodGet, "/api/v1/admin/vendors", e.vendorToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCandidateFlow(t *testing.T) {
	e := newEnv(t)
	rec := e.createCase("CASE-040")

	rr := e.do(http.MethodPost, "/api/v1/cases/"+rec.ID.String()+"/candidate", e.adminToken, map[string]interface{}{
		"name":   "Asha Rao",
		"email":  "asha@mail.test",
		"mobile": "+91 98765 43210",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var assigned casework.CandidateAssignment
	decode(t, rr, &assigned)
	require.True(t, strings.HasPrefix(assigned.Link, "https://verify.test/candidate/"))
	token := strings.TrimPrefix(assigned.Link, "https://verify.test/candidate/")
	code := strings.TrimPrefix(assigned.ShortLink, "https://verify.test/s/")

	rr = e.do(http.MethodGet, "/s/"+code, "", nil)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, assigned.Link, rr.Header().Get("Location"))

	rr = e.do(http.MethodGet, "/candidate/"+token, "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var view casework.CandidateCase
	decode(t, rr, &view)
	assert.Equal(t, rec.ReferenceNumber, view.ReferenceNumber)

	submission := map[string]interface{}{
		"ownershipType": "owned",
		"periodOfStay":  "5 years",
		"selfie":        map[string]interface{}{"url": "/uploads/seed/selfie.jpg", "lat": 18.5205, "lng": 73.8568},
		"idProof":       "/uploads/seed/id.jpg",
		"houseDoor":     "/uploads/seed/door.jpg",
	}
	rr = e.do(http.MethodPost, "/candidate/"+token+"/submit", "", submission)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(http.MethodPost, "/candidate/"+token+"/submit", "", submission)
	assert.Equal(t, http.StatusGone, rr.Code)
	assert.Equal(t, "already_used", errorKind(t, rr))

	rr = e.do(http.MethodGet, "/s/"+code, "", nil)
	assert.Equal(t, http.StatusGone, rr.Code)

	got, err := e.store.GetRecord(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, got.Status)
}

func TestCandidate_ExpiredAndUnknown(t *testing.T) {
	e := newEnv(t)
	rec := e.createCase("CASE-050")
	rr := e.do(http.MethodPost, "/api/v1/cases/"+rec.ID.String()+"/candidate", e.adminToken, map[string]interface{}{
		"name": "Asha Rao", "mobile": "9876543210",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var assigned casework.CandidateAssignment
	decode(t, rr, &assigned)
	token := strings.TrimPrefix(assigned.Link, "https://verify.test/candidate/")

	e.advance(49 * time.Hour)
	rr = e.do(http.MethodGet, "/candidate/"+token, "", nil)
	assert.Equal(t, http.StatusGone, rr.Code)
	assert.Equal(t, "expired", errorKind(t, rr))

	rr = e.do(http.MethodGet, "/candidate/"+strings.Repeat("ab", 32), "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = e.do(http.MethodGet, "/s/zzzzzz", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminControls(t *testing.T) {
	e := newEnv(t)
	rec := e.createCase("CASE-060")
	e.assignOfficer(rec.ID)
	path := "/api/v1/cases/" + rec.ID.String()

	rr := e.do(http.MethodPost, path+"/revert", e.adminToken, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = e.do(http.MethodPost, path+"/stop", e.adminToken, map[string]string{"comment": "client hold"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(http.MethodPost, path+"/stop", e.vendorToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(http.MethodPost, path+"/revert", e.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var reverted models.Record
	decode(t, rr, &reverted)
	assert.Equal(t, models.StatusPending, reverted.Status)
	assert.Nil(t, reverted.VendorID)
	assert.Nil(t, reverted.FieldOfficerID)
}

func TestImportCases(t *testing.T) {
	e := newEnv(t)
	e.createCase("CASE-100")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Case Number", "Name", "Address"},
		{"CASE-101", "Vikram", "4 Park St"},
		{"CASE-100", "Duplicate", "Somewhere"},
		{"CASE-102", "", "No name"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	sheet, err := f.WriteToBuffer()
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "cases.xlsx")
	require.NoError(t, err)
	_, err = part.Write(sheet.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.adminToken)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var summary casework.ImportSummary
	decode(t, rr, &summary)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, 2, summary.Results[0].Row)
	assert.Empty(t, summary.Results[0].Error)
	assert.Contains(t, summary.Results[1].Error, "already exists")
	assert.Equal(t, 4, summary.Results[2].Row)
}

func TestExports(t *testing.T) {
	e := newEnv(t)
	first := e.createCase("CASE-200")
	e.createCase("CASE-201")

	rr := e.do(http.MethodGet, "/api/v1/exports/cases.csv?status=pending", e.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	lines, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, lines, 3)

	rr = e.do(http.MethodGet, "/api/v1/exports/cases.xlsx", e.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	wb, err := excelize.OpenReader(rr.Body)
	require.NoError(t, err)
	defer wb.Close()
	v, err := wb.GetCellValue("Cases", "B5")
	require.NoError(t, err)
	assert.Contains(t, []string{"CASE-200", "CASE-201"}, v)

	rr = e.do(http.MethodGet, "/api/v1/cases/"+first.ID.String()+"/pdf", e.adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))

	rr = e.do(http.MethodGet, "/api/v1/exports/cases.zip?status=approved", e.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = e.do(http.MethodGet, "/api/v1/exports/cases.csv?status=bogus", e.adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(http.MethodGet, "/api/v1/exports/cases.csv", e.vendorToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUpload(t *testing.T) {
	e := newEnv(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "door photo.png")
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.officerToken)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var out struct {
		URL         string `json:"url"`
		ContentType string `json:"contentType"`
	}
	decode(t, rr, &out)
	assert.True(t, strings.HasPrefix(out.URL, "/uploads/files/officer/"))
	assert.True(t, strings.HasSuffix(out.URL, "door_photo.png"))
	assert.Equal(t, "image/png", out.ContentType)
}
