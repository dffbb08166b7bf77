package casework

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/evidence"
	"p9e.in/verifyops/pkg/lifecycle"
	"p9e.in/verifyops/pkg/notify"
	"p9e.in/verifyops/pkg/store"
	"p9e.in/verifyops/pkg/store/memstore"
)

var t0 = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, c notify.Contact, cc notify.CaseContext, ch notify.Channels) notify.Outcome {
	args := m.Called(ctx, c, cc, ch)
	return args.Get(0).(notify.Outcome)
}

type fixture struct {
	ctx      context.Context
	store    *memstore.Store
	svc      *Service
	clock    *clock
	notifier *mockNotifier
	uploads  *evidence.LocalStore
	vendor   *models.Vendor
	officer  *models.FieldOfficer
	admin    Actor

	lastAssignment *CandidateAssignment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	uploads, err := evidence.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	f := &fixture{
		ctx:      ctx,
		store:    st,
		clock:    &clock{now: t0},
		notifier: &mockNotifier{},
		uploads:  uploads,
		admin:    Actor{ID: uuid.NewString(), Name: "Admin", Role: models.RoleAdmin},
	}
	f.svc = New(st, uploads, f.notifier, Options{PublicBaseURL: "https://verify.test", TokenTTLHours: 48, TATDays: 7})
	f.svc.SetClock(f.clock.Now)

	f.vendor = &models.Vendor{Name: "Acme Checks", Email: "ops@acme.test", PasswordHash: "x"}
	require.NoError(t, st.CreateVendor(ctx, f.vendor))
	f.officer = &models.FieldOfficer{VendorID: f.vendor.ID, Name: "Ravi", Phone: "9000000001", PasswordHash: "x"}
	require.NoError(t, st.CreateFieldOfficer(ctx, f.officer))
	return f
}

func (f *fixture) vendorActor() Actor {
	id := f.vendor.ID
	return Actor{ID: id.String(), Name: f.vendor.Name, Role: models.RoleVendor, VendorID: &id}
}

func (f *fixture) officerActor() Actor {
	id := f.vendor.ID
	return Actor{ID: f.officer.ID.String(), Name: f.officer.Name, Role: models.RoleFieldOfficer, VendorID: &id}
}

func (f *fixture) newCase(t *testing.T, caseNumber string) *models.Record {
	t.Helper()
	rec, err := f.svc.CreateRecord(f.ctx, RecordInput{
		CaseNumber:  caseNumber,
		Name:        "Asha Rao",
		AddressLine: "12 MG Road",
		City:        "Bengaluru",
		GpsLat:      12.9716,
		GpsLng:      77.5946,
	}, f.admin)
	require.NoError(t, err)
	return rec
}

func (f *fixture) assignedCase(t *testing.T, caseNumber string) *models.Record {
	t.Helper()
	rec := f.newCase(t, caseNumber)
	rec, err := f.svc.UpdateAssignment(f.ctx, rec.ID, AssignmentInput{VendorID: &f.vendor.ID, FieldOfficerID: &f.officer.ID}, f.admin)
	require.NoError(t, err)
	return rec
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Record {
	t.Helper()
	rec, err := f.store.GetRecord(f.ctx, id)
	require.NoError(t, err)
	return rec
}

func TestCreateRecord_ReferenceNumbers(t *testing.T) {
	f := newFixture(t)
	pattern := regexp.MustCompile(`^REC-\d{4}-\d{5}$`)

	a := f.newCase(t, "CASE-1")
	b := f.newCase(t, "CASE-2")

	assert.Equal(t, "REC-2026-00001", a.ReferenceNumber)
	assert.Equal(t, "REC-2026-00002", b.ReferenceNumber)
	assert.Regexp(t, pattern, a.ReferenceNumber)
	assert.Equal(t, models.StatusPending, a.Status)
	assert.Equal(t, f.admin.ID, a.CreatedBy)
}

func TestCreateRecord_ConcurrentReferencesAreUnique(t *testing.T) {
	f := newFixture(t)
	const n = 20
	refs := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := f.svc.CreateRecord(f.ctx, RecordInput{
				CaseNumber:  uuid.NewString(),
				Name:        "N",
				AddressLine: "A",
			}, f.admin)
			if assert.NoError(t, err) {
				refs <- rec.ReferenceNumber
			}
		}(i)
	}
	wg.Wait()
	close(refs)

	seen := map[string]bool{}
	for r := range refs {
		assert.False(t, seen[r], "duplicate reference %s", r)
		seen[r] = true
	}
	assert.Len(t, seen, n)
}

func TestCreateRecord_Errors(t *testing.T) {
	f := newFixture(t)
	f.newCase(t, "CASE-1")

	_, err := f.svc.CreateRecord(f.ctx, RecordInput{CaseNumber: "CASE-1", Name: "X", AddressLine: "Y"}, f.admin)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.CreateRecord(f.ctx, RecordInput{CaseNumber: "CASE-3"}, f.admin)
	require.ErrorIs(t, err, ErrValidation)
	e := err.(*Error)
	assert.Contains(t, e.Fields, "name")
	assert.Contains(t, e.Fields, "addressLine")

	_, err = f.svc.CreateRecord(f.ctx, RecordInput{CaseNumber: "CASE-4", Name: "X", AddressLine: "Y", GpsLat: 12.0}, f.admin)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestImportRecords_BadRowDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	rows := []RecordInput{
		{CaseNumber: "IMP-1", Name: "A", AddressLine: "x"},
		{CaseNumber: "IMP-2", Name: "", AddressLine: "x"},
		{CaseNumber: "IMP-1", Name: "dup", AddressLine: "x"},
		{CaseNumber: "IMP-3", Name: "C", AddressLine: "x"},
	}

	summary := f.svc.ImportRecords(f.ctx, rows, 2, f.admin)

	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Results, 4)
	assert.Equal(t, 3, summary.Results[1].Row)
	assert.NotEmpty(t, summary.Results[1].Error)
	assert.NotEmpty(t, summary.Results[2].Error)
	assert.Empty(t, summary.Results[3].Error)
}

func TestUpdateAssignment_PendingToAssignedStartsTAT(t *testing.T) {
	f := newFixture(t)
	rec := f.assignedCase(t, "CASE-1")

	assert.Equal(t, models.StatusAssigned, rec.Status)
	require.NotNil(t, rec.AssignedDate)
	require.NotNil(t, rec.TatDueDate)
	assert.Equal(t, t0, *rec.AssignedDate)
	assert.Equal(t, t0.AddDate(0, 0, 7), *rec.TatDueDate)
	assert.Equal(t, f.vendor.Name, rec.VendorName)
	assert.Equal(t, f.officer.Name, rec.FieldOfficerName)

	history, err := f.svc.History(f.ctx, rec.ID, f.admin)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, string(lifecycle.ActionAssignFieldOfficer), history[0].Action)
	assert.Equal(t, models.StatusPending, history[0].FromStatus)
	assert.Equal(t, models.StatusAssigned, history[0].ToStatus)
}

func TestUpdateAssignment_VendorThenOfficer(t *testing.T) {
	f := newFixture(t)
	rec := f.newCase(t, "CASE-1")

	rec, err := f.svc.AssignVendor(f.ctx, rec.ID, f.vendor.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVendorAssigned, rec.Status)
	assert.Nil(t, rec.TatDueDate)

	rec, err = f.svc.AssignFieldOfficer(f.ctx, rec.ID, f.officer.ID, f.vendorActor())
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, rec.Status)
	assert.NotNil(t, rec.TatDueDate)
}

func TestUpdateAssignment_OfficerAlonePendingIsRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.newCase(t, "CASE-1")

	_, err := f.svc.AssignFieldOfficer(f.ctx, rec.ID, f.officer.ID, f.admin)
	assert.Error(t, err)
	assert.Equal(t, models.StatusPending, f.reload(t, rec.ID).Status)
}

func TestUpdateAssignment_Scoping(t *testing.T) {
	f := newFixture(t)
	other := &models.Vendor{Name: "Other", Email: "o@other.test", PasswordHash: "x"}
	require.NoError(t, f.store.CreateVendor(f.ctx, other))
	stranger := &models.FieldOfficer{VendorID: other.ID, Name: "Sam", Phone: "9000000009", PasswordHash: "x"}
	require.NoError(t, f.store.CreateFieldOfficer(f.ctx, stranger))

	rec := f.newCase(t, "CASE-1")
	_, err := f.svc.AssignVendor(f.ctx, rec.ID, f.vendor.ID, f.admin)
	require.NoError(t, err)

	// officer of another vendor
	_, err = f.svc.AssignFieldOfficer(f.ctx, rec.ID, stranger.ID, f.admin)
	assert.ErrorIs(t, err, ErrValidation)

	// vendor acting on a case that is not theirs
	otherID := other.ID
	_, err = f.svc.AssignFieldOfficer(f.ctx, rec.ID, stranger.ID, Actor{ID: otherID.String(), Role: models.RoleVendor, VendorID: &otherID})
	assert.ErrorIs(t, err, ErrForbidden)

	// inactive officer
	require.NoError(t, f.store.SetFieldOfficerStatus(f.ctx, f.officer.ID, models.AccountInactive))
	_, err = f.svc.AssignFieldOfficer(f.ctx, rec.ID, f.officer.ID, f.vendorActor())
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, models.StatusVendorAssigned, f.reload(t, rec.ID).Status)
}

func TestDeactivatedAccountsCannotAct(t *testing.T) {
	f := newFixture(t)
	rec := f.assignedCase(t, "CASE-1")
	spare := &models.FieldOfficer{VendorID: f.vendor.ID, Name: "Kiran", Phone: "9000000002", PasswordHash: "x"}
	require.NoError(t, f.store.CreateFieldOfficer(f.ctx, spare))

	require.NoError(t, f.store.SetFieldOfficerStatus(f.ctx, f.officer.ID, models.AccountInactive))
	_, err := f.svc.SubmitFieldOfficer(f.ctx, rec.ID, validOfficerSubmission(), f.officerActor())
	assert.ErrorIs(t, err, ErrForbidden)

	// the vendor can still move the case to another officer
	_, err = f.svc.AssignFieldOfficer(f.ctx, rec.ID, spare.ID, f.vendorActor())
	require.NoError(t, err)

	require.NoError(t, f.store.SetVendorStatus(f.ctx, f.vendor.ID, models.AccountInactive))
	require.NoError(t, f.store.SetFieldOfficerStatus(f.ctx, spare.ID, models.AccountActive))
	_, err = f.svc.AssignCandidate(f.ctx, rec.ID, CandidateRequest{Name: "Asha Rao", Mobile: "9876543210"}, f.vendorActor())
	assert.ErrorIs(t, err, ErrForbidden)

	officer := Actor{ID: spare.ID.String(), Role: models.RoleFieldOfficer, VendorID: &f.vendor.ID}
	_, err = f.svc.SubmitFieldOfficer(f.ctx, rec.ID, validOfficerSubmission(), officer)
	assert.ErrorIs(t, err, ErrForbidden, "an active officer of an inactive vendor is refused")

	got := f.reload(t, rec.ID)
	assert.Equal(t, models.StatusAssigned, got.Status)
	assert.Equal(t, spare.ID, *got.FieldOfficerID)
	assert.Empty(t, f.store.Tokens(rec.ID))
}

func TestListCases_ScopedToActor(t *testing.T) {
	f := newFixture(t)
	f.assignedCase(t, "CASE-1")
	f.newCase(t, "CASE-2")

	all, total, err := f.svc.ListCases(f.ctx, store.RecordFilter{}, f.admin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	mine, total, err := f.svc.ListCases(f.ctx, store.RecordFilter{}, f.vendorActor())
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "CASE-1", mine[0].CaseNumber)

	mine, _, err = f.svc.ListCases(f.ctx, store.RecordFilter{}, f.officerActor())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "CASE-1", mine[0].CaseNumber)
}

func TestAdminControls(t *testing.T) {
	f := newFixture(t)
	rec := f.assignedCase(t, "CASE-1")

	_, err := f.svc.Decide(f.ctx, rec.ID, true, "", f.admin)
	assert.ErrorIs(t, err, ErrInvalidTransition, "cannot approve before submission")

	rec, err = f.svc.Stop(f.ctx, rec.ID, "client asked", f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusStopped, rec.Status)
	assert.Equal(t, models.StatusAssigned, rec.StatusBeforeStop)

	_, err = f.svc.Stop(f.ctx, rec.ID, "", f.admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	rec, err = f.svc.Revert(f.ctx, rec.ID, "", f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, rec.Status)
	assert.Nil(t, rec.TatDueDate)
	assert.Nil(t, rec.AssignedDate)
	assert.Nil(t, rec.VendorID)
	assert.Nil(t, rec.FieldOfficerID)
	assert.Empty(t, rec.StatusBeforeStop)

	history, err := f.svc.History(f.ctx, rec.ID, f.admin)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Equal(t, "client asked", history[1].Comment)
}

func TestDecideAndReinitiate(t *testing.T) {
	f := newFixture(t)
	rec := f.assignedCase(t, "CASE-1")
	_, err := f.svc.SubmitFieldOfficer(f.ctx, rec.ID, validOfficerSubmission(), f.officerActor())
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	rec, err = f.svc.Decide(f.ctx, rec.ID, false, "photos unclear", f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rec.Status)
	require.NotNil(t, rec.CompletionDate)
	assert.Equal(t, t0.Add(time.Hour), *rec.CompletionDate)

	rec, err = f.svc.Reinitiate(f.ctx, rec.ID, "", f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, rec.Status)
	assert.Nil(t, rec.CompletionDate)
	assert.Nil(t, rec.SubmittedAt)
	assert.False(t, rec.IsLateSubmission)
}

func TestGetCase_NotFoundAndScope(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetCase(f.ctx, uuid.New(), f.admin)
	assert.ErrorIs(t, err, ErrNotFound)

	rec := f.newCase(t, "CASE-1")
	_, err = f.svc.GetCase(f.ctx, rec.ID, f.vendorActor())
	assert.ErrorIs(t, err, ErrForbidden)

	detail, err := f.svc.GetCase(f.ctx, rec.ID, f.admin)
	require.NoError(t, err)
	assert.Nil(t, detail.Verification)
	assert.Contains(t, detail.Actions, lifecycle.ActionAssignVendor)
}

func TestOverdueCases(t *testing.T) {
	f := newFixture(t)
	rec := f.assignedCase(t, "CASE-1")
	f.newCase(t, "CASE-2")

	overdue, err := f.svc.OverdueCases(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	f.clock.Advance(8 * 24 * time.Hour)
	overdue, err = f.svc.OverdueCases(f.ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, rec.ID, overdue[0].ID)
}
