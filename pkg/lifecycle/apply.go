package lifecycle

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"p9e.in/verifyops/models"
)

// ErrVendorRequired is returned when an officer is assigned to a case that has
// no vendor, or to a vendor other than the officer's own.
var ErrVendorRequired = errors.New("field officer must belong to the case vendor")

// Change is the result of an applied transition.
type Change struct {
	Action Action
	From   models.CaseStatus
	To     models.CaseStatus
}

// Contact is the candidate snapshot stored on a case routed to self-submission.
type Contact struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

// Machine applies transitions to records. Every method validates first and
// only mutates the record when the transition is allowed.
type Machine struct {
	TATDays int
}

// New returns a machine using tatDays as the turnaround window.
func New(tatDays int) *Machine {
	if tatDays <= 0 {
		tatDays = DefaultTATDays
	}
	return &Machine{TATDays: tatDays}
}

// Assign applies an assignment update carrying a vendor, an officer, or both.
// pending moves to assigned only when both are set in the same update.
func (m *Machine) Assign(rec *models.Record, vendor *models.Vendor, officer *models.FieldOfficer, now time.Time) (*Change, error) {
	from := rec.Status

	vendorID := rec.VendorID
	if vendor != nil {
		vendorID = &vendor.ID
	}
	if officer != nil && (vendorID == nil || *vendorID != officer.VendorID) {
		return nil, ErrVendorRequired
	}

	var action Action
	var to models.CaseStatus
	switch {
	case officer != nil:
		action, to = ActionAssignFieldOfficer, models.StatusAssigned
		if from == models.StatusPending && vendor == nil {
			// the auto transition out of pending needs both in one update
			return nil, &TransitionError{Action: action, From: from, To: to}
		}
	case vendor != nil:
		action, to = ActionAssignVendor, models.StatusVendorAssigned
	default:
		return nil, &TransitionError{Action: ActionAssignVendor, From: from}
	}
	if err := Check(action, from, to); err != nil {
		return nil, err
	}

	if vendor != nil {
		if rec.VendorID != nil && *rec.VendorID != vendor.ID && officer == nil {
			rec.FieldOfficerID = nil
			rec.FieldOfficerName = ""
		}
		id := vendor.ID
		rec.VendorID = &id
		rec.VendorName = vendor.Name
	}
	if officer != nil {
		id := officer.ID
		rec.FieldOfficerID = &id
		rec.FieldOfficerName = officer.Name
		clearCandidate(rec)
		m.startClock(rec, now)
	}
	rec.Status = to
	return &Change{Action: action, From: from, To: to}, nil
}

// AssignCandidate routes a case to candidate self-submission.
func (m *Machine) AssignCandidate(rec *models.Record, c Contact, now time.Time) (*Change, error) {
	from := rec.Status
	if err := Check(ActionAssignCandidate, from, models.StatusCandidateAssigned); err != nil {
		return nil, err
	}
	rec.FieldOfficerID = nil
	rec.FieldOfficerName = ""
	rec.CandidateName = c.Name
	rec.CandidateEmail = c.Email
	rec.CandidateMobile = c.Mobile
	m.startClock(rec, now)
	rec.Status = models.StatusCandidateAssigned
	return &Change{Action: ActionAssignCandidate, From: from, To: models.StatusCandidateAssigned}, nil
}

// Submission carries what a submit step records on the case.
type Submission struct {
	Action Action
	Target models.CaseStatus
	Lat    float64
	Lng    float64
}

// Submit records a field officer or candidate submission. The late flag is
// sticky: once set it is only cleared by revert or reinitiate.
func (m *Machine) Submit(rec *models.Record, s Submission, now time.Time) (*Change, error) {
	from := rec.Status
	if err := Check(s.Action, from, s.Target); err != nil {
		return nil, err
	}
	at := now
	rec.SubmittedAt = &at
	lat, lng := s.Lat, s.Lng
	rec.SubmittedGpsLat = &lat
	rec.SubmittedGpsLng = &lng
	if IsLate(rec.TatDueDate, now) {
		rec.IsLateSubmission = true
	}
	rec.Status = s.Target
	return &Change{Action: s.Action, From: from, To: s.Target}, nil
}

// Decide applies the admin approve/reject decision.
func (m *Machine) Decide(rec *models.Record, approve bool, now time.Time) (*Change, error) {
	action, to := ActionReject, models.StatusRejected
	if approve {
		action, to = ActionApprove, models.StatusApproved
	}
	from := rec.Status
	if err := Check(action, from, to); err != nil {
		return nil, err
	}
	at := now
	rec.CompletionDate = &at
	rec.Status = to
	return &Change{Action: action, From: from, To: to}, nil
}

// Reinitiate sends a decided case back to pending for a new cycle.
func (m *Machine) Reinitiate(rec *models.Record) (*Change, error) {
	return m.reset(rec, ActionReinitiate)
}

// Stop halts an active case. The prior status is kept for the audit trail only.
func (m *Machine) Stop(rec *models.Record) (*Change, error) {
	from := rec.Status
	if err := Check(ActionStop, from, models.StatusStopped); err != nil {
		return nil, err
	}
	rec.StatusBeforeStop = from
	rec.Status = models.StatusStopped
	return &Change{Action: ActionStop, From: from, To: models.StatusStopped}, nil
}

// Revert returns a stopped case to pending with all assignment data cleared.
func (m *Machine) Revert(rec *models.Record) (*Change, error) {
	return m.reset(rec, ActionRevert)
}

func (m *Machine) reset(rec *models.Record, action Action) (*Change, error) {
	from := rec.Status
	if err := Check(action, from, models.StatusPending); err != nil {
		return nil, err
	}
	rec.ClearAssignment()
	rec.Status = models.StatusPending
	return &Change{Action: action, From: from, To: models.StatusPending}, nil
}

// TATDue computes the due date for an assignment made at assigned.
func (m *Machine) TATDue(assigned time.Time) time.Time {
	return assigned.AddDate(0, 0, m.TATDays)
}

func (m *Machine) startClock(rec *models.Record, now time.Time) {
	if rec.AssignedDate == nil {
		at := now
		rec.AssignedDate = &at
	}
	if rec.TatDueDate == nil {
		due := m.TATDue(*rec.AssignedDate)
		rec.TatDueDate = &due
	}
}

// IsLate reports whether a submission at now misses the due date.
func IsLate(due *time.Time, now time.Time) bool {
	return due != nil && now.After(*due)
}

func clearCandidate(rec *models.Record) {
	rec.CandidateName = ""
	rec.CandidateEmail = ""
	rec.CandidateMobile = ""
}

// SameVendor reports whether id matches the vendor on rec.
func SameVendor(rec *models.Record, id uuid.UUID) bool {
	return rec.VendorID != nil && *rec.VendorID == id
}
