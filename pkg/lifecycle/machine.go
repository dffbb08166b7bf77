// Package lifecycle holds the case status state machine: which actions are
// allowed from which statuses, and the field mutations each one performs.
package lifecycle

import (
	"errors"
	"fmt"

	"p9e.in/verifyops/models"
)

// Action names a lifecycle step. Values are stored in the audit trail.
type Action string

const (
	ActionAssignVendor       Action = "assign_vendor"
	ActionAssignFieldOfficer Action = "assign_field_officer"
	ActionAssignCandidate    Action = "assign_candidate"
	ActionSubmit             Action = "submit"
	ActionCandidateSubmit    Action = "candidate_submit"
	ActionApprove            Action = "approve"
	ActionReject             Action = "reject"
	ActionReinitiate         Action = "reinitiate"
	ActionStop               Action = "stop"
	ActionRevert             Action = "revert"
)

// DefaultTATDays is the turnaround window applied on assignment.
const DefaultTATDays = 7

// ErrInvalidTransition is matched by every *TransitionError.
var ErrInvalidTransition = errors.New("invalid transition")

// TransitionError describes a rejected transition.
type TransitionError struct {
	Action Action
	From   models.CaseStatus
	To     models.CaseStatus
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("invalid transition: action '%s' not allowed from state '%s'", e.Action, e.From)
	}
	return fmt.Sprintf("invalid transition: action '%s' cannot move '%s' to '%s'", e.Action, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type rule struct {
	from []models.CaseStatus
	to   []models.CaseStatus
}

var activeStatuses = []models.CaseStatus{
	models.StatusPending,
	models.StatusVendorAssigned,
	models.StatusAssigned,
	models.StatusCandidateAssigned,
	models.StatusSubmitted,
	models.StatusInsufficient,
}

var transitions = map[Action]rule{
	ActionAssignVendor: {
		from: []models.CaseStatus{models.StatusPending, models.StatusVendorAssigned},
		to:   []models.CaseStatus{models.StatusVendorAssigned},
	},
	ActionAssignFieldOfficer: {
		from: []models.CaseStatus{models.StatusPending, models.StatusVendorAssigned, models.StatusAssigned},
		to:   []models.CaseStatus{models.StatusAssigned},
	},
	ActionAssignCandidate: {
		from: []models.CaseStatus{models.StatusPending, models.StatusVendorAssigned, models.StatusAssigned, models.StatusCandidateAssigned},
		to:   []models.CaseStatus{models.StatusCandidateAssigned},
	},
	ActionSubmit: {
		from: []models.CaseStatus{models.StatusAssigned},
		to:   []models.CaseStatus{models.StatusSubmitted, models.StatusInsufficient},
	},
	ActionCandidateSubmit: {
		from: []models.CaseStatus{models.StatusCandidateAssigned},
		to:   []models.CaseStatus{models.StatusSubmitted},
	},
	ActionApprove: {
		from: []models.CaseStatus{models.StatusSubmitted, models.StatusInsufficient},
		to:   []models.CaseStatus{models.StatusApproved},
	},
	ActionReject: {
		from: []models.CaseStatus{models.StatusSubmitted, models.StatusInsufficient},
		to:   []models.CaseStatus{models.StatusRejected},
	},
	ActionReinitiate: {
		from: []models.CaseStatus{models.StatusApproved, models.StatusRejected},
		to:   []models.CaseStatus{models.StatusPending},
	},
	ActionStop: {
		from: activeStatuses,
		to:   []models.CaseStatus{models.StatusStopped},
	},
	ActionRevert: {
		from: []models.CaseStatus{models.StatusStopped},
		to:   []models.CaseStatus{models.StatusPending},
	},
}

// Check reports whether action may move a record from one status to another.
func Check(action Action, from, to models.CaseStatus) error {
	r, ok := transitions[action]
	if !ok || !contains(r.from, from) {
		return &TransitionError{Action: action, From: from}
	}
	if !contains(r.to, to) {
		return &TransitionError{Action: action, From: from, To: to}
	}
	return nil
}

// AvailableActions lists the actions permitted from status, in table order.
func AvailableActions(status models.CaseStatus) []Action {
	order := []Action{
		ActionAssignVendor, ActionAssignFieldOfficer, ActionAssignCandidate,
		ActionSubmit, ActionCandidateSubmit, ActionApprove, ActionReject,
		ActionReinitiate, ActionStop, ActionRevert,
	}
	var out []Action
	for _, a := range order {
		if contains(transitions[a].from, status) {
			out = append(out, a)
		}
	}
	return out
}

func contains(list []models.CaseStatus, s models.CaseStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
