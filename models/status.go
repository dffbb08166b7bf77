package models

// CaseStatus is the wire-visible lifecycle state of a Record.
type CaseStatus string

const (
	StatusPending           CaseStatus = "pending"
	StatusVendorAssigned    CaseStatus = "vendor_assigned"
	StatusCandidateAssigned CaseStatus = "candidate_assigned"
	StatusAssigned          CaseStatus = "assigned"
	StatusSubmitted         CaseStatus = "submitted"
	StatusApproved          CaseStatus = "approved"
	StatusInsufficient      CaseStatus = "insufficient"
	StatusRejected          CaseStatus = "rejected"
	StatusStopped           CaseStatus = "stopped"
)

// AllStatuses lists every status in wire order.
var AllStatuses = []CaseStatus{
	StatusPending,
	StatusVendorAssigned,
	StatusCandidateAssigned,
	StatusAssigned,
	StatusSubmitted,
	StatusApproved,
	StatusInsufficient,
	StatusRejected,
	StatusStopped,
}

// Valid reports whether s is one of the known statuses.
func (s CaseStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal is true for admin decisions that end a verification cycle.
func (s CaseStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// AccountStatus is shared by vendors, field officers and users.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)
