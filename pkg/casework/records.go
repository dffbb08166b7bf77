package casework

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/lifecycle"
	"p9e.in/verifyops/pkg/store"
	"p9e.in/verifyops/utils"
)

// RecordInput is the payload for creating a case, from JSON or a sheet row.
type RecordInput struct {
	CaseNumber  string      `json:"caseNumber"`
	Name        string      `json:"name"`
	FatherName  string      `json:"fatherName"`
	Contact     string      `json:"contact"`
	AddressLine string      `json:"addressLine"`
	City        string      `json:"city"`
	State       string      `json:"state"`
	Pincode     string      `json:"pincode"`
	GpsLat      interface{} `json:"gpsLat"`
	GpsLng      interface{} `json:"gpsLng"`
	Remarks     string      `json:"remarks"`
}

func (in RecordInput) toRecord() (*models.Record, error) {
	errs := fieldErrors{}
	rec := &models.Record{
		CaseNumber:  strings.TrimSpace(in.CaseNumber),
		Name:        strings.TrimSpace(in.Name),
		FatherName:  strings.TrimSpace(in.FatherName),
		Contact:     strings.TrimSpace(in.Contact),
		AddressLine: strings.TrimSpace(in.AddressLine),
		City:        strings.TrimSpace(in.City),
		State:       strings.TrimSpace(in.State),
		Pincode:     strings.TrimSpace(in.Pincode),
		Remarks:     strings.TrimSpace(in.Remarks),
		Status:      models.StatusPending,
	}
	if rec.CaseNumber == "" {
		errs.add("caseNumber", "required")
	}
	if rec.Name == "" {
		errs.add("name", "required")
	}
	if rec.AddressLine == "" {
		errs.add("addressLine", "required")
	}

	lat, latOK := utils.ParseFloat(in.GpsLat)
	lng, lngOK := utils.ParseFloat(in.GpsLng)
	switch {
	case latOK && lngOK:
		if err := utils.ValidateCoordinate(utils.Coordinate{Lat: lat, Lng: lng}); err != nil {
			errs.add("gps", err.Error())
		} else {
			rec.GpsLat, rec.GpsLng = &lat, &lng
		}
	case latOK != lngOK:
		errs.add("gps", "latitude and longitude must be given together")
	}
	return rec, errs.err()
}

// CreateRecord validates and stores a new pending case with the next
// reference number of the current year.
func (s *Service) CreateRecord(ctx context.Context, in RecordInput, actor Actor) (*models.Record, error) {
	rec, err := in.toRecord()
	if err != nil {
		return nil, err
	}
	rec.CreatedBy = actor.ID

	err = s.store.InTx(ctx, func(tx store.Store) error {
		year := s.now().Year()
		seq, err := tx.NextReferenceSeq(ctx, year)
		if err != nil {
			return fromStore("allocate reference number", err)
		}
		rec.ReferenceNumber = FormatReference(year, seq)
		if err := tx.CreateRecord(ctx, rec); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return &Error{Kind: KindConflict, Message: "case number " + rec.CaseNumber + " already exists", Err: err}
			}
			return fromStore("create case", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infow("case created", "recordId", rec.ID, "caseNumber", rec.CaseNumber, "reference", rec.ReferenceNumber)
	return rec, nil
}

// ImportResult is the outcome of one imported row.
type ImportResult struct {
	Row             int       `json:"row"`
	CaseNumber      string    `json:"caseNumber"`
	RecordID        uuid.UUID `json:"recordId,omitempty"`
	ReferenceNumber string    `json:"referenceNumber,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// ImportSummary aggregates a bulk import.
type ImportSummary struct {
	Created int            `json:"created"`
	Failed  int            `json:"failed"`
	Results []ImportResult `json:"results"`
}

// ImportRecords creates each row independently. A failing row is reported
// and the rest continue. firstRow is the sheet row number of rows[0].
func (s *Service) ImportRecords(ctx context.Context, rows []RecordInput, firstRow int, actor Actor) ImportSummary {
	summary := ImportSummary{Results: make([]ImportResult, 0, len(rows))}
	for i, row := range rows {
		res := ImportResult{Row: firstRow + i, CaseNumber: strings.TrimSpace(row.CaseNumber)}
		rec, err := s.CreateRecord(ctx, row, actor)
		if err != nil {
			res.Error = err.Error()
			summary.Failed++
		} else {
			res.RecordID = rec.ID
			res.ReferenceNumber = rec.ReferenceNumber
			summary.Created++
		}
		summary.Results = append(summary.Results, res)
	}
	zap.S().Infow("bulk import finished", "created", summary.Created, "failed", summary.Failed)
	return summary
}

// CaseDetail is a case with its verification and the actions open to it.
type CaseDetail struct {
	Record       *models.Record       `json:"record"`
	Verification *models.Verification `json:"verification,omitempty"`
	Actions      []lifecycle.Action   `json:"actions"`
}

// GetCase loads one case visible to actor.
func (s *Service) GetCase(ctx context.Context, id uuid.UUID, actor Actor) (*CaseDetail, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, fromStore("load case", err)
	}
	if err := actor.canAccess(rec); err != nil {
		return nil, err
	}
	detail := &CaseDetail{Record: rec, Actions: lifecycle.AvailableActions(rec.Status)}
	v, err := s.store.GetVerification(ctx, id)
	switch {
	case err == nil:
		detail.Verification = v
	case !errors.Is(err, store.ErrNotFound):
		return nil, fromStore("load verification", err)
	}
	return detail, nil
}

// ListCases returns a page of cases, scoped to the actor's vendor or to the
// officer's own assignments.
func (s *Service) ListCases(ctx context.Context, f store.RecordFilter, actor Actor) ([]models.Record, int64, error) {
	switch actor.Role {
	case models.RoleVendor:
		if actor.VendorID == nil {
			return nil, 0, forbidden("vendor scope missing")
		}
		f.VendorID = actor.VendorID
	case models.RoleFieldOfficer:
		id, err := uuid.Parse(actor.ID)
		if err != nil {
			return nil, 0, forbidden("field officer scope missing")
		}
		f.FieldOfficerID = &id
	}
	records, total, err := s.store.ListRecords(ctx, f)
	if err != nil {
		return nil, 0, fromStore("list cases", err)
	}
	return records, total, nil
}

// Decide records the admin approve or reject decision.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, approve bool, comment string, actor Actor) (*models.Record, error) {
	return s.update(ctx, id, actor, comment, nil, func(_ store.Store, rec *models.Record) (*lifecycle.Change, error) {
		ch, err := s.machine.Decide(rec, approve, s.now())
		return ch, fromTransition(err)
	})
}

// Reinitiate sends a decided case back to pending.
func (s *Service) Reinitiate(ctx context.Context, id uuid.UUID, comment string, actor Actor) (*models.Record, error) {
	return s.update(ctx, id, actor, comment, nil, func(tx store.Store, rec *models.Record) (*lifecycle.Change, error) {
		ch, err := s.machine.Reinitiate(rec)
		if err != nil {
			return nil, fromTransition(err)
		}
		return ch, s.revokeLinks(ctx, tx, rec)
	})
}

// Stop halts an active case.
func (s *Service) Stop(ctx context.Context, id uuid.UUID, comment string, actor Actor) (*models.Record, error) {
	return s.update(ctx, id, actor, comment, nil, func(tx store.Store, rec *models.Record) (*lifecycle.Change, error) {
		ch, err := s.machine.Stop(rec)
		if err != nil {
			return nil, fromTransition(err)
		}
		return ch, s.revokeLinks(ctx, tx, rec)
	})
}

// Revert returns a stopped case to pending with its assignment cleared.
func (s *Service) Revert(ctx context.Context, id uuid.UUID, comment string, actor Actor) (*models.Record, error) {
	return s.update(ctx, id, actor, comment, nil, func(tx store.Store, rec *models.Record) (*lifecycle.Change, error) {
		ch, err := s.machine.Revert(rec)
		if err != nil {
			return nil, fromTransition(err)
		}
		return ch, s.revokeLinks(ctx, tx, rec)
	})
}

// History lists the audit trail of a case, oldest first.
func (s *Service) History(ctx context.Context, id uuid.UUID, actor Actor) ([]models.CaseTransition, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, fromStore("load case", err)
	}
	if err := actor.canAccess(rec); err != nil {
		return nil, err
	}
	out, err := s.store.ListTransitions(ctx, id)
	if err != nil {
		return nil, fromStore("list transitions", err)
	}
	return out, nil
}
