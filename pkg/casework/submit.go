package casework

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/evidence"
	"p9e.in/verifyops/pkg/lifecycle"
	"p9e.in/verifyops/pkg/store"
	"p9e.in/verifyops/pkg/tokens"
	"p9e.in/verifyops/utils"
)

// Respondent describes who answered at the address.
type Respondent struct {
	RespondentName     string `json:"respondentName"`
	RespondentRelation string `json:"respondentRelation"`
	RespondentContact  string `json:"respondentContact"`
	OwnershipType      string `json:"ownershipType"`
	PeriodOfStay       string `json:"periodOfStay"`
	Remarks            string `json:"remarks"`
}

func (r *Respondent) trim() {
	r.RespondentName = strings.TrimSpace(r.RespondentName)
	r.RespondentRelation = strings.TrimSpace(r.RespondentRelation)
	r.RespondentContact = strings.TrimSpace(r.RespondentContact)
	r.OwnershipType = strings.TrimSpace(r.OwnershipType)
	r.PeriodOfStay = strings.TrimSpace(r.PeriodOfStay)
	r.Remarks = strings.TrimSpace(r.Remarks)
}

// OfficerSubmission is what a field officer sends after a visit.
type OfficerSubmission struct {
	Respondent
	// Status is submitted (default) or insufficient.
	Status              models.CaseStatus `json:"status"`
	GpsLat              interface{}       `json:"gpsLat"`
	GpsLng              interface{}       `json:"gpsLng"`
	Photos              []evidence.Input  `json:"photos"`
	Documents           []evidence.Input  `json:"documents"`
	RespondentSignature *evidence.Input   `json:"respondentSignature"`
	OfficerSignature    *evidence.Input   `json:"officerSignature"`
}

// CandidateSubmission is what a candidate sends through the tokenized link.
type CandidateSubmission struct {
	Respondent
	GpsLat    interface{}      `json:"gpsLat"`
	GpsLng    interface{}      `json:"gpsLng"`
	Selfie    *evidence.Input  `json:"selfie"`
	IDProof   *evidence.Input  `json:"idProof"`
	HouseDoor *evidence.Input  `json:"houseDoor"`
	Photos    []evidence.Input `json:"photos"`
	Documents []evidence.Input `json:"documents"`
}

const (
	fieldPhotos              = "photos"
	fieldDocuments           = "documents"
	fieldRespondentSignature = "respondentSignature"
	fieldOfficerSignature    = "officerSignature"
	fieldSelfie              = "selfie"
	fieldIDProof             = "idProof"
	fieldHouseDoor           = "houseDoor"
)

func parseGPS(lat, lng interface{}) (float64, float64, bool) {
	la, ok1 := utils.ParseFloat(lat)
	ln, ok2 := utils.ParseFloat(lng)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	if utils.ValidateCoordinate(utils.Coordinate{Lat: la, Lng: ln}) != nil {
		return 0, 0, false
	}
	return la, ln, true
}

func (p *OfficerSubmission) validate() (*evidenceSet, float64, float64, error) {
	p.trim()
	errs := fieldErrors{}
	if p.Status == "" {
		p.Status = models.StatusSubmitted
	}
	if p.Status != models.StatusSubmitted && p.Status != models.StatusInsufficient {
		errs.add("status", "must be submitted or insufficient")
	}
	lat, lng, ok := parseGPS(p.GpsLat, p.GpsLng)
	if !ok {
		errs.add("gps", "latitude and longitude are required")
	}
	if p.RespondentName == "" {
		errs.add("respondentName", "required")
	}
	set := newEvidenceSet(errs)
	set.required(fieldRespondentSignature, p.RespondentSignature)
	set.required(fieldOfficerSignature, p.OfficerSignature)
	set.list(fieldPhotos, p.Photos)
	set.list(fieldDocuments, p.Documents)
	if set.count(fieldPhotos, fieldDocuments) == 0 {
		errs.add(fieldPhotos, "at least one photo or document is required")
	}
	if err := validationOrLocation(errs); err != nil {
		return nil, 0, 0, err
	}
	return set, lat, lng, nil
}

func (p *CandidateSubmission) validate() (*evidenceSet, float64, float64, error) {
	p.trim()
	errs := fieldErrors{}
	if p.OwnershipType == "" {
		errs.add("ownershipType", "required")
	}
	if p.PeriodOfStay == "" {
		errs.add("periodOfStay", "required")
	}
	set := newEvidenceSet(errs)
	set.required(fieldSelfie, p.Selfie)
	set.required(fieldIDProof, p.IDProof)
	set.required(fieldHouseDoor, p.HouseDoor)
	set.list(fieldPhotos, p.Photos)
	set.list(fieldDocuments, p.Documents)
	if err := errs.err(); err != nil {
		return nil, 0, 0, err
	}

	lat, lng, ok := parseGPS(p.GpsLat, p.GpsLng)
	if !ok {
		// fall back to the coordinates attached to the selfie, else zero
		lat, lng, _ = evidence.ExtractGPS(p.Selfie)
	}
	return set, lat, lng, nil
}

func buildVerification(rec *models.Record, src models.VerificationSource, status models.CaseStatus, r Respondent, lat, lng float64, refs *resolvedEvidence, by string) *models.Verification {
	return &models.Verification{
		RecordID:               rec.ID,
		Source:                 src,
		Status:                 status,
		RespondentName:         r.RespondentName,
		RespondentRelation:     r.RespondentRelation,
		RespondentContact:      r.RespondentContact,
		OwnershipType:          r.OwnershipType,
		PeriodOfStay:           r.PeriodOfStay,
		Remarks:                r.Remarks,
		GpsLat:                 lat,
		GpsLng:                 lng,
		Photos:                 models.RefsJSON(refs.lists[fieldPhotos]),
		Documents:              models.RefsJSON(refs.lists[fieldDocuments]),
		SelfieURL:              refs.single[fieldSelfie],
		IDProofURL:             refs.single[fieldIDProof],
		HouseDoorURL:           refs.single[fieldHouseDoor],
		RespondentSignatureURL: refs.single[fieldRespondentSignature],
		OfficerSignatureURL:    refs.single[fieldOfficerSignature],
		SubmittedBy:            by,
	}
}

// applySubmission drives the record forward and stores the verification.
func (s *Service) applySubmission(ctx context.Context, tx store.Store, rec *models.Record, sub lifecycle.Submission, v *models.Verification) (*lifecycle.Change, error) {
	now := s.now()
	ch, err := s.machine.Submit(rec, sub, now)
	if err != nil {
		return nil, fromTransition(err)
	}
	rec.GpsDistanceMeters = utils.DistanceMeters(rec.GpsLat, rec.GpsLng, sub.Lat, sub.Lng)

	v.SubmittedAt = now
	if err := tx.UpsertVerification(ctx, v); err != nil {
		return nil, fromStore("store verification", err)
	}
	return ch, nil
}

// SubmitFieldOfficer records a field officer's visit. Nothing is written
// unless every required field and evidence item is valid.
func (s *Service) SubmitFieldOfficer(ctx context.Context, id uuid.UUID, p OfficerSubmission, actor Actor) (*models.Record, error) {
	set, lat, lng, err := p.validate()
	if err != nil {
		return nil, err
	}

	// Fail fast before writing inline evidence; the transaction re-checks.
	pre, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return nil, fromStore("load case", err)
	}
	if err := actor.canAccess(pre); err != nil {
		return nil, err
	}
	if err := actor.checkActive(ctx, s.store); err != nil {
		return nil, err
	}
	if err := lifecycle.Check(lifecycle.ActionSubmit, pre.Status, p.Status); err != nil {
		return nil, fromTransition(err)
	}

	refs, batch, err := s.resolve(ctx, id.String(), set)
	if err != nil {
		return nil, err
	}
	meta := map[string]interface{}{"source": models.SourceFieldOfficer}
	rec, err := s.update(ctx, id, actor, p.Remarks, meta, func(tx store.Store, rec *models.Record) (*lifecycle.Change, error) {
		v := buildVerification(rec, models.SourceFieldOfficer, p.Status, p.Respondent, lat, lng, refs, actor.ID)
		return s.applySubmission(ctx, tx, rec, lifecycle.Submission{
			Action: lifecycle.ActionSubmit, Target: p.Status, Lat: lat, Lng: lng,
		}, v)
	})
	if err != nil {
		s.discard(ctx, batch)
		return nil, err
	}
	zap.S().Infow("field officer submission stored",
		"recordId", rec.ID, "status", rec.Status, "late", rec.IsLateSubmission)
	return rec, nil
}

// CandidateCase is the limited view a candidate gets for a valid link.
type CandidateCase struct {
	ReferenceNumber string    `json:"referenceNumber"`
	CandidateName   string    `json:"candidateName"`
	Name            string    `json:"name"`
	AddressLine     string    `json:"addressLine"`
	City            string    `json:"city,omitempty"`
	State           string    `json:"state,omitempty"`
	Pincode         string    `json:"pincode,omitempty"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// ValidateCandidateToken checks a token and returns the case it unlocks.
func (s *Service) ValidateCandidateToken(ctx context.Context, token string) (*CandidateCase, error) {
	tok, rec, err := s.checkToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &CandidateCase{
		ReferenceNumber: rec.ReferenceNumber,
		CandidateName:   rec.CandidateName,
		Name:            rec.Name,
		AddressLine:     rec.AddressLine,
		City:            rec.City,
		State:           rec.State,
		Pincode:         rec.Pincode,
		ExpiresAt:       tok.ExpiresAt,
	}, nil
}

// checkToken validates without consuming and loads the case, which must
// still be waiting for the candidate.
func (s *Service) checkToken(ctx context.Context, token string) (*models.CandidateToken, *models.Record, error) {
	if !tokens.LooksValid(token) {
		return nil, nil, fromToken(nil)
	}
	tok, err := s.store.GetToken(ctx, token)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, nil, fromStore("load token", err)
	}
	if res := tokens.Validate(tok, s.now()); !res.Valid {
		return nil, nil, fromToken(res.Reason)
	}
	rec, err := s.store.GetRecord(ctx, tok.RecordID)
	if err != nil {
		return nil, nil, fromStore("load case", err)
	}
	if rec.Status != models.StatusCandidateAssigned {
		// a concurrent submission may have consumed the token meanwhile
		if latest, err := s.store.GetToken(ctx, token); err == nil && latest.IsUsed {
			return nil, nil, fromToken(tokens.ErrAlreadyUsed)
		}
		return nil, nil, &Error{Kind: KindInvalidTransition, Message: "this case is no longer waiting for your submission"}
	}
	return tok, rec, nil
}

// SubmitCandidate stores a candidate's self-submission. The token is claimed
// with a conditional update inside the same transaction as the case update,
// so two concurrent submissions cannot both succeed.
func (s *Service) SubmitCandidate(ctx context.Context, token, ip string, p CandidateSubmission) (*models.Record, error) {
	tok, pre, err := s.checkToken(ctx, token)
	if err != nil {
		return nil, err
	}
	set, lat, lng, err := p.validate()
	if err != nil {
		return nil, err
	}
	refs, batch, err := s.resolve(ctx, pre.ID.String(), set)
	if err != nil {
		return nil, err
	}

	actor := Actor{ID: "candidate:" + tok.ID.String(), Name: pre.CandidateName, Role: RoleCandidate}
	meta := map[string]interface{}{"source": models.SourceCandidate, "ip": ip}
	rec, err := s.update(ctx, pre.ID, actor, p.Remarks, meta, func(tx store.Store, rec *models.Record) (*lifecycle.Change, error) {
		now := s.now()
		claimed, err := tx.ClaimToken(ctx, token, ip, now)
		if err != nil {
			return nil, fromStore("claim token", err)
		}
		if !claimed {
			latest, err := tx.GetToken(ctx, token)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, fromStore("load token", err)
			}
			return nil, fromToken(tokens.Validate(latest, now).Reason)
		}
		if err := tx.MarkShortLinksUsed(ctx, tok.ID, now); err != nil {
			return nil, fromStore("mark short link used", err)
		}
		v := buildVerification(rec, models.SourceCandidate, models.StatusSubmitted, p.Respondent, lat, lng, refs, actor.ID)
		return s.applySubmission(ctx, tx, rec, lifecycle.Submission{
			Action: lifecycle.ActionCandidateSubmit, Target: models.StatusSubmitted, Lat: lat, Lng: lng,
		}, v)
	})
	if err != nil {
		s.discard(ctx, batch)
		return nil, err
	}
	zap.S().Infow("candidate submission stored",
		"recordId", rec.ID, "late", rec.IsLateSubmission, "ip", ip)
	return rec, nil
}
