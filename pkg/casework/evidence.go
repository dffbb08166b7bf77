package casework

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"p9e.in/verifyops/pkg/evidence"
)

// evidenceSet gathers the parsed evidence of one submission so that every
// field is checked before anything is written.
type evidenceSet struct {
	errs   fieldErrors
	single map[string]evidence.Evidence
	lists  map[string][]evidence.Evidence
	order  []string
}

func newEvidenceSet(errs fieldErrors) *evidenceSet {
	return &evidenceSet{
		errs:   errs,
		single: map[string]evidence.Evidence{},
		lists:  map[string][]evidence.Evidence{},
	}
}

func (e *evidenceSet) required(field string, in *evidence.Input) {
	if !in.Present() {
		e.errs.add(field, "required")
		return
	}
	ev, err := evidence.Parse(in.Value)
	if err != nil {
		e.errs.add(field, err.Error())
		return
	}
	e.single[field] = ev
	e.order = append(e.order, field)
}

func (e *evidenceSet) optional(field string, in *evidence.Input) {
	if in.Present() {
		e.required(field, in)
	}
}

// list parses every item; blank entries are dropped.
func (e *evidenceSet) list(field string, ins []evidence.Input) {
	var out []evidence.Evidence
	for i := range ins {
		if !ins[i].Present() {
			continue
		}
		ev, err := evidence.Parse(ins[i].Value)
		if err != nil {
			e.errs.add(fmt.Sprintf("%s[%d]", field, i), err.Error())
			continue
		}
		out = append(out, ev)
	}
	e.lists[field] = out
}

func (e *evidenceSet) count(fields ...string) int {
	n := 0
	for _, f := range fields {
		n += len(e.lists[f])
	}
	return n
}

// foreign flags references that the evidence store does not own.
func (e *evidenceSet) foreign(owns func(string) bool) error {
	errs := fieldErrors{}
	for _, field := range e.order {
		if ev := e.single[field]; ev.Kind == evidence.KindURL && !owns(ev.URL) {
			errs.add(field, reasonForeign)
		}
	}
	for field, items := range e.lists {
		for i, ev := range items {
			if ev.Kind == evidence.KindURL && !owns(ev.URL) {
				errs.add(fmt.Sprintf("%s[%d]", field, i), reasonForeign)
			}
		}
	}
	return errs.err()
}

const reasonForeign = "must reference an uploaded file"

// resolvedEvidence holds reference strings ready for persistence.
type resolvedEvidence struct {
	single map[string]string
	lists  map[string][]string
}

// resolve writes inline payloads through the evidence store. On failure the
// objects already written are removed.
func (s *Service) resolve(ctx context.Context, prefix string, e *evidenceSet) (*resolvedEvidence, *evidence.Batch, error) {
	if err := e.foreign(s.ownsEvidence); err != nil {
		return nil, nil, err
	}
	batch := evidence.NewBatch(s.evidence, prefix)
	out := &resolvedEvidence{single: map[string]string{}, lists: map[string][]string{}}

	fail := func(err error) (*resolvedEvidence, *evidence.Batch, error) {
		s.discard(ctx, batch)
		return nil, nil, newError(KindStorage, "store evidence", err)
	}
	for _, field := range e.order {
		ref, err := batch.Resolve(ctx, field, e.single[field])
		if err != nil {
			return fail(err)
		}
		out.single[field] = ref
	}
	for field, items := range e.lists {
		refs := make([]string, 0, len(items))
		for i, ev := range items {
			ref, err := batch.Resolve(ctx, fmt.Sprintf("%s-%d", field, i+1), ev)
			if err != nil {
				return fail(err)
			}
			refs = append(refs, ref)
		}
		out.lists[field] = refs
	}
	return out, batch, nil
}

func (s *Service) ownsEvidence(ref string) bool {
	return s.evidence != nil && s.evidence.Owns(ref)
}

// discard removes evidence written for a submission that did not commit.
func (s *Service) discard(ctx context.Context, batch *evidence.Batch) {
	if batch == nil || len(batch.Written()) == 0 {
		return
	}
	if err := batch.Rollback(ctx); err != nil {
		zap.S().Warnw("could not remove evidence of rejected submission", "error", err)
	}
}

// validationOrLocation reports a lone missing GPS as MissingLocation.
func validationOrLocation(errs fieldErrors) error {
	if len(errs) == 1 {
		if reason, ok := errs["gps"]; ok {
			return &Error{Kind: KindMissingLocation, Message: "gps location is required: " + reason, Fields: errs}
		}
	}
	return errs.err()
}
