package reports

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/store"
)

// Exporter loads cases and their verifications for rendering.
type Exporter struct {
	store store.Store
	fetch Fetcher
}

func NewExporter(st store.Store, fetch Fetcher) *Exporter {
	return &Exporter{store: st, fetch: fetch}
}

// CasePDF renders the case with id.
func (e *Exporter) CasePDF(ctx context.Context, id uuid.UUID) ([]byte, *models.Record, error) {
	rec, err := e.store.GetRecord(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := e.render(ctx, rec)
	return data, rec, err
}

func (e *Exporter) render(ctx context.Context, rec *models.Record) ([]byte, error) {
	v, err := e.store.GetVerification(ctx, rec.ID)
	if errors.Is(err, store.ErrNotFound) {
		v, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	return CasePDF(ctx, rec, v, e.fetch)
}

// BundleResult reports what went into a ZIP.
type BundleResult struct {
	Written int
	Failed  map[string]string
}

// PDFName is the entry name used for a case inside a bundle.
func PDFName(rec *models.Record) string {
	return SanitizeFilename(rec.ReferenceNumber+"_"+rec.CaseNumber) + ".pdf"
}

// ZipCases writes one PDF per record into w, sequentially. A record that
// fails to render is skipped and listed in errors.txt; only failures of the
// archive itself abort the bundle.
func (e *Exporter) ZipCases(ctx context.Context, w io.Writer, records []models.Record) (BundleResult, error) {
	res := BundleResult{Failed: map[string]string{}}
	zw := zip.NewWriter(w)
	var failures []string

	for i := range records {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return res, err
		}
		rec := &records[i]
		data, err := e.renderSafely(ctx, rec)
		if err != nil {
			zap.S().Warnw("skipping case in bundle", "recordId", rec.ID, "reference", rec.ReferenceNumber, "error", err)
			res.Failed[rec.ReferenceNumber] = err.Error()
			failures = append(failures, fmt.Sprintf("%s (%s): %v", rec.ReferenceNumber, rec.CaseNumber, err))
			continue
		}
		entry, err := zw.CreateHeader(&zip.FileHeader{Name: PDFName(rec), Method: zip.Deflate, Modified: time.Now()})
		if err != nil {
			return res, fmt.Errorf("create zip entry: %w", err)
		}
		if _, err := entry.Write(data); err != nil {
			return res, fmt.Errorf("write zip entry: %w", err)
		}
		res.Written++
	}

	if len(failures) > 0 {
		entry, err := zw.Create("errors.txt")
		if err != nil {
			return res, fmt.Errorf("create errors entry: %w", err)
		}
		if _, err := io.WriteString(entry, strings.Join(failures, "\n")+"\n"); err != nil {
			return res, fmt.Errorf("write errors entry: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return res, fmt.Errorf("close zip: %w", err)
	}
	return res, nil
}

// renderSafely isolates a panicking render to its own record.
func (e *Exporter) renderSafely(ctx context.Context, rec *models.Record) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while rendering: %v", r)
		}
	}()
	return e.render(ctx, rec)
}
