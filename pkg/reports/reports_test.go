package reports

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/store"
	"p9e.in/verifyops/pkg/store/memstore"
)

type mapFetcher map[string][]byte

func (m mapFetcher) ReadAll(ctx context.Context, ref string, max int64) ([]byte, error) {
	data, ok := m[ref]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return data, nil
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func sampleRecords() []models.Record {
	due := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	dist := 42.25
	return []models.Record{
		{ID: uuid.New(), ReferenceNumber: "REC-2026-00001", CaseNumber: "C-1", Name: "Asha Rao", AddressLine: "12 MG Road", Status: models.StatusApproved, TatDueDate: &due, GpsDistanceMeters: &dist, IsLateSubmission: true},
		{ID: uuid.New(), ReferenceNumber: "REC-2026-00002", CaseNumber: "C/2", Name: "Vikram", AddressLine: "4 Park St", Status: models.StatusPending},
		{ID: uuid.New(), ReferenceNumber: "REC-2026-00003", CaseNumber: "C-3", Name: "Lakshmi", AddressLine: "9 Hill Rd", Status: models.StatusPending},
	}
}

func TestCasesWorkbook(t *testing.T) {
	records := sampleRecords()
	f, err := CasesWorkbook("Cases export", records, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{sheetName}, book.GetSheetList())

	get := func(cell string) string {
		v, err := book.GetCellValue(sheetName, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Cases export", get("A1"))
	assert.Equal(t, "Reference No", get("A4"))
	assert.Equal(t, "REC-2026-00001", get("A5"))
	assert.Equal(t, "approved", get("J5"))
	assert.Equal(t, "2026-03-09", get("O5"))
	assert.Equal(t, "Yes", get("R5"))
	assert.Equal(t, "42.2", get("S5"))

	// summary starts two rows below the data
	assert.Equal(t, "Summary", get("A10"))
	assert.Equal(t, "pending", get("A11"))
	assert.Equal(t, "2", get("B11"))
	assert.Equal(t, "approved", get("A12"))
	assert.Equal(t, "total", get("A13"))
	assert.Equal(t, "3", get("B13"))
}

func TestCasesCSV(t *testing.T) {
	data, err := CasesCSV(sampleRecords())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Reference No", rows[0][0])
	assert.Equal(t, "C/2", rows[2][1])
	assert.Len(t, rows[1], len(caseColumns))
}

func TestCasePDF_WithoutVerification(t *testing.T) {
	rec := sampleRecords()[1]
	data, err := CasePDF(context.Background(), &rec, nil, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestCasePDF_DegradesBrokenEvidence(t *testing.T) {
	rec := sampleRecords()[0]
	fetch := mapFetcher{
		"/uploads/ok.png":      pngImage(t),
		"/uploads/garbage.png": []byte("definitely not an image"),
	}
	v := &models.Verification{
		RecordID:               rec.ID,
		Source:                 models.SourceFieldOfficer,
		Status:                 models.StatusSubmitted,
		RespondentName:         "Meena Rao",
		Photos:                 models.RefsJSON([]string{"/uploads/ok.png", "/uploads/garbage.png", "/uploads/missing.png"}),
		RespondentSignatureURL: "/uploads/ok.png",
	}

	data, err := CasePDF(context.Background(), &rec, v, fetch)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestLoadEvidence(t *testing.T) {
	fetch := mapFetcher{"/uploads/ok.png": pngImage(t), "/uploads/bad.png": []byte("nope")}
	ctx := context.Background()

	img, caption := loadEvidence(ctx, fetch, evidenceItem{"Selfie", "/uploads/ok.png"})
	assert.Empty(t, caption)
	assert.Equal(t, 40, img.Bounds().Dx())

	_, caption = loadEvidence(ctx, fetch, evidenceItem{"Selfie", ""})
	assert.Equal(t, NotProvided, caption)

	_, caption = loadEvidence(ctx, fetch, evidenceItem{"Selfie", "/uploads/bad.png"})
	assert.Equal(t, Corrupted, caption)

	_, caption = loadEvidence(ctx, fetch, evidenceItem{"Selfie", "/uploads/gone.png"})
	assert.Equal(t, Corrupted, caption)
}

func TestEvidenceItems_BySource(t *testing.T) {
	candidate := &models.Verification{Source: models.SourceCandidate, SelfieURL: "s", IDProofURL: "i"}
	items := evidenceItems(candidate)
	require.Len(t, items, 3)
	assert.Equal(t, "House Door", items[2].Label)
	assert.Empty(t, items[2].Ref)

	officer := &models.Verification{Source: models.SourceFieldOfficer, Documents: models.RefsJSON([]string{"d"})}
	items = evidenceItems(officer)
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Label
	}
	assert.Equal(t, []string{"Respondent Signature", "Officer Signature", "Photo", "Document 1"}, labels)
}

func TestPlaceholderTile(t *testing.T) {
	img := placeholder(NotProvided)
	assert.Equal(t, image.Rect(0, 0, tileW, tileH), img.Bounds())
	data, err := flatten(img)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xD8}), "jpeg magic")
}

func TestFit(t *testing.T) {
	w, h := fit(image.Rect(0, 0, 200, 100), 80, 60)
	assert.InDelta(t, 80, w, 1e-9)
	assert.InDelta(t, 40, h, 1e-9)

	w, h = fit(image.Rect(0, 0, 100, 300), 80, 60)
	assert.InDelta(t, 20, w, 1e-9)
	assert.InDelta(t, 60, h, 1e-9)
}

type brokenVerificationStore struct {
	store.Store
	bad uuid.UUID
}

func (s brokenVerificationStore) GetVerification(ctx context.Context, id uuid.UUID) (*models.Verification, error) {
	if id == s.bad {
		return nil, errors.New("connection reset")
	}
	return s.Store.GetVerification(ctx, id)
}

func TestZipCases_IsolatesFailures(t *testing.T) {
	records := sampleRecords()
	st := brokenVerificationStore{Store: memstore.New(), bad: records[1].ID}
	exp := NewExporter(st, mapFetcher{})

	var buf bytes.Buffer
	res, err := exp.ZipCases(context.Background(), &buf, records)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.Contains(t, res.Failed, "REC-2026-00002")

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := map[string]*zip.File{}
	for _, f := range zr.File {
		names[f.Name] = f
	}
	assert.Contains(t, names, "REC-2026-00001_C-1.pdf")
	assert.Contains(t, names, "REC-2026-00003_C-3.pdf")
	require.Contains(t, names, "errors.txt")

	rc, err := names["errors.txt"].Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(body), "REC-2026-00002 (C/2): connection reset")
}

func TestExporter_CasePDFNotFound(t *testing.T) {
	exp := NewExporter(memstore.New(), nil)
	_, _, err := exp.CasePDF(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "REC-2026-00002_C_2", SanitizeFilename("REC-2026-00002 C/2"))
}
