package reports

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/fogleman/gg"
	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
	"p9e.in/verifyops/models"
)

// MaxEvidenceBytes caps a single evidence download.
const MaxEvidenceBytes = 10 << 20

// Fetcher reads evidence by reference. evidence.Resolver satisfies it.
type Fetcher interface {
	ReadAll(ctx context.Context, ref string, max int64) ([]byte, error)
}

// Placeholder captions for evidence that cannot be rendered.
const (
	NotProvided = "Not Provided"
	Corrupted   = "Corrupted"
)

type evidenceItem struct {
	Label string
	Ref   string
}

func evidenceItems(v *models.Verification) []evidenceItem {
	var items []evidenceItem
	if v.Source == models.SourceCandidate {
		items = append(items,
			evidenceItem{"Selfie", v.SelfieURL},
			evidenceItem{"ID Proof", v.IDProofURL},
			evidenceItem{"House Door", v.HouseDoorURL},
		)
	} else {
		items = append(items,
			evidenceItem{"Respondent Signature", v.RespondentSignatureURL},
			evidenceItem{"Officer Signature", v.OfficerSignatureURL},
		)
	}
	photos := v.PhotoList()
	if len(photos) == 0 && v.Source != models.SourceCandidate {
		items = append(items, evidenceItem{"Photo", ""})
	}
	for i, ref := range photos {
		items = append(items, evidenceItem{fmt.Sprintf("Photo %d", i+1), ref})
	}
	for i, ref := range v.DocumentList() {
		items = append(items, evidenceItem{fmt.Sprintf("Document %d", i+1), ref})
	}
	return items
}

// CasePDF renders one case with its verification. Evidence that is missing
// or cannot be read is drawn as a placeholder tile; the document itself only
// fails on rendering errors.
func CasePDF(ctx context.Context, rec *models.Record, v *models.Verification, fetch Fetcher) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Verification Report "+rec.ReferenceNumber, true)
	pdf.SetCreator("verifyops", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("%s  |  page %d/{nb}", rec.ReferenceNumber, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Address Verification Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Reference %s  /  Case %s  /  Status %s", rec.ReferenceNumber, rec.CaseNumber, rec.Status)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	section(pdf, "Case")
	table(pdf, tr, [][2]string{
		{"Name", rec.Name},
		{"Father Name", rec.FatherName},
		{"Contact", rec.Contact},
		{"Address", joinNonEmpty(", ", rec.AddressLine, rec.City, rec.State, rec.Pincode)},
		{"Vendor", rec.VendorName},
		{"Field Officer", rec.FieldOfficerName},
		{"Candidate", rec.CandidateName},
		{"Assigned", formatTime(rec.AssignedDate, dateLayout)},
		{"TAT Due", formatTime(rec.TatDueDate, dateLayout)},
		{"Submitted", formatTime(rec.SubmittedAt, dateTimeLayout)},
		{"Late Submission", yesNo(rec.IsLateSubmission)},
		{"Completed", formatTime(rec.CompletionDate, dateLayout)},
	})

	if v == nil {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 8, "No verification has been submitted for this case.", "", 1, "L", false, 0, "")
		return output(pdf)
	}

	pdf.Ln(4)
	section(pdf, "Verification")
	table(pdf, tr, [][2]string{
		{"Source", string(v.Source)},
		{"Result", string(v.Status)},
		{"Respondent", v.RespondentName},
		{"Relation", v.RespondentRelation},
		{"Respondent Contact", v.RespondentContact},
		{"Ownership", v.OwnershipType},
		{"Period of Stay", v.PeriodOfStay},
		{"Submitted GPS", fmt.Sprintf("%.6f, %.6f", v.GpsLat, v.GpsLng)},
		{"Distance from Address", distanceText(rec.GpsDistanceMeters)},
		{"Remarks", v.Remarks},
	})

	pdf.AddPage()
	section(pdf, "Evidence")
	grid := newTileGrid(pdf)
	for _, item := range evidenceItems(v) {
		img, caption := loadEvidence(ctx, fetch, item)
		grid.place(tr(item.Label), img, caption)
	}
	return output(pdf)
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 8, " "+title, "", 1, "L", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(1)
}

func table(pdf *fpdf.Fpdf, tr func(string) string, rows [][2]string) {
	pdf.SetFillColor(231, 230, 230)
	for _, row := range rows {
		value := row[1]
		if strings.TrimSpace(value) == "" {
			value = "-"
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(50, 7, row[0], "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 7, tr(value), "1", "L", false)
	}
}

func distanceText(d *float64) string {
	if d == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.0f m", *d)
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// loadEvidence returns the image to draw and, when it is a placeholder, its
// caption. Fetch and decode failures degrade to a placeholder.
func loadEvidence(ctx context.Context, fetch Fetcher, item evidenceItem) (image.Image, string) {
	if strings.TrimSpace(item.Ref) == "" {
		return placeholder(NotProvided), NotProvided
	}
	if fetch == nil {
		return placeholder(NotProvided), NotProvided
	}
	data, err := fetch.ReadAll(ctx, item.Ref, MaxEvidenceBytes)
	if err != nil {
		zap.S().Warnw("evidence unavailable for report", "ref", item.Ref, "error", err)
		return placeholder(Corrupted), Corrupted
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		zap.S().Warnw("evidence could not be decoded", "ref", item.Ref, "error", err)
		return placeholder(Corrupted), Corrupted
	}
	return img, ""
}

const (
	tileW   = 400
	tileH   = 300
	tileGap = 6.0
)

// placeholder draws a grey tile with caption centred.
func placeholder(caption string) image.Image {
	dc := gg.NewContext(tileW, tileH)
	dc.SetRGB(0.94, 0.94, 0.94)
	dc.Clear()
	dc.SetRGB(0.65, 0.65, 0.65)
	dc.SetLineWidth(6)
	dc.DrawRectangle(3, 3, tileW-6, tileH-6)
	dc.Stroke()
	dc.SetRGB(0.35, 0.35, 0.35)
	dc.Push()
	dc.ScaleAbout(3, 3, tileW/2, tileH/2)
	dc.DrawStringAnchored(caption, tileW/2, tileH/2, 0.5, 0.5)
	dc.Pop()
	return dc.Image()
}

// flatten re-encodes img as an opaque JPEG, which every PDF reader accepts.
func flatten(img image.Image) ([]byte, error) {
	b := img.Bounds()
	canvas := image.NewRGBA(b)
	draw.Draw(canvas, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, b, img, b.Min, draw.Over)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// tileGrid lays images out two per row, breaking pages as needed.
type tileGrid struct {
	pdf   *fpdf.Fpdf
	col   int
	n     int
	cellW float64
	cellH float64
}

func newTileGrid(pdf *fpdf.Fpdf) *tileGrid {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	w := (pageW - left - right - tileGap) / 2
	return &tileGrid{pdf: pdf, cellW: w, cellH: w * tileH / tileW}
}

func (g *tileGrid) place(label string, img image.Image, caption string) {
	pdf := g.pdf
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	left, _, _, _ := pdf.GetMargins()

	if g.col == 0 && pdf.GetY()+g.cellH+8 > pageH-bottom {
		pdf.AddPage()
	}
	x := left + float64(g.col)*(g.cellW+tileGap)
	y := pdf.GetY()

	pdf.SetXY(x, y)
	pdf.SetFont("Helvetica", "B", 9)
	text := label
	if caption != "" {
		text += " (" + caption + ")"
	}
	pdf.CellFormat(g.cellW, 6, text, "", 0, "L", false, 0, "")

	data, err := flatten(img)
	if err != nil {
		data, _ = flatten(placeholder(Corrupted))
	}
	g.n++
	name := fmt.Sprintf("evidence-%d", g.n)
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	w, h := fit(img.Bounds(), g.cellW, g.cellH)
	pdf.ImageOptions(name, x+(g.cellW-w)/2, y+7, w, h, false, opts, 0, "")
	pdf.Rect(x, y+7, g.cellW, g.cellH, "D")

	if g.col == 1 {
		g.col = 0
		pdf.SetXY(left, y+g.cellH+10)
	} else {
		g.col = 1
		pdf.SetXY(left, y)
	}
}

// fit scales bounds into maxW x maxH keeping the aspect ratio.
func fit(b image.Rectangle, maxW, maxH float64) (float64, float64) {
	iw, ih := float64(b.Dx()), float64(b.Dy())
	if iw <= 0 || ih <= 0 {
		return maxW, maxH
	}
	scale := maxW / iw
	if ih*scale > maxH {
		scale = maxH / ih
	}
	return iw * scale, ih * scale
}
