// Package reports renders case exports: spreadsheets, CSV, per-case PDFs
// and ZIP bundles of PDFs.
package reports

import (
	"fmt"
	"time"

	"p9e.in/verifyops/models"
)

// column is one exported case attribute.
type column struct {
	Label string
	Width float64
	Value func(r *models.Record) interface{}
}

const dateLayout = "2006-01-02"
const dateTimeLayout = "2006-01-02 15:04:05"

func formatTime(t *time.Time, layout string) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

func formatFloat(f *float64, prec int) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%.*f", prec, *f)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

var caseColumns = []column{
	{"Reference No", 18, func(r *models.Record) interface{} { return r.ReferenceNumber }},
	{"Case No", 18, func(r *models.Record) interface{} { return r.CaseNumber }},
	{"Name", 22, func(r *models.Record) interface{} { return r.Name }},
	{"Father Name", 20, func(r *models.Record) interface{} { return r.FatherName }},
	{"Contact", 15, func(r *models.Record) interface{} { return r.Contact }},
	{"Address", 36, func(r *models.Record) interface{} { return r.AddressLine }},
	{"City", 14, func(r *models.Record) interface{} { return r.City }},
	{"State", 14, func(r *models.Record) interface{} { return r.State }},
	{"Pincode", 10, func(r *models.Record) interface{} { return r.Pincode }},
	{"Status", 16, func(r *models.Record) interface{} { return string(r.Status) }},
	{"Vendor", 20, func(r *models.Record) interface{} { return r.VendorName }},
	{"Field Officer", 20, func(r *models.Record) interface{} { return r.FieldOfficerName }},
	{"Candidate", 20, func(r *models.Record) interface{} { return r.CandidateName }},
	{"Assigned Date", 14, func(r *models.Record) interface{} { return formatTime(r.AssignedDate, dateLayout) }},
	{"TAT Due", 14, func(r *models.Record) interface{} { return formatTime(r.TatDueDate, dateLayout) }},
	{"Submitted At", 20, func(r *models.Record) interface{} { return formatTime(r.SubmittedAt, dateTimeLayout) }},
	{"Completed", 14, func(r *models.Record) interface{} { return formatTime(r.CompletionDate, dateLayout) }},
	{"Late", 8, func(r *models.Record) interface{} { return yesNo(r.IsLateSubmission) }},
	{"GPS Distance (m)", 16, func(r *models.Record) interface{} { return formatFloat(r.GpsDistanceMeters, 1) }},
	{"Remarks", 30, func(r *models.Record) interface{} { return r.Remarks }},
}

// statusSummary counts records per status in wire order, skipping zeroes.
func statusSummary(records []models.Record) [][2]string {
	counts := map[models.CaseStatus]int{}
	for i := range records {
		counts[records[i].Status]++
	}
	var out [][2]string
	for _, s := range models.AllStatuses {
		if n := counts[s]; n > 0 {
			out = append(out, [2]string{string(s), fmt.Sprintf("%d", n)})
		}
	}
	out = append(out, [2]string{"total", fmt.Sprintf("%d", len(records))})
	return out
}

// SanitizeFilename replaces characters that are unsafe in download names.
func SanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, c := range name {
		switch c {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			out = append(out, '_')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
