package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"p9e.in/verifyops/middleware"
	"p9e.in/verifyops/models"
	"p9e.in/verifyops/pkg/casework"
	"p9e.in/verifyops/pkg/reports"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv"
	pdfContentType  = "application/pdf"
	zipContentType  = "application/zip"
)

// exportRecords loads every case matching the list filters, up to
// MaxExportRows.
func (a *App) exportRecords(r *http.Request) ([]models.Record, error) {
	f, err := recordFilter(r)
	if err != nil {
		return nil, err
	}
	f.Page, f.Limit = 1, MaxExportRows
	records, total, err := a.Cases.ListCases(r.Context(), f, middleware.ActorFrom(r))
	if err != nil {
		return nil, err
	}
	if total > int64(len(records)) {
		zap.S().Warnw("export truncated", "total", total, "exported", len(records))
	}
	return records, nil
}

func exportName(ext string) string {
	return fmt.Sprintf("cases_%s.%s", time.Now().Format("20060102_150405"), ext)
}

// ExportXLSX downloads the filtered case list as a workbook.
func (a *App) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	records, err := a.exportRecords(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := reports.CasesWorkbook("Verification Cases", records, time.Now())
	if err != nil {
		writeError(w, r, casework.NewError(casework.KindStorage, "build workbook", err))
		return
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		writeError(w, r, casework.NewError(casework.KindStorage, "write workbook", err))
		return
	}
	attachment(w, xlsxContentType, exportName("xlsx"))
	w.Write(buf.Bytes())
}

// ExportCSV downloads the filtered case list as CSV.
func (a *App) ExportCSV(w http.ResponseWriter, r *http.Request) {
	records, err := a.exportRecords(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := reports.CasesCSV(records)
	if err != nil {
		writeError(w, r, casework.NewError(casework.KindStorage, "build csv", err))
		return
	}
	attachment(w, csvContentType, exportName("csv"))
	w.Write(data)
}

// ExportPDF downloads the report of one case.
func (a *App) ExportPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := a.Cases.GetCase(r.Context(), id, middleware.ActorFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}
	data, rec, err := a.Exporter.CasePDF(r.Context(), id)
	if err != nil {
		writeError(w, r, storeError("render case pdf", err))
		return
	}
	attachment(w, pdfContentType, reports.PDFName(rec))
	w.Write(data)
}

// ExportZip bundles one PDF per filtered case. Cases that fail to render are
// listed in errors.txt inside the archive.
func (a *App) ExportZip(w http.ResponseWriter, r *http.Request) {
	records, err := a.exportRecords(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(records) == 0 {
		writeError(w, r, casework.NewError(casework.KindNotFound, "no cases match the filters", nil))
		return
	}
	var buf bytes.Buffer
	res, err := a.Exporter.ZipCases(r.Context(), &buf, records)
	if err != nil {
		writeError(w, r, casework.NewError(casework.KindStorage, "build zip", err))
		return
	}
	zap.S().Infow("zip export", "written", res.Written, "failed", len(res.Failed))
	attachment(w, zipContentType, exportName("zip"))
	w.Write(buf.Bytes())
}
