package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"p9e.in/verifyops/models"
)

const sheetName = "Cases"

// CasesWorkbook builds the case list spreadsheet with a status summary.
func CasesWorkbook(title string, records []models.Record, generated time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	f.SetCellValue(sheetName, "A1", title)
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetRowHeight(sheetName, 1, 30)
	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Generated: %s", generated.Format(dateTimeLayout)))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, col := range caseColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		f.SetCellValue(sheetName, cell, col.Label)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		name, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, name, name, col.Width)
	}

	dataStyle, _ := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "CCCCCC", Style: 1},
			{Type: "right", Color: "CCCCCC", Style: 1},
			{Type: "top", Color: "CCCCCC", Style: 1},
			{Type: "bottom", Color: "CCCCCC", Style: 1},
		},
	})
	for r := range records {
		for c, col := range caseColumns {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+5)
			f.SetCellValue(sheetName, cell, col.Value(&records[r]))
			f.SetCellStyle(sheetName, cell, cell, dataStyle)
		}
	}
	if len(records) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(caseColumns), len(records)+4)
		f.AutoFilter(sheetName, "A4:"+last, nil)
	}

	summaryRow := len(records) + 7
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
	})
	cell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	f.SetCellValue(sheetName, cell, "Summary")
	f.SetCellStyle(sheetName, cell, cell, summaryStyle)
	for _, kv := range statusSummary(records) {
		summaryRow++
		keyCell, _ := excelize.CoordinatesToCellName(1, summaryRow)
		valueCell, _ := excelize.CoordinatesToCellName(2, summaryRow)
		f.SetCellValue(sheetName, keyCell, kv[0])
		f.SetCellValue(sheetName, valueCell, kv[1])
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

// CasesCSV renders the same columns as CasesWorkbook, without the summary.
func CasesCSV(records []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	headers := make([]string, len(caseColumns))
	for i, col := range caseColumns {
		headers[i] = col.Label
	}
	w.Write(headers)

	for r := range records {
		row := make([]string, len(caseColumns))
		for c, col := range caseColumns {
			row[c] = fmt.Sprintf("%v", col.Value(&records[r]))
		}
		w.Write(row)
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
