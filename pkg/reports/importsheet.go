package reports

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"p9e.in/verifyops/pkg/casework"
)

// ErrNoHeader is returned when an import sheet lacks the required columns.
var ErrNoHeader = errors.New("import sheet is missing required columns")

// importFields maps normalized header text onto a RecordInput setter.
var importFields = map[string]func(in *casework.RecordInput, v string){
	"casenumber":  func(in *casework.RecordInput, v string) { in.CaseNumber = v },
	"caseno":      func(in *casework.RecordInput, v string) { in.CaseNumber = v },
	"name":        func(in *casework.RecordInput, v string) { in.Name = v },
	"fathername":  func(in *casework.RecordInput, v string) { in.FatherName = v },
	"fathersname": func(in *casework.RecordInput, v string) { in.FatherName = v },
	"contact":     func(in *casework.RecordInput, v string) { in.Contact = v },
	"mobile":      func(in *casework.RecordInput, v string) { in.Contact = v },
	"phone":       func(in *casework.RecordInput, v string) { in.Contact = v },
	"address":     func(in *casework.RecordInput, v string) { in.AddressLine = v },
	"addressline": func(in *casework.RecordInput, v string) { in.AddressLine = v },
	"city":        func(in *casework.RecordInput, v string) { in.City = v },
	"state":       func(in *casework.RecordInput, v string) { in.State = v },
	"pincode":     func(in *casework.RecordInput, v string) { in.Pincode = v },
	"pin":         func(in *casework.RecordInput, v string) { in.Pincode = v },
	"latitude":    func(in *casework.RecordInput, v string) { setCoord(&in.GpsLat, v) },
	"lat":         func(in *casework.RecordInput, v string) { setCoord(&in.GpsLat, v) },
	"gpslat":      func(in *casework.RecordInput, v string) { setCoord(&in.GpsLat, v) },
	"longitude":   func(in *casework.RecordInput, v string) { setCoord(&in.GpsLng, v) },
	"lng":         func(in *casework.RecordInput, v string) { setCoord(&in.GpsLng, v) },
	"gpslng":      func(in *casework.RecordInput, v string) { setCoord(&in.GpsLng, v) },
	"remarks":     func(in *casework.RecordInput, v string) { in.Remarks = v },
}

// templateHeaders is the header row of the downloadable import template.
var templateHeaders = []string{"Case Number", "Name", "Father Name", "Contact", "Address", "City", "State", "Pincode", "Latitude", "Longitude", "Remarks"}

func setCoord(dst *interface{}, v string) {
	if v != "" {
		*dst = v
	}
}

func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ReadCaseRows parses the first sheet of an xlsx upload. Row 1 is the header;
// the returned firstRow is the sheet row number of rows[0].
func ReadCaseRows(r io.Reader) (rows []casework.RecordInput, firstRow int, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, 0, ErrNoHeader
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, 0, fmt.Errorf("read rows: %w", err)
	}
	if len(all) == 0 {
		return nil, 0, ErrNoHeader
	}

	setters := make([]func(*casework.RecordInput, string), len(all[0]))
	seen := map[string]bool{}
	for i, h := range all[0] {
		key := normalizeHeader(h)
		if set, ok := importFields[key]; ok {
			setters[i] = set
			seen[key] = true
		}
	}
	if !(seen["casenumber"] || seen["caseno"]) || !seen["name"] || !(seen["address"] || seen["addressline"]) {
		return nil, 0, ErrNoHeader
	}

	for _, cells := range all[1:] {
		var in casework.RecordInput
		for i, v := range cells {
			if i < len(setters) && setters[i] != nil {
				setters[i](&in, strings.TrimSpace(v))
			}
		}
		rows = append(rows, in)
	}
	return rows, 2, nil
}

// ImportTemplate is an empty workbook with the import header row.
func ImportTemplate() (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	for i, h := range templateHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		name, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, name, name, 18)
	}
	return f, nil
}
