package reports

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadCaseRows(t *testing.T) {
	buf := workbookBytes(t, [][]interface{}{
		{"Case No.", "Name", "Father's Name", "Mobile", "Address Line", "City", "Pin Code", "Latitude", "Longitude"},
		{"C-100", "Asha Rao", "R. Rao", "9876543210", "12 MG Road", "Pune", "411001", "18.52", "73.85"},
		{"C-101", "Vikram", "", "", "4 Park St", "Kolkata", "", "", ""},
	})

	rows, first, err := ReadCaseRows(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, first)
	require.Len(t, rows, 2)

	assert.Equal(t, "C-100", rows[0].CaseNumber)
	assert.Equal(t, "Asha Rao", rows[0].Name)
	assert.Equal(t, "R. Rao", rows[0].FatherName)
	assert.Equal(t, "9876543210", rows[0].Contact)
	assert.Equal(t, "12 MG Road", rows[0].AddressLine)
	assert.Equal(t, "18.52", rows[0].GpsLat)
	assert.Equal(t, "73.85", rows[0].GpsLng)

	assert.Equal(t, "C-101", rows[1].CaseNumber)
	assert.Nil(t, rows[1].GpsLat)
	assert.Nil(t, rows[1].GpsLng)
}

func TestReadCaseRows_MissingHeader(t *testing.T) {
	buf := workbookBytes(t, [][]interface{}{
		{"Name", "City"},
		{"Asha", "Pune"},
	})
	_, _, err := ReadCaseRows(buf)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadCaseRows_NotAWorkbook(t *testing.T) {
	_, _, err := ReadCaseRows(bytes.NewBufferString("case,name\n"))
	assert.Error(t, err)
}

func TestImportTemplateRoundTrip(t *testing.T) {
	f, err := ImportTemplate()
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, _, err := ReadCaseRows(buf)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
