package spreadsheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestOutputPath(t *testing.T) {
	require.Equal(t,
		"/tmp/contacts_bitrix_imported.xlsx",
		OutputPath("/tmp/contacts.xlsx", "_bitrix_imported"),
	)
	require.Equal(t,
		"leads_bitrix_imported.csv",
		OutputPath("leads.csv", "_bitrix_imported"),
	)
}

func TestLoadCSV_StripsBOMAndTrimsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	content := "\xEF\xBB\xBFName , Email\r\nJane Doe,jane@x.com\r\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	headers, rows, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"Name", "Email"}, headers)
	require.Equal(t, [][]string{{"Jane Doe", "jane@x.com"}}, rows)
}

func TestLoadCSV_MissingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, _, err := Load(path)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, _, err := Load("contacts.ods")
	var fe *FormatError
	require.ErrorAs(t, err, &fe)

	_, _, err = Load("contacts.xls")
	require.ErrorAs(t, err, &fe)
}

func TestSaveCSV_RoundTripPreservesRows(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(in, []byte("Name,Email\nJane,jane@x.com\nJohn,john@x.com\n"), 0o644))

	headers, rows, err := Load(in)
	require.NoError(t, err)

	headers = append(headers, "BITRIX_ID")
	rows[0] = append(rows[0], "42")
	rows[1] = append(rows[1], "")

	out, err := Save(in, "_bitrix_imported", headers, rows)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "in_bitrix_imported.csv"), out)

	gotHeaders, gotRows, err := Load(out)
	require.NoError(t, err)
	require.Equal(t, []string{"Name", "Email", "BITRIX_ID"}, gotHeaders)
	require.Len(t, gotRows, 2)
	require.Equal(t, []string{"Jane", "jane@x.com", "42"}, gotRows[0])
	require.Equal(t, []string{"John", "john@x.com", ""}, gotRows[1])

	// original input untouched
	origHeaders, origRows, err := Load(in)
	require.NoError(t, err)
	require.Equal(t, []string{"Name", "Email"}, origHeaders)
	require.Len(t, origRows, 2)
}

func TestSave_PadsRaggedRows(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(in, []byte("A,B,C\nx\n"), 0o644))

	headers, rows, err := Load(in)
	require.NoError(t, err)

	headers = append(headers, "BITRIX_ID")

	out, err := Save(in, "_out", headers, rows)
	require.NoError(t, err)

	_, gotRows, err := Load(out)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "", "", ""}, gotRows[0])
}

func TestXLSX_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.xlsx")
	writeXLSX(t, in, [][]string{
		{"Name", "Email"},
		{"Jane Doe", "jane@x.com"},
	})

	headers, rows, err := Load(in)
	require.NoError(t, err)
	require.Equal(t, []string{"Name", "Email"}, headers)
	require.Equal(t, [][]string{{"Jane Doe", "jane@x.com"}}, rows)

	headers = append(headers, "BITRIX_ID")
	rows[0] = append(rows[0], "42")

	out, err := Save(in, "_bitrix_imported", headers, rows)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "in_bitrix_imported.xlsx"), out)

	gotHeaders, gotRows, err := Load(out)
	require.NoError(t, err)
	require.Equal(t, []string{"Name", "Email", "BITRIX_ID"}, gotHeaders)
	require.Equal(t, [][]string{{"Jane Doe", "jane@x.com", "42"}}, gotRows)
}

func writeXLSX(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]any, len(row))
		for j, c := range row {
			values[j] = c
		}
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	require.NoError(t, f.SaveAs(path))
}
