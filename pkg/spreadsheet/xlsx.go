package spreadsheet

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

const outputSheetName = "imported"

func loadXLSX(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, &FormatError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, formatErr(path, "workbook has no sheets")
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, &FormatError{Path: path, Err: err}
	}
	if len(all) == 0 {
		return nil, nil, formatErr(path, "missing header row")
	}

	headers := all[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	return headers, all[1:], nil
}

func saveXLSX(path string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", outputSheetName); err != nil {
		return &FormatError{Path: path, Err: err}
	}

	if err := setRow(f, 1, headers); err != nil {
		return &FormatError{Path: path, Err: err}
	}
	for i, row := range rows {
		if err := setRow(f, i+2, row); err != nil {
			return &FormatError{Path: path, Err: err}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return &FormatError{Path: path, Err: err}
	}
	return nil
}

func setRow(f *excelize.File, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	return f.SetSheetRow(outputSheetName, cell, &values)
}
