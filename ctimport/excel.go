package ctimport

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ResultsSheet is the worksheet that instrument workbooks keep Ct values on.
const ResultsSheet = "Results"

// ParseExcel reads the Results sheet of a legacy .xls workbook.
func ParseExcel(r io.Reader, sourceFile string) (ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{SourceFile: sourceFile}, pfx.Err(err)
	}

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return ParseResult{SourceFile: sourceFile}, pfx.Err(fmt.Errorf("%s: %w", sourceFile, err))
	}

	grid, err := sheetGrid(wb, ResultsSheet)
	if err != nil {
		return ParseResult{SourceFile: sourceFile}, fmt.Errorf("%s: %w", sourceFile, err)
	}

	return parseGrid(grid, sourceFile)
}

func sheetGrid(wb *xls.WorkBook, name string) ([][]string, error) {
	names := make([]string, 0, wb.NumSheets())

	for sheetID := 0; sheetID < wb.NumSheets(); sheetID++ {
		sheet := wb.GetSheet(sheetID)
		if sheet == nil {
			continue
		}
		names = append(names, sheet.Name)

		if !sheetMatches(sheet.Name, name) {
			continue
		}

		grid := make([][]string, 0, int(sheet.MaxRow)+1)
		for rowID := 0; rowID <= int(sheet.MaxRow); rowID++ {
			row := sheet.Row(rowID)
			if row == nil {
				grid = append(grid, nil)
				continue
			}

			cells := make([]string, row.LastCol()+1)
			for colID := row.FirstCol(); colID <= row.LastCol(); colID++ {
				cells[colID] = row.Col(colID)
			}
			grid = append(grid, cells)
		}

		return grid, nil
	}

	return nil, fmt.Errorf("no %q sheet (found %v)", name, names)
}

// ParseXLSX reads the Results sheet of an .xlsx workbook.
func ParseXLSX(r io.Reader, sourceFile string) (ParseResult, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return ParseResult{SourceFile: sourceFile}, pfx.Err(fmt.Errorf("%s: %w", sourceFile, err))
	}
	defer wb.Close()

	names := wb.GetSheetList()
	for _, sheetName := range names {
		if !sheetMatches(sheetName, ResultsSheet) {
			continue
		}

		// Raw values, so that display formats do not round the Ct.
		grid, err := wb.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			return ParseResult{SourceFile: sourceFile}, pfx.Err(fmt.Errorf("%s: %w", sourceFile, err))
		}

		return parseGrid(grid, sourceFile)
	}

	return ParseResult{SourceFile: sourceFile}, fmt.Errorf("%s: no %q sheet (found %v)", sourceFile, ResultsSheet, names)
}

func sheetMatches(sheetName, name string) bool {
	return strings.EqualFold(strings.TrimSpace(sheetName), name)
}
