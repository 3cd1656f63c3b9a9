// Package export renders recovered material lists as XLSX workbooks for
// review and hand-off to procurement tooling.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Depfrz/PGN-DataLens/store"
)

const sheetName = "Materials"

var columns = []string{"ITEM", "DESCRIPTION", "SPEC", "SIZE", "QTY", "UNIT", "HEAT NO", "TAG NO"}

// Workbook builds an XLSX workbook with one row per material, in table
// row order, plus a header row. The document's filename and number go
// into the workbook properties.
func Workbook(doc *store.Document, materials []store.Material) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if doc != nil {
		f.SetDocProps(&excelize.DocProperties{
			Title:   doc.Filename,
			Subject: doc.DocumentNumber,
			Creator: "datalens",
		})
	}

	for i, h := range columns {
		if err := setCell(f, i+1, 1, h); err != nil {
			return nil, err
		}
	}

	for r, m := range materials {
		row := r + 2
		if err := setCell(f, 1, row, m.Position); err != nil {
			return nil, err
		}
		if err := setCell(f, 2, row, m.Description); err != nil {
			return nil, err
		}
		setOptional(f, 3, row, m.Spec)
		setOptional(f, 4, row, m.Size)
		if m.Quantity != nil {
			if err := setCell(f, 5, row, *m.Quantity); err != nil {
				return nil, err
			}
		}
		setOptional(f, 6, row, m.Unit)
		setOptional(f, 7, row, m.HeatNo)
		setOptional(f, 8, row, m.TagNo)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheetName, cell, value)
}

func setOptional(f *excelize.File, col, row int, value *string) {
	if value == nil {
		return
	}
	// Coordinates are fixed at the call sites, so this cannot fail.
	_ = setCell(f, col, row, *value)
}
