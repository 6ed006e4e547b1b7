package storage

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"playstore-analytics/models"
)

const xlsxSheet = "apps"

// ReadXLSXTable decodes the first sheet of a workbook. The first row is the
// header.
func ReadXLSXTable(r io.Reader) (*models.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("xlsx: read rows of %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx: sheet %q is empty", sheets[0])
	}

	header, body := rows[0], rows[1:]
	return assemble(frame{
		names: header,
		rows:  len(body),
		value: func(col, row int) any {
			// GetRows trims trailing empty cells.
			if col >= len(body[row]) {
				return ""
			}
			return body[row][col]
		},
	})
}

// xlsxEncoder streams records into a single-sheet workbook.
type xlsxEncoder struct{}

func (xlsxEncoder) Encode(w io.Writer, apps []*models.App, schema models.Schema) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return fmt.Errorf("xlsx: stream writer: %w", err)
	}

	header := make([]interface{}, len(schema))
	for i, c := range schema {
		header[i] = c.Name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx: write header: %w", err)
	}

	for r, a := range apps {
		row := make([]interface{}, len(schema))
		for i, c := range schema {
			row[i] = a.Value(c.Name)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", r+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write workbook: %w", err)
	}
	return nil
}
