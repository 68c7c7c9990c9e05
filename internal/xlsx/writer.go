// Package xlsx serializes a composed formulary table plus its resolved image
// assets into a single-sheet workbook.
package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"formulary/internal/domain"
	"formulary/internal/formulary"
	"formulary/internal/images"
)

const (
	// ContentType is the MIME type of the produced document.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// Filename is the fixed attachment filename.
	Filename = "formulary.xlsx"

	sheetName = "Sheet1"
)

// Write renders the final table as a header row plus data rows and embeds the
// resolved gallery assets. The gallery image column never shows URL text: the
// cell is cleared, and when an asset exists it is anchored there with the row
// height set from the asset. Encoding failure is fatal to the export.
func Write(comp *domain.Composition, results []images.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(comp.Table.Columns))
	for i, c := range comp.Table.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	for r, row := range comp.Table.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", r+2), &cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if err := embed(f, comp, results); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func embed(f *excelize.File, comp *domain.Composition, results []images.Result) error {
	imgCol := -1
	for i, c := range comp.Table.Columns {
		if c == formulary.ColGalleryImage {
			imgCol = i
			break
		}
	}
	if imgCol < 0 {
		return nil // no gallery rows anywhere in the dataset
	}

	for _, res := range results {
		sheetRow := res.Image.Row + 2
		cell, err := excelize.CoordinatesToCellName(imgCol+1, sheetRow)
		if err != nil {
			return fmt.Errorf("gallery cell for row %d: %w", sheetRow, err)
		}

		// URLs are never shown as text.
		if err := f.SetCellValue(sheetName, cell, ""); err != nil {
			return fmt.Errorf("clear gallery cell %s: %w", cell, err)
		}
		if !res.Found {
			continue
		}

		pic := &excelize.Picture{Extension: ".jpg", File: res.Asset.Data}
		if err := f.AddPictureFromBytes(sheetName, cell, pic); err != nil {
			return fmt.Errorf("anchor image at %s: %w", cell, err)
		}
		if err := f.SetRowHeight(sheetName, sheetRow, res.Asset.RowHeight); err != nil {
			return fmt.Errorf("set row %d height: %w", sheetRow, err)
		}
	}
	return nil
}
