package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"incomestatement/pkg/contracts/domain"
)

// SheetName is the worksheet holding the exported statement
const SheetName = "Income Statement"

// numberFormat mirrors the two-decimal grouped table format
const numberFormat = "#,##0.00"

// WriteXLSX writes a workbook with the title, the detailed table and highlighted rows
func WriteXLSX(w io.Writer, result *domain.ResultSet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	styles, err := newSheetStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetCellValue(SheetName, "A1", Title(result.Products)); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "A1", styles.title); err != nil {
		return err
	}

	header := []interface{}{CSVHeader[0], CSVHeader[1]}
	if err := f.SetSheetRow(SheetName, "A3", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A3", "B3", styles.header); err != nil {
		return err
	}

	for i, line := range result.Lines {
		row := i + 4
		labelCell := fmt.Sprintf("A%d", row)
		valueCell := fmt.Sprintf("B%d", row)

		if err := f.SetCellValue(SheetName, labelCell, line.Label); err != nil {
			return err
		}
		if err := f.SetCellFloat(SheetName, valueCell, line.Value, -1, 64); err != nil {
			return err
		}

		labelStyle, valueStyle := styles.forHighlight(line)
		if err := f.SetCellStyle(SheetName, labelCell, labelCell, labelStyle); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, valueCell, valueCell, valueStyle); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 42); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "B", 18); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

type sheetStyles struct {
	title, header       int
	label, value        int
	primaryLabel        int
	primaryValue        int
	secondaryLabel      int
	secondaryValue      int
	percentValue        int
	primaryPercentValue int
}

func newSheetStyles(f *excelize.File) (*sheetStyles, error) {
	format := numberFormat
	percent := `0.00"%"`

	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{strings.TrimPrefix(color, "#")}}
	}

	bold := &excelize.Font{Bold: true}
	s := &sheetStyles{}
	defs := []struct {
		target *int
		style  *excelize.Style
	}{
		{&s.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}},
		{&s.header, &excelize.Style{Font: bold, Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}}}},
		{&s.label, &excelize.Style{}},
		{&s.value, &excelize.Style{CustomNumFmt: &format}},
		{&s.primaryLabel, &excelize.Style{Fill: fill(ColorPrimary), Font: bold}},
		{&s.primaryValue, &excelize.Style{Fill: fill(ColorPrimary), Font: bold, CustomNumFmt: &format}},
		{&s.secondaryLabel, &excelize.Style{Fill: fill(ColorSecondary)}},
		{&s.secondaryValue, &excelize.Style{Fill: fill(ColorSecondary), CustomNumFmt: &format}},
		{&s.percentValue, &excelize.Style{CustomNumFmt: &percent}},
		{&s.primaryPercentValue, &excelize.Style{Fill: fill(ColorPrimary), Font: bold, CustomNumFmt: &percent}},
	}

	for _, def := range defs {
		id, err := f.NewStyle(def.style)
		if err != nil {
			return nil, fmt.Errorf("failed to create style: %w", err)
		}
		*def.target = id
	}
	return s, nil
}

// forHighlight returns the label and value styles of a line
func (s *sheetStyles) forHighlight(line domain.ResultLine) (int, int) {
	isPercent := line.Label == domain.LineROE

	switch line.Highlight {
	case domain.HighlightPrimary:
		if isPercent {
			return s.primaryLabel, s.primaryPercentValue
		}
		return s.primaryLabel, s.primaryValue
	case domain.HighlightSecondary:
		return s.secondaryLabel, s.secondaryValue
	default:
		if isPercent {
			return s.label, s.percentValue
		}
		return s.label, s.value
	}
}
