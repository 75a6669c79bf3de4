package transferorder

import (
	"bytes"
	"context"
	"fmt"

	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	excelFontFamily      = "Times New Roman"
	excelFontSize        = 26
	excelSummaryFontSize = 23
	excelSignatureHeight = 70
	amountNumFmt         = "#,##0.00"
)

// ExcelRenderer fills the kind's spreadsheet template with a page plan
type ExcelRenderer struct {
	geometry payroll.PlanOptions
	logger   *zap.Logger
}

// DefaultExcelGeometry matches the bundled templates: rows 1-18 hold the
// letterhead and summary, data rows are 60.75pt high and the sheet prints
// scaled to one A4 page width.
func DefaultExcelGeometry() payroll.PlanOptions {
	return payroll.PlanOptions{
		PageCapacity:             1560,
		RowHeight:                60.75,
		HeaderHeight:             540,
		ContinuationHeaderHeight: 0,
	}
}

// NewExcelRenderer creates a new ExcelRenderer. geometry is in points.
func NewExcelRenderer(geometry payroll.PlanOptions, logger *zap.Logger) *ExcelRenderer {
	return &ExcelRenderer{
		geometry: geometry,
		logger:   logger,
	}
}

// Format implements Renderer
func (r *ExcelRenderer) Format() Format { return FormatXLSX }

// Geometry implements Renderer
func (r *ExcelRenderer) Geometry() payroll.PlanOptions { return r.geometry }

// NeedsTemplate implements Renderer
func (r *ExcelRenderer) NeedsTemplate() bool { return true }

type excelStyles struct {
	text, amount             int
	subtotal, subtotalAmount int
	carry, carryAmount       int
	grand, grandAmount       int
	mention, signature       int
	summary                  int
}

// Render implements Renderer
func (r *ExcelRenderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	if doc.Template == nil {
		return nil, fmt.Errorf("%w: no template for %s", ErrTemplateUnavailable, doc.Kind)
	}

	file, err := excelize.OpenReader(bytes.NewReader(doc.Template.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to open: %v", ErrTemplateUnavailable, doc.Template.Name, err)
	}
	defer file.Close()

	layout := layoutFor(doc.Kind)
	if idx, err := file.GetSheetIndex(layout.Sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %s: missing sheet %q", ErrTemplateUnavailable, doc.Template.Name, layout.Sheet)
	}

	styles, err := newExcelStyles(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create styles: %w", err)
	}

	row := layout.FirstDataRow
	for _, page := range doc.Plan.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, planned := range page.Rows {
			if err := r.writeRow(file, layout.Sheet, row, doc.Kind, planned, styles); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
			if carry, ok := planned.(payroll.CarryForwardRow); ok && carry.Label == payroll.LabelCarryOut {
				if err := file.InsertPageBreak(layout.Sheet, fmt.Sprintf("A%d", row+1)); err != nil {
					return nil, fmt.Errorf("failed to insert page break after row %d: %w", row, err)
				}
			}
			row++
		}
	}

	if err := r.writeSummary(file, layout, doc, styles); err != nil {
		return nil, err
	}
	if err := r.writeClosing(file, layout.Sheet, row, doc.Mention, styles); err != nil {
		return nil, err
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	r.logger.Debug("Transfer order workbook rendered",
		zap.String("kind", string(doc.Kind)),
		zap.String("template_version", doc.Template.Version),
		zap.Int("pages", len(doc.Plan.Pages)),
		zap.Int("last_row", row-1))

	return buf.Bytes(), nil
}

// writeRow fills columns B-E of one planned row
func (r *ExcelRenderer) writeRow(file *excelize.File, sheet string, row int, kind Kind, planned payroll.ReportRow, s excelStyles) error {
	if err := file.SetRowHeight(sheet, row, r.geometry.RowHeight); err != nil {
		return err
	}

	switch pr := planned.(type) {
	case payroll.DataRow:
		reference, detail := pr.Entry.RIB, pr.Entry.BankName
		if kind == KindRappel {
			reference, detail = fmt.Sprintf("Exercice %d", pr.Entry.FiscalYear), pr.Period
		}
		return writeCells(file, sheet, row, pr.Entry.BeneficiaryName, reference, detail, pr.Amount(), s.text, s.amount, false)

	case payroll.SubtotalRow:
		agg := pr.Aggregate
		return writeCells(file, sheet, row, agg.BeneficiaryName, agg.RIB, agg.BankName, pr.Amount(), s.subtotal, s.subtotalAmount, false)

	case payroll.CarryForwardRow:
		return writeCells(file, sheet, row, pr.Label, "", "", pr.Amount, s.carry, s.carryAmount, true)

	case payroll.GrandTotalRow:
		return writeCells(file, sheet, row, "TOTAL", "", "", pr.Amount, s.grand, s.grandAmount, true)
	}

	return fmt.Errorf("unsupported row type %T", planned)
}

func writeCells(file *excelize.File, sheet string, row int, beneficiary, reference, detail string, amount decimal.Decimal, textStyle, amountStyle int, merge bool) error {
	cell := func(col string) string { return fmt.Sprintf("%s%d", col, row) }

	if err := file.SetCellStr(sheet, cell(colBeneficiary), beneficiary); err != nil {
		return err
	}
	if !merge {
		if err := file.SetCellStr(sheet, cell(colReference), reference); err != nil {
			return err
		}
		if err := file.SetCellStr(sheet, cell(colDetail), detail); err != nil {
			return err
		}
	}
	if err := file.SetCellFloat(sheet, cell(colAmount), amount.Round(2).InexactFloat64(), 2, 64); err != nil {
		return err
	}

	if err := file.SetCellStyle(sheet, cell(colBeneficiary), cell(colDetail), textStyle); err != nil {
		return err
	}
	if err := file.SetCellStyle(sheet, cell(colAmount), cell(colAmount), amountStyle); err != nil {
		return err
	}
	if merge {
		return file.MergeCell(sheet, cell(colBeneficiary), cell(colDetail))
	}
	return nil
}

// writeSummary fills the grand total cells at the top of the sheet
func (r *ExcelRenderer) writeSummary(file *excelize.File, layout sheetLayout, doc *Document, s excelStyles) error {
	plan := doc.Plan
	if err := file.SetCellFloat(layout.Sheet, layout.SummaryTotal, plan.GrandTotal.Round(2).InexactFloat64(), 2, 64); err != nil {
		return fmt.Errorf("failed to set summary total: %w", err)
	}
	if err := file.SetCellStr(layout.Sheet, layout.SummaryWords, plan.AmountInWords); err != nil {
		return fmt.Errorf("failed to set summary words: %w", err)
	}
	if err := file.SetCellStyle(layout.Sheet, layout.SummaryTotal, layout.SummaryTotal, s.summary); err != nil {
		return err
	}
	return nil
}

// writeClosing adds the mention line and the signature row below the last planned row
func (r *ExcelRenderer) writeClosing(file *excelize.File, sheet string, row int, mention string, s excelStyles) error {
	if mention != "" {
		start, end := fmt.Sprintf("%s%d", colBeneficiary, row), fmt.Sprintf("%s%d", colAmount, row)
		if err := file.SetCellStr(sheet, start, mention); err != nil {
			return fmt.Errorf("failed to set mention: %w", err)
		}
		if err := file.MergeCell(sheet, start, end); err != nil {
			return fmt.Errorf("failed to merge mention: %w", err)
		}
		if err := file.SetCellStyle(sheet, start, end, s.mention); err != nil {
			return err
		}
		if err := file.SetRowHeight(sheet, row, r.geometry.RowHeight); err != nil {
			return err
		}
		row++
	}

	left, right := fmt.Sprintf("%s%d", colBeneficiary, row), fmt.Sprintf("%s%d", colDetail, row)
	if err := file.SetCellStr(sheet, left, SignatoryOrderingOfficer); err != nil {
		return fmt.Errorf("failed to set signatory: %w", err)
	}
	if err := file.SetCellStr(sheet, right, SignatoryProxy); err != nil {
		return fmt.Errorf("failed to set signatory: %w", err)
	}
	if err := file.SetCellStyle(sheet, left, right, s.signature); err != nil {
		return err
	}
	return file.SetRowHeight(sheet, row, excelSignatureHeight)
}

func newExcelStyles(file *excelize.File) (excelStyles, error) {
	numFmt := amountNumFmt
	borders := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	left := &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true}
	right := &excelize.Alignment{Horizontal: "right", Vertical: "center"}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	font := func(bold, italic bool, size float64) *excelize.Font {
		return &excelize.Font{Family: excelFontFamily, Size: size, Bold: bold, Italic: italic}
	}

	var s excelStyles
	styles := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.text, &excelize.Style{Border: borders, Font: font(false, true, excelFontSize), Alignment: left}},
		{&s.amount, &excelize.Style{Border: borders, Font: font(false, true, excelFontSize), Alignment: right, CustomNumFmt: &numFmt}},
		{&s.subtotal, &excelize.Style{Border: borders, Font: font(true, true, excelFontSize), Alignment: left}},
		{&s.subtotalAmount, &excelize.Style{Border: borders, Font: font(true, true, excelFontSize), Alignment: right, CustomNumFmt: &numFmt}},
		{&s.carry, &excelize.Style{
			Border:    borders,
			Font:      font(true, false, excelFontSize),
			Alignment: left,
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F2F2F2"}},
		}},
		{&s.carryAmount, &excelize.Style{
			Border:       borders,
			Font:         font(true, false, excelFontSize),
			Alignment:    right,
			Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F2F2F2"}},
			CustomNumFmt: &numFmt,
		}},
		{&s.grand, &excelize.Style{Border: borders, Font: font(true, false, excelFontSize), Alignment: left}},
		{&s.grandAmount, &excelize.Style{Border: borders, Font: font(true, false, excelFontSize), Alignment: right, CustomNumFmt: &numFmt}},
		{&s.mention, &excelize.Style{Font: font(false, true, excelFontSize), Alignment: center}},
		{&s.signature, &excelize.Style{Font: font(true, false, excelFontSize), Alignment: center}},
		{&s.summary, &excelize.Style{Font: font(false, false, excelSummaryFontSize), CustomNumFmt: &numFmt}},
	}

	for _, def := range styles {
		id, err := file.NewStyle(def.style)
		if err != nil {
			return excelStyles{}, err
		}
		*def.dst = id
	}
	return s, nil
}
