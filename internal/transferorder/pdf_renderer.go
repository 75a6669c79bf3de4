package transferorder

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// A4 portrait, millimetres
const (
	pdfPageWidth  = 210.0
	pdfPageHeight = 297.0
	pdfMargin     = 15.0
	pdfFont       = "Times"
)

// Column widths, summing to the printable width
var pdfColumns = [4]float64{62, 45, 40, 33}

// PDFRenderer draws a page plan as a PDF, one PDF page per planned page.
// It does not use a template.
type PDFRenderer struct {
	geometry payroll.PlanOptions
	logger   *zap.Logger
}

// DefaultPDFGeometry fits A4 portrait with 15mm margins
func DefaultPDFGeometry() payroll.PlanOptions {
	return payroll.PlanOptions{
		PageCapacity:             pdfPageHeight - 2*pdfMargin,
		RowHeight:                8,
		HeaderHeight:             40,
		ContinuationHeaderHeight: 18,
	}
}

// NewPDFRenderer creates a new PDFRenderer. geometry is in millimetres.
func NewPDFRenderer(geometry payroll.PlanOptions, logger *zap.Logger) *PDFRenderer {
	return &PDFRenderer{
		geometry: geometry,
		logger:   logger,
	}
}

// Format implements Renderer
func (r *PDFRenderer) Format() Format { return FormatPDF }

// Geometry implements Renderer
func (r *PDFRenderer) Geometry() payroll.PlanOptions { return r.geometry }

// NeedsTemplate implements Renderer
func (r *PDFRenderer) NeedsTemplate() bool { return false }

// Render implements Renderer
func (r *PDFRenderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	// pages are broken by the plan, never by gofpdf
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle(doc.Title()+" "+doc.PeriodLabel(), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, page := range doc.Plan.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pdf.AddPage()
		if i == 0 {
			r.drawHeader(pdf, tr, doc)
		} else {
			r.drawContinuationHeader(pdf, tr, doc, page.Number, len(doc.Plan.Pages))
		}

		for _, planned := range page.Rows {
			r.drawRow(pdf, tr, doc.Kind, planned)
		}
	}

	r.drawClosing(pdf, tr, doc)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	r.logger.Debug("Transfer order pdf rendered",
		zap.String("kind", string(doc.Kind)),
		zap.Int("pages", pdf.PageNo()))

	return buf.Bytes(), nil
}

func (r *PDFRenderer) drawHeader(pdf *gofpdf.Fpdf, tr func(string) string, doc *Document) {
	top := pdf.GetY()

	pdf.SetFont(pdfFont, "B", 14)
	pdf.CellFormat(0, 8, tr(doc.Title()), "", 1, "C", false, 0, "")
	pdf.SetFont(pdfFont, "", 11)
	pdf.CellFormat(0, 6, tr(doc.PeriodLabel()), "", 1, "C", false, 0, "")
	pdf.SetFont(pdfFont, "I", 10)
	pdf.CellFormat(0, 6, tr("Montant total : "+FormatAmount(doc.Plan.GrandTotal)), "", 1, "L", false, 0, "")

	pdf.SetY(top + r.geometry.HeaderHeight - r.geometry.RowHeight)
	r.drawColumnTitles(pdf, tr, doc.Kind)
}

func (r *PDFRenderer) drawContinuationHeader(pdf *gofpdf.Fpdf, tr func(string) string, doc *Document, number, total int) {
	top := pdf.GetY()

	pdf.SetFont(pdfFont, "I", 9)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s %s - page %d/%d", doc.Title(), doc.PeriodLabel(), number, total)), "", 1, "R", false, 0, "")

	pdf.SetY(top + r.geometry.ContinuationHeaderHeight - r.geometry.RowHeight)
	r.drawColumnTitles(pdf, tr, doc.Kind)
}

func (r *PDFRenderer) drawColumnTitles(pdf *gofpdf.Fpdf, tr func(string) string, kind Kind) {
	titles := [4]string{"Bénéficiaire", "RIB", "Banque", "Montant"}
	if kind == KindRappel {
		titles = [4]string{"Bénéficiaire", "Exercice / RIB", "Durée / Banque", "Montant"}
	}

	pdf.SetFont(pdfFont, "B", 10)
	pdf.SetFillColor(220, 220, 220)
	for i, title := range titles {
		pdf.CellFormat(pdfColumns[i], r.geometry.RowHeight, tr(title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

func (r *PDFRenderer) drawRow(pdf *gofpdf.Fpdf, tr func(string) string, kind Kind, planned payroll.ReportRow) {
	h := r.geometry.RowHeight

	switch pr := planned.(type) {
	case payroll.DataRow:
		reference, detail := pr.Entry.RIB, pr.Entry.BankName
		if kind == KindRappel {
			reference, detail = fmt.Sprintf("Exercice %d", pr.Entry.FiscalYear), pr.Period
		}
		pdf.SetFont(pdfFont, "I", 9)
		r.drawCells(pdf, tr, h, false, pr.Entry.BeneficiaryName, reference, detail, pr.Amount())

	case payroll.SubtotalRow:
		agg := pr.Aggregate
		name := agg.BeneficiaryName
		if kind == KindRappel && pr.Period != "" {
			name += " (" + pr.Period + ")"
		}
		pdf.SetFont(pdfFont, "B", 9)
		r.drawCells(pdf, tr, h, false, name, agg.RIB, agg.BankName, pr.Amount())

	case payroll.CarryForwardRow:
		pdf.SetFont(pdfFont, "BI", 9)
		pdf.SetFillColor(242, 242, 242)
		r.drawMerged(pdf, tr, h, true, pr.Label, pr.Amount)

	case payroll.GrandTotalRow:
		pdf.SetFont(pdfFont, "B", 10)
		pdf.SetFillColor(220, 220, 220)
		r.drawMerged(pdf, tr, h, true, "TOTAL", pr.Amount)
	}
}

func (r *PDFRenderer) drawCells(pdf *gofpdf.Fpdf, tr func(string) string, h float64, fill bool, name, reference, detail string, amount decimal.Decimal) {
	texts := [3]string{name, reference, detail}
	for i, text := range texts {
		pdf.CellFormat(pdfColumns[i], h, fitText(pdf, tr(text), pdfColumns[i]-2), "1", 0, "L", fill, 0, "")
	}
	pdf.CellFormat(pdfColumns[3], h, tr(FormatAmount(amount)), "1", 1, "R", fill, 0, "")
}

func (r *PDFRenderer) drawMerged(pdf *gofpdf.Fpdf, tr func(string) string, h float64, fill bool, label string, amount decimal.Decimal) {
	pdf.CellFormat(pdfColumns[0]+pdfColumns[1]+pdfColumns[2], h, tr(label), "1", 0, "L", fill, 0, "")
	pdf.CellFormat(pdfColumns[3], h, tr(FormatAmount(amount)), "1", 1, "R", fill, 0, "")
}

// drawClosing prints the amount in words, the mention and the signatures
// below the grand total, on a new page when they do not fit
func (r *PDFRenderer) drawClosing(pdf *gofpdf.Fpdf, tr func(string) string, doc *Document) {
	const closingHeight = 45.0
	if pdf.GetY()+closingHeight > pdfPageHeight-pdfMargin {
		pdf.AddPage()
	}

	width := pdfPageWidth - 2*pdfMargin
	pdf.Ln(4)
	pdf.SetFont(pdfFont, "", 10)
	pdf.MultiCell(width, 5, tr("Arrêté le présent ordre de virement à la somme de : "+doc.Plan.AmountInWords), "", "L", false)

	if doc.Mention != "" {
		pdf.Ln(2)
		pdf.SetFont(pdfFont, "I", 10)
		pdf.MultiCell(width, 5, tr(doc.Mention), "", "C", false)
	}

	pdf.Ln(8)
	pdf.SetFont(pdfFont, "B", 11)
	pdf.CellFormat(width/2, 6, tr(SignatoryOrderingOfficer), "", 0, "C", false, 0, "")
	pdf.CellFormat(width/2, 6, tr(SignatoryProxy), "", 1, "C", false, 0, "")
}

// fitText truncates text with an ellipsis so it fits width
func fitText(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	for len(text) > 0 && pdf.GetStringWidth(text+"...") > width {
		text = text[:len(text)-1]
	}
	return text + "..."
}

// FormatAmount renders an amount the French way: "1 234 567,89"
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	integer, cents, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, digit := range integer {
		if i > 0 && (len(integer)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(digit)
	}
	return sign + b.String() + "," + cents
}
