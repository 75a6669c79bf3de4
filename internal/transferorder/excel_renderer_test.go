package transferorder

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func rawValue(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return v
}

func mergedRanges(t *testing.T, f *excelize.File, sheet string) []string {
	t.Helper()
	merges, err := f.GetMergeCells(sheet)
	require.NoError(t, err)

	out := make([]string, 0, len(merges))
	for _, m := range merges {
		out = append(out, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	return out
}

// sheetXML returns the raw xml of the first worksheet
func sheetXML(t *testing.T, workbook []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(workbook), int64(len(workbook)))
	require.NoError(t, err)

	for _, file := range zr.File {
		if file.Name != "xl/worksheets/sheet1.xml" {
			continue
		}
		rc, err := file.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatal("worksheet not found")
	return ""
}

func TestExcelRenderer_Payment(t *testing.T) {
	geometry := DefaultExcelGeometry()
	renderer := NewExcelRenderer(geometry, nopLogger())

	plan := planFor(t, []payroll.RawEntry{
		paymentEntry(1, "Dupont Ali", "100"),
		paymentEntry(1, "Dupont Ali", "50.25"),
	}, geometry)

	doc := &Document{
		Kind:     KindPayment,
		Month:    3,
		Year:     2024,
		Plan:     plan,
		Template: testTemplate(t, KindPayment),
		Mention:  "PAIEMENT DU MOIS DE Mars 2024",
	}

	out, err := renderer.Render(context.Background(), doc)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	sheet := "OV"

	// data rows
	assert.Equal(t, "Dupont Ali", rawValue(t, f, sheet, "B19"))
	assert.Equal(t, "00400123456789012345", rawValue(t, f, sheet, "C19"))
	assert.Equal(t, "CPA", rawValue(t, f, sheet, "D19"))
	assert.Equal(t, "100.00", rawValue(t, f, sheet, "E19"))
	assert.Equal(t, "50.25", rawValue(t, f, sheet, "E20"))

	// subtotal and grand total
	assert.Equal(t, "Dupont Ali", rawValue(t, f, sheet, "B21"))
	assert.Equal(t, "150.25", rawValue(t, f, sheet, "E21"))
	assert.Equal(t, "TOTAL", rawValue(t, f, sheet, "B22"))
	assert.Equal(t, "150.25", rawValue(t, f, sheet, "E22"))

	// summary
	assert.Equal(t, "150.25", rawValue(t, f, sheet, "B17"))
	assert.Equal(t, plan.AmountInWords, rawValue(t, f, sheet, "C17"))
	assert.Contains(t, plan.AmountInWords, "virgule")

	// closing
	assert.Equal(t, "PAIEMENT DU MOIS DE Mars 2024", rawValue(t, f, sheet, "B23"))
	assert.Equal(t, SignatoryOrderingOfficer, rawValue(t, f, sheet, "B24"))
	assert.Equal(t, SignatoryProxy, rawValue(t, f, sheet, "D24"))

	merges := mergedRanges(t, f, sheet)
	assert.Contains(t, merges, "B22:D22")
	assert.Contains(t, merges, "B23:E23")

	height, err := f.GetRowHeight(sheet, 19)
	require.NoError(t, err)
	assert.InDelta(t, geometry.RowHeight, height, 0.01)

	height, err = f.GetRowHeight(sheet, 24)
	require.NoError(t, err)
	assert.InDelta(t, float64(excelSignatureHeight), height, 0.01)

	assert.NotContains(t, sheetXML(t, out), "<brk ")
}

func TestExcelRenderer_Rappel(t *testing.T) {
	geometry := DefaultExcelGeometry()
	renderer := NewExcelRenderer(geometry, nopLogger())

	plan := planFor(t, []payroll.RawEntry{
		rappelEntry(7, "Benali Sara", "1200", 395),
	}, geometry)

	out, err := renderer.Render(context.Background(), &Document{
		Kind:     KindRappel,
		Month:    3,
		Year:     2024,
		Plan:     plan,
		Template: testTemplate(t, KindRappel),
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	sheet := "OV-RAP (14)"
	assert.Equal(t, "Benali Sara", rawValue(t, f, sheet, "B19"))
	assert.Equal(t, "Exercice 2023", rawValue(t, f, sheet, "C19"))
	assert.Equal(t, "1 an 1 mois", rawValue(t, f, sheet, "D19"))
	assert.Equal(t, "1200.00", rawValue(t, f, sheet, "E19"))

	// no mention: signatures follow the grand total directly
	assert.Equal(t, "TOTAL", rawValue(t, f, sheet, "B21"))
	assert.Equal(t, SignatoryOrderingOfficer, rawValue(t, f, sheet, "B22"))
}

func TestExcelRenderer_PageBreaksFollowPlan(t *testing.T) {
	geometry := payroll.PlanOptions{PageCapacity: 300, RowHeight: 30, HeaderHeight: 60, ContinuationHeaderHeight: 0}
	renderer := NewExcelRenderer(geometry, nopLogger())

	var entries []payroll.RawEntry
	for i := 1; i <= 12; i++ {
		name := fmt.Sprintf("Resident %02d", i)
		entries = append(entries, paymentEntry(int64(i), name, "100"), paymentEntry(int64(i), name, "10"))
	}
	plan := planFor(t, entries, geometry)
	require.Greater(t, len(plan.Pages), 1)

	out, err := renderer.Render(context.Background(), &Document{
		Kind:     KindPayment,
		Month:    3,
		Year:     2024,
		Plan:     plan,
		Template: testTemplate(t, KindPayment),
	})
	require.NoError(t, err)

	xml := sheetXML(t, out)
	assert.Equal(t, len(plan.Pages)-1, bytes.Count([]byte(xml), []byte("<brk ")))

	// the first break falls right after the first page's carry-out row
	lastRow := 19 + len(plan.Pages[0].Rows) - 1
	assert.Contains(t, xml, fmt.Sprintf(`<brk id="%d"`, lastRow))

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, payroll.LabelCarryOut, rawValue(t, f, "OV", fmt.Sprintf("B%d", lastRow)))
	assert.Equal(t, payroll.LabelCarryIn, rawValue(t, f, "OV", fmt.Sprintf("B%d", lastRow+1)))
	assert.Equal(t, "1320.00", rawValue(t, f, "OV", "B17"))
}

func TestExcelRenderer_TemplateErrors(t *testing.T) {
	renderer := NewExcelRenderer(DefaultExcelGeometry(), nopLogger())
	plan := planFor(t, []payroll.RawEntry{paymentEntry(1, "Dupont", "10")}, DefaultExcelGeometry())

	t.Run("missing template", func(t *testing.T) {
		_, err := renderer.Render(context.Background(), &Document{Kind: KindPayment, Plan: plan})
		assert.ErrorIs(t, err, ErrTemplateUnavailable)
	})

	t.Run("corrupt template", func(t *testing.T) {
		_, err := renderer.Render(context.Background(), &Document{
			Kind:     KindPayment,
			Plan:     plan,
			Template: &Template{Kind: KindPayment, Name: "broken.xlsx", Data: []byte("not a workbook")},
		})
		assert.ErrorIs(t, err, ErrTemplateUnavailable)
	})

	t.Run("wrong sheet", func(t *testing.T) {
		// a rappel template lacks the payment sheet
		_, err := renderer.Render(context.Background(), &Document{
			Kind:     KindPayment,
			Plan:     plan,
			Template: testTemplate(t, KindRappel),
		})
		assert.ErrorIs(t, err, ErrTemplateUnavailable)
	})
}

func TestExcelRenderer_CanceledContext(t *testing.T) {
	renderer := NewExcelRenderer(DefaultExcelGeometry(), nopLogger())
	plan := planFor(t, []payroll.RawEntry{paymentEntry(1, "Dupont", "10")}, DefaultExcelGeometry())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := renderer.Render(ctx, &Document{Kind: KindPayment, Plan: plan, Template: testTemplate(t, KindPayment)})
	assert.ErrorIs(t, err, context.Canceled)
}
