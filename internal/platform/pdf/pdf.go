// Package pdf renders the simple one-page documents the hospital hands to
// patients: payment receipts and prescriptions.
package pdf

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const hospitalName = "Kaga Hospital"

type Document struct {
	pdf *gofpdf.Fpdf
}

// New starts an A4 document headed with the hospital name and title.
func New(title string) *Document {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetMargins(10, 10, 10)
	p.SetTitle(title, true)
	p.AddPage()

	p.SetFont("Arial", "B", 14)
	p.SetTextColor(0, 70, 127)
	p.CellFormat(0, 10, hospitalName, "", 1, "C", false, 0, "")
	p.SetFont("Arial", "B", 12)
	p.SetTextColor(0, 0, 0)
	p.CellFormat(0, 10, title, "1", 1, "C", false, 0, "")
	p.Ln(4)
	return &Document{pdf: p}
}

// Section writes a bold heading.
func (d *Document) Section(title string) {
	d.pdf.Ln(2)
	d.pdf.SetFont("Arial", "B", 12)
	d.pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

// Detail writes one bordered label/value row.
func (d *Document) Detail(label, value string) {
	d.pdf.SetFont("Arial", "B", 10)
	d.pdf.CellFormat(45, 8, label, "1", 0, "", false, 0, "")
	d.pdf.SetFont("Arial", "", 10)
	d.pdf.CellFormat(0, 8, value, "1", 1, "", false, 0, "")
}

// Row writes a table row with cells of the given widths.
func (d *Document) Row(widths []float64, cells []string, header bool) {
	style := ""
	if header {
		style = "B"
	}
	d.pdf.SetFont("Arial", style, 10)
	for i, cell := range cells {
		ln := 0
		if i == len(cells)-1 {
			ln = 1
		}
		d.pdf.CellFormat(widths[i], 8, cell, "1", ln, "", false, 0, "")
	}
}

func (d *Document) Paragraph(text string) {
	d.pdf.Ln(2)
	d.pdf.SetFont("Arial", "", 10)
	d.pdf.MultiCell(0, 5, text, "", "L", false)
}

// Write finishes the document with the generated-by footer and writes it.
func (d *Document) Write(w io.Writer) error {
	d.pdf.SetY(d.pdf.GetY() + 12)
	d.pdf.SetFont("Arial", "I", 8)
	d.pdf.CellFormat(0, 10, "This is a computer generated document", "", 1, "R", false, 0, "")
	if err := d.pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
