package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Section is one titled block of a multi-part PDF report. A section renders
// its Table when it has headers, otherwise its Lines.
type Section struct {
	Heading string
	Table   Dataset
	Lines   []string
	Empty   string
}

// Document is a complete PDF report.
type Document struct {
	Title       string
	GeneratedAt time.Time
	Sections    []Section
	Footer      string
}

// PDFExporter renders datasets and documents through gofpdf.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a single-table PDF with an optional title.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	return e.RenderDocument(Document{Title: title, Sections: []Section{{Table: data}}})
}

// RenderDocument renders every section in order and closes with the footer.
func (e *PDFExporter) RenderDocument(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
	}
	if !doc.GeneratedAt.IsZero() {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, "Generated: "+doc.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, section := range doc.Sections {
		if section.Heading != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, section.Heading, "", 1, "", false, 0, "")
		}
		switch {
		case len(section.Table.Headers) > 0 && (len(section.Table.Rows) > 0 || section.Empty == ""):
			writeTable(pdf, section.Table)
		case len(section.Lines) > 0:
			pdf.SetFont("Arial", "", 10)
			for _, line := range section.Lines {
				pdf.MultiCell(0, 6, line, "", "", false)
			}
		case section.Empty != "":
			pdf.SetFont("Arial", "I", 10)
			pdf.CellFormat(0, 6, section.Empty, "", 1, "", false, 0, "")
		}
		pdf.Ln(4)
	}

	if doc.Footer != "" {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 8, strings.TrimSpace(doc.Footer), "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTable(pdf *gofpdf.Fpdf, data Dataset) {
	colWidth := 190.0 / float64(len(data.Headers))
	pdf.SetFont("Arial", "B", 10)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, truncate(row[header], colWidth), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// truncate keeps cell text roughly inside the column at 9pt Arial.
func truncate(value string, width float64) string {
	limit := int(width / 1.8)
	runes := []rune(value)
	if limit <= 3 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
