package analytics

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fdg312/cityfix/internal/reports"
	"github.com/jung-kurt/gofpdf"
)

var csvHeader = []string{
	"id", "type", "status", "priority", "emergency", "description",
	"latitude", "longitude", "address", "images", "created_at", "updated_at",
}

func generateCSV(rs []reports.ReportDTO) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, r := range rs {
		address := ""
		if r.Location.Address != nil {
			address = *r.Location.Address
		}
		row := []string{
			r.ID.String(),
			r.Type,
			r.Status,
			r.Priority,
			strconv.FormatBool(r.Emergency),
			r.Description,
			strconv.FormatFloat(r.Location.Latitude, 'f', 6, 64),
			strconv.FormatFloat(r.Location.Longitude, 'f', 6, 64),
			address,
			strconv.Itoa(len(r.Images)),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// generatePDF renders a landscape listing with the core Helvetica font.
// Text outside cp1252 is replaced by the translator.
func generatePDF(rs []reports.ReportDTO, f reports.Filter, now time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("CityFix reports", true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "CityFix - Civic Issue Reports")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", now.Format("2006-01-02 15:04 UTC")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Filters: %s", describeFilter(f)))
	pdf.Ln(5)

	st := computeStats(rs)
	pdf.Cell(0, 6, fmt.Sprintf("Total: %d   Pending: %d   Investigating: %d   In progress: %d   Resolved: %d   Emergencies: %d",
		st.Total, st.Pending, st.Investigating, st.InProgress, st.Resolved, st.Emergencies))
	pdf.Ln(10)

	drawReportsTable(pdf, rs, tr)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

type column struct {
	title string
	width float64
}

var pdfColumns = []column{
	{"Reported", 30},
	{"Type", 28},
	{"Status", 26},
	{"Priority", 18},
	{"!", 8},
	{"Location", 42},
	{"Description", 125},
}

func drawReportsTable(pdf *gofpdf.Fpdf, rs []reports.ReportDTO, tr func(string) string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	if len(rs) == 0 {
		pdf.CellFormat(0, 7, "No reports match the selected filters.", "1", 1, "C", false, 0, "")
		return
	}

	for _, r := range rs {
		emergency := ""
		if r.Emergency {
			emergency = "E"
		}
		cells := []string{
			r.CreatedAt.UTC().Format("2006-01-02 15:04"),
			strings.ReplaceAll(r.Type, "_", " "),
			strings.ReplaceAll(r.Status, "_", " "),
			r.Priority,
			emergency,
			fmt.Sprintf("%.4f, %.4f", r.Location.Latitude, r.Location.Longitude),
			truncate(tr(r.Description), 90),
		}
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, cells[i], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func describeFilter(f reports.Filter) string {
	parts := make([]string, 0, 3)
	if f.Status != nil {
		parts = append(parts, "status="+*f.Status)
	}
	if f.Priority != nil {
		parts = append(parts, "priority="+*f.Priority)
	}
	if f.Type != nil {
		parts = append(parts, "type="+*f.Type)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
