// Package report renders complaint letters as downloadable PDFs.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Filename is the attachment name offered to the browser.
const Filename = "Nagrik_Sahayak_Complaint.pdf"

// ErrEmptyComplaint is returned when there is no text to render.
var ErrEmptyComplaint = errors.New("report: complaint text missing")

const (
	margin   = 50.0
	leading  = 14.0
	fontSize = 11.0
)

// RenderPDF lays text out on A4 pages in 11pt Helvetica, one source line per
// printed line.
func RenderPDF(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyComplaint
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, height := pdf.GetPageSize()

	for _, page := range Paginate(text, height) {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", fontSize)
		y := margin
		for _, line := range page {
			pdf.Text(margin, y, tr(line))
			y += leading
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Paginate splits text into pages for a page of the given height in points.
func Paginate(text string, pageHeight float64) [][]string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var pages [][]string
	var current []string
	y := margin
	for _, line := range lines {
		if y > pageHeight-margin {
			pages = append(pages, current)
			current = nil
			y = margin
		}
		current = append(current, line)
		y += leading
	}
	return append(pages, current)
}
