package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// StampData is everything printed onto an approval stamp sheet.
type StampData struct {
	Title           string
	SubmissionID    string
	DivisionName    string
	ApprovedBy      string
	ApprovedAt      time.Time
	Note            string
	VerificationURL string
}

// Stamper renders approval stamp sheets for finalized submissions.
type Stamper interface {
	RenderStamp(ctx context.Context, data StampData) (io.ReadSeeker, error)
}

type gofpdfStamper struct{}

func NewStamper() Stamper {
	return &gofpdfStamper{}
}

func (s *gofpdfStamper) RenderStamp(ctx context.Context, data StampData) (io.ReadSeeker, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Approval Certificate", false)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, "DOCUMENT APPROVAL CERTIFICATE", "", 1, "C", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 12)
	doc.CellFormat(0, 8, data.Title, "", 1, "C", false, 0, "")
	doc.Ln(8)

	rows := [][2]string{
		{"Submission", data.SubmissionID},
		{"Division", data.DivisionName},
		{"Approved by", data.ApprovedBy},
		{"Approved at", data.ApprovedAt.Format("2006-01-02 15:04 MST")},
	}
	if data.Note != "" {
		rows = append(rows, [2]string{"Note", data.Note})
	}

	doc.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(45, 8, row[0], "1", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(0, 8, row[1], "1", 1, "L", false, 0, "")
	}

	doc.Ln(10)

	// Stamp box. Scanning the printed sheet must lead back to the public
	// verification page, so the URL is printed in full.
	doc.SetDrawColor(0, 102, 51)
	doc.SetLineWidth(1.2)
	doc.Rect(55, doc.GetY(), 100, 30, "D")
	doc.SetTextColor(0, 102, 51)
	doc.SetFont("Helvetica", "B", 20)
	doc.SetY(doc.GetY() + 10)
	doc.CellFormat(0, 10, "APPROVED", "", 1, "C", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(16)

	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(0, 6, "Verify this document at:", "", 1, "C", false, 0, "")
	doc.SetFont("Courier", "", 9)
	doc.CellFormat(0, 6, data.VerificationURL, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render stamp pdf: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), nil
}
