package reports

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet     = "Division Summary"
	submissionsSheet = "Submissions"
	timestampFormat  = "2006-01-02 15:04"
)

// BuildWorkbook renders the period's summaries and submission rows into one
// XLSX workbook with a styled, frozen header per sheet.
func BuildWorkbook(summaries []DivisionSummary, rows []SubmissionRow) (io.ReadSeeker, error) {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", summarySheet)
	if _, err := file.NewSheet(submissionsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	summaryColumns := []string{"Division", "Created", "Approved", "Rejected", "In Flight", "Avg Turnaround (h)"}
	if err := writeHeader(file, summarySheet, summaryColumns, headerStyle); err != nil {
		return nil, err
	}
	for i, s := range summaries {
		var turnaround any
		if s.AvgTurnaroundHours != nil {
			turnaround = *s.AvgTurnaroundHours
		}
		if err := writeRow(file, summarySheet, i+2, []any{
			s.DivisionName, s.Created, s.Approved, s.Rejected, s.InFlight, turnaround,
		}); err != nil {
			return nil, err
		}
	}

	rowColumns := []string{"ID", "Title", "Status", "Step", "Creator", "Division", "Workflow", "Created", "Approved"}
	if err := writeHeader(file, submissionsSheet, rowColumns, headerStyle); err != nil {
		return nil, err
	}
	for i, row := range rows {
		approvedAt := ""
		if row.ApprovedAt != nil {
			approvedAt = row.ApprovedAt.Format(timestampFormat)
		}
		if err := writeRow(file, submissionsSheet, i+2, []any{
			row.ID.String(), row.Title, row.Status, row.CurrentStep,
			row.CreatorName, row.DivisionName, row.WorkflowName,
			row.CreatedAt.Format(timestampFormat), approvedAt,
		}); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), nil
}

func writeHeader(file *excelize.File, sheet string, columns []string, style int) error {
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		file.SetCellStyle(sheet, cell, cell, style)
	}
	return file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeRow(file *excelize.File, sheet string, rowNum int, values []any) error {
	for i, value := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, rowNum)
		if err := file.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
	}
	return nil
}
