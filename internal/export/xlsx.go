package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/campusdocs/proof-archive/internal/models"
)

const (
	sheetName   = "Proofs"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var searchHeaders = []string{
	"ID", "Student USN", "Student Name", "Event", "Event Type", "Department",
	"Academic Year", "Proof Type", "File", "Status", "Rejection Reason", "Uploaded At",
}

// FileName returns the attachment name of an export generated at t
func FileName(t time.Time) string {
	return fmt.Sprintf("proofs-%s.xlsx", t.UTC().Format("20060102-150405"))
}

// WriteSearchResults renders rows as a single-sheet workbook
func WriteSearchResults(w io.Writer, rows []models.SearchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	boldID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := make([]interface{}, len(searchHeaders))
	for i, h := range searchHeaders {
		header[i] = excelize.Cell{StyleID: boldID, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		reason := ""
		if row.RejectionReason != nil {
			reason = *row.RejectionReason
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.ID,
			row.StudentUSN,
			row.UploadedByName,
			row.EventName,
			row.EventType,
			row.Department,
			row.AcademicYear,
			row.ProofType,
			row.FileName,
			string(row.Status),
			reason,
			row.UploadedAt.UTC().Format(time.RFC3339),
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
