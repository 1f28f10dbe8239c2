package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/cardscan/internal/entity"
)

const sheetName = "Contacts"

var xlsxHeaders = []string{
	"Company",
	"Name",
	"Phone 1",
	"Phone 2",
	"Phone 3",
	"Email",
	"Website",
	"Address",
	"Note",
	"Sent",
	"Created",
}

// XLSX returns a workbook with one row per selected contact. It never
// changes the sent flags.
func (s *Service) XLSX(ctx context.Context, req Request) (*File, error) {
	start := s.now()
	rows, err := s.selectContacts(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := renderXLSX(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", req.UserID.String(),
		"filter", string(req.Filter),
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &File{
		Filename:    fmt.Sprintf("contacts_%d.xlsx", start.UnixMilli()),
		ContentType: ContentTypeXLSX,
		Data:        data,
		Count:       len(rows),
	}, nil
}

func renderXLSX(rows []*entity.Contact) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// rename the default sheet rather than adding a second one
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}
	idx, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for n, c := range rows {
		row := n + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		sent := "No"
		if c.Sent {
			sent = "Yes"
		}
		write(1, c.Company)
		write(2, c.Name)
		write(3, c.Phone1)
		write(4, c.Phone2)
		write(5, c.Phone3)
		write(6, c.Email)
		write(7, c.Website)
		write(8, c.Address)
		write(9, truncate(c.Note, 140))
		write(10, sent)
		write(11, c.CreatedAt.Format("2006-01-02"))
	}

	_ = f.SetColWidth(sheetName, "A", "B", 28)
	_ = f.SetColWidth(sheetName, "C", "E", 16)
	_ = f.SetColWidth(sheetName, "F", "G", 28)
	_ = f.SetColWidth(sheetName, "H", "I", 48)
	_ = f.SetColWidth(sheetName, "J", "K", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
