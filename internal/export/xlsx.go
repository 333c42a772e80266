package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"examextractor/internal/artifacts"
)

// Service is a tiny façade over the artifact manager that produces XLSX
// bytes for exports.
type Service struct {
	manager *artifacts.Manager
	logger  *slog.Logger
}

func NewService(manager *artifacts.Manager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{manager: manager, logger: logger}
}

// ExportQuestionsXLSX returns an XLSX workbook (as bytes) holding every
// question across all completed, non-expired artifacts.
func (s *Service) ExportQuestionsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	questions, err := s.manager.GetAllQuestionsFromArtifacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect questions: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Questions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Question No.",
		"Sub-question",
		"Question Text",
		"Topic",
		"Type",
		"Marks",
		"Source Paper",
		"Page",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, q := range questions {
		values := []any{
			strOrEmpty(q.MainQuestionNumber),
			strOrEmpty(q.SubQuestionLabel),
			q.FullText,
			q.Topic,
			q.Type,
			intOrEmpty(q.Marks),
			q.SourcePaperID,
			intOrEmpty(q.PageNumber),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	// Drop the default sheet excelize creates.
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("questions exported",
		"questions", len(questions),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intOrEmpty(p *int) any {
	if p == nil {
		return ""
	}
	return *p
}
