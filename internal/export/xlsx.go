package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/spacesedan/danmakuflow/internal/models"
)

const (
	TokenizedSheet  = "分词结果"
	TokenizedColumn = "分词文本"
)

// XLSXSink writes the tokenized corpus as a workbook with one row per comment.
type XLSXSink struct {
	fileSet
}

func NewXLSXSink(dir string) *XLSXSink {
	return &XLSXSink{fileSet: fileSet{dir: dir}}
}

func (s *XLSXSink) Name() string { return "xlsx" }

func (s *XLSXSink) WriteTokens(_ context.Context, _ string, seqs []models.TokenSequence) error {
	path, err := s.path(TokenizedXLSX)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), TokenizedSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(TokenizedSheet, "A1", &[]any{"id", TokenizedColumn}); err != nil {
		return err
	}
	for i, seq := range seqs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(TokenizedSheet, cell, &[]any{seq.CommentID, seq.Joined()}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	s.record(path)
	slog.Info("[XLSXSink] Wrote workbook", slog.String("path", path), slog.Int("rows", len(seqs)))
	return nil
}
