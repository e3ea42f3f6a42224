// Package sources reads comment tables from CSV and XLSX files into raw
// records for the normalizer.
package sources

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/xuri/excelize/v2"

	"github.com/spacesedan/danmakuflow/internal/internalerr"
	"github.com/spacesedan/danmakuflow/internal/models"
)

type Options struct {
	TextColumn string
	// IDColumn is optional; rows without an id get a ULID.
	IDColumn string
	// Sheet selects the XLSX sheet; empty means the first sheet.
	Sheet string
}

// Load reads path based on its extension. A missing file, unknown extension
// or missing text column is a configuration error.
func Load(path string, opts Options) ([]models.RawRecord, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path, opts.Sheet)
	default:
		return nil, internalerr.Configuration("input "+path, fmt.Errorf("unsupported file type %q", filepath.Ext(path)))
	}
	if err != nil {
		return nil, internalerr.Configuration("input "+path, err)
	}

	records, err := FromRows(rows, opts)
	if err != nil {
		return nil, internalerr.Configuration("input "+path, err)
	}

	slog.Info("[Sources] Loaded input",
		slog.String("path", path),
		slog.Int("records", len(records)))
	return records, nil
}

func readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	return f.GetRows(sheet)
}

// FromRows turns a header row plus data rows into records. Short rows are
// padded with empty cells; the text cell of a row is kept as-is so the
// normalizer decides what survives.
func FromRows(rows [][]string, opts Options) ([]models.RawRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	header := rows[0]
	textIdx, idIdx := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		switch {
		case h == opts.TextColumn && textIdx < 0:
			textIdx = i
		case opts.IDColumn != "" && h == opts.IDColumn && idIdx < 0:
			idIdx = i
		}
	}
	if textIdx < 0 {
		return nil, fmt.Errorf("text column %q not found in header %v", opts.TextColumn, header)
	}

	records := make([]models.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := models.RawRecord{Fields: map[string]string{}}
		for i, h := range header {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			switch i {
			case textIdx:
				rec.Text = cell
			case idIdx:
				rec.ID = strings.TrimSpace(cell)
			default:
				if h != "" {
					rec.Fields[h] = cell
				}
			}
		}
		if rec.ID == "" {
			rec.ID = ulid.Make().String()
		}
		records = append(records, rec)
	}
	return records, nil
}
