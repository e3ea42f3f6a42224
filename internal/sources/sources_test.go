package sources

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/spacesedan/danmakuflow/internal/internalerr"
)

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "danmaku.csv")
	data := "\ufeff弹幕id,内容,时间\n1,前方高能预警,00:01\n2,\"好听,哭了\",00:02\n,没有编号的弹幕\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	recs, err := Load(path, Options{TextColumn: "内容", IDColumn: "弹幕id"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].ID != "1" || recs[0].Text != "前方高能预警" || recs[0].Fields["时间"] != "00:01" {
		t.Errorf("record 0 = %+v", recs[0])
	}
	if recs[1].Text != "好听,哭了" {
		t.Errorf("quoted cell = %q", recs[1].Text)
	}
	if len(recs[2].ID) != 26 {
		t.Errorf("expected a ULID for the missing id, got %q", recs[2].ID)
	}
	if recs[2].Fields["时间"] != "" {
		t.Errorf("short row should pad with empty cells")
	}
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "danmaku.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]any{"内容", "用户"})
	f.SetSheetRow(sheet, "A2", &[]any{"awsl太甜了", "u1"})
	f.SetSheetRow(sheet, "A3", &[]any{"泪目了家人们", "u2"})
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	recs, err := Load(path, Options{TextColumn: "内容"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[1].Text != "泪目了家人们" || recs[1].Fields["用户"] != "u2" {
		t.Errorf("records = %+v", recs)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	noText := filepath.Join(dir, "no_text.csv")
	os.WriteFile(noText, []byte("a,b\n1,2\n"), 0o644)

	for _, path := range []string{filepath.Join(dir, "missing.csv"), filepath.Join(dir, "input.json"), noText} {
		if _, err := Load(path, Options{TextColumn: "内容"}); !errors.Is(err, internalerr.ErrConfiguration) {
			t.Errorf("Load(%s) error = %v, want ErrConfiguration", filepath.Base(path), err)
		}
	}
}
