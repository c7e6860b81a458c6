package workbook_test

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"materialbridge/internal/model"
	"materialbridge/internal/workbook"
)

func TestReadTable_HeaderAndRawValues(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	f.SetSheetName("Sheet1", "plan")

	if err := f.SetCellValue("plan", "A1", "Weekly plan"); err != nil {
		t.Fatalf("SetCellValue failed: %v", err)
	}
	header := []interface{}{"No", "Delphi PN", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)}
	if err := f.SetSheetRow("plan", "A2", &header); err != nil {
		t.Fatalf("SetSheetRow failed: %v", err)
	}
	row := []interface{}{1, "FG1", 5}
	if err := f.SetSheetRow("plan", "A3", &row); err != nil {
		t.Fatalf("SetSheetRow failed: %v", err)
	}

	src := workbook.FromFile(f)
	table, err := src.ReadTable("plan", workbook.ReadOptions{HeaderRow: 1})
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if table.HeaderRow != 1 || len(table.Rows) != 1 {
		t.Fatalf("HeaderRow=%d rows=%d", table.HeaderRow, len(table.Rows))
	}
	if got := table.ColumnIndex("delphi pn"); got != 1 {
		t.Fatalf("ColumnIndex=%d, want 1", got)
	}
	dateCell := table.Header[2]
	if dateCell.Raw == dateCell.Text {
		t.Fatalf("date header should have distinct raw/text, got %q", dateCell.Raw)
	}
	if got := table.Rows[0].Cell(1).Value(); got != "FG1" {
		t.Fatalf("FG=%q", got)
	}
	if got := table.Rows[0].ExcelRow(); got != 3 {
		t.Fatalf("ExcelRow=%d, want 3", got)
	}
	if got := table.Rows[0].Cell(99); got != (workbook.Cell{}) {
		t.Fatalf("out of range cell should be empty: %#v", got)
	}
}

func TestReadTable_NoHeaderPreview(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	for i := 1; i <= 20; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i)
		_ = f.SetCellValue("Sheet1", cell, i)
	}

	table, err := workbook.FromFile(f).ReadTable("Sheet1", workbook.ReadOptions{HeaderRow: workbook.NoHeader, MaxRows: 10, Raw: true})
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if len(table.Rows) != 10 || table.Header != nil {
		t.Fatalf("rows=%d header=%v", len(table.Rows), table.Header)
	}
}

func TestReadTable_SourceNotFound(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	_, err := workbook.FromFile(f).ReadTable("BOM", workbook.ReadOptions{})
	if !errors.Is(err, model.ErrSourceNotFound) {
		t.Fatalf("err=%v, want ErrSourceNotFound", err)
	}
}

func TestReplaceSheet_OverwritesExisting(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	if err := workbook.ReplaceSheet(f, "shortage", []string{"A"}, [][]any{{"old"}, {"old2"}}); err != nil {
		t.Fatalf("ReplaceSheet failed: %v", err)
	}
	if err := workbook.ReplaceSheet(f, "shortage", []string{"Date", "Component"}, [][]any{{"2025-01-15", "C1"}}); err != nil {
		t.Fatalf("ReplaceSheet failed: %v", err)
	}

	rows, err := f.GetRows("shortage")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 2 || rows[0][1] != "Component" || rows[1][1] != "C1" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestCommit_ReplacesTargetAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "plan.xlsx")
	if err := os.WriteFile(target, []byte("old"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	_ = f.SetCellValue("Sheet1", "A1", "fresh")

	if err := workbook.Commit(f, target); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	got, err := excelize.OpenFile(target)
	if err != nil {
		t.Fatalf("open committed: %v", err)
	}
	t.Cleanup(func() { _ = got.Close() })
	if v, _ := got.GetCellValue("Sheet1", "A1"); v != "fresh" {
		t.Fatalf("A1=%q", v)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("staging file left behind: %v", entries)
	}
}

func TestCommit_KeepsMacroEnabledContentType(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "in.xlsm")
	seed := excelize.NewFile()
	if err := seed.SaveAs(src); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	_ = seed.Close()

	f, err := excelize.OpenFile(src)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	_ = f.SetCellValue("Sheet1", "A1", "macro")

	target := filepath.Join(dir, "out.xlsm")
	if err := workbook.Commit(f, target); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if f.Path != target {
		t.Fatalf("Path=%q, want %q", f.Path, target)
	}

	zr, err := zip.OpenReader(target)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	t.Cleanup(func() { _ = zr.Close() })
	var types string
	for _, entry := range zr.File {
		if entry.Name != "[Content_Types].xml" {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			t.Fatalf("open content types: %v", err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("read content types: %v", err)
		}
		types = string(data)
	}
	if !strings.Contains(types, "macroEnabled") {
		t.Fatalf("content types lost macroEnabled: %s", types)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("unexpected files: %v", entries)
	}
}
