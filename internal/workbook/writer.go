package workbook

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ReplaceSheet 删除同名工作表后重建，写入表头与数据行
func ReplaceSheet(f *excelize.File, name string, header []string, rows [][]any) error {
	if idx, err := f.GetSheetIndex(name); err == nil && idx >= 0 {
		if err := f.DeleteSheet(name); err != nil {
			return fmt.Errorf("failed to delete sheet %q: %w", name, err)
		}
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", name, err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", name, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
	})
	if err == nil && len(header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = f.SetCellStyle(name, "A1", last, headerStyle)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+2, name, err)
		}
	}
	return nil
}

// SetColumnStyle 为某列数据区（不含表头）设置数字格式
func SetColumnStyle(f *excelize.File, sheet string, col, firstRow, lastRow, numFmt int) error {
	if lastRow < firstRow {
		return nil
	}
	style, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
	if err != nil {
		return err
	}
	top, err := excelize.CoordinatesToCellName(col, firstRow)
	if err != nil {
		return err
	}
	bottom, err := excelize.CoordinatesToCellName(col, lastRow)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, top, bottom, style)
}

// Commit 先保存到目标目录下的暂存文件，全部成功后再替换目标文件
// 失败时目标文件保持不变
func Commit(f *excelize.File, target string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// 暂存文件沿用目标扩展名，SaveAs 据此决定内容类型（.xlsm 保留宏）
	ext := filepath.Ext(target)
	if ext == "" {
		ext = ".xlsx"
	}
	staging := filepath.Join(dir, fmt.Sprintf(".%s.%s%s", filepath.Base(target), uuid.NewString(), ext))
	if err := f.SaveAs(staging); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("failed to write staging workbook: %w", err)
	}
	if err := os.Rename(staging, target); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(target), err)
	}
	f.Path = target
	return nil
}
