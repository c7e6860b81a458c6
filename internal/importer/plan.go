package importer

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"materialbridge/internal/model"
	"materialbridge/internal/parser"
	"materialbridge/internal/workbook"
)

// PlanSheet 计划表加载结果
type PlanSheet struct {
	HeaderRow int             `json:"headerRow"` // Excel 行号
	FGCol     int             `json:"fgCol"`     // Excel 列号
	Dates     []time.Time     `json:"dates"`     // 日期列，保持表内从左到右顺序
	DateCols  []int           `json:"dateCols"`  // 与 Dates 对应的 Excel 列号
	Rows      []model.PlanRow `json:"rows"`
	Malformed []string        `json:"malformed,omitempty"` // 疑似日期但无法解析的表头
	Skipped   int             `json:"skipped"`
}

// LoadPlan 读取计划宽表：定位表头、识别日期列，并逆透视为长表
func (l *Loader) LoadPlan(sheet string) (*PlanSheet, error) {
	preview, err := l.src.ReadTable(sheet, workbook.ReadOptions{
		HeaderRow: workbook.NoHeader,
		MaxRows:   l.layout.PreviewRows,
	})
	if err != nil {
		return nil, err
	}

	hdr, ok := parser.LocateHeaderRow(preview.TextRows(), l.layout.HeaderKeywords)
	if !ok {
		return nil, fmt.Errorf("%w: none of %v in first %d rows", model.ErrHeaderNotFound, l.layout.HeaderKeywords, l.layout.PreviewRows)
	}
	// 预览表无表头，行序即工作表行序
	headerIndex := preview.Rows[hdr].Index

	table, err := l.src.ReadTable(sheet, workbook.ReadOptions{HeaderRow: headerIndex})
	if err != nil {
		return nil, err
	}

	result := &PlanSheet{HeaderRow: headerIndex + 1}
	for _, hd := range l.classifyHeader(table.Header, 0, len(table.Header)) {
		switch hd.Class {
		case parser.DateValue:
			result.Dates = append(result.Dates, hd.Date)
			result.DateCols = append(result.DateCols, hd.Col)
		case parser.Malformed:
			result.Malformed = append(result.Malformed, hd.Text)
		}
	}
	if len(result.Malformed) > 0 {
		l.log.Debug("malformed date headers",
			zap.String("sheet", sheet),
			zap.Strings("headers", result.Malformed))
	}
	if len(result.Dates) == 0 {
		return nil, model.ErrNoDateColumns
	}

	fgIdx := table.ColumnIndex(l.layout.FGLabels...)
	if fgIdx < 0 {
		return nil, fmt.Errorf("%w: finished-good column (%s)", model.ErrMissingRequiredColumn, strings.Join(l.layout.FGLabels, " / "))
	}
	result.FGCol = fgIdx + 1

	for _, row := range table.Rows {
		fg := strings.TrimSpace(row.Cell(fgIdx).Value())
		if fg == "" {
			if rowHasData(row) {
				result.Skipped++
			}
			continue
		}
		for i, col := range result.DateCols {
			raw := row.Cell(col - 1).Raw
			if strings.TrimSpace(raw) == "" {
				continue
			}
			result.Rows = append(result.Rows, model.PlanRow{
				FinishedGood: fg,
				Date:         result.Dates[i],
				PlannedQty:   parser.SafeDecimal(raw),
				RowNo:        row.ExcelRow(),
				Col:          col,
			})
		}
	}
	return result, nil
}
