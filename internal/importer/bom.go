package importer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"materialbridge/internal/model"
	"materialbridge/internal/parser"
	"materialbridge/internal/workbook"
)

// BOMSheet BOM 加载结果
type BOMSheet struct {
	Entries []model.BOMEntry `json:"entries"`
	Skipped int              `json:"skipped"`
}

// LoadBOM 读取 BOM 表（Material / Component / Comp. Qty (BUn)）
// 缺字段或单耗无法转为数值的行被丢弃
func (l *Loader) LoadBOM(sheet string) (*BOMSheet, error) {
	table, err := l.src.ReadTable(sheet, workbook.ReadOptions{HeaderRow: 0, Raw: true})
	if err != nil {
		return nil, err
	}

	fgCol := table.ColumnIndex(BOMColFinishedGood)
	compCol := table.ColumnIndex(BOMColComponent)
	qtyCol := table.ColumnIndex(BOMColQty)
	var missing []string
	if fgCol < 0 {
		missing = append(missing, BOMColFinishedGood)
	}
	if compCol < 0 {
		missing = append(missing, BOMColComponent)
	}
	if qtyCol < 0 {
		missing = append(missing, BOMColQty)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrMissingRequiredColumn, strings.Join(missing, ", "))
	}

	result := &BOMSheet{}
	for _, row := range table.Rows {
		fg := strings.TrimSpace(row.Cell(fgCol).Value())
		comp := parser.NormalizeComponentLabel(row.Cell(compCol).Value())
		rawQty := row.Cell(qtyCol).Value()
		if fg == "" && comp == "" && strings.TrimSpace(rawQty) == "" {
			continue
		}
		qty, ok := parser.ParseNumber(rawQty)
		if fg == "" || comp == "" || !ok {
			result.Skipped++
			l.log.Debug("skip bom row",
				zap.String("sheet", sheet),
				zap.Int("row", row.ExcelRow()),
				zap.String("qty", rawQty))
			continue
		}
		result.Entries = append(result.Entries, model.BOMEntry{
			FinishedGood: fg,
			Component:    comp,
			QtyPerUnit:   decimal.NewFromFloat(qty),
			RowNo:        row.ExcelRow(),
		})
	}
	return result, nil
}
