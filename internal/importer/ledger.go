package importer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"materialbridge/internal/model"
	"materialbridge/internal/parser"
	"materialbridge/internal/planner"
	"materialbridge/internal/workbook"
)

// LedgerSheet 需求台账加载结果
type LedgerSheet struct {
	Ledger      model.Ledger         `json:"ledger"`
	HeaderDates []planner.HeaderCell `json:"headerDates"` // 表头第 2 列起的日期识别结果
}

// LoadLedger 读取 RM TOTAL REQUIREMENT 台账
// 表头行为 A 列等于 "Component"（忽略大小写）的第一行；第 2 列起按位置对应计划日期
func (l *Loader) LoadLedger(sheet string, dates []time.Time) (*LedgerSheet, error) {
	table, err := l.src.ReadTable(sheet, workbook.ReadOptions{HeaderRow: workbook.NoHeader})
	if err != nil {
		return nil, err
	}

	hdr, ok := parser.LocateLabelRow(table.TextRows(), 0, l.layout.LedgerHeader)
	if !ok {
		return nil, fmt.Errorf("%w: no %q cell in column A", model.ErrHeaderNotFound, l.layout.LedgerHeader)
	}

	header := table.Rows[hdr]
	result := &LedgerSheet{
		Ledger: model.Ledger{
			Sheet:        sheet,
			HeaderRow:    header.ExcelRow(),
			FirstDateCol: 2,
		},
	}
	// 表头剩余列全部识别，便于发现台账比计划多出的日期列
	to := len(header.Cells)
	if to < 1+len(dates) {
		to = 1 + len(dates)
	}
	result.HeaderDates = l.classifyHeader(header.Cells, 1, to)

	for _, row := range table.Rows[hdr+1:] {
		comp := parser.NormalizeComponentLabel(row.Cell(0).Value())
		if comp == "" {
			continue
		}
		values := make([]decimal.Decimal, len(dates))
		for i := range dates {
			values[i] = parser.SafeDecimal(row.Cell(1 + i).Raw)
		}
		result.Ledger.Rows = append(result.Ledger.Rows, model.LedgerRow{
			Component: comp,
			RowNo:     row.ExcelRow(),
			Values:    values,
		})
	}
	return result, nil
}
