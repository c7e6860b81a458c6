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

// 覆盖表固定前导列：APN、库存、在制
const coverageFixedCols = 3

// CoverageSheet 覆盖表加载结果
type CoverageSheet struct {
	HeaderRow       int                  `json:"headerRow"` // Excel 行号
	Rows            []model.CoverageRow  `json:"rows"`
	NeedHeader      []planner.HeaderCell `json:"needHeader"`
	IntransitHeader []planner.HeaderCell `json:"intransitHeader"`
}

// LoadCoverage 读取覆盖表
// 布局：3 个固定列 + N 个需求列 + N 个在途列，N 为计划日期数
func (l *Loader) LoadCoverage(sheet string, dates []time.Time) (*CoverageSheet, error) {
	table, err := l.src.ReadTable(sheet, workbook.ReadOptions{HeaderRow: workbook.NoHeader})
	if err != nil {
		return nil, err
	}

	hdr, ok := parser.LocateLabelRow(table.TextRows(), 0, l.layout.CoverageAnchor)
	if !ok {
		return nil, fmt.Errorf("%w: no %q cell in column A", model.ErrHeaderNotFound, l.layout.CoverageAnchor)
	}

	n := len(dates)
	transitStart := coverageFixedCols + n
	header := table.Rows[hdr]
	result := &CoverageSheet{
		HeaderRow:       header.ExcelRow(),
		NeedHeader:      l.classifyHeader(header.Cells, coverageFixedCols, transitStart),
		IntransitHeader: l.classifyHeader(header.Cells, transitStart, transitStart+n),
	}

	for _, row := range table.Rows[hdr+1:] {
		comp := parser.NormalizeComponentLabel(row.Cell(0).Value())
		if comp == "" {
			continue
		}
		intransit := make([]decimal.Decimal, n)
		for i := 0; i < n; i++ {
			intransit[i] = parser.SafeDecimal(row.Cell(transitStart + i).Raw)
		}
		result.Rows = append(result.Rows, model.CoverageRow{
			Component: comp,
			RowNo:     row.ExcelRow(),
			Stock:     parser.SafeDecimal(row.Cell(1).Raw),
			WIP:       parser.SafeDecimal(row.Cell(2).Raw),
			Intransit: intransit,
		})
	}
	return result, nil
}
