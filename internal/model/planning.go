package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BOMEntry BOM 行：成品 → 物料 → 单耗
type BOMEntry struct {
	FinishedGood string          `json:"finishedGood"`
	Component    string          `json:"component"` // 已规范化（去空格、大写）
	QtyPerUnit   decimal.Decimal `json:"qtyPerUnit"`
	RowNo        int             `json:"rowNo"` // Excel 行号
}

// PlanRow 计划长表行（宽表逆透视后得到）
type PlanRow struct {
	FinishedGood string          `json:"finishedGood"`
	Date         time.Time       `json:"date"`
	PlannedQty   decimal.Decimal `json:"plannedQty"`
	RowNo        int             `json:"rowNo"` // Excel 行号
	Col          int             `json:"col"`   // Excel 列号
}

// NeedKey 物料 + 日期 查找键
type NeedKey struct {
	Component string
	Date      time.Time
}

// ComponentNeed 展开后的物料日需求（按物料 + 日期聚合）
type ComponentNeed struct {
	Component string          `json:"component"`
	Date      time.Time       `json:"date"`
	TotalNeed decimal.Decimal `json:"totalNeed"`
}

// LedgerRow 需求台账中的一行，Values 与计划日期按位置对齐
type LedgerRow struct {
	Component string            `json:"component"`
	RowNo     int               `json:"rowNo"`
	Values    []decimal.Decimal `json:"values"`
}

// Ledger RM TOTAL REQUIREMENT 台账快照
type Ledger struct {
	Sheet        string      `json:"sheet"`
	HeaderRow    int         `json:"headerRow"`    // Excel 行号
	FirstDateCol int         `json:"firstDateCol"` // Excel 列号
	Rows         []LedgerRow `json:"rows"`
}

// Clone 深拷贝，供纯函数合并使用
func (l Ledger) Clone() Ledger {
	out := l
	out.Rows = make([]LedgerRow, len(l.Rows))
	for i, r := range l.Rows {
		vals := make([]decimal.Decimal, len(r.Values))
		copy(vals, r.Values)
		r.Values = vals
		out.Rows[i] = r
	}
	return out
}

// LedgerUpdate 台账单元格写回记录
type LedgerUpdate struct {
	Component string          `json:"component"`
	Date      time.Time       `json:"date"`
	RowNo     int             `json:"rowNo"`
	Col       int             `json:"col"`
	Old       decimal.Decimal `json:"old"`
	New       decimal.Decimal `json:"new"`
}

// CoverageRow 物料供应快照：库存、在制、逐日在途
type CoverageRow struct {
	Component string            `json:"component"`
	RowNo     int               `json:"rowNo"`
	Stock     decimal.Decimal   `json:"stock"`
	WIP       decimal.Decimal   `json:"wip"`
	Intransit []decimal.Decimal `json:"intransit"`
}

// Shortage 缺料记录
type Shortage struct {
	Date                 time.Time       `json:"date"`
	Component            string          `json:"component"`
	CausingFinishedGoods []string        `json:"causingFinishedGoods"`
	Balance              decimal.Decimal `json:"balance"`
}

// ShortageRow 缺料表输出行（与 shortage sheet 一致）
type ShortageRow struct {
	Date      string  `json:"date"`
	Component string  `json:"component"`
	FGCode    string  `json:"fgCode"`
	Balance   float64 `json:"balance"`
}

// DayOf 截断到自然日（UTC 零点），作为日期桶键
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout 日期输出格式
const DateLayout = "2006-01-02"
