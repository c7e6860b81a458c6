package importer

import (
	"strings"

	"go.uber.org/zap"

	"materialbridge/internal/parser"
	"materialbridge/internal/planner"
	"materialbridge/internal/workbook"
)

// BOM 表固定列名
const (
	BOMColFinishedGood = "Material"
	BOMColComponent    = "Component"
	BOMColQty          = "Comp. Qty (BUn)"
)

// Layout 各工作表的结构识别参数
type Layout struct {
	HeaderKeywords []string // 计划表表头关键字
	FGLabels       []string // 计划表成品列名
	PreviewRows    int      // 计划表表头扫描行数
	LedgerHeader   string   // 台账表头标识（A 列）
	CoverageAnchor string   // 覆盖表表头标识（A 列）
}

// DefaultLayout 默认结构
func DefaultLayout() Layout {
	return Layout{
		HeaderKeywords: append([]string(nil), parser.DefaultHeaderKeywords...),
		FGLabels:       []string{"Delphi PN", "Material"},
		PreviewRows:    10,
		LedgerHeader:   "Component",
		CoverageAnchor: "APN",
	}
}

func (l Layout) withDefaults() Layout {
	d := DefaultLayout()
	if len(l.HeaderKeywords) == 0 {
		l.HeaderKeywords = d.HeaderKeywords
	}
	if len(l.FGLabels) == 0 {
		l.FGLabels = d.FGLabels
	}
	if l.PreviewRows <= 0 {
		l.PreviewRows = d.PreviewRows
	}
	if l.LedgerHeader == "" {
		l.LedgerHeader = d.LedgerHeader
	}
	if l.CoverageAnchor == "" {
		l.CoverageAnchor = d.CoverageAnchor
	}
	return l
}

// Loader 工作表 → 领域数据 加载器
type Loader struct {
	src    *workbook.Source
	layout Layout
	log    *zap.Logger
}

// NewLoader 创建加载器
func NewLoader(src *workbook.Source, layout Layout, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		src:    src,
		layout: layout.withDefaults(),
		log:    log,
	}
}

func (l *Loader) classifyHeader(header []workbook.Cell, from, to int) []planner.HeaderCell {
	date1904 := l.src.Date1904()
	var out []planner.HeaderCell
	for i := from; i < to; i++ {
		var c workbook.Cell
		if i < len(header) {
			c = header[i]
		}
		d, class := parser.ClassifyDateIn(c.Raw, c.Text, date1904)
		out = append(out, planner.HeaderCell{Col: i + 1, Text: c.Text, Date: d, Class: class})
	}
	return out
}

func rowHasData(row workbook.Row) bool {
	for _, c := range row.Cells {
		if strings.TrimSpace(c.Value()) != "" {
			return true
		}
	}
	return false
}
