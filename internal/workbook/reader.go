package workbook

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"materialbridge/internal/model"
	"materialbridge/internal/parser"
)

// NoHeader 读取时不指定表头行
const NoHeader = -1

// Source 工作簿数据源（excelize 封装）
type Source struct {
	file     *excelize.File
	path     string
	date1904 bool
}

func newSource(f *excelize.File, path string) *Source {
	s := &Source{file: f, path: path}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		s.date1904 = *props.Date1904
	}
	return s
}

// Open 从路径打开工作簿
func Open(path string) (*Source, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return newSource(f, path), nil
}

// OpenReader 从字节流打开工作簿
func OpenReader(r io.Reader) (*Source, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return newSource(f, ""), nil
}

// FromFile 包装已打开的工作簿（测试与内存流程使用）
func FromFile(f *excelize.File) *Source {
	return newSource(f, f.Path)
}

// File 返回底层工作簿
func (s *Source) File() *excelize.File {
	return s.file
}

// Path 工作簿路径（内存工作簿为空）
func (s *Source) Path() string {
	return s.path
}

// Date1904 工作簿是否使用 1904 日期系统（Mac 版 Excel）
func (s *Source) Date1904() bool {
	return s.date1904
}

// Close 关闭工作簿
func (s *Source) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

// HasTable 工作表是否存在
func (s *Source) HasTable(name string) bool {
	idx, err := s.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// ReadOptions 读取选项
type ReadOptions struct {
	// HeaderRow 表头所在行（0 起）；NoHeader 表示全部作为数据行
	HeaderRow int
	// Raw 只读取原始值，忽略数字格式（日期保留为序列号）
	Raw bool
	// MaxRows 最多读取的行数，0 表示不限
	MaxRows int
}

// Cell 单元格：原始值与显示值
type Cell struct {
	Raw  string `json:"raw"`
	Text string `json:"text"`
}

// Value 优先返回原始值
func (c Cell) Value() string {
	if strings.TrimSpace(c.Raw) != "" {
		return c.Raw
	}
	return c.Text
}

// Row 数据行
type Row struct {
	Index int    `json:"index"` // 0 起的工作表行号
	Cells []Cell `json:"cells"`
}

// Cell 安全取值，越界返回空单元格
func (r Row) Cell(i int) Cell {
	if i < 0 || i >= len(r.Cells) {
		return Cell{}
	}
	return r.Cells[i]
}

// ExcelRow Excel 行号（1 起）
func (r Row) ExcelRow() int {
	return r.Index + 1
}

// Table 语义表：可选表头 + 有序数据行
type Table struct {
	Name      string `json:"name"`
	HeaderRow int    `json:"headerRow"`
	Header    []Cell `json:"header"`
	Rows      []Row  `json:"rows"`
}

// HeaderText 表头显示文本
func (t *Table) HeaderText() []string {
	out := make([]string, len(t.Header))
	for i, c := range t.Header {
		out[i] = c.Text
	}
	return out
}

// TextRows 所有数据行的显示文本
func (t *Table) TextRows() [][]string {
	out := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]string, len(r.Cells))
		for j, c := range r.Cells {
			row[j] = c.Text
		}
		out[i] = row
	}
	return out
}

// RawRows 所有数据行的原始值
func (t *Table) RawRows() [][]string {
	out := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]string, len(r.Cells))
		for j, c := range r.Cells {
			row[j] = c.Raw
		}
		out[i] = row
	}
	return out
}

// ColumnIndex 按表头标签查找列（忽略大小写与首尾空格）
func (t *Table) ColumnIndex(labels ...string) int {
	return parser.FindColumn(t.HeaderText(), labels...)
}

// Width 表头与数据行中的最大列数
func (t *Table) Width() int {
	w := len(t.Header)
	for _, r := range t.Rows {
		if len(r.Cells) > w {
			w = len(r.Cells)
		}
	}
	return w
}

// ReadTable 读取指定工作表
func (s *Source) ReadTable(name string, opts ReadOptions) (*Table, error) {
	if !s.HasTable(name) {
		return nil, fmt.Errorf("%w: %q", model.ErrSourceNotFound, name)
	}

	rawRows, err := s.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	textRows := rawRows
	if !opts.Raw {
		textRows, err = s.file.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
	}

	n := len(rawRows)
	if len(textRows) > n {
		n = len(textRows)
	}
	if opts.MaxRows > 0 && n > opts.MaxRows {
		n = opts.MaxRows
	}

	table := &Table{Name: name, HeaderRow: NoHeader}
	for i := 0; i < n; i++ {
		cells := mergeCells(rowAt(rawRows, i), rowAt(textRows, i))
		if i == opts.HeaderRow {
			table.HeaderRow = i
			table.Header = cells
			continue
		}
		if opts.HeaderRow != NoHeader && i < opts.HeaderRow {
			continue
		}
		table.Rows = append(table.Rows, Row{Index: i, Cells: cells})
	}

	if opts.HeaderRow != NoHeader && table.HeaderRow == NoHeader {
		return nil, fmt.Errorf("%w: sheet %q has no row %d", model.ErrHeaderNotFound, name, opts.HeaderRow+1)
	}
	return table, nil
}

func rowAt(rows [][]string, i int) []string {
	if i < len(rows) {
		return rows[i]
	}
	return nil
}

func mergeCells(raw, text []string) []Cell {
	n := len(raw)
	if len(text) > n {
		n = len(text)
	}
	cells := make([]Cell, n)
	for j := 0; j < n; j++ {
		var c Cell
		if j < len(raw) {
			c.Raw = raw[j]
		}
		if j < len(text) {
			c.Text = text[j]
		}
		if c.Text == "" {
			c.Text = c.Raw
		}
		cells[j] = c
	}
	return cells
}
