package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"materialbridge/internal/exporter"
	"materialbridge/internal/importer"
	"materialbridge/internal/logger"
	"materialbridge/internal/metrics"
	"materialbridge/internal/model"
	"materialbridge/internal/planner"
	"materialbridge/internal/workbook"
)

// Coordinator 缺料分析协调器
//
// 各阶段之间只传递不可变的表数据；对工作簿的全部修改都在内存中完成，
// 最后一次性提交到输出文件。任一阶段失败时输出文件保持不变。
type Coordinator struct {
	log *zap.Logger
}

// NewCoordinator 创建协调器；log 为 nil 时使用请求上下文或全局日志
func NewCoordinator(log *zap.Logger) *Coordinator {
	return &Coordinator{log: log}
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/stage/warning/annotate/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// Start 异步执行，返回进度通道；done 事件携带 *Result，error 事件携带错误信息
func (c *Coordinator) Start(ctx context.Context, opts Options) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		emit := func(evt ProgressEvent) {
			select {
			case progressChan <- evt:
			case <-ctx.Done():
			}
		}
		result, err := c.run(ctx, opts, emit)
		if err != nil {
			emit(ProgressEvent{Type: "error", Message: err.Error(), Data: errorData(err), Timestamp: time.Now()})
			return
		}
		emit(ProgressEvent{Type: "done", Message: "分析完成", Data: result, Timestamp: time.Now()})
	}()

	return progressChan
}

// Run 同步执行：打开输入、分析、提交输出
func (c *Coordinator) Run(ctx context.Context, opts Options) (*Result, error) {
	return c.run(ctx, opts, nil)
}

func (c *Coordinator) run(ctx context.Context, opts Options, emit func(ProgressEvent)) (*Result, error) {
	opts = opts.withDefaults()

	src, err := workbook.Open(opts.InputPath)
	if err != nil {
		err = model.NewStageError(model.StageOpen, "", err)
		metrics.ObserveRun(err, 0, 0)
		return nil, err
	}
	defer src.Close()

	result, err := c.RunWorkbook(ctx, src.File(), opts, emit)
	if err != nil {
		metrics.ObserveRun(err, 0, 0)
		return nil, err
	}

	start := time.Now()
	if err := workbook.Commit(src.File(), opts.OutputPath); err != nil {
		err = model.NewStageError(model.StageCommit, "", err)
		metrics.ObserveRun(err, 0, 0)
		return nil, err
	}
	result.OutputPath = opts.OutputPath
	result.Report.Stages = append(result.Report.Stages, StageReport{Stage: model.StageCommit, Duration: time.Since(start)})
	metrics.ObserveStage(string(model.StageCommit), time.Since(start))
	metrics.ObserveRun(nil, result.Report.Shortages, result.Report.LedgerUpdated)

	c.logger(ctx).Info("workbook committed",
		zap.String("run_id", result.RunID),
		zap.String("output", opts.OutputPath))
	return result, nil
}

// runState 单次运行内各阶段的输出
type runState struct {
	id     string
	opts   Options
	f      *excelize.File
	log    *zap.Logger
	emit   func(ProgressEvent)
	report *Report

	bom       *importer.BOMSheet
	plan      *importer.PlanSheet
	explosion *planner.Explosion
	ledger    model.Ledger
	updates   []model.LedgerUpdate
	coverage  *importer.CoverageSheet
	shortages []model.Shortage
}

// RunWorkbook 在已打开的工作簿上执行全部阶段，只修改内存，不落盘
func (c *Coordinator) RunWorkbook(ctx context.Context, f *excelize.File, opts Options, emit func(ProgressEvent)) (*Result, error) {
	opts = opts.withDefaults()
	startTime := time.Now()

	id := uuid.NewString()
	rs := &runState{
		id:   id,
		opts: opts,
		f:    f,
		log:  c.logger(ctx).With(zap.String("run_id", id)),
		emit: emit,
		report: &Report{
			RunID:     id,
			Filename:  filepath.Base(opts.InputPath),
			Source:    opts.NeedSource,
			Alignment: map[string]planner.Alignment{},
		},
	}
	loader := importer.NewLoader(workbook.FromFile(f), opts.Layout, rs.log)
	sheets := opts.Sheets

	rs.send(ProgressEvent{
		Type:    "start",
		Message: "开始分析工作簿",
		Data: map[string]string{
			"run_id":   id,
			"filename": rs.report.Filename,
		},
	})

	stages := []struct {
		stage model.Stage
		sheet string
		fn    func() (int, error)
	}{
		{model.StageBOM, sheets.BOM, func() (int, error) {
			bom, err := loader.LoadBOM(sheets.BOM)
			if err != nil {
				return 0, err
			}
			rs.bom = bom
			rs.report.BOMEntries = len(bom.Entries)
			rs.report.BOMSkipped = bom.Skipped
			return len(bom.Entries), nil
		}},
		{model.StagePlan, sheets.Plan, func() (int, error) {
			plan, err := loader.LoadPlan(sheets.Plan)
			if err != nil {
				return 0, err
			}
			rs.plan = plan
			rs.report.PlanRows = len(plan.Rows)
			rs.report.PlanSkipped = plan.Skipped
			rs.report.DateColumns = len(plan.Dates)
			rs.report.MalformedHeaders = plan.Malformed
			if len(plan.Malformed) > 0 {
				rs.warn(fmt.Sprintf("%s: %d header cell(s) look like dates but could not be parsed: %v", sheets.Plan, len(plan.Malformed), plan.Malformed))
			}
			return len(plan.Rows), nil
		}},
		{model.StageExplode, "", func() (int, error) {
			rs.explosion = planner.Explode(rs.bom.Entries, rs.plan.Rows)
			rs.report.Needs = len(rs.explosion.Needs)
			return len(rs.explosion.Needs), nil
		}},
		{model.StageLedger, sheets.Requirement, func() (int, error) {
			ls, err := loader.LoadLedger(sheets.Requirement, rs.plan.Dates)
			if err != nil {
				return 0, err
			}
			if err := rs.checkAlignment(sheets.Requirement, ls.HeaderDates); err != nil {
				return 0, err
			}
			rs.ledger, rs.updates = planner.Reconcile(ls.Ledger, rs.explosion.Lookup(), rs.plan.Dates)
			rs.report.LedgerRows = len(rs.ledger.Rows)
			rs.report.LedgerUpdated = len(rs.updates)
			return len(rs.updates), nil
		}},
		{model.StageCoverage, sheets.Coverage, func() (int, error) {
			cov, err := loader.LoadCoverage(sheets.Coverage, rs.plan.Dates)
			if err != nil {
				return 0, err
			}
			if err := rs.checkAlignment(sheets.Coverage+" need", cov.NeedHeader); err != nil {
				return 0, err
			}
			if err := rs.checkAlignment(sheets.Coverage+" intransit", cov.IntransitHeader); err != nil {
				return 0, err
			}
			rs.coverage = cov
			rs.report.CoverageRows = len(cov.Rows)
			return len(cov.Rows), nil
		}},
		{model.StageSimulate, sheets.Coverage, func() (int, error) {
			need := rs.explosion.Lookup()
			if opts.NeedSource == NeedFromLedger {
				need = planner.LedgerLookup(rs.ledger, rs.plan.Dates)
			}
			rs.shortages = planner.Simulate(rs.coverage.Rows, need, rs.plan.Dates, rs.explosion.Causes)
			rs.report.Shortages = len(rs.shortages)
			return len(rs.shortages), nil
		}},
		{model.StageAnnotate, "", func() (int, error) {
			annotator := exporter.NewAnnotator(f, exporter.Options{
				Placeholder:    opts.Placeholder,
				HighlightColor: opts.HighlightColor,
				Progress: func(p exporter.ProgressEvent) {
					rs.send(ProgressEvent{Type: "annotate", Message: p.Step, Data: p})
				},
			})
			summary, err := annotator.Annotate(exporter.Annotation{
				ExplosionSheet: sheets.Explosion,
				ShortageSheet:  sheets.Shortage,
				PlanSheet:      sheets.Plan,
				Needs:          rs.explosion.Needs,
				Ledger:         rs.ledger,
				Updates:        rs.updates,
				Shortages:      rs.shortages,
				PlanRows:       rs.plan.Rows,
			})
			if err != nil {
				return 0, err
			}
			rs.report.Highlighted = summary.Highlighted
			return summary.Highlighted, nil
		}},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, model.NewStageError(s.stage, s.sheet, err)
		}
		if err := rs.runStage(s.stage, s.sheet, s.fn); err != nil {
			return nil, err
		}
	}

	rs.report.Duration = time.Since(startTime)
	rs.log.Info("analysis finished",
		zap.Int("shortages", rs.report.Shortages),
		zap.Int("ledger_updated", rs.report.LedgerUpdated),
		zap.Int("highlighted", rs.report.Highlighted),
		zap.Duration("duration", rs.report.Duration))

	return &Result{
		RunID:        id,
		Shortages:    rs.shortages,
		ShortageRows: planner.Rows(rs.shortages, opts.Placeholder),
		Report:       rs.report,
	}, nil
}

func (rs *runState) runStage(stage model.Stage, sheet string, fn func() (int, error)) error {
	start := time.Now()
	count, err := fn()
	d := time.Since(start)
	metrics.ObserveStage(string(stage), d)

	if err != nil {
		rs.log.Error("stage failed",
			zap.String("stage", string(stage)),
			zap.String("sheet", sheet),
			zap.Error(err))
		return model.NewStageError(stage, sheet, err)
	}

	rs.report.Stages = append(rs.report.Stages, StageReport{Stage: stage, Sheet: sheet, Count: count, Duration: d})
	rs.log.Info("stage done",
		zap.String("stage", string(stage)),
		zap.String("sheet", sheet),
		zap.Int("count", count),
		zap.Duration("duration", d))
	rs.send(ProgressEvent{
		Type:    "stage",
		Message: fmt.Sprintf("%s 完成", stage),
		Data: map[string]interface{}{
			"stage": stage,
			"sheet": sheet,
			"count": count,
		},
	})
	return nil
}

// checkAlignment 日期列按位置对应的前置校验
// 严格模式下不一致即失败；否则记录警告后按位置继续
func (rs *runState) checkAlignment(name string, header []planner.HeaderCell) error {
	a, err := planner.CheckAlignment(rs.plan.Dates, header)
	rs.report.Alignment[name] = a
	if err != nil {
		if rs.opts.StrictAlignment {
			return err
		}
		rs.warn(fmt.Sprintf("%s: %v", name, err))
		return nil
	}
	if !a.Verified {
		rs.warn(fmt.Sprintf("%s: header has no dates, columns matched to plan dates by position", name))
	}
	return nil
}

func (rs *runState) warn(msg string) {
	rs.report.Warnings = append(rs.report.Warnings, msg)
	rs.log.Warn(msg)
	rs.send(ProgressEvent{Type: "warning", Message: msg})
}

func (rs *runState) send(evt ProgressEvent) {
	if rs.emit == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	rs.emit(evt)
}

func (c *Coordinator) logger(ctx context.Context) *zap.Logger {
	if c.log != nil {
		return c.log
	}
	return logger.FromContext(ctx)
}

// errorData 错误事件的附加数据：阶段与工作表
func errorData(err error) map[string]string {
	data := map[string]string{"error": err.Error()}
	if kind := model.KindOf(err); kind != "" {
		data["kind"] = kind
	}
	var se *model.StageError
	if errors.As(err, &se) {
		data["stage"] = string(se.Stage)
		data["sheet"] = se.Sheet
	}
	return data
}
