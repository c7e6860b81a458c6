package model

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound        = errors.New("source table not found")
	ErrHeaderNotFound        = errors.New("header row not found")
	ErrNoDateColumns         = errors.New("no date columns detected")
	ErrMissingRequiredColumn = errors.New("missing required column")
	ErrDateMisaligned        = errors.New("date columns not aligned with plan")
)

// Stage 流水线阶段
type Stage string

const (
	StageOpen     Stage = "open"
	StageBOM      Stage = "bom"
	StagePlan     Stage = "plan"
	StageExplode  Stage = "explode"
	StageLedger   Stage = "ledger"
	StageCoverage Stage = "coverage"
	StageSimulate Stage = "simulate"
	StageAnnotate Stage = "annotate"
	StageCommit   Stage = "commit"
)

// StageError 中断流水线的错误，标明失败的阶段与工作表
type StageError struct {
	Stage Stage
	Sheet string
	Err   error
}

func (e *StageError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s (sheet %q): %v", e.Stage, e.Sheet, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError 包装阶段错误；err 为 nil 时返回 nil
func NewStageError(stage Stage, sheet string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Sheet: sheet, Err: err}
}

// KindOf 错误类别名，非已知类别返回空串
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrSourceNotFound):
		return "SourceNotFound"
	case errors.Is(err, ErrHeaderNotFound):
		return "HeaderNotFound"
	case errors.Is(err, ErrNoDateColumns):
		return "NoDateColumnsDetected"
	case errors.Is(err, ErrMissingRequiredColumn):
		return "MissingRequiredColumn"
	case errors.Is(err, ErrDateMisaligned):
		return "DateMisaligned"
	default:
		return ""
	}
}
