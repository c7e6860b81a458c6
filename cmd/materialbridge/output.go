package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"materialbridge/internal/pipeline"
)

var outputFormats = map[string]bool{"text": true, "json": true, "csv": true}

// checkFormat 校验输出格式
func checkFormat(format string) error {
	if !outputFormats[format] {
		return fmt.Errorf("unsupported output format: %s", format)
	}
	return nil
}

// writeOutput 按格式输出缺料结果
func writeOutput(w io.Writer, result *pipeline.Result, format string) error {
	switch format {
	case "text":
		return writeText(w, result)
	case "json":
		return writeJSON(w, result)
	case "csv":
		return writeCSV(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeText(w io.Writer, result *pipeline.Result) error {
	r := result.Report
	var b strings.Builder

	b.WriteString("═══════════════════════════════════════════════════════════════\n")
	b.WriteString("                  MATERIAL SHORTAGE ANALYSIS\n")
	b.WriteString("═══════════════════════════════════════════════════════════════\n\n")

	b.WriteString("SUMMARY\n")
	fmt.Fprintf(&b, "  Run ID:            %s\n", result.RunID)
	fmt.Fprintf(&b, "  Need Source:       %s\n", r.Source)
	fmt.Fprintf(&b, "  Plan Dates:        %d\n", r.DateColumns)
	fmt.Fprintf(&b, "  BOM Entries:       %d (skipped %d)\n", r.BOMEntries, r.BOMSkipped)
	fmt.Fprintf(&b, "  Plan Cells:        %d (skipped rows %d)\n", r.PlanRows, r.PlanSkipped)
	fmt.Fprintf(&b, "  Component Needs:   %d\n", r.Needs)
	fmt.Fprintf(&b, "  Ledger Updated:    %d cells\n", r.LedgerUpdated)
	fmt.Fprintf(&b, "  Shortages:         %d\n", r.Shortages)
	fmt.Fprintf(&b, "  Highlighted Cells: %d\n", r.Highlighted)
	fmt.Fprintf(&b, "  Duration:          %v\n", r.Duration)
	if result.OutputPath != "" {
		fmt.Fprintf(&b, "  Output:            %s\n", result.OutputPath)
	}
	b.WriteString("\n")

	if len(r.Warnings) > 0 {
		b.WriteString("WARNINGS\n")
		for _, msg := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
		b.WriteString("\n")
	}

	if len(result.ShortageRows) == 0 {
		b.WriteString("No shortages.\n")
	} else {
		b.WriteString("MATERIAL SHORTAGES\n")
		b.WriteString("────────────────────────────────────────────────────────────────\n")
		fmt.Fprintf(&b, "%-10s  %-20s  %12s  %s\n", "Date", "Component", "Balance", "FG Code")
		for _, s := range result.ShortageRows {
			fmt.Fprintf(&b, "%-10s  %-20s  %12s  %s\n", s.Date, s.Component, formatFloat(s.Balance), s.FGCode)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, result *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeCSV(w io.Writer, result *pipeline.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Component", "FG Code", "Balance"}); err != nil {
		return err
	}
	for _, s := range result.ShortageRows {
		if err := cw.Write([]string{s.Date, s.Component, s.FGCode, formatFloat(s.Balance)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
