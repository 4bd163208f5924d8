package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/wakebench/internal/detect"
	"github.com/MrWong99/wakebench/internal/harness"
	"github.com/MrWong99/wakebench/internal/history"
	"github.com/MrWong99/wakebench/internal/resilience"
)

// encode writes v as JSON or YAML. Text output is handled by the caller.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// ── Single run ────────────────────────────────────────────────────────────────

// runOutput is the machine-readable form of one run. Exactly one of Result
// and Aborted is set.
type runOutput struct {
	Result  *harness.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Aborted *abortOutput    `json:"aborted,omitempty" yaml:"aborted,omitempty"`
}

type abortOutput struct {
	Error   string        `json:"error" yaml:"error"`
	State   string        `json:"state" yaml:"state"`
	Backend string        `json:"backend,omitempty" yaml:"backend,omitempty"`
	Window  *int          `json:"window,omitempty" yaml:"window,omitempty"`
	Partial detect.Report `json:"partial" yaml:"partial"`
}

func newAbortOutput(err error) *abortOutput {
	out := &abortOutput{Error: err.Error()}
	var re *harness.RunError
	if errors.As(err, &re) {
		out.State = re.State.String()
		out.Backend = string(re.Backend)
		out.Partial = re.Partial
		if re.Window >= 0 {
			w := re.Window
			out.Window = &w
		}
	}
	return out
}

// writeRun prints the outcome of one run in format.
func writeRun(w io.Writer, format string, res *harness.Result, runErr error) error {
	if format != "text" {
		out := runOutput{Result: res}
		if runErr != nil {
			out = runOutput{Aborted: newAbortOutput(runErr)}
		}
		return encode(w, format, out)
	}

	if runErr != nil {
		a := newAbortOutput(runErr)
		fmt.Fprintf(w, "ABORTED in %s: %s\n", a.State, a.Error)
		if a.Partial.Windows > 0 {
			fmt.Fprintln(w, "partial report:")
			writeReportText(w, a.Partial)
		}
		return nil
	}

	fmt.Fprintf(w, "source:     %s\n", res.Source)
	fmt.Fprintf(w, "model:      %s\n", res.Model)
	fmt.Fprintf(w, "backend:    %s\n", res.Backend)
	fmt.Fprintf(w, "run id:     %s\n", res.RunID)
	writeReportText(w, res.Report)
	if res.Success() {
		fmt.Fprintf(w, "result:     DETECTED (%s)\n", strings.Join(res.Report.Keywords(), ", "))
	} else {
		fmt.Fprintln(w, "result:     no detection")
	}
	return nil
}

func writeReportText(w io.Writer, r detect.Report) {
	fmt.Fprintf(w, "windows:    %d\n", r.Windows)
	fmt.Fprintf(w, "threshold:  %.3f\n", r.Threshold)
	fmt.Fprintf(w, "scores:     count=%d max=%.4f mean=%.4f min=%.4f\n",
		r.Stats.Count, r.Stats.Max, r.Stats.Mean, r.Stats.Min)
	if len(r.Events) == 0 {
		return
	}
	fmt.Fprintln(w, "detections:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range r.Events {
		fmt.Fprintf(tw, "  %.3fs\t%s\t%.4f\n", e.Offset, e.Keyword, e.Score)
	}
	tw.Flush()
}

// ── Batch ─────────────────────────────────────────────────────────────────────

type batchItemOutput struct {
	Source   string          `json:"source" yaml:"source"`
	Expect   string          `json:"expect" yaml:"expect"`
	Detected bool            `json:"detected" yaml:"detected"`
	Passed   bool            `json:"passed" yaml:"passed"`
	Backend  string          `json:"backend,omitempty" yaml:"backend,omitempty"`
	MaxScore float64         `json:"max_score" yaml:"max_score"`
	Keywords []string        `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
	Result   *harness.Result `json:"result,omitempty" yaml:"result,omitempty"`
}

type batchOutput struct {
	Items   []batchItemOutput `json:"items" yaml:"items"`
	Summary harness.Summary   `json:"summary" yaml:"summary"`
}

func newBatchOutput(outcomes []harness.BatchOutcome) batchOutput {
	out := batchOutput{
		Items:   make([]batchItemOutput, len(outcomes)),
		Summary: harness.Summarize(outcomes),
	}
	for i, o := range outcomes {
		item := batchItemOutput{
			Source:   o.Source,
			Expect:   o.Expect.String(),
			Detected: o.Detected(),
			Passed:   o.Passed(),
			Result:   o.Result,
		}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		if o.Result != nil {
			item.Backend = string(o.Result.Backend)
			item.MaxScore = o.Result.Report.Stats.Max
			item.Keywords = o.Result.Report.Keywords()
		}
		out.Items[i] = item
	}
	return out
}

func writeBatch(w io.Writer, format string, outcomes []harness.BatchOutcome) error {
	out := newBatchOutput(outcomes)
	if format != "text" {
		return encode(w, format, out)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tEXPECT\tRESULT\tBACKEND\tMAX SCORE\tOK")
	for _, it := range out.Items {
		result := "silent"
		switch {
		case it.Error != "":
			result = "aborted"
		case it.Detected:
			result = "detected"
		}
		ok := "yes"
		if !it.Passed {
			ok = "NO"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%s\n", it.Source, it.Expect, result, it.Backend, it.MaxScore, ok)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := out.Summary
	fmt.Fprintf(w, "\n%d files, %d with detections, %d aborted\n", s.Total, s.Detected, s.Aborted)
	if s.TruePositives+s.FalseNegatives+s.TrueNegatives+s.FalsePositives > 0 {
		fmt.Fprintf(w, "positives: %d detected, %d missed\n", s.TruePositives, s.FalseNegatives)
		fmt.Fprintf(w, "negatives: %d rejected, %d false alarms\n", s.TrueNegatives, s.FalsePositives)
	}
	for _, it := range out.Items {
		if it.Error != "" {
			fmt.Fprintf(w, "error: %s: %s\n", it.Source, it.Error)
		}
	}
	return nil
}

// ── Backends ──────────────────────────────────────────────────────────────────

type probeOutput struct {
	Backend  string   `json:"backend" yaml:"backend"`
	OK       bool     `json:"ok" yaml:"ok"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func writeProbes(w io.Writer, format string, probes []resilience.Probe) error {
	out := make([]probeOutput, len(probes))
	for i, p := range probes {
		out[i] = probeOutput{Backend: string(p.Kind), OK: p.OK(), Keywords: p.Keywords}
		if p.Err != nil {
			out[i].Error = p.Err.Error()
		}
	}
	if format != "text" {
		return encode(w, format, out)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tBACKEND\tSTATUS\tDETAIL")
	for i, p := range out {
		status, detail := "ok", strings.Join(p.Keywords, ", ")
		if !p.OK {
			status, detail = "unavailable", p.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, p.Backend, status, detail)
	}
	return tw.Flush()
}

// ── History ───────────────────────────────────────────────────────────────────

func writeHistory(w io.Writer, format string, records []history.Record) error {
	if format != "text" {
		if records == nil {
			records = []history.Record{}
		}
		return encode(w, format, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tSOURCE\tMODEL\tBACKEND\tWINDOWS\tRESULT")
	for _, r := range records {
		result := "silent"
		switch {
		case r.Error != "":
			result = "aborted"
		case r.Detected():
			result = "detected: " + strings.Join(r.Report.Keywords(), ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.RunID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Source,
			r.Model,
			r.Backend,
			r.Report.Windows,
			result,
		)
	}
	return tw.Flush()
}
