// Package report renders reconciliation decisions and document problems for
// the terminal and as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/systmms/appcfg/internal/document"
	"github.com/systmms/appcfg/internal/reconcile"
)

// Printer writes human-readable output.
type Printer struct {
	w      io.Writer
	colors map[reconcile.Action]*color.Color
	dim    *color.Color
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	p := &Printer{
		w: w,
		colors: map[reconcile.Action]*color.Color{
			reconcile.ActionAdd:     color.New(color.FgGreen),
			reconcile.ActionUpdate:  color.New(color.FgCyan),
			reconcile.ActionDelete:  color.New(color.FgRed),
			reconcile.ActionWarning: color.New(color.FgYellow),
			reconcile.ActionNoop:    color.New(color.Faint),
		},
		dim: color.New(color.Faint),
	}
	if noColor {
		for _, c := range p.colors {
			c.DisableColor()
		}
		p.dim.DisableColor()
	}
	return p
}

// Decision writes one streamed decision line.
func (p *Printer) Decision(d reconcile.Decision) {
	var b strings.Builder
	if d.DryRun {
		b.WriteString(p.dim.Sprint("[dry-run] "))
	}
	b.WriteString(p.action(d.Action))
	b.WriteString(" ")
	b.WriteString(describe(d))
	if d.Reason != "" {
		b.WriteString(": " + d.Reason)
	}
	if d.Error != "" {
		b.WriteString(" " + p.colors[reconcile.ActionDelete].Sprint("FAILED: "+d.Error))
	}
	_, _ = fmt.Fprintln(p.w, b.String())
}

// Table writes every decision and a summary.
func (p *Printer) Table(r *reconcile.Report) {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ACTION\tKEY\tLABEL\tKEYVAULT\tSTATUS\n")
	_, _ = fmt.Fprintf(tw, "------\t---\t-----\t--------\t------\n")
	for _, d := range r.Decisions {
		label := d.Label
		if label == "" {
			label = "-"
		}
		kv := ""
		if d.SecretRef {
			kv = "yes"
		}
		status := "✓ OK"
		switch {
		case d.Error != "":
			status = "✗ " + d.Error
		case d.Action == reconcile.ActionWarning:
			status = "⚠ " + d.Reason
		case d.DryRun && d.Mutates():
			status = "planned"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Action, d.Key, label, kv, status)
	}
	_ = tw.Flush()

	p.Summary(r)
}

// Summary writes the per-action counts.
func (p *Printer) Summary(r *reconcile.Report) {
	_, _ = fmt.Fprintf(p.w, "\nSummary:\n")
	if r.Blocked {
		_, _ = fmt.Fprintf(p.w, "  Blocked by %d validation error(s); no changes were made\n", len(r.Problems))
		return
	}
	verb := "applied"
	if r.DryRun {
		verb = "planned"
	}
	_, _ = fmt.Fprintf(p.w, "  %s: %d added, %d updated, %d deleted, %d unchanged\n",
		verb,
		r.Count(reconcile.ActionAdd),
		r.Count(reconcile.ActionUpdate),
		r.Count(reconcile.ActionDelete),
		r.Count(reconcile.ActionNoop),
	)
	if n := r.Count(reconcile.ActionWarning); n > 0 {
		_, _ = fmt.Fprintf(p.w, "  Warnings: %d\n", n)
	}
	if n := len(r.Failures); n > 0 {
		_, _ = fmt.Fprintf(p.w, "  Failures: %d\n", n)
	}
}

// Problems writes numbered document problems.
func (p *Printer) Problems(problems []document.Problem) {
	for i, prob := range problems {
		_, _ = fmt.Fprintf(p.w, "  %d. [%s] %s\n", i+1, prob.Kind, prob.Error())
	}
}

func (p *Printer) action(a reconcile.Action) string {
	padded := fmt.Sprintf("%-7s", a)
	if c, ok := p.colors[a]; ok {
		return c.Sprint(padded)
	}
	return padded
}

func describe(d reconcile.Decision) string {
	s := fmt.Sprintf("'%s'", d.Key)
	if d.Label != "" {
		s += fmt.Sprintf(" (label '%s')", d.Label)
	}
	if d.SecretRef {
		s += " [Key Vault]"
	}
	return s
}

type jsonSummary struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Warnings  int `json:"warnings"`
	Failures  int `json:"failures"`
}

type jsonProblem struct {
	Index   int    `json:"index"`
	Key     string `json:"key,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type jsonReport struct {
	DryRun    bool                 `json:"dry_run"`
	Blocked   bool                 `json:"blocked"`
	Decisions []reconcile.Decision `json:"decisions"`
	Problems  []jsonProblem        `json:"problems,omitempty"`
	Failures  []string             `json:"failures,omitempty"`
	Summary   jsonSummary          `json:"summary"`
}

// WriteJSON writes a run report as indented JSON.
func WriteJSON(w io.Writer, r *reconcile.Report) error {
	out := jsonReport{
		DryRun:    r.DryRun,
		Blocked:   r.Blocked,
		Decisions: r.Decisions,
		Summary: jsonSummary{
			Added:     r.Count(reconcile.ActionAdd),
			Updated:   r.Count(reconcile.ActionUpdate),
			Deleted:   r.Count(reconcile.ActionDelete),
			Unchanged: r.Count(reconcile.ActionNoop),
			Warnings:  r.Count(reconcile.ActionWarning),
			Failures:  len(r.Failures),
		},
	}
	if out.Decisions == nil {
		out.Decisions = []reconcile.Decision{}
	}
	for _, p := range r.Problems {
		out.Problems = append(out.Problems, jsonProblem{Index: p.Index, Key: p.Key, Field: p.Field, Message: p.Message})
	}
	for _, err := range r.Failures {
		out.Failures = append(out.Failures, err.Error())
	}
	return encode(w, out)
}

// WriteProblemsJSON writes the outcome of document validation.
func WriteProblemsJSON(w io.Writer, items int, problems []document.Problem) error {
	if problems == nil {
		problems = []document.Problem{}
	}
	return encode(w, struct {
		Valid    bool               `json:"valid"`
		Items    int                `json:"items"`
		Problems []document.Problem `json:"problems"`
	}{
		Valid:    len(problems) == 0,
		Items:    items,
		Problems: problems,
	})
}

func encode(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
