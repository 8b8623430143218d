// Package report collects scenario outcomes for one suite run and renders
// them as Markdown and sanitized HTML.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/lcm-e2e/internal/errs"
)

type Outcome string

const (
	Passed  Outcome = "passed"
	Failed  Outcome = "failed"
	Skipped Outcome = "skipped"
)

const (
	MarkdownFile = "report.md"
	HTMLFile     = "report.html"
)

// Result is one scenario's outcome.
type Result struct {
	Name      string
	Outcome   Outcome
	Reason    string
	Duration  time.Duration
	Artifacts []string
}

// Counts tallies outcomes.
type Counts struct {
	Passed, Failed, Skipped int
}

func (c Counts) Total() int { return c.Passed + c.Failed + c.Skipped }

// Report is safe for concurrent use by parallel scenarios.
type Report struct {
	mu      sync.Mutex
	title   string
	started time.Time
	results []Result
	reasons map[string]string
}

func New(title string, started time.Time) *Report {
	return &Report{title: title, started: started, reasons: make(map[string]string)}
}

// NoteSkip remembers why name is about to skip. The test framework does not
// expose skip messages, so callers note them before calling t.Skip.
func (r *Report) NoteSkip(name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons[name] = reason
}

// Record adds res. A skipped result without a reason takes the one noted
// for its name.
func (r *Report) Record(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.Outcome == Skipped && res.Reason == "" {
		res.Reason = r.reasons[res.Name]
	}
	r.results = append(r.results, res)
}

// Results returns the recorded results sorted by name.
func (r *Report) Results() []Result {
	r.mu.Lock()
	out := append([]Result(nil), r.results...)
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Report) Counts() Counts {
	var c Counts
	for _, res := range r.Results() {
		switch res.Outcome {
		case Passed:
			c.Passed++
		case Failed:
			c.Failed++
		case Skipped:
			c.Skipped++
		}
	}
	return c
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	results := r.Results()
	counts := r.Counts()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.title)
	fmt.Fprintf(&b, "Started %s.\n\n", r.started.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**%d passed**, **%d failed**, **%d skipped** of %d scenarios.\n\n",
		counts.Passed, counts.Failed, counts.Skipped, counts.Total())

	if len(results) == 0 {
		b.WriteString("No scenarios ran.\n")
		return b.String()
	}

	b.WriteString("| Scenario | Outcome | Duration | Notes |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, res := range results {
		notes := res.Reason
		if len(res.Artifacts) > 0 {
			if notes != "" {
				notes += "; "
			}
			notes += "artifacts: " + strings.Join(res.Artifacts, ", ")
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			cell(res.Name), res.Outcome, res.Duration.Round(time.Millisecond), cell(notes))
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// HTML renders the Markdown report to HTML and sanitizes it, since scenario
// names and skip reasons can carry page text.
func (r *Report) HTML() string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	body := markdown.ToHTML([]byte(r.Markdown()), p, renderer)
	safe := bluemonday.UGCPolicy().SanitizeBytes(body)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(htmlEscape(r.title))
	b.WriteString("</title></head><body>\n")
	b.Write(safe)
	b.WriteString("</body></html>\n")
	return b.String()
}

func htmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

// WriteDir writes report.md and report.html under dir.
func (r *Report) WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errs.Wrap(errs.Internal, "create report dir", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MarkdownFile), []byte(r.Markdown()), 0o640); err != nil {
		return errs.Wrap(errs.Internal, "write markdown report", err)
	}
	if err := os.WriteFile(filepath.Join(dir, HTMLFile), []byte(r.HTML()), 0o640); err != nil {
		return errs.Wrap(errs.Internal, "write html report", err)
	}
	return nil
}
