package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/stack21/flowengine/pkg/schema"
)

// styles are bound to the output writer so colors drop out when it is not
// a terminal.
type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	running lipgloss.Style
	muted   lipgloss.Style
	box     lipgloss.Style
	border  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true),
		label:   r.NewStyle().Foreground(lipgloss.Color("8")).Width(10),
		ok:      r.NewStyle().Foreground(lipgloss.Color("10")),
		failed:  r.NewStyle().Foreground(lipgloss.Color("9")),
		running: r.NewStyle().Foreground(lipgloss.Color("11")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		box:     r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		border:  r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s styles) status(status string) string {
	switch status {
	case string(schema.RunStatusCompleted):
		return s.ok.Render("✓ " + status)
	case string(schema.RunStatusFailed), string(schema.RunStatusCancelled):
		return s.failed.Render("✗ " + status)
	default:
		return s.running.Render("● " + status)
	}
}

// renderRun writes a boxed run summary followed by a step table.
func renderRun(w io.Writer, run *schema.WorkflowRun) {
	st := newStyles(w)

	header := []string{
		st.title.Render(fmt.Sprintf("%s (%s)", run.WorkflowName, run.WorkflowID)),
		st.label.Render("run") + run.ID,
		st.label.Render("status") + st.status(string(run.Status)),
		st.label.Render("trigger") + run.TriggerType,
		st.label.Render("started") + run.StartedAt.Format(time.RFC3339),
		st.label.Render("duration") + formatMillis(run.Duration),
	}
	if run.ErrorMessage != "" {
		header = append(header, st.label.Render("error")+st.failed.Render(run.ErrorMessage))
	}
	fmt.Fprintln(w, st.box.Render(lipgloss.JoinVertical(lipgloss.Left, header...)))

	if len(run.Steps) == 0 {
		fmt.Fprintln(w, st.muted.Render("no steps executed"))
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.border).
		Headers("#", "STEP", "TYPE", "STATUS", "DURATION", "DETAIL")
	for i, step := range run.Steps {
		detail := step.Error
		if detail == "" {
			detail = preview(step.Output, 48)
		}
		t.Row(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%s (%s)", step.Name, step.ID),
			string(step.Type),
			st.status(string(step.Status)),
			formatMillis(step.Duration),
			detail,
		)
	}
	fmt.Fprintln(w, t.String())
}

// renderRunList writes one table row per run.
func renderRunList(w io.Writer, runs []schema.WorkflowRun) {
	st := newStyles(w)
	if len(runs) == 0 {
		fmt.Fprintln(w, st.muted.Render("no runs"))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.border).
		Headers("RUN", "WORKFLOW", "STATUS", "TRIGGER", "STARTED", "STEPS", "DURATION")
	for _, run := range runs {
		t.Row(
			run.ID,
			run.WorkflowID,
			st.status(string(run.Status)),
			run.TriggerType,
			run.StartedAt.Format(time.RFC3339),
			fmt.Sprintf("%d", len(run.Steps)),
			formatMillis(run.Duration),
		)
	}
	fmt.Fprintln(w, t.String())
}

// renderValidation writes issues, errors first.
func renderValidation(w io.Writer, name string, result *schema.ValidationResult) {
	st := newStyles(w)
	if result.Valid() {
		fmt.Fprintf(w, "%s %s\n", st.ok.Render("✓"), name)
	} else {
		fmt.Fprintf(w, "%s %s\n", st.failed.Render("✗"), name)
	}
	for _, issue := range result.Errors {
		fmt.Fprintf(w, "  %s %s: %s\n", st.failed.Render("error"), issue.Path, issue.Message)
	}
	for _, issue := range result.Warnings {
		fmt.Fprintf(w, "  %s %s: %s\n", st.running.Render("warning"), issue.Path, issue.Message)
	}
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func preview(v any, max int) string {
	if v == nil {
		return ""
	}
	s := strings.Join(strings.Fields(fmt.Sprint(v)), " ")
	if b, err := jsonCompact(v); err == nil {
		s = b
	}
	if r := []rune(s); len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return s
}
