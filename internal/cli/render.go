package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/agenthands/cogniscan/internal/model"
	"github.com/agenthands/cogniscan/internal/results"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorBorder  = lipgloss.Color("#16858E")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#2C4A54")
)

var styles = struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Header:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
	Cell:    lipgloss.NewStyle().Padding(0, 1),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		}).
		Headers(headers...)
}

func printNotice(w io.Writer, n model.Notice) {
	style := styles.Success
	icon := "✓"
	switch n.Level {
	case model.NoticeWarning:
		style, icon = styles.Warning, "⚠"
	case model.NoticeError:
		style, icon = styles.Error, "✗"
	}
	line := style.Render(icon + " " + n.Title)
	if n.Text != "" {
		line += " " + n.Text
	}
	fmt.Fprintln(w, line)
}

func renderDistribution(batch *results.Batch) string {
	t := newTable("Class", "Diagnosis", "Patients", "Share")
	for _, s := range batch.Distribution {
		t.Row(s.Name, s.Label, fmt.Sprint(s.Count), fmt.Sprintf("%.1f%%", s.Percentage))
	}
	return t.String()
}

func renderBreakdowns(batch *results.Batch) string {
	var b strings.Builder
	for _, bd := range batch.Breakdowns {
		fmt.Fprintf(&b, "%s (%d)\n", styles.Title.Render(bd.Label), bd.Size)
		t := newTable("Group", "Patients")
		for _, bucket := range bd.Sex {
			t.Row(bucket.Category, fmt.Sprint(bucket.Count))
		}
		for _, bucket := range bd.Age {
			t.Row(bucket.Category, fmt.Sprint(bucket.Count))
		}
		b.WriteString(t.String())
		b.WriteString("\n")
	}
	return b.String()
}

func renderPage(p *results.Pager) string {
	t := newTable("Patient ID", "Prediction", "Age", "Sex")
	for _, r := range p.Window() {
		t.Row(r.PatientID, model.ClassLabel(r.ClassLabel), optional(r.Age), sexLabel(r.Sex))
	}
	footer := styles.Muted.Render(fmt.Sprintf("Page %d of %d (%d patients)", p.Page(), p.TotalPages(), p.Batch().Len()))
	return t.String() + "\n" + footer
}

func renderTraining(res *model.TrainingResult) string {
	names := make([]string, 0, len(res.Models))
	for name := range res.Models {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable("Model", "Accuracy", "Precision", "Recall", "F1")
	for _, name := range names {
		m := res.Models[name]
		label := name
		if name == res.BestModel {
			label += " *"
		}
		t.Row(label,
			fmt.Sprintf("%.3f", m.Accuracy),
			fmt.Sprintf("%.3f", m.Precision),
			fmt.Sprintf("%.3f", m.Recall),
			fmt.Sprintf("%.3f", m.F1Score),
		)
	}
	return t.String() + "\n" + styles.Muted.Render("* best model: "+res.BestModel)
}

func optional(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func sexLabel(v *int) string {
	switch {
	case v == nil:
		return "-"
	case *v == model.SexMale:
		return "Male"
	case *v == model.SexFemale:
		return "Female"
	default:
		return fmt.Sprint(*v)
	}
}
