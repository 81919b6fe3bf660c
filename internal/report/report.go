// Package report renders run summaries for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cameronsjo/deckhand/internal/deploy"
	"github.com/cameronsjo/deckhand/internal/fileutil"
)

// Markdown renders s as a GitHub step summary section.
func Markdown(s *deploy.Summary) string {
	var b strings.Builder

	title := "Deployment"
	if s.DryRun {
		title = "Deployment (dry run)"
	}
	fmt.Fprintf(&b, "### %s: %s\n\n", title, s.Environment)

	if s.ProjectMissing {
		fmt.Fprintf(&b, "Project `%s` could not be verified: %s\n\n", s.ProjectID, cell(s.ProjectReason))
		b.WriteString("No services were deployed.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Project `%s` (%s / %s / %s)", s.ProjectID,
		orDash(s.Project.Name), orDash(s.Project.Organization), orDash(s.Project.Stack))
	if s.RunID != "" {
		fmt.Fprintf(&b, ", run `%s`", s.RunID)
	}
	b.WriteString("\n\n")

	if len(s.Services) == 0 {
		b.WriteString("The environment defines no services.\n")
		return b.String()
	}

	b.WriteString("| Service | Files | Image | Config |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, svc := range s.Services {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", cell(svc.Name),
			stepCell(svc, deploy.StepFiles), stepCell(svc, deploy.StepImage), stepCell(svc, deploy.StepConfig))
	}
	b.WriteString("\n")

	if failed := s.Failed(); failed > 0 {
		fmt.Fprintf(&b, "**%d step(s) failed.**\n", failed)
	} else {
		b.WriteString("All steps succeeded.\n")
	}
	return b.String()
}

// AppendStepSummary appends the Markdown summary to the step summary file.
func AppendStepSummary(path string, s *deploy.Summary) error {
	return fileutil.AppendFile(path, []byte(Markdown(s)+"\n"))
}

// WriteJSON writes s as indented JSON to path.
func WriteJSON(path string, s *deploy.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0644)
}

func stepCell(svc deploy.ServiceOutcome, kind deploy.StepKind) string {
	step, ok := svc.Step(kind)
	switch {
	case !ok || step.Skipped:
		return "–"
	case step.DryRun:
		return "dry run"
	case step.Result.OK:
		return "✅"
	case step.Result.Status != 0:
		return fmt.Sprintf("❌ %d", step.Result.Status)
	default:
		return "❌"
	}
}

// cell escapes a value for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func orDash(s string) string {
	if s == "" {
		return "–"
	}
	return cell(s)
}
