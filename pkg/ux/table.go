package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nogap/remedy/pkg/planfile"
	"github.com/nogap/remedy/pkg/store"
)

// RenderPlan writes the plan's steps, deferred entries and excluded entries
// as tables.
func RenderPlan(w io.Writer, plan *planfile.Plan) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Remediation Steps")
	tw.AppendHeader(table.Row{"#", "Policy", "Risk", "Confidence", "Source", "Reason"})
	for _, s := range plan.Steps {
		tw.AppendRow(table.Row{s.Priority, s.PolicyID, FormatRisk(s.RiskScore), FormatConfidence(s.Confidence), s.Source, s.Reason})
	}
	tw.Render()

	if len(plan.Deferred) > 0 {
		dw := table.NewWriter()
		dw.SetOutputMirror(w)
		dw.SetTitle("Deferred")
		dw.AppendHeader(table.Row{"Policy", "Blocking Constraints", "Reason"})
		for _, d := range plan.Deferred {
			dw.AppendRow(table.Row{d.PolicyID, strings.Join(d.BlockingConstraints, ", "), d.Reason})
		}
		dw.Render()
	}

	if len(plan.Excluded) > 0 {
		ew := table.NewWriter()
		ew.SetOutputMirror(w)
		ew.SetTitle("Excluded by User")
		ew.AppendHeader(table.Row{"Policy", "Original Priority", "Reason"})
		for _, e := range plan.Excluded {
			ew.AppendRow(table.Row{e.PolicyID, e.OriginalPriority, e.Reason})
		}
		ew.Render()
	}

	status := "pending approval"
	if plan.IsApproved {
		status = Success("approved")
	}
	if plan.IsUserModified {
		status += " (modified)"
	}
	fmt.Fprintf(w, "\nPlan %s: %s, %d steps, %d deferred\n", plan.PlanID, status, len(plan.Steps), len(plan.Deferred))
	for _, warning := range plan.Metadata.Warnings {
		fmt.Fprintf(w, "%s %s\n", Warning("⚠"), warning)
	}
}

// RenderPlanHistory writes stored plan summaries as a table.
func RenderPlanHistory(w io.Writer, summaries []store.PlanSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Plan", "Generated", "Goal", "Steps", "Approved"})
	for _, s := range summaries {
		approved := ""
		if s.IsApproved {
			approved = Success("✓")
		}
		tw.AppendRow(table.Row{s.PlanID, s.GeneratedAt.Format("2006-01-02 15:04"), s.GoalKind, s.StepCount, approved})
	}
	tw.Render()
}
