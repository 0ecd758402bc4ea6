package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"genie-copilot/internal/domain"
	"genie-copilot/internal/pipeline"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	failColor   = color.New(color.FgRed)
)

// renderResult prints the run summary, plus the plan itself on a dry run.
func renderResult(cmd *cobra.Command, res *pipeline.Result) error {
	if getOutputFormat(cmd) == "json" {
		payload := map[string]interface{}{
			"summary": res.Summary,
		}
		if res.Summary.DryRun {
			payload["plan"] = planRows(res.Plan)
		}
		return printJSON(os.Stdout, payload)
	}

	if res.Summary.DryRun && len(res.Plan) > 0 {
		renderPlanTable(res.Plan)
	}
	renderSummaryTable(res.Summary)
	return nil
}

type planRow struct {
	Function string `json:"function"`
	Action   string `json:"action"`
	Tier     string `json:"tier"`
	Reason   string `json:"reason,omitempty"`
}

func planRows(items []domain.AssetPlanItem) []planRow {
	rows := make([]planRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, planRow{
			Function: item.Identity.FullName(),
			Action:   string(item.Action),
			Tier:     item.Query.Tier.String(),
			Reason:   strings.Join(item.Reasons, "; "),
		})
	}
	return rows
}

func renderPlanTable(items []domain.AssetPlanItem) {
	_, _ = headerColor.Fprintln(os.Stdout, "Plan")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FUNCTION\tACTION\tTIER\tREASON")
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			item.Identity.FullName(), colorAction(item.Action), item.Query.Tier, strings.Join(item.Reasons, "; "))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintln(os.Stdout)
}

func colorAction(action domain.PlanAction) string {
	switch action {
	case domain.ActionCreate:
		return okColor.Sprint(action)
	case domain.ActionReplace:
		return warnColor.Sprint(action)
	default:
		return string(action)
	}
}

func renderSummaryTable(s *domain.RunSummary) {
	if s.DryRun {
		_, _ = headerColor.Fprintln(os.Stdout, "Run summary (dry run)")
	} else {
		_, _ = headerColor.Fprintln(os.Stdout, "Run summary")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Space\t%s\n", s.SpaceID)
	_, _ = fmt.Fprintf(w, "Conversations\t%d processed, %d skipped\n", s.ConversationsProcessed, s.ConversationsSkipped)
	_, _ = fmt.Fprintf(w, "Messages\t%d seen, %d skipped\n", s.MessagesSeen, s.MessagesSkipped)
	_, _ = fmt.Fprintf(w, "Queries\t%d extracted, %d unique\n", s.QueriesExtracted, s.UniqueQueries)
	_, _ = fmt.Fprintf(w, "Classified\t%d (%d unclassifiable)\n", s.Classified, s.Unclassifiable)
	_, _ = fmt.Fprintf(w, "Above threshold\t%d\n", s.AboveThreshold)
	_ = w.Flush()

	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "\nASSET\tCREATED\tREPLACED\tSKIPPED\tFAILED\tNOT ATTEMPTED")
	renderCountsRow(w, "Instructions", s.Instructions)
	renderCountsRow(w, "Functions", s.Functions)
	renderCountsRow(w, "Registrations", s.Registrations)
	_ = w.Flush()

	if len(s.Errors) > 0 {
		_, _ = failColor.Fprintln(os.Stdout, "\nErrors")
		for _, e := range s.Errors {
			_, _ = fmt.Fprintf(os.Stdout, "  %s\n", e)
		}
	}
}

func renderCountsRow(w *tabwriter.Writer, label string, c domain.OutcomeCounts) {
	failed := fmt.Sprintf("%d", c.Failed)
	if c.Failed > 0 {
		failed = failColor.Sprint(c.Failed)
	}
	_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%d\n",
		label, c.Created, c.Replaced, c.Skipped, failed, c.NotAttempted)
}
