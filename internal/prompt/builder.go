// Package prompt assembles ledger knowledge into deterministic, size-bounded
// context blocks for AI calls. Assembly is fail-closed: a block that would
// exceed its byte budget is reported as an error instead of being truncated,
// because silently dropping ledger facts would make AI output depend on
// which facts happened to fit.
package prompt

import (
	"fmt"
	"strings"

	"github.com/cadenza-ai/cadenza/internal/ledger"
)

// Default hard byte budgets, measured on the UTF-8 encoding of the joined text.
const (
	DefaultPlannerLimit = 12 * 1024
	DefaultWorkerLimit  = 8 * 1024
)

// Default trailing windows over the summary log.
const (
	DefaultPlannerSummaries = 10
	DefaultWorkerSummaries  = 5
)

// Builder renders ledger state into prompt context with hard size limits
// per caller class.
type Builder struct {
	ledger       *ledger.Ledger
	plannerLimit int
	workerLimit  int
}

// NewBuilder creates a context builder over the given ledger. Non-positive
// limits fall back to the defaults.
func NewBuilder(l *ledger.Ledger, plannerLimit, workerLimit int) *Builder {
	if plannerLimit <= 0 {
		plannerLimit = DefaultPlannerLimit
	}
	if workerLimit <= 0 {
		workerLimit = DefaultWorkerLimit
	}
	return &Builder{
		ledger:       l,
		plannerLimit: plannerLimit,
		workerLimit:  workerLimit,
	}
}

// BuildForPlanner assembles the planner context: active decisions,
// conventions, glossary, the trailing maxSummaryEntries summary entries in
// chronological order, and issues that are open or under investigation.
// Returns an error and no text when the result exceeds the planner budget.
func (b *Builder) BuildForPlanner(maxSummaryEntries int) (string, error) {
	if maxSummaryEntries <= 0 {
		maxSummaryEntries = DefaultPlannerSummaries
	}

	text := b.assemble(
		b.ledger.RecentSummaries(maxSummaryEntries),
		b.ledger.ActiveIssues(),
	)

	if err := checkLimit(text, b.plannerLimit, "planner"); err != nil {
		return "", err
	}
	return text, nil
}

// BuildForWorker assembles the worker context for one task: the same
// knowledge sections as the planner, with the summary window capped at
// maxDependencySummaries and issues narrowed to those whose related tasks
// include taskID. Returns an error and no text on budget overflow.
func (b *Builder) BuildForWorker(taskID string, maxDependencySummaries int) (string, error) {
	if maxDependencySummaries <= 0 {
		maxDependencySummaries = DefaultWorkerSummaries
	}

	var related []ledger.OpenIssue
	for _, iss := range b.ledger.ActiveIssues() {
		for _, task := range iss.RelatedTasks {
			if task == taskID {
				related = append(related, iss)
				break
			}
		}
	}

	text := b.assemble(
		b.ledger.RecentSummaries(maxDependencySummaries),
		related,
	)

	if err := checkLimit(text, b.workerLimit, "worker"); err != nil {
		return "", err
	}
	return text, nil
}

// assemble joins the formatted sections, omitting any whose source is empty.
func (b *Builder) assemble(summaries []ledger.SummaryEntry, issues []ledger.OpenIssue) string {
	var parts []string

	if s := formatDecisions(b.ledger.ActiveDecisions()); s != "" {
		parts = append(parts, s)
	}
	if s := formatConventions(b.ledger.Conventions()); s != "" {
		parts = append(parts, s)
	}
	if s := formatGlossary(b.ledger.GlossaryEntries()); s != "" {
		parts = append(parts, s)
	}
	if s := formatSummaries(summaries); s != "" {
		parts = append(parts, s)
	}
	if s := formatIssues(issues); s != "" {
		parts = append(parts, s)
	}

	return strings.Join(parts, "\n\n")
}

func formatDecisions(decisions []ledger.Decision) string {
	if len(decisions) == 0 {
		return ""
	}

	lines := []string{"## RELEVANT DECISIONS", ""}
	for _, d := range decisions {
		lines = append(lines,
			fmt.Sprintf("- %s: %s", d.Description, d.Value),
			fmt.Sprintf("  Justification: %s", d.Justification))
	}
	return strings.Join(lines, "\n")
}

func formatConventions(conventions []ledger.Convention) string {
	if len(conventions) == 0 {
		return ""
	}

	lines := []string{"## ESTABLISHED CONVENTIONS", ""}
	for _, c := range conventions {
		lines = append(lines,
			fmt.Sprintf("- %s", c.Rule),
			fmt.Sprintf("  Applies to: %s", c.AppliesTo))
	}
	return strings.Join(lines, "\n")
}

func formatGlossary(entries []ledger.GlossaryEntry) string {
	if len(entries) == 0 {
		return ""
	}

	lines := []string{"## CONCEPT MAPPINGS", ""}
	for _, g := range entries {
		lines = append(lines,
			fmt.Sprintf("- %s -> %s", g.SourceTerm, g.TargetTerm),
			fmt.Sprintf("  Definition: %s", g.Definition))
	}
	return strings.Join(lines, "\n")
}

func formatSummaries(summaries []ledger.SummaryEntry) string {
	if len(summaries) == 0 {
		return ""
	}

	lines := []string{"## RECENT TASK SUMMARIES", ""}
	for _, s := range summaries {
		lines = append(lines, fmt.Sprintf("- Task %s (%s): %s",
			s.TaskID, s.Timestamp.Format("2006-01-02T15:04:05Z07:00"), s.Summary))
	}
	return strings.Join(lines, "\n")
}

func formatIssues(issues []ledger.OpenIssue) string {
	if len(issues) == 0 {
		return ""
	}

	lines := []string{"## OPEN ISSUES", ""}
	for _, iss := range issues {
		lines = append(lines,
			fmt.Sprintf("- %s", iss.Description),
			fmt.Sprintf("  Severity: %s, Status: %s", iss.Severity, iss.Status))
		if len(iss.RelatedTasks) > 0 {
			lines = append(lines, fmt.Sprintf("  Related tasks: %s", strings.Join(iss.RelatedTasks, ", ")))
		}
	}
	return strings.Join(lines, "\n")
}

func checkLimit(text string, limit int, kind string) error {
	if measured := len(text); measured > limit {
		return &SizeExceededError{Kind: kind, Measured: measured, Limit: limit}
	}
	return nil
}

// Usage reports counts and estimated sizes for capacity monitoring.
type Usage struct {
	DecisionsCount   int `json:"decisions_count"`
	ConventionsCount int `json:"conventions_count"`
	GlossaryCount    int `json:"glossary_count"`
	SummariesCount   int `json:"summaries_count"`
	OpenIssuesCount  int `json:"open_issues_count"`

	EstimatedPlannerSize int `json:"estimated_planner_size"`
	PlannerLimit         int `json:"planner_limit"`
	EstimatedWorkerSize  int `json:"estimated_worker_size"`
	WorkerLimit          int `json:"worker_limit"`
}

// UsageInfo estimates the context the default windows would produce for
// each caller class without enforcing the limits.
func (b *Builder) UsageInfo() Usage {
	plannerText := b.assemble(b.ledger.RecentSummaries(DefaultPlannerSummaries), b.ledger.ActiveIssues())
	workerText := b.assemble(b.ledger.RecentSummaries(DefaultWorkerSummaries), b.ledger.ActiveIssues())

	return Usage{
		DecisionsCount:   len(b.ledger.ActiveDecisions()),
		ConventionsCount: len(b.ledger.Conventions()),
		GlossaryCount:    len(b.ledger.GlossaryEntries()),
		SummariesCount:   len(b.ledger.SummaryEntries()),
		OpenIssuesCount:  len(b.ledger.ActiveIssues()),

		EstimatedPlannerSize: len(plannerText),
		PlannerLimit:         b.plannerLimit,
		EstimatedWorkerSize:  len(workerText),
		WorkerLimit:          b.workerLimit,
	}
}
