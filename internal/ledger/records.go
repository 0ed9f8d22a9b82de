// Package ledger implements the append-only decision ledger: the
// authoritative record of irreversible pipeline choices (target language,
// engine selection, conventions) plus the supporting knowledge attached to
// a conversion run (conventions, glossary, open issues, task summaries).
//
// Records are never mutated in place. Overriding a decision supersedes the
// old record and appends a replacement, preserving full history. The ledger
// exposes a deterministic fingerprint over the currently active decision
// set which callers use to gate plan execution.
package ledger

import "time"

// DecisionStatus represents the lifecycle state of a decision.
type DecisionStatus string

const (
	DecisionStatusActive     DecisionStatus = "active"
	DecisionStatusSuperseded DecisionStatus = "superseded"
)

// IssueStatus represents the lifecycle state of an open issue.
type IssueStatus string

const (
	IssueStatusOpen          IssueStatus = "open"
	IssueStatusInvestigating IssueStatus = "investigating"
	IssueStatusResolved      IssueStatus = "resolved"
)

// Decision is an irreversible choice recorded by the planner or the user.
// Decisions are immutable once created; an override appends a new decision
// and marks this one superseded via SupersededBy.
type Decision struct {
	DecisionID    string         `json:"decision_id"`
	Title         string         `json:"title"`
	Status        DecisionStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	CreatedBy     string         `json:"created_by"`
	Category      string         `json:"category"`
	Description   string         `json:"description"`
	Value         string         `json:"value"`
	Justification string         `json:"justification"`
	SupersededBy  string         `json:"superseded_by,omitempty"`
	EvidenceRefs  []string       `json:"evidence_refs,omitempty"`
}

// IsActive reports whether the decision is the current one for its category.
func (d *Decision) IsActive() bool {
	return d.Status == DecisionStatusActive
}

// Convention is an established rule the pipeline output must follow, such
// as a naming scheme or a formatting policy.
type Convention struct {
	ConventionID string    `json:"convention_id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     string    `json:"category"`
	Rule         string    `json:"rule"`
	AppliesTo    string    `json:"applies_to"`
}

// GlossaryEntry maps a term from the source domain to its equivalent in
// the target domain so AI calls use consistent vocabulary.
type GlossaryEntry struct {
	TermID       string    `json:"term_id"`
	Timestamp    time.Time `json:"timestamp"`
	SourceTerm   string    `json:"source_term"`
	TargetTerm   string    `json:"target_term"`
	Definition   string    `json:"definition"`
	UsageContext string    `json:"usage_context"`
}

// OpenIssue records a known problem discovered during the pipeline,
// optionally linked to the task ids it affects.
type OpenIssue struct {
	IssueID      string      `json:"issue_id"`
	Timestamp    time.Time   `json:"timestamp"`
	Severity     string      `json:"severity"`
	Description  string      `json:"description"`
	Status       IssueStatus `json:"status"`
	RelatedTasks []string    `json:"related_tasks"`
	Resolution   string      `json:"resolution,omitempty"`
}

// SummaryEntry is one line of the append-only summary log: a compressed
// record of what a completed task did.
type SummaryEntry struct {
	EntryID   string    `json:"entry_id"`
	TaskID    string    `json:"task_id"`
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
}

// OverrideResult identifies the superseded decision and its replacement.
type OverrideResult struct {
	OldID string `json:"old_id"`
	NewID string `json:"new_id"`
}

// UsageInfo reports record counts and on-disk sizes for each ledger store.
type UsageInfo struct {
	DecisionsCount   int   `json:"decisions_count"`
	ConventionsCount int   `json:"conventions_count"`
	OpenIssuesCount  int   `json:"open_issues_count"`
	GlossaryCount    int   `json:"glossary_count"`
	SummaryLogCount  int   `json:"summary_log_count"`
	DecisionsSize    int64 `json:"decisions_size"`
	ConventionsSize  int64 `json:"conventions_size"`
	OpenIssuesSize   int64 `json:"open_issues_size"`
	GlossarySize     int64 `json:"glossary_size"`
	SummaryLogSize   int64 `json:"summary_log_size"`
}
