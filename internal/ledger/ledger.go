package ledger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cadenza-ai/cadenza/internal/types"
	"github.com/cadenza-ai/cadenza/internal/util"
)

// Store file names under the ledger base path. One JSON file per record
// class keeps diffs reviewable and lets tools consume each class alone.
const (
	decisionsFile   = "decisions.json"
	conventionsFile = "conventions.json"
	openIssuesFile  = "open_issues.json"
	glossaryFile    = "glossary.json"
	summaryLogFile  = "summary.log"
)

// Ledger owns the backing store for all decision-ledger record classes.
// It is a synchronous single-writer structure; the mutex serializes
// access when the host process shares one instance across goroutines.
type Ledger struct {
	mu       sync.Mutex
	basePath string

	decisions   []Decision
	conventions []Convention
	openIssues  []OpenIssue
	glossary    []GlossaryEntry
	summaryLog  []SummaryEntry
}

// New opens (or initializes) a ledger rooted at basePath. Missing store
// files are created empty; existing files are loaded eagerly so every
// read operation afterwards is memory-only.
func New(basePath string) (*Ledger, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, types.WrapError(types.LEDGER_STORE_FAILED, "cannot create ledger directory", err)
	}

	l := &Ledger{basePath: basePath}

	if err := l.loadAll(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *Ledger) loadAll() error {
	loads := []struct {
		file string
		dest any
	}{
		{decisionsFile, &l.decisions},
		{conventionsFile, &l.conventions},
		{openIssuesFile, &l.openIssues},
		{glossaryFile, &l.glossary},
		{summaryLogFile, &l.summaryLog},
	}

	for _, ld := range loads {
		path := filepath.Join(l.basePath, ld.file)
		err := util.ReadJSONFile(path, ld.dest)
		if os.IsNotExist(err) {
			// First run: initialize the store with an empty array so the
			// layout is visible on disk immediately.
			if werr := util.WriteJSONFile(path, []any{}); werr != nil {
				return types.WrapError(types.LEDGER_STORE_FAILED, "cannot initialize "+ld.file, werr)
			}
			continue
		}
		if err != nil {
			return types.WrapError(types.LEDGER_STORE_FAILED, "cannot load "+ld.file, err)
		}
	}

	return nil
}

// BasePath returns the directory the ledger persists into.
func (l *Ledger) BasePath() string {
	return l.basePath
}

// nextID produces the next sequential id for a record class, e.g. D-001.
// Scanning the existing maximum keeps ids unique even after overrides
// appended records out of pure count order.
func nextID(prefix string, existing []string) string {
	maxSeq := 0
	for _, id := range existing {
		rest, ok := strings.CutPrefix(id, prefix+"-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > maxSeq {
			maxSeq = n
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, maxSeq+1)
}

func (l *Ledger) saveDecisions() error {
	path := filepath.Join(l.basePath, decisionsFile)
	if err := util.WriteJSONFile(path, l.decisions); err != nil {
		return types.WrapError(types.LEDGER_STORE_FAILED, "cannot persist decisions", err)
	}
	return nil
}

// AddDecision appends a new active decision and returns its id. If the
// category already has an active decision it is superseded first, so at
// most one decision per category is ever active.
func (l *Ledger) AddDecision(category, description, value, justification, createdBy string, evidenceRefs []string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := nextID("D", l.decisionIDs())

	for i := range l.decisions {
		d := &l.decisions[i]
		if d.Category == category && d.IsActive() {
			d.Status = DecisionStatusSuperseded
			d.SupersededBy = id
		}
	}

	if createdBy == "" {
		createdBy = "planner"
	}

	l.decisions = append(l.decisions, Decision{
		DecisionID:    id,
		Title:         description,
		Status:        DecisionStatusActive,
		CreatedAt:     time.Now().UTC(),
		CreatedBy:     createdBy,
		Category:      category,
		Description:   description,
		Value:         value,
		Justification: justification,
		EvidenceRefs:  evidenceRefs,
	})

	if err := l.saveDecisions(); err != nil {
		return "", err
	}

	slog.Debug("decision recorded", "decision_id", id, "category", category, "value", value)
	return id, nil
}

// OverrideDecision supersedes an active decision and appends a replacement
// carrying the new value. The old record is never deleted or rewritten
// beyond its status and superseded_by fields. Overriding a decision that
// is already superseded fails with STALE_DECISION.
func (l *Ledger) OverrideDecision(decisionID, newValue, reason, createdBy string, evidenceRefs []string) (*OverrideResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var target *Decision
	for i := range l.decisions {
		if l.decisions[i].DecisionID == decisionID {
			target = &l.decisions[i]
			break
		}
	}
	if target == nil {
		return nil, types.NewErrorf(types.DECISION_NOT_FOUND, "decision %s not found", decisionID)
	}
	if !target.IsActive() {
		return nil, types.NewErrorf(types.STALE_DECISION,
			"decision %s is %s (superseded by %s); override the active decision instead",
			decisionID, target.Status, target.SupersededBy)
	}

	newID := nextID("D", l.decisionIDs())

	if createdBy == "" {
		createdBy = "user"
	}

	replacement := Decision{
		DecisionID:    newID,
		Title:         target.Title,
		Status:        DecisionStatusActive,
		CreatedAt:     time.Now().UTC(),
		CreatedBy:     createdBy,
		Category:      target.Category,
		Description:   target.Description,
		Value:         newValue,
		Justification: reason,
		EvidenceRefs:  evidenceRefs,
	}

	target.Status = DecisionStatusSuperseded
	target.SupersededBy = newID
	l.decisions = append(l.decisions, replacement)

	if err := l.saveDecisions(); err != nil {
		return nil, err
	}

	slog.Info("decision overridden",
		"old_id", decisionID, "new_id", newID,
		"category", replacement.Category, "value", newValue)

	return &OverrideResult{OldID: decisionID, NewID: newID}, nil
}

func (l *Ledger) decisionIDs() []string {
	ids := make([]string, len(l.decisions))
	for i, d := range l.decisions {
		ids[i] = d.DecisionID
	}
	return ids
}

// GetDecision returns the decision with the given id, or nil.
func (l *Ledger) GetDecision(decisionID string) *Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.decisions {
		if l.decisions[i].DecisionID == decisionID {
			d := l.decisions[i]
			return &d
		}
	}
	return nil
}

// GetActive returns the active decision for a category, or nil when the
// category is undecided.
func (l *Ledger) GetActive(category string) *Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getActiveLocked(category)
}

func (l *Ledger) getActiveLocked(category string) *Decision {
	for i := range l.decisions {
		if l.decisions[i].Category == category && l.decisions[i].IsActive() {
			d := l.decisions[i]
			return &d
		}
	}
	return nil
}

// CheckConflict returns the active decision for category iff its value
// differs from candidate. Detection is advisory: the caller decides
// whether to block, override, or proceed.
func (l *Ledger) CheckConflict(category, candidate string) *Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	active := l.getActiveLocked(category)
	if active != nil && active.Value != candidate {
		return active
	}
	return nil
}

// DecisionFilter narrows ListDecisions output. Zero values match everything.
type DecisionFilter struct {
	Category string
	Status   DecisionStatus
}

// ListDecisions returns decisions matching the filter, in insertion order.
func (l *Ledger) ListDecisions(filter DecisionFilter) []Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Decision, 0, len(l.decisions))
	for _, d := range l.decisions {
		if filter.Category != "" && d.Category != filter.Category {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ActiveDecisions returns all currently active decisions in insertion order.
func (l *Ledger) ActiveDecisions() []Decision {
	return l.ListDecisions(DecisionFilter{Status: DecisionStatusActive})
}

// AddConvention appends a convention record and returns its id.
func (l *Ledger) AddConvention(category, rule, appliesTo string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, len(l.conventions))
	for i, c := range l.conventions {
		ids[i] = c.ConventionID
	}
	id := nextID("C", ids)

	l.conventions = append(l.conventions, Convention{
		ConventionID: id,
		Timestamp:    time.Now().UTC(),
		Category:     category,
		Rule:         rule,
		AppliesTo:    appliesTo,
	})

	path := filepath.Join(l.basePath, conventionsFile)
	if err := util.WriteJSONFile(path, l.conventions); err != nil {
		return "", types.WrapError(types.LEDGER_STORE_FAILED, "cannot persist conventions", err)
	}
	return id, nil
}

// Conventions returns conventions, optionally filtered by category.
func (l *Ledger) Conventions(categories ...string) []Convention {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(categories) == 0 {
		return append([]Convention(nil), l.conventions...)
	}

	wanted := make(map[string]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}

	var out []Convention
	for _, c := range l.conventions {
		if wanted[c.Category] {
			out = append(out, c)
		}
	}
	return out
}

// AddGlossaryEntry appends a glossary mapping and returns its id.
func (l *Ledger) AddGlossaryEntry(sourceTerm, targetTerm, definition, usageContext string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, len(l.glossary))
	for i, g := range l.glossary {
		ids[i] = g.TermID
	}
	id := nextID("G", ids)

	l.glossary = append(l.glossary, GlossaryEntry{
		TermID:       id,
		Timestamp:    time.Now().UTC(),
		SourceTerm:   sourceTerm,
		TargetTerm:   targetTerm,
		Definition:   definition,
		UsageContext: usageContext,
	})

	path := filepath.Join(l.basePath, glossaryFile)
	if err := util.WriteJSONFile(path, l.glossary); err != nil {
		return "", types.WrapError(types.LEDGER_STORE_FAILED, "cannot persist glossary", err)
	}
	return id, nil
}

// GlossaryEntries returns all glossary entries in insertion order.
func (l *Ledger) GlossaryEntries() []GlossaryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]GlossaryEntry(nil), l.glossary...)
}

// GlossaryBySourceTerms returns entries whose source term is in sourceTerms.
func (l *Ledger) GlossaryBySourceTerms(sourceTerms []string) []GlossaryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	wanted := make(map[string]bool, len(sourceTerms))
	for _, s := range sourceTerms {
		wanted[s] = true
	}

	var out []GlossaryEntry
	for _, g := range l.glossary {
		if wanted[g.SourceTerm] {
			out = append(out, g)
		}
	}
	return out
}

// AddIssue appends an open issue and returns its id.
func (l *Ledger) AddIssue(severity, description string, relatedTasks []string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, len(l.openIssues))
	for i, iss := range l.openIssues {
		ids[i] = iss.IssueID
	}
	id := nextID("I", ids)

	if relatedTasks == nil {
		relatedTasks = []string{}
	}

	l.openIssues = append(l.openIssues, OpenIssue{
		IssueID:      id,
		Timestamp:    time.Now().UTC(),
		Severity:     severity,
		Description:  description,
		Status:       IssueStatusOpen,
		RelatedTasks: relatedTasks,
	})

	if err := l.saveIssues(); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateIssueStatus transitions an issue to a new status, optionally
// recording a resolution note.
func (l *Ledger) UpdateIssueStatus(issueID string, status IssueStatus, resolution string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.openIssues {
		if l.openIssues[i].IssueID == issueID {
			l.openIssues[i].Status = status
			if resolution != "" {
				l.openIssues[i].Resolution = resolution
			}
			return l.saveIssues()
		}
	}
	return types.NewErrorf(types.ISSUE_NOT_FOUND, "issue %s not found", issueID)
}

func (l *Ledger) saveIssues() error {
	path := filepath.Join(l.basePath, openIssuesFile)
	if err := util.WriteJSONFile(path, l.openIssues); err != nil {
		return types.WrapError(types.LEDGER_STORE_FAILED, "cannot persist open issues", err)
	}
	return nil
}

// Issues returns all issues in insertion order.
func (l *Ledger) Issues() []OpenIssue {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]OpenIssue(nil), l.openIssues...)
}

// ActiveIssues returns issues that are open or under investigation.
func (l *Ledger) ActiveIssues() []OpenIssue {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []OpenIssue
	for _, iss := range l.openIssues {
		if iss.Status == IssueStatusOpen || iss.Status == IssueStatusInvestigating {
			out = append(out, iss)
		}
	}
	return out
}

// AddSummaryEntry appends a task summary to the summary log and returns
// the entry id. The log is strictly append-only.
func (l *Ledger) AddSummaryEntry(taskID, summary string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, len(l.summaryLog))
	for i, s := range l.summaryLog {
		ids[i] = s.EntryID
	}
	id := nextID("S", ids)

	l.summaryLog = append(l.summaryLog, SummaryEntry{
		EntryID:   id,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Summary:   summary,
	})

	path := filepath.Join(l.basePath, summaryLogFile)
	if err := util.WriteJSONFile(path, l.summaryLog); err != nil {
		return "", types.WrapError(types.LEDGER_STORE_FAILED, "cannot persist summary log", err)
	}
	return id, nil
}

// SummaryEntries returns all summary log entries in chronological order.
func (l *Ledger) SummaryEntries() []SummaryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]SummaryEntry(nil), l.summaryLog...)
}

// RecentSummaries returns the trailing n entries of the summary log in
// chronological order.
func (l *Ledger) RecentSummaries(n int) []SummaryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || len(l.summaryLog) == 0 {
		return nil
	}
	if n > len(l.summaryLog) {
		n = len(l.summaryLog)
	}
	return append([]SummaryEntry(nil), l.summaryLog[len(l.summaryLog)-n:]...)
}

// Usage reports record counts and store sizes for capacity monitoring.
func (l *Ledger) Usage() UsageInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	fileSize := func(name string) int64 {
		info, err := os.Stat(filepath.Join(l.basePath, name))
		if err != nil {
			return 0
		}
		return info.Size()
	}

	return UsageInfo{
		DecisionsCount:   len(l.decisions),
		ConventionsCount: len(l.conventions),
		OpenIssuesCount:  len(l.openIssues),
		GlossaryCount:    len(l.glossary),
		SummaryLogCount:  len(l.summaryLog),
		DecisionsSize:    fileSize(decisionsFile),
		ConventionsSize:  fileSize(conventionsFile),
		OpenIssuesSize:   fileSize(openIssuesFile),
		GlossarySize:     fileSize(glossaryFile),
		SummaryLogSize:   fileSize(summaryLogFile),
	}
}
