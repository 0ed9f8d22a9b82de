// Package task records structured per-task summaries: which files a
// conversion task read and wrote, under what write policy, and the file
// content hashes before and after, so later runs can detect drift.
package task

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cadenza-ai/cadenza/internal/artifact"
	"github.com/cadenza-ai/cadenza/internal/util"
)

// Summary is the structured record of one completed task.
type Summary struct {
	TaskID            string            `json:"task_id"`
	SourceFiles       []string          `json:"source_files"`
	TargetFiles       []string          `json:"target_files"`
	Timestamp         time.Time         `json:"timestamp"`
	WritePolicy       string            `json:"write_policy,omitempty"`
	MergeStrategy     string            `json:"merge_strategy,omitempty"`
	SemanticDecisions []string          `json:"semantic_decisions_taken,omitempty"`
	Warnings          []string          `json:"warnings,omitempty"`
	Errors            []string          `json:"errors,omitempty"`
	HashesBefore      map[string]string `json:"hashes_before,omitempty"`
	HashesAfter       map[string]string `json:"hashes_after,omitempty"`
	DiffReferences    []string          `json:"diff_references,omitempty"`
}

// NewSummary starts a summary for taskID over the given files.
func NewSummary(taskID string, sourceFiles, targetFiles []string) *Summary {
	return &Summary{
		TaskID:      taskID,
		SourceFiles: sourceFiles,
		TargetFiles: targetFiles,
		Timestamp:   time.Now().UTC(),
	}
}

// SetPolicy records the write policy and optional merge strategy applied.
func (s *Summary) SetPolicy(writePolicy, mergeStrategy string) {
	s.WritePolicy = writePolicy
	s.MergeStrategy = mergeStrategy
}

// AddSemanticDecision records a semantic choice made during the task.
func (s *Summary) AddSemanticDecision(decision string) {
	s.SemanticDecisions = append(s.SemanticDecisions, decision)
}

// AddWarning records a non-fatal problem.
func (s *Summary) AddWarning(warning string) {
	s.Warnings = append(s.Warnings, warning)
}

// AddError records a task error.
func (s *Summary) AddError(err string) {
	s.Errors = append(s.Errors, err)
}

// CaptureHashesBefore snapshots the target files' content hashes prior to
// the task touching them. Missing files hash to the empty string.
func (s *Summary) CaptureHashesBefore() {
	s.HashesBefore = hashFiles(s.TargetFiles)
}

// CaptureHashesAfter snapshots the target files' content hashes once the
// task is done.
func (s *Summary) CaptureHashesAfter() {
	s.HashesAfter = hashFiles(s.TargetFiles)
}

// ChangedFiles returns the target files whose content hash differs
// between the before and after snapshots.
func (s *Summary) ChangedFiles() []string {
	var changed []string
	for _, f := range s.TargetFiles {
		if s.HashesBefore[f] != s.HashesAfter[f] {
			changed = append(changed, f)
		}
	}
	return changed
}

func hashFiles(files []string) map[string]string {
	hashes := make(map[string]string, len(files))
	for _, f := range files {
		hashes[f] = artifact.FileSHA256(f)
	}
	return hashes
}

// Store persists one JSON file per task summary under a base directory.
type Store struct {
	baseDir string
}

// NewStore returns a summary store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Save writes the summary and returns the path it was written to. Task
// ids may contain colons (e.g. "convert:core"); those become underscores
// in the file name.
func (st *Store) Save(s *Summary) (string, error) {
	path := st.summaryPath(s.TaskID)
	if err := util.WriteJSONFile(path, s); err != nil {
		return "", fmt.Errorf("failed to save task summary %s: %w", s.TaskID, err)
	}
	return path, nil
}

// Load reads the summary for taskID.
func (st *Store) Load(taskID string) (*Summary, error) {
	var s Summary
	if err := util.ReadJSONFile(st.summaryPath(taskID), &s); err != nil {
		return nil, fmt.Errorf("failed to load task summary %s: %w", taskID, err)
	}
	return &s, nil
}

// List returns the task ids with a persisted summary.
func (st *Store) List() ([]string, error) {
	entries, err := os.ReadDir(st.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "task_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, "task_"), ".json"))
	}
	return ids, nil
}

func (st *Store) summaryPath(taskID string) string {
	safe := strings.ReplaceAll(taskID, ":", "_")
	return filepath.Join(st.baseDir, "task_"+safe+".json")
}
