package ledger

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Task is the slice of a planned task the ledger can check for compliance:
// its id, the engine it wants to use, and the files it intends to write.
type Task struct {
	TaskID      string   `json:"task_id"`
	Engine      string   `json:"engine,omitempty"`
	TargetFiles []string `json:"target_files,omitempty"`
}

// Extensions considered valid output for each decided target language.
var languageExtensions = map[string][]string{
	"python":     {".py"},
	"javascript": {".js", ".jsx"},
	"typescript": {".ts", ".tsx"},
	"java":       {".java"},
	"cpp":        {".cpp", ".cxx", ".cc", ".c++"},
	"csharp":     {".cs"},
	"go":         {".go"},
	"rust":       {".rs"},
	"ruby":       {".rb"},
	"php":        {".php"},
}

// CheckTaskCompliance reports every way the task contradicts the active
// decision set or the recorded conventions. An empty result means the
// task is consistent with the ledger; the caller decides whether
// violations block execution.
func (l *Ledger) CheckTaskCompliance(task Task) []string {
	var violations []string

	if task.Engine != "" {
		if d := l.GetActive("engine_choice"); d != nil && d.Value != task.Engine {
			violations = append(violations, fmt.Sprintf(
				"task %s engine %q contradicts decision %s: should be %q",
				task.TaskID, task.Engine, d.DecisionID, d.Value))
		}
	}

	if len(task.TargetFiles) > 0 {
		if d := l.GetActive("language_target"); d != nil {
			expected := languageExtensions[strings.ToLower(d.Value)]
			if len(expected) > 0 {
				for _, target := range task.TargetFiles {
					ext := strings.ToLower(filepath.Ext(target))
					if !containsString(expected, ext) {
						violations = append(violations, fmt.Sprintf(
							"task %s target file %q has extension %q which does not match decided language %q",
							task.TaskID, target, ext, d.Value))
					}
				}
			}
		}
	}

	for _, conv := range l.Conventions("naming") {
		rule := strings.ToLower(conv.Rule)
		appliesTo := strings.ToLower(conv.AppliesTo)
		if !strings.Contains(rule, "camelcase") {
			continue
		}
		for _, target := range task.TargetFiles {
			if appliesTo != "" && !strings.Contains(strings.ToLower(target), appliesTo) {
				continue
			}
			if strings.Contains(filepath.Base(target), "_") {
				violations = append(violations, fmt.Sprintf(
					"task %s target file %q violates naming convention %s: %s",
					task.TaskID, target, conv.ConventionID, conv.Rule))
			}
		}
	}

	return violations
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
