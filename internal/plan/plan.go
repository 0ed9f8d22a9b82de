// Package plan persists build plans together with the decision
// fingerprint that was active when they were generated. A plan is only
// executable while the ledger's current fingerprint still matches the
// recorded one; any drift blocks execution until the plan is regenerated
// or the conflicting override is reverted.
package plan

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cadenza-ai/cadenza/internal/ledger"
	"github.com/cadenza-ai/cadenza/internal/types"
	"github.com/cadenza-ai/cadenza/internal/util"
)

// Unit is one schedulable build item within a plan.
type Unit struct {
	Name         string   `json:"name" yaml:"name"`
	BuildMethod  string   `json:"build_method,omitempty" yaml:"build_method,omitempty"`
	Command      []string `json:"command,omitempty" yaml:"command,omitempty"`
	OutputPath   string   `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	SourceFiles  []string `json:"source_files,omitempty" yaml:"source_files,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Plan is an ordered set of build units plus the decision state it was
// generated under. The snapshot mirrors the fingerprint's inputs as a
// category to value map so a mismatch can be reported in terms of what
// changed.
type Plan struct {
	ID                  types.ID          `json:"id"`
	Name                string            `json:"name"`
	Units               []Unit            `json:"units"`
	DecisionFingerprint string            `json:"decision_fingerprint"`
	DecisionSnapshot    map[string]string `json:"decision_snapshot"`
	CreatedAt           time.Time         `json:"created_at"`
}

// New builds a plan over units, recording the ledger's current
// fingerprint and active decision snapshot.
func New(name string, units []Unit, l *ledger.Ledger) *Plan {
	return &Plan{
		ID:                  types.NewID(),
		Name:                name,
		Units:               units,
		DecisionFingerprint: l.ComputeFingerprint(),
		DecisionSnapshot:    l.DecisionSnapshot(),
		CreatedAt:           time.Now().UTC(),
	}
}

// UnitNames returns the ordered unit names, the form the session manager
// consumes.
func (p *Plan) UnitNames() []string {
	names := make([]string, len(p.Units))
	for i, u := range p.Units {
		names[i] = u.Name
	}
	return names
}

// Unit returns the unit with the given name, or nil.
func (p *Plan) Unit(name string) *Unit {
	for i := range p.Units {
		if p.Units[i].Name == name {
			return &p.Units[i]
		}
	}
	return nil
}

// VerifyFingerprint checks the plan against the ledger's current state.
// On drift it returns a FINGERPRINT_MISMATCH error naming every decision
// category that was added, removed, or changed since the plan was
// generated. The gate is never auto-resolved.
func (p *Plan) VerifyFingerprint(l *ledger.Ledger) error {
	current := l.ComputeFingerprint()
	if current == p.DecisionFingerprint {
		return nil
	}

	changes := describeDrift(p.DecisionSnapshot, l.DecisionSnapshot())
	if changes == "" {
		// Same categories and values but a different digest means a
		// description or justification was edited; still a hard gate.
		changes = "active decision wording changed"
	}
	return types.NewErrorf(types.FINGERPRINT_MISMATCH,
		"plan %q was generated under different decisions (%s); regenerate the plan or revert the override",
		p.Name, changes)
}

// describeDrift renders the difference between two decision snapshots as
// a stable, human-readable list.
func describeDrift(recorded, current map[string]string) string {
	categories := make(map[string]struct{}, len(recorded)+len(current))
	for c := range recorded {
		categories[c] = struct{}{}
	}
	for c := range current {
		categories[c] = struct{}{}
	}

	ordered := make([]string, 0, len(categories))
	for c := range categories {
		ordered = append(ordered, c)
	}
	sort.Strings(ordered)

	var parts []string
	for _, c := range ordered {
		old, hadOld := recorded[c]
		now, hasNew := current[c]
		switch {
		case hadOld && hasNew && old != now:
			parts = append(parts, fmt.Sprintf("%s changed from %q to %q", c, old, now))
		case hadOld && !hasNew:
			parts = append(parts, fmt.Sprintf("%s removed (was %q)", c, old))
		case !hadOld && hasNew:
			parts = append(parts, fmt.Sprintf("%s added (%q)", c, now))
		}
	}
	return strings.Join(parts, "; ")
}

// Save writes the plan to path as indented JSON via an atomic write.
func (p *Plan) Save(path string) error {
	if err := util.WriteJSONFile(path, p); err != nil {
		return types.WrapError(types.PLAN_SAVE_FAILED,
			fmt.Sprintf("failed to save plan %q", p.Name), err)
	}
	return nil
}

// Load reads a plan from path.
func Load(path string) (*Plan, error) {
	var p Plan
	if err := util.ReadJSONFile(path, &p); err != nil {
		if os.IsNotExist(err) {
			return nil, types.WrapError(types.PLAN_LOAD_FAILED,
				fmt.Sprintf("plan file not found: %s", path), err)
		}
		return nil, types.WrapError(types.PLAN_LOAD_FAILED,
			fmt.Sprintf("failed to load plan from %s", path), err)
	}
	if p.DecisionSnapshot == nil {
		p.DecisionSnapshot = make(map[string]string)
	}
	return &p, nil
}
