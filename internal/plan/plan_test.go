package plan

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadenza-ai/cadenza/internal/ledger"
	"github.com/cadenza-ai/cadenza/internal/types"
)

func testLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New(t.TempDir())
	require.NoError(t, err)
	return l
}

func testUnits() []Unit {
	return []Unit{
		{Name: "core", Command: []string{"make", "core"}},
		{Name: "ui", Command: []string{"make", "ui"}, Dependencies: []string{"core"}},
	}
}

func TestNew_RecordsLedgerState(t *testing.T) {
	l := testLedger(t)
	_, err := l.AddDecision("engine_choice", "AI engine", "gpt-4", "best results", "planner", nil)
	require.NoError(t, err)

	p := New("convert-core", testUnits(), l)

	assert.False(t, p.ID.IsZero())
	assert.Equal(t, l.ComputeFingerprint(), p.DecisionFingerprint)
	assert.Equal(t, map[string]string{"engine_choice": "gpt-4"}, p.DecisionSnapshot)
	assert.Equal(t, []string{"core", "ui"}, p.UnitNames())
}

func TestPlan_UnitLookup(t *testing.T) {
	p := New("convert-core", testUnits(), testLedger(t))

	require.NotNil(t, p.Unit("ui"))
	assert.Equal(t, []string{"core"}, p.Unit("ui").Dependencies)
	assert.Nil(t, p.Unit("missing"))
}

func TestVerifyFingerprint_Clean(t *testing.T) {
	l := testLedger(t)
	_, err := l.AddDecision("engine_choice", "AI engine", "gpt-4", "best results", "planner", nil)
	require.NoError(t, err)

	p := New("convert-core", testUnits(), l)
	assert.NoError(t, p.VerifyFingerprint(l))
}

// Mirrors the full gate scenario: a plan recorded under one decision set
// must refuse to run after an override, until regenerated.
func TestVerifyFingerprint_BlocksAfterOverride(t *testing.T) {
	l := testLedger(t)
	id, err := l.AddDecision("engine_choice", "AI engine", "gpt-4", "best results", "planner", nil)
	require.NoError(t, err)

	p := New("convert-core", testUnits(), l)
	f1 := p.DecisionFingerprint

	_, err = l.OverrideDecision(id, "claude", "switch", "planner", nil)
	require.NoError(t, err)
	require.NotEqual(t, f1, l.ComputeFingerprint())

	err = p.VerifyFingerprint(l)
	require.Error(t, err)
	assert.Equal(t, types.FINGERPRINT_MISMATCH, types.CodeOf(err))
	assert.Contains(t, err.Error(), "engine_choice")
	assert.Contains(t, err.Error(), "gpt-4")
	assert.Contains(t, err.Error(), "claude")

	// Regenerating under the new decision set clears the gate.
	fresh := New("convert-core", testUnits(), l)
	assert.NoError(t, fresh.VerifyFingerprint(l))
}

func TestVerifyFingerprint_NamesAddedAndRemoved(t *testing.T) {
	l := testLedger(t)
	p := New("empty-plan", testUnits(), l)

	_, err := l.AddDecision("language_target", "target language", "go", "team standard", "planner", nil)
	require.NoError(t, err)

	err = p.VerifyFingerprint(l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `language_target added ("go")`)
}

func TestPlan_SaveLoadRoundTrip(t *testing.T) {
	l := testLedger(t)
	_, err := l.AddDecision("engine_choice", "AI engine", "gpt-4", "best results", "planner", nil)
	require.NoError(t, err)

	p := New("convert-core", testUnits(), l)
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, p.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p.ID, loaded.ID)
	assert.Equal(t, p.DecisionFingerprint, loaded.DecisionFingerprint)
	assert.Equal(t, p.DecisionSnapshot, loaded.DecisionSnapshot)
	assert.Equal(t, p.UnitNames(), loaded.UnitNames())

	// The gate must hold across persistence, not just in memory.
	assert.NoError(t, loaded.VerifyFingerprint(l))
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, types.PLAN_LOAD_FAILED, types.CodeOf(err))
}
