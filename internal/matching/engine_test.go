package matching

import (
	"testing"

	"github.com/google/uuid"
)

func intPtr(v int) *int { return &v }

func TestComputeGapsDefaultsAndThresholds(t *testing.T) {
	sqlID := uuid.New()
	goID := uuid.New()
	jsID := uuid.New()

	reqs := []Requirement{
		{SkillID: sqlID, SkillName: "SQL", ImportanceLevel: ImportanceCritical},
		{SkillID: goID, SkillName: "Go", ImportanceLevel: ImportanceImportant, ProficiencyThreshold: intPtr(80)},
		{SkillID: jsID, SkillName: "JavaScript", ImportanceLevel: ImportanceHelpful},
	}
	scores := map[uuid.UUID]int{
		goID: 30,
		jsID: 85,
	}

	gaps := ComputeGaps(reqs, scores)

	if len(gaps) != 2 {
		t.Fatalf("gaps = %d, want 2 (JavaScript at 85 >= 70 has none)", len(gaps))
	}

	// Critical sorts before important even with a smaller gap.
	if gaps[0].SkillID != sqlID {
		t.Fatalf("first gap = %s, want SQL", gaps[0].SkillName)
	}
	if gaps[0].Gap != 70 || gaps[0].UserLevel != 0 {
		t.Fatalf("missing score should gap to the full default threshold, got %+v", gaps[0])
	}
	if gaps[1].Gap != 50 || gaps[1].RequiredLevel != 80 {
		t.Fatalf("explicit threshold gap = %+v", gaps[1])
	}
}

func TestComputeGapsScoreAtThresholdIsNoGap(t *testing.T) {
	id := uuid.New()
	gaps := ComputeGaps(
		[]Requirement{{SkillID: id, SkillName: "SQL", ImportanceLevel: ImportanceCritical}},
		map[uuid.UUID]int{id: 70},
	)
	if len(gaps) != 0 {
		t.Fatalf("score equal to threshold should not gap, got %+v", gaps)
	}
}

func TestComputeGapsSortsByGapWithinImportance(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gaps := ComputeGaps(
		[]Requirement{
			{SkillID: a, SkillName: "A", ImportanceLevel: ImportanceCritical},
			{SkillID: b, SkillName: "B", ImportanceLevel: ImportanceCritical},
		},
		map[uuid.UUID]int{a: 50, b: 10},
	)
	if len(gaps) != 2 || gaps[0].SkillID != b {
		t.Fatalf("larger gap should sort first, got %+v", gaps)
	}
}

func TestMatchProgramsFullCoverage(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gaps := []Gap{
		{SkillID: a, SkillName: "A", Gap: 40, Importance: ImportanceCritical},
		{SkillID: b, SkillName: "B", Gap: 20, Importance: ImportanceHelpful},
	}
	programID := uuid.New()

	matches := MatchPrograms(gaps, []ProgramSkills{{ProgramID: programID, SkillIDs: []uuid.UUID{a, b}}}, Options{})

	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	m := matches[0]
	if m.MatchScore != 100 || m.CoveragePct != 100 {
		t.Fatalf("full coverage score = %d coverage = %d", m.MatchScore, m.CoveragePct)
	}
	if len(m.SkillsCovered) != 2 || len(m.SkillsNotCovered) != 0 {
		t.Fatalf("covered = %d not covered = %d", len(m.SkillsCovered), len(m.SkillsNotCovered))
	}
}

func TestMatchProgramsWeightedPartialCoverage(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	// critical 3x(1+0.40)=4.2, helpful 1x(1+0.20)=1.2, total 5.4.
	gaps := []Gap{
		{SkillID: a, SkillName: "A", Gap: 40, Importance: ImportanceCritical},
		{SkillID: b, SkillName: "B", Gap: 20, Importance: ImportanceHelpful},
	}

	criticalOnly := uuid.New()
	helpfulOnly := uuid.New()
	matches := MatchPrograms(gaps, []ProgramSkills{
		{ProgramID: criticalOnly, SkillIDs: []uuid.UUID{a}},
		{ProgramID: helpfulOnly, SkillIDs: []uuid.UUID{b}},
	}, Options{})

	// 4.2/5.4 = 77.8% passes, 1.2/5.4 = 22.2% does not.
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].ProgramID != criticalOnly {
		t.Fatal("critical-covering program should be the one that passes")
	}
	if matches[0].MatchScore != 78 {
		t.Fatalf("score = %d, want 78", matches[0].MatchScore)
	}
	if matches[0].CoveragePct != 50 {
		t.Fatalf("coverage = %d, want 50", matches[0].CoveragePct)
	}
}

func TestMatchProgramsExactThresholdPasses(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	// Two gaps with identical weights: covering one of two is exactly 50%,
	// so set the threshold there to check >= semantics.
	gaps := []Gap{
		{SkillID: a, SkillName: "A", Gap: 30, Importance: ImportanceHelpful},
		{SkillID: b, SkillName: "B", Gap: 30, Importance: ImportanceHelpful},
	}
	matches := MatchPrograms(gaps, []ProgramSkills{
		{ProgramID: uuid.New(), SkillIDs: []uuid.UUID{a}},
	}, Options{MinMatchThreshold: 50})
	if len(matches) != 1 {
		t.Fatalf("score exactly at threshold should pass, got %d matches", len(matches))
	}
}

func TestMatchProgramsOrderingAndLimit(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gaps := []Gap{
		{SkillID: a, SkillName: "A", Gap: 40, Importance: ImportanceCritical},
		{SkillID: b, SkillName: "B", Gap: 20, Importance: ImportanceImportant},
	}

	full := uuid.New()
	partial := uuid.New()
	matches := MatchPrograms(gaps, []ProgramSkills{
		{ProgramID: partial, SkillIDs: []uuid.UUID{a}},
		{ProgramID: full, SkillIDs: []uuid.UUID{a, b}},
	}, Options{MinMatchThreshold: 1, MaxResults: 1})

	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1 after limit", len(matches))
	}
	if matches[0].ProgramID != full {
		t.Fatal("full-coverage program should rank first")
	}
}

func TestMatchProgramsNoGaps(t *testing.T) {
	if m := MatchPrograms(nil, []ProgramSkills{{ProgramID: uuid.New()}}, Options{}); m != nil {
		t.Fatalf("no gaps should yield no matches, got %+v", m)
	}
}
