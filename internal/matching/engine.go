// Package matching computes skill gaps from assessment results and scores
// remediation programs against them.
package matching

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

const (
	ImportanceCritical  = "critical"
	ImportanceImportant = "important"
	ImportanceHelpful   = "helpful"
)

// DefaultProficiencyThreshold applies when a job skill carries no explicit
// threshold. MinMatchScore is the product cutoff for recommending a program.
const (
	DefaultProficiencyThreshold = 70
	MinMatchScore               = 60.0
	DefaultMaxResults           = 10
)

var importanceWeight = map[string]float64{
	ImportanceCritical:  3,
	ImportanceImportant: 2,
	ImportanceHelpful:   1,
}

var importanceOrder = map[string]int{
	ImportanceCritical:  0,
	ImportanceImportant: 1,
	ImportanceHelpful:   2,
}

type Requirement struct {
	SkillID              uuid.UUID
	SkillName            string
	SkillCategory        string
	ImportanceLevel      string
	ProficiencyThreshold *int
}

type Gap struct {
	SkillID       uuid.UUID
	SkillName     string
	SkillCategory string
	RequiredLevel int
	UserLevel     int
	Gap           int
	Importance    string
}

type ProgramSkills struct {
	ProgramID uuid.UUID
	SkillIDs  []uuid.UUID
}

type CoveredGap struct {
	SkillID   uuid.UUID
	SkillName string
	Gap       int
}

type Match struct {
	ProgramID        uuid.UUID
	MatchScore       int
	SkillsCovered    []CoveredGap
	SkillsNotCovered []uuid.UUID
	CoveragePct      int
}

type Options struct {
	// MinMatchThreshold defaults to MinMatchScore; a program passes at the
	// threshold exactly (>=).
	MinMatchThreshold float64
	MaxResults        int
}

// ComputeGaps compares assessment scores against job requirements. A missing
// score counts as zero. Output is ordered critical first, then by gap size
// descending.
func ComputeGaps(reqs []Requirement, scores map[uuid.UUID]int) []Gap {
	gaps := make([]Gap, 0, len(reqs))
	for _, r := range reqs {
		if r.SkillID == uuid.Nil {
			continue
		}

		required := DefaultProficiencyThreshold
		if r.ProficiencyThreshold != nil && *r.ProficiencyThreshold > 0 {
			required = *r.ProficiencyThreshold
		}

		userLevel := scores[r.SkillID]
		if userLevel >= required {
			continue
		}

		importance := r.ImportanceLevel
		if _, ok := importanceWeight[importance]; !ok {
			importance = ImportanceHelpful
		}

		gaps = append(gaps, Gap{
			SkillID:       r.SkillID,
			SkillName:     r.SkillName,
			SkillCategory: r.SkillCategory,
			RequiredLevel: required,
			UserLevel:     userLevel,
			Gap:           required - userLevel,
			Importance:    importance,
		})
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Importance != gaps[j].Importance {
			return importanceOrder[gaps[i].Importance] < importanceOrder[gaps[j].Importance]
		}
		return gaps[i].Gap > gaps[j].Gap
	})

	return gaps
}

// MatchPrograms scores each program's coverage of the gap set and keeps
// those at or above the threshold, best first.
func MatchPrograms(gaps []Gap, programs []ProgramSkills, opts Options) []Match {
	if len(gaps) == 0 || len(programs) == 0 {
		return nil
	}

	threshold := opts.MinMatchThreshold
	if threshold <= 0 {
		threshold = MinMatchScore
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	matches := make([]Match, 0, len(programs))
	for _, p := range programs {
		covered := make(map[uuid.UUID]bool, len(p.SkillIDs))
		for _, id := range p.SkillIDs {
			covered[id] = true
		}

		score, coveredGaps := scoreProgram(gaps, covered)
		if score < threshold {
			continue
		}

		var notCovered []uuid.UUID
		coveredCount := 0
		for _, g := range gaps {
			if covered[g.SkillID] {
				coveredCount++
			} else {
				notCovered = append(notCovered, g.SkillID)
			}
		}

		matches = append(matches, Match{
			ProgramID:        p.ProgramID,
			MatchScore:       int(math.Round(score)),
			SkillsCovered:    coveredGaps,
			SkillsNotCovered: notCovered,
			CoveragePct:      int(math.Round(float64(coveredCount) / float64(len(gaps)) * 100)),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})

	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

// scoreProgram weighs every gap by importance scaled up with gap size, then
// reports the covered share as a 0-100 score.
func scoreProgram(gaps []Gap, covered map[uuid.UUID]bool) (float64, []CoveredGap) {
	var weightedScore, totalWeight float64
	coveredGaps := make([]CoveredGap, 0, len(gaps))

	for _, g := range gaps {
		w := importanceWeight[g.Importance] * (1 + float64(g.Gap)/100)
		totalWeight += w

		if covered[g.SkillID] {
			weightedScore += w
			coveredGaps = append(coveredGaps, CoveredGap{SkillID: g.SkillID, SkillName: g.SkillName, Gap: g.Gap})
		}
	}

	if totalWeight == 0 {
		return 0, coveredGaps
	}
	return weightedScore / totalWeight * 100, coveredGaps
}
