package matching

import (
	"context"
	"log"

	"skillsync/internal/repository"

	"github.com/google/uuid"
)

type ProgramMatch struct {
	Match
	ProgramName     string
	ProviderName    string
	ProviderLogoURL string
	CIPCode         string
	Modality        string
	DurationWeeks   int
	CostUSD         *float64
	Location        string
}

type RecommendationSummary struct {
	TotalGaps      int
	CriticalGaps   int
	ProgramsFound  int
	BestMatchScore int
}

type RecommendationSet struct {
	Gaps     []Gap
	Programs []ProgramMatch
	Summary  RecommendationSummary
}

// RecommendationOptions narrows the candidate programs before scoring.
type RecommendationOptions struct {
	Options
	PreferredModality string
	MaxCostUSD        *float64
}

type Service struct {
	assessments     repository.AssessmentRepository
	jobSkills       repository.JobSkillRepository
	programSkills   repository.ProgramSkillRepository
	programs        repository.ProgramRepository
	recommendations repository.RecommendationRepository
	log             *log.Logger
}

func NewService(
	assessments repository.AssessmentRepository,
	jobSkills repository.JobSkillRepository,
	programSkills repository.ProgramSkillRepository,
	programs repository.ProgramRepository,
	recommendations repository.RecommendationRepository,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		assessments:     assessments,
		jobSkills:       jobSkills,
		programSkills:   programSkills,
		programs:        programs,
		recommendations: recommendations,
		log:             logger,
	}
}

// ComputeGaps loads the assessment's job requirements and score sheet and
// derives the gap list.
func (s *Service) ComputeGaps(ctx context.Context, assessmentID uuid.UUID) ([]Gap, error) {
	assessment, err := s.assessments.Get(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	requirements, err := s.jobSkills.ListByJobID(ctx, assessment.JobID)
	if err != nil {
		return nil, err
	}

	results, err := s.assessments.ListSkillResults(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	scores := make(map[uuid.UUID]int, len(results))
	for _, r := range results {
		scores[r.SkillID] = int(r.ScorePct)
	}

	reqs := make([]Requirement, 0, len(requirements))
	for _, r := range requirements {
		reqs = append(reqs, Requirement{
			SkillID:              r.SkillID,
			SkillName:            r.SkillName,
			SkillCategory:        r.SkillCategory,
			ImportanceLevel:      r.ImportanceLevel,
			ProficiencyThreshold: r.ProficiencyThreshold,
		})
	}

	gaps := ComputeGaps(reqs, scores)
	s.log.Printf("matching=gaps assessment=%s requirements=%d gaps=%d", assessmentID, len(reqs), len(gaps))
	return gaps, nil
}

// Recommendations computes gaps, finds programs teaching the gap skills and
// scores them. An assessment with no gaps yields an empty set, not an error.
func (s *Service) Recommendations(ctx context.Context, assessmentID uuid.UUID, opts RecommendationOptions) (RecommendationSet, error) {
	gaps, err := s.ComputeGaps(ctx, assessmentID)
	if err != nil {
		return RecommendationSet{}, err
	}

	set := RecommendationSet{Gaps: gaps, Programs: []ProgramMatch{}}
	for _, g := range gaps {
		set.Summary.TotalGaps++
		if g.Importance == ImportanceCritical {
			set.Summary.CriticalGaps++
		}
	}
	if len(gaps) == 0 {
		return set, nil
	}

	skillIDs := make([]uuid.UUID, 0, len(gaps))
	for _, g := range gaps {
		skillIDs = append(skillIDs, g.SkillID)
	}

	rows, err := s.programSkills.ListBySkillIDs(ctx, skillIDs)
	if err != nil {
		return RecommendationSet{}, err
	}
	if len(rows) == 0 {
		return set, nil
	}

	byProgram := make(map[uuid.UUID][]uuid.UUID)
	order := make([]uuid.UUID, 0)
	for _, row := range rows {
		if _, ok := byProgram[row.ProgramID]; !ok {
			order = append(order, row.ProgramID)
		}
		byProgram[row.ProgramID] = append(byProgram[row.ProgramID], row.SkillID)
	}

	details, err := s.programs.GetDetails(ctx, order)
	if err != nil {
		return RecommendationSet{}, err
	}

	candidates := make([]ProgramSkills, 0, len(order))
	for _, id := range order {
		detail, ok := details[id]
		if !ok {
			continue
		}
		if opts.PreferredModality != "" && detail.Modality != opts.PreferredModality {
			continue
		}
		if opts.MaxCostUSD != nil && detail.CostUSD != nil && *detail.CostUSD > *opts.MaxCostUSD {
			continue
		}
		candidates = append(candidates, ProgramSkills{ProgramID: id, SkillIDs: byProgram[id]})
	}

	for _, m := range MatchPrograms(gaps, candidates, opts.Options) {
		detail := details[m.ProgramID]
		set.Programs = append(set.Programs, ProgramMatch{
			Match:           m,
			ProgramName:     detail.Name,
			ProviderName:    detail.ProviderName,
			ProviderLogoURL: detail.ProviderLogoURL,
			CIPCode:         detail.CIPCode,
			Modality:        detail.Modality,
			DurationWeeks:   detail.DurationWeeks,
			CostUSD:         detail.CostUSD,
			Location:        detail.Location,
		})
	}

	set.Summary.ProgramsFound = len(set.Programs)
	if len(set.Programs) > 0 {
		set.Summary.BestMatchScore = set.Programs[0].MatchScore
	}

	s.log.Printf("matching=recommendations assessment=%s gaps=%d programs=%d", assessmentID, len(gaps), len(set.Programs))
	return set, nil
}

// TrackRecommendation records that a program was surfaced for an assessment.
func (s *Service) TrackRecommendation(ctx context.Context, assessmentID uuid.UUID, match ProgramMatch) (uuid.UUID, error) {
	covered := make([]uuid.UUID, 0, len(match.SkillsCovered))
	for _, c := range match.SkillsCovered {
		covered = append(covered, c.SkillID)
	}
	return s.recommendations.Insert(ctx, repository.RecommendationInsert{
		AssessmentID:  assessmentID,
		ProgramID:     match.ProgramID,
		MatchScore:    match.MatchScore,
		SkillsCovered: covered,
	})
}

func (s *Service) RecordClick(ctx context.Context, recommendationID uuid.UUID) error {
	return s.recommendations.MarkClicked(ctx, recommendationID)
}

func (s *Service) RecordEnrollment(ctx context.Context, recommendationID uuid.UUID) error {
	return s.recommendations.MarkEnrolled(ctx, recommendationID)
}
