// Package pipeline derives program skill profiles two ways: a crosswalk
// rollup of occupation skills and an AI extraction over program text, with a
// hybrid merge when both are available.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"skillsync/internal/coverage"
	"skillsync/internal/extraction"
	"skillsync/internal/repository"
	"skillsync/internal/taxonomy"

	"github.com/google/uuid"
)

const (
	SourceTraditional = "traditional"
	SourceAI          = "ai"
	SourceHybrid      = "hybrid"
)

const (
	MethodTraditional = "traditional"
	MethodHybrid      = "hybrid"
)

// topSkillsTraditional caps the crosswalk rollup; topSkillsHybrid caps the
// merged profile.
const (
	topSkillsTraditional = 8
	topSkillsHybrid      = 15
)

// onetImportanceScale normalizes O*NET's 1-5 importance into [0,1].
const onetImportanceScale = 5.0

var sourcePriority = map[string]int{
	SourceHybrid:      3,
	SourceAI:          2,
	SourceTraditional: 1,
}

type SkillWithWeight struct {
	SkillID    uuid.UUID
	SkillName  string
	Weight     float64
	Frequency  int
	Importance float64
	Source     string
	Coverage   string
	Confidence float64
}

type ExtractionResult struct {
	ProgramID   uuid.UUID
	ProgramName string
	CIPCode     string
	SOCCodes    []string
	AllSkills   []SkillWithWeight
	TopSkills   []SkillWithWeight
	Success     bool
	Method      string
	Err         string
}

// Extractor is the slice of the extraction adapter the pipeline needs.
type Extractor interface {
	Extract(ctx context.Context, text string) (extraction.Result, error)
	Available(ctx context.Context) bool
}

type Service struct {
	programs      repository.ProgramRepository
	crosswalk     repository.CrosswalkRepository
	jobs          repository.JobRepository
	jobSkills     repository.JobSkillRepository
	programSkills repository.ProgramSkillRepository

	extractor Extractor
	resolver  *taxonomy.Resolver
	syllabus  SyllabusFetcher

	log *log.Logger
}

func NewService(
	programs repository.ProgramRepository,
	crosswalk repository.CrosswalkRepository,
	jobs repository.JobRepository,
	jobSkills repository.JobSkillRepository,
	programSkills repository.ProgramSkillRepository,
	extractor Extractor,
	resolver *taxonomy.Resolver,
	syllabus SyllabusFetcher,
	logger *log.Logger,
) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		programs:      programs,
		crosswalk:     crosswalk,
		jobs:          jobs,
		jobSkills:     jobSkills,
		programSkills: programSkills,
		extractor:     extractor,
		resolver:      resolver,
		syllabus:      syllabus,
		log:           logger,
	}
}

// ExtractAndStore derives the skill profile for one program and persists the
// top skills. The hybrid path is used when the extraction adapter responds to
// its self-test; otherwise the crosswalk rollup stands alone.
func (s *Service) ExtractAndStore(ctx context.Context, programID uuid.UUID, useAI bool) (ExtractionResult, error) {
	var result ExtractionResult
	if useAI && s.extractor.Available(ctx) {
		result = s.extractHybrid(ctx, programID)
	} else {
		result = s.ExtractTraditional(ctx, programID)
	}

	if !result.Success {
		return result, nil
	}

	if err := s.storeSkills(ctx, programID, result.TopSkills); err != nil {
		result.Success = false
		result.Err = fmt.Sprintf("persist program skills: %v", err)
	}
	return result, nil
}

// BatchExtract processes program IDs sequentially; a failed program yields a
// zeroed result in its slot and the batch keeps going.
func (s *Service) BatchExtract(ctx context.Context, programIDs []uuid.UUID, useAI bool) []ExtractionResult {
	results := make([]ExtractionResult, 0, len(programIDs))
	for _, id := range programIDs {
		result, err := s.ExtractAndStore(ctx, id, useAI)
		if err != nil {
			results = append(results, ExtractionResult{ProgramID: id, Err: err.Error()})
			continue
		}
		results = append(results, result)
	}
	return results
}

// ExtractTraditional walks program -> CIP -> crosswalk SOC codes -> jobs ->
// job skills and ranks the aggregate by a composite of frequency, O*NET
// importance and weight.
func (s *Service) ExtractTraditional(ctx context.Context, programID uuid.UUID) ExtractionResult {
	result := ExtractionResult{ProgramID: programID, Method: MethodTraditional}

	program, err := s.programs.Get(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrProgramNotFound) {
			result.Err = "program not found"
		} else {
			result.Err = err.Error()
		}
		return result
	}
	result.ProgramName = program.Name
	result.CIPCode = program.CIPCode

	if program.CIPCode == "" {
		result.Err = "no CIP code assigned"
		return result
	}

	socCodes, err := s.crosswalk.SOCsForCIP(ctx, program.CIPCode)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	if len(socCodes) == 0 {
		result.Err = "no SOC mappings found for CIP code"
		return result
	}
	result.SOCCodes = socCodes

	jobs, err := s.jobs.ListBySOCCodes(ctx, socCodes)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	if len(jobs) == 0 {
		result.Err = fmt.Sprintf("no jobs found for SOC codes: %s", strings.Join(socCodes, ", "))
		return result
	}

	jobIDs := make([]uuid.UUID, 0, len(jobs))
	for _, j := range jobs {
		jobIDs = append(jobIDs, j.ID)
	}

	requirements, err := s.jobSkills.ListByJobIDs(ctx, jobIDs)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	if len(requirements) == 0 {
		result.Err = "no skills found for jobs"
		return result
	}

	aggregated := aggregateJobSkills(requirements)
	ranked := rankByComposite(aggregated, len(jobs))

	result.AllSkills = ranked
	result.TopSkills = topN(ranked, topSkillsTraditional)
	result.Success = true
	return result
}

// extractHybrid runs the crosswalk rollup first, layers AI extraction on top
// and merges. Any AI-side failure falls back to the traditional result.
func (s *Service) extractHybrid(ctx context.Context, programID uuid.UUID) ExtractionResult {
	traditional := s.ExtractTraditional(ctx, programID)
	if !traditional.Success {
		return traditional
	}

	aiSkills, err := s.extractAI(ctx, programID, traditional.CIPCode)
	if err != nil {
		s.log.Printf("pipeline=hybrid program=%s fallback=traditional err=%v", programID, err)
		return traditional
	}

	combined := mergeSkills(traditional.AllSkills, aiSkills)

	result := traditional
	result.Method = MethodHybrid
	result.AllSkills = combined
	result.TopSkills = topN(rankBySourceThenWeight(combined), topSkillsHybrid)
	return result
}

// extractAI gathers the program's text sources, extracts skills and resolves
// each against the taxonomy.
func (s *Service) extractAI(ctx context.Context, programID uuid.UUID, cipCode string) ([]SkillWithWeight, error) {
	program, err := s.programs.Get(ctx, programID)
	if err != nil {
		return nil, err
	}

	text := s.gatherTextSources(ctx, program, cipCode)
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("no text content available for skills extraction")
	}

	extracted, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}

	skills := make([]SkillWithWeight, 0, len(extracted.Skills))
	for _, sk := range extracted.Skills {
		skillID, err := s.resolver.Resolve(ctx, sk)
		if err != nil {
			s.log.Printf("pipeline=ai program=%s skill=%q err=%v", programID, sk.Name, err)
			continue
		}

		class := coverage.Classify(sk.Level, sk.Confidence)
		skills = append(skills, SkillWithWeight{
			SkillID:    skillID,
			SkillName:  sk.Name,
			Weight:     class.Weight,
			Frequency:  1,
			Importance: 3.0,
			Source:     SourceAI,
			Coverage:   string(class.Tier),
			Confidence: sk.Confidence,
		})
	}
	return skills, nil
}

// gatherTextSources assembles name, descriptions, fetched syllabus text and
// related-occupation context into one extraction input.
func (s *Service) gatherTextSources(ctx context.Context, program repository.Program, cipCode string) string {
	sources := make([]string, 0, 5)

	if program.Name != "" {
		sources = append(sources, "Program Name: "+program.Name)
	}
	if program.ShortDesc != "" {
		sources = append(sources, program.ShortDesc)
	}
	if program.LongDesc != "" {
		sources = append(sources, program.LongDesc)
	}

	if program.ProgramGuideURL != "" && s.syllabus != nil {
		if text, err := s.syllabus.FetchText(ctx, program.ProgramGuideURL); err != nil {
			s.log.Printf("pipeline=syllabus url=%s err=%v", program.ProgramGuideURL, err)
		} else if text != "" {
			sources = append(sources, text)
		}
	}

	if cipContext := s.cipContext(ctx, cipCode); cipContext != "" {
		sources = append(sources, cipContext)
	}

	return strings.Join(sources, "\n\n")
}

// cipContext describes the occupations the CIP code maps to, which steers
// the extractor toward the right domain vocabulary.
func (s *Service) cipContext(ctx context.Context, cipCode string) string {
	if cipCode == "" {
		return ""
	}

	socCodes, err := s.crosswalk.SOCsForCIP(ctx, cipCode)
	if err != nil || len(socCodes) == 0 {
		return ""
	}
	if len(socCodes) > 5 {
		socCodes = socCodes[:5]
	}

	jobs, err := s.jobs.ListBySOCCodes(ctx, socCodes)
	if err != nil || len(jobs) == 0 {
		return ""
	}
	if len(jobs) > 3 {
		jobs = jobs[:3]
	}

	lines := make([]string, 0, len(jobs))
	for _, j := range jobs {
		lines = append(lines, fmt.Sprintf("Related occupation: %s - %s", j.Title, j.ShortDesc))
	}
	return strings.Join(lines, "\n")
}

func (s *Service) storeSkills(ctx context.Context, programID uuid.UUID, skills []SkillWithWeight) error {
	if len(skills) == 0 {
		return nil
	}

	upserts := make([]repository.ProgramSkillUpsert, 0, len(skills))
	for _, sk := range skills {
		cov := sk.Coverage
		if cov == "" {
			cov = string(coverage.TierSupplemental)
		}
		upserts = append(upserts, repository.ProgramSkillUpsert{
			SkillID:  sk.SkillID,
			Coverage: cov,
			Weight:   sk.Weight,
		})
	}
	return s.programSkills.UpsertForProgram(ctx, programID, upserts)
}

// aggregateJobSkills folds per-job requirements into one entry per skill,
// averaging weight and importance as occurrences accumulate.
func aggregateJobSkills(requirements []repository.JobSkillRequirement) []SkillWithWeight {
	byID := make(map[uuid.UUID]*SkillWithWeight)
	order := make([]uuid.UUID, 0)

	for _, req := range requirements {
		if req.SkillID == uuid.Nil {
			continue
		}

		existing, ok := byID[req.SkillID]
		if !ok {
			byID[req.SkillID] = &SkillWithWeight{
				SkillID:    req.SkillID,
				SkillName:  req.SkillName,
				Weight:     req.Weight,
				Frequency:  1,
				Importance: req.ImportanceValue,
				Source:     SourceTraditional,
			}
			order = append(order, req.SkillID)
			continue
		}

		existing.Frequency++
		existing.Weight = (existing.Weight + req.Weight) / 2
		existing.Importance = (existing.Importance + req.ImportanceValue) / 2
	}

	out := make([]SkillWithWeight, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// rankByComposite orders skills by 40% cross-job frequency, 40% normalized
// O*NET importance, 20% weight.
func rankByComposite(skills []SkillWithWeight, jobCount int) []SkillWithWeight {
	if jobCount <= 0 {
		jobCount = 1
	}

	composite := func(sk SkillWithWeight) float64 {
		return float64(sk.Frequency)/float64(jobCount)*0.4 +
			sk.Importance/onetImportanceScale*0.4 +
			sk.Weight*0.2
	}

	ranked := make([]SkillWithWeight, len(skills))
	copy(ranked, skills)
	sort.SliceStable(ranked, func(i, j int) bool {
		return composite(ranked[i]) > composite(ranked[j])
	})
	return ranked
}

// mergeSkills overlays AI skills onto the traditional set. A case-insensitive
// name collision upgrades the entry to hybrid and keeps the larger weight.
func mergeSkills(traditional, ai []SkillWithWeight) []SkillWithWeight {
	byName := make(map[string]*SkillWithWeight)
	order := make([]string, 0, len(traditional)+len(ai))

	for _, sk := range traditional {
		key := strings.ToLower(sk.SkillName)
		cp := sk
		cp.Source = SourceTraditional
		if _, ok := byName[key]; !ok {
			order = append(order, key)
		}
		byName[key] = &cp
	}

	for _, sk := range ai {
		key := strings.ToLower(sk.SkillName)
		existing, ok := byName[key]
		if !ok {
			cp := sk
			byName[key] = &cp
			order = append(order, key)
			continue
		}

		existing.Source = SourceHybrid
		if sk.Weight > existing.Weight {
			existing.Weight = sk.Weight
		}
		if sk.Coverage != "" {
			existing.Coverage = sk.Coverage
		}
		existing.Confidence = sk.Confidence
	}

	out := make([]SkillWithWeight, 0, len(order))
	for _, key := range order {
		out = append(out, *byName[key])
	}
	return out
}

// rankBySourceThenWeight orders hybrid before ai before traditional, then by
// weight descending.
func rankBySourceThenWeight(skills []SkillWithWeight) []SkillWithWeight {
	ranked := make([]SkillWithWeight, len(skills))
	copy(ranked, skills)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := sourcePriority[ranked[i].Source], sourcePriority[ranked[j].Source]
		if pi != pj {
			return pi > pj
		}
		return ranked[i].Weight > ranked[j].Weight
	})
	return ranked
}

func topN(skills []SkillWithWeight, n int) []SkillWithWeight {
	if len(skills) <= n {
		return skills
	}
	return skills[:n]
}
