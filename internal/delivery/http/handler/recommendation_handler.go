package handler

import (
	"strconv"

	"skillsync/internal/delivery/http/middleware"
	"skillsync/internal/matching"
	"skillsync/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type RecommendationHandler struct {
	svc *matching.Service
}

type gapDTO struct {
	SkillID       string `json:"skill_id"`
	SkillName     string `json:"skill_name"`
	SkillCategory string `json:"skill_category,omitempty"`
	RequiredLevel int    `json:"required_level"`
	UserLevel     int    `json:"user_level"`
	Gap           int    `json:"gap"`
	Importance    string `json:"importance"`
}

type programMatchDTO struct {
	ProgramID       string   `json:"program_id"`
	ProgramName     string   `json:"program_name"`
	ProviderName    string   `json:"provider_name,omitempty"`
	ProviderLogoURL string   `json:"provider_logo_url,omitempty"`
	CIPCode         string   `json:"cip_code,omitempty"`
	Modality        string   `json:"modality,omitempty"`
	DurationWeeks   int      `json:"duration_weeks,omitempty"`
	CostUSD         *float64 `json:"cost_usd,omitempty"`
	Location        string   `json:"location,omitempty"`
	MatchScore      int      `json:"match_score"`
	SkillsCovered   []string `json:"skills_covered"`
	CoveragePct     int      `json:"coverage_pct"`
}

type recommendationSetDTO struct {
	Gaps     []gapDTO          `json:"gaps"`
	Programs []programMatchDTO `json:"programs"`
	Summary  map[string]int    `json:"summary"`
}

func NewRecommendationHandler(svc *matching.Service) *RecommendationHandler {
	return &RecommendationHandler{svc: svc}
}

func (h *RecommendationHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/assessments/:id/gaps", h.GetGaps)
	r.Get("/assessments/:id/recommendations", h.GetRecommendations)
	r.Post("/recommendations/:id/click", h.RecordClick)
	r.Post("/recommendations/:id/enroll", h.RecordEnrollment)
}

func (h *RecommendationHandler) GetGaps(c fiber.Ctx) error {
	assessmentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "invalid assessment id", nil, err)
	}

	gaps, err := h.svc.ComputeGaps(c.Context(), assessmentID)
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "failed to compute skill gaps", nil, err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, toGapDTOs(gaps))
}

func (h *RecommendationHandler) GetRecommendations(c fiber.Ctx) error {
	assessmentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "invalid assessment id", nil, err)
	}

	opts, err := recommendationOptionsFromQuery(c)
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	}

	set, err := h.svc.Recommendations(c.Context(), assessmentID, opts)
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "failed to build recommendations", nil, err)
	}

	dto := recommendationSetDTO{
		Gaps:     toGapDTOs(set.Gaps),
		Programs: make([]programMatchDTO, 0, len(set.Programs)),
		Summary: map[string]int{
			"total_gaps":       set.Summary.TotalGaps,
			"critical_gaps":    set.Summary.CriticalGaps,
			"programs_found":   set.Summary.ProgramsFound,
			"best_match_score": set.Summary.BestMatchScore,
		},
	}
	for _, p := range set.Programs {
		covered := make([]string, 0, len(p.SkillsCovered))
		for _, sk := range p.SkillsCovered {
			covered = append(covered, sk.SkillName)
		}
		dto.Programs = append(dto.Programs, programMatchDTO{
			ProgramID:       p.ProgramID.String(),
			ProgramName:     p.ProgramName,
			ProviderName:    p.ProviderName,
			ProviderLogoURL: p.ProviderLogoURL,
			CIPCode:         p.CIPCode,
			Modality:        p.Modality,
			DurationWeeks:   p.DurationWeeks,
			CostUSD:         p.CostUSD,
			Location:        p.Location,
			MatchScore:      p.MatchScore,
			SkillsCovered:   covered,
			CoveragePct:     p.CoveragePct,
		})
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto)
}

func (h *RecommendationHandler) RecordClick(c fiber.Ctx) error {
	recommendationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "invalid recommendation id", nil, err)
	}
	if err := h.svc.RecordClick(c.Context(), recommendationID); err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "failed to record click", nil, err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *RecommendationHandler) RecordEnrollment(c fiber.Ctx) error {
	recommendationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "invalid recommendation id", nil, err)
	}
	if err := h.svc.RecordEnrollment(c.Context(), recommendationID); err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "failed to record enrollment", nil, err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func recommendationOptionsFromQuery(c fiber.Ctx) (matching.RecommendationOptions, error) {
	var opts matching.RecommendationOptions

	opts.PreferredModality = c.Query("modality")

	if s := c.Query("max_cost"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return opts, errInvalidQuery("max_cost")
		}
		opts.MaxCostUSD = &v
	}
	if s := c.Query("min_score"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || v > 100 {
			return opts, errInvalidQuery("min_score")
		}
		opts.MinMatchThreshold = v
	}
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return opts, errInvalidQuery("limit")
		}
		opts.MaxResults = v
	}
	return opts, nil
}

type queryError string

func errInvalidQuery(key string) error { return queryError(key) }

func (e queryError) Error() string { return "invalid query parameter: " + string(e) }

func toGapDTOs(gaps []matching.Gap) []gapDTO {
	out := make([]gapDTO, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, gapDTO{
			SkillID:       g.SkillID.String(),
			SkillName:     g.SkillName,
			SkillCategory: g.SkillCategory,
			RequiredLevel: g.RequiredLevel,
			UserLevel:     g.UserLevel,
			Gap:           g.Gap,
			Importance:    g.Importance,
		})
	}
	return out
}
