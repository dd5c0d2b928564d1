package handler

import (
	"strings"

	"skillsync/internal/delivery/http/middleware"
	"skillsync/internal/pipeline"
	"skillsync/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// maxBatchPrograms caps one batch extraction request; maxExtractionChars caps
// raw text sent to the extractor directly.
const (
	maxBatchPrograms   = 25
	maxExtractionChars = 50000
)

type ProgramSkillsHandler struct {
	svc       *pipeline.Service
	extractor pipeline.Extractor
}

type batchExtractRequest struct {
	ProgramIDs []string `json:"program_ids"`
	UseAI      *bool    `json:"use_ai"`
}

type extractTextRequest struct {
	Text string `json:"text"`
}

type skillDTO struct {
	SkillID    string  `json:"skill_id"`
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	Frequency  int     `json:"frequency"`
	Source     string  `json:"source"`
	Coverage   string  `json:"coverage,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type extractionResultDTO struct {
	ProgramID   string     `json:"program_id"`
	ProgramName string     `json:"program_name,omitempty"`
	CIPCode     string     `json:"cip_code,omitempty"`
	SOCCodes    []string   `json:"soc_codes,omitempty"`
	Method      string     `json:"method,omitempty"`
	Success     bool       `json:"success"`
	Error       string     `json:"error,omitempty"`
	TopSkills   []skillDTO `json:"top_skills,omitempty"`
}

func NewProgramSkillsHandler(svc *pipeline.Service, extractor pipeline.Extractor) *ProgramSkillsHandler {
	return &ProgramSkillsHandler{svc: svc, extractor: extractor}
}

func (h *ProgramSkillsHandler) RegisterAdminRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Post("/programs/:id/skills/extract", h.Extract)
	r.Post("/programs/skills/extract", h.ExtractBatch)
	r.Post("/skills/extract", h.ExtractText)
}

func (h *ProgramSkillsHandler) Extract(c fiber.Ctx) error {
	programID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "invalid program id", nil, err)
	}
	useAI := c.Query("use_ai", "true") != "false"

	result, err := h.svc.ExtractAndStore(c.Context(), programID, useAI)
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "skills extraction failed", nil, err)
	}
	if !result.Success {
		return response.Error(c, fiber.StatusUnprocessableEntity, result.Err, toExtractionDTO(result))
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, toExtractionDTO(result))
}

func (h *ProgramSkillsHandler) ExtractBatch(c fiber.Ctx) error {
	var req batchExtractRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	if len(req.ProgramIDs) == 0 {
		return middleware.NewAppError(fiber.StatusBadRequest, "program_ids is required", nil, nil)
	}
	if len(req.ProgramIDs) > maxBatchPrograms {
		return middleware.NewAppError(fiber.StatusBadRequest, "too many programs in one batch", nil, nil)
	}

	ids := make([]uuid.UUID, 0, len(req.ProgramIDs))
	for _, raw := range req.ProgramIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return middleware.NewAppError(fiber.StatusBadRequest, "invalid program id: "+raw, nil, err)
		}
		ids = append(ids, id)
	}

	useAI := req.UseAI == nil || *req.UseAI

	results := h.svc.BatchExtract(c.Context(), ids, useAI)

	dtos := make([]extractionResultDTO, 0, len(results))
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
		dtos = append(dtos, toExtractionDTO(r))
	}

	data := map[string]any{
		"total":     len(dtos),
		"succeeded": succeeded,
		"failed":    len(dtos) - succeeded,
		"results":   dtos,
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, data)
}

// ExtractText runs the extractor over raw text without touching any program.
// Useful for taxonomy review before wiring a program up.
func (h *ProgramSkillsHandler) ExtractText(c fiber.Ctx) error {
	var req extractTextRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return middleware.NewAppError(fiber.StatusBadRequest, "text is required", nil, nil)
	}
	if len(text) > maxExtractionChars {
		return middleware.NewAppError(fiber.StatusBadRequest, "text exceeds maximum length", nil, nil)
	}
	if !h.extractor.Available(c.Context()) {
		return middleware.NewAppError(fiber.StatusServiceUnavailable, "skills extractor is not available", nil, nil)
	}

	result, err := h.extractor.Extract(c.Context(), text)
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "skills extraction failed", nil, err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, result)
}

func toExtractionDTO(r pipeline.ExtractionResult) extractionResultDTO {
	dto := extractionResultDTO{
		ProgramID:   r.ProgramID.String(),
		ProgramName: r.ProgramName,
		CIPCode:     r.CIPCode,
		SOCCodes:    r.SOCCodes,
		Method:      r.Method,
		Success:     r.Success,
		Error:       r.Err,
	}
	for _, sk := range r.TopSkills {
		dto.TopSkills = append(dto.TopSkills, skillDTO{
			SkillID:    sk.SkillID.String(),
			Name:       sk.SkillName,
			Weight:     sk.Weight,
			Frequency:  sk.Frequency,
			Source:     sk.Source,
			Coverage:   sk.Coverage,
			Confidence: sk.Confidence,
		})
	}
	return dto
}
