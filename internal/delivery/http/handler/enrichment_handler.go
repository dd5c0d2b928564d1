package handler

import (
	"errors"

	"skillsync/internal/delivery/http/middleware"
	"skillsync/internal/enrichment"
	"skillsync/internal/pkg/response"
	"skillsync/internal/soc"

	"github.com/gofiber/fiber/v3"
)

// maxBatchSOCCodes caps a single bulk enrichment request.
const maxBatchSOCCodes = 50

type EnrichmentHandler struct {
	svc *enrichment.Service
}

type batchEnrichRequest struct {
	SOCCodes []string `json:"soc_codes"`
	Force    bool     `json:"force"`
}

type enrichmentResultDTO struct {
	SOCCode     string   `json:"soc_code"`
	Success     bool     `json:"success"`
	BLSUpdated  bool     `json:"bls_updated"`
	COSUpdated  bool     `json:"cos_updated"`
	Errors      []string `json:"errors,omitempty"`
	WageExpired bool     `json:"wage_cache_expired"`
	OccExpired  bool     `json:"occupation_cache_expired"`
}

type enrichmentStatusDTO struct {
	SOCCode     string `json:"soc_code"`
	Status      string `json:"status"`
	LastAttempt string `json:"last_attempt,omitempty"`
	Error       string `json:"error,omitempty"`
}

func NewEnrichmentHandler(svc *enrichment.Service) *EnrichmentHandler {
	return &EnrichmentHandler{svc: svc}
}

func (h *EnrichmentHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/occupations/:soc", h.GetEnriched)
	r.Get("/occupations/:soc/status", h.GetStatus)
}

func (h *EnrichmentHandler) RegisterAdminRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Post("/occupations/:soc/enrich", h.Enrich)
	r.Post("/occupations/enrich", h.EnrichBatch)
	r.Delete("/occupations/cache/expired", h.CleanExpired)
}

func (h *EnrichmentHandler) GetEnriched(c fiber.Ctx) error {
	code, err := soc.Canonical(c.Params("soc"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "invalid SOC code", nil, err)
	}

	data, err := h.svc.GetEnriched(c.Context(), code)
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "failed to load occupation data", nil, err)
	}
	if data == nil {
		return middleware.NewAppError(fiber.StatusNotFound, "no enriched data for occupation", nil, nil)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, data)
}

func (h *EnrichmentHandler) GetStatus(c fiber.Ctx) error {
	code, err := soc.Canonical(c.Params("soc"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "invalid SOC code", nil, err)
	}

	status, found, err := h.svc.Status(c.Context(), code)
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "failed to load enrichment status", nil, err)
	}
	if !found {
		return middleware.NewAppError(fiber.StatusNotFound, "occupation has not been enriched", nil, nil)
	}

	dto := enrichmentStatusDTO{
		SOCCode: status.SOCCode,
		Status:  status.Status,
		Error:   status.ErrorMessage,
	}
	if status.LastAttemptAt != nil {
		dto.LastAttempt = status.LastAttemptAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto)
}

func (h *EnrichmentHandler) Enrich(c fiber.Ctx) error {
	force := c.Query("force") == "true"

	result, err := h.svc.EnrichOccupation(c.Context(), c.Params("soc"), force)
	if err != nil {
		if errors.Is(err, soc.ErrInvalidCode) {
			return middleware.NewAppError(fiber.StatusBadRequest, "invalid SOC code", nil, err)
		}
		return middleware.NewAppError(fiber.StatusInternalServerError, "enrichment failed", nil, err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, toEnrichmentDTO(result))
}

func (h *EnrichmentHandler) EnrichBatch(c fiber.Ctx) error {
	var req batchEnrichRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}
	if len(req.SOCCodes) == 0 {
		return middleware.NewAppError(fiber.StatusBadRequest, "soc_codes is required", nil, nil)
	}
	if len(req.SOCCodes) > maxBatchSOCCodes {
		return middleware.NewAppError(fiber.StatusBadRequest, "too many SOC codes in one batch", nil, nil)
	}

	results := h.svc.EnrichBatch(c.Context(), req.SOCCodes, req.Force)

	dtos := make([]enrichmentResultDTO, 0, len(results))
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
		dtos = append(dtos, toEnrichmentDTO(r))
	}

	data := map[string]any{
		"total":     len(dtos),
		"succeeded": succeeded,
		"failed":    len(dtos) - succeeded,
		"results":   dtos,
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, data)
}

func (h *EnrichmentHandler) CleanExpired(c fiber.Ctx) error {
	removed, err := h.svc.CleanExpired(c.Context())
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, "failed to clean expired cache rows", nil, err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, map[string]any{"removed": removed})
}

func toEnrichmentDTO(r enrichment.Result) enrichmentResultDTO {
	return enrichmentResultDTO{
		SOCCode:     r.SOCCode,
		Success:     r.Success,
		BLSUpdated:  r.DataUpdated.BLSWage,
		COSUpdated:  r.DataUpdated.COSOccupation,
		Errors:      r.Errors,
		WageExpired: r.CacheStatus.BLSWageExpired,
		OccExpired:  r.CacheStatus.COSOccupationExpired,
	}
}
