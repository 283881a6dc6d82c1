package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/feedback"
	"github.com/vhl-acmg-classifier/internal/middleware"
)

const (
	defaultFeedbackPageSize = 50
	maxFeedbackPageSize     = 500
)

type classifyRequest struct {
	Variant string                 `json:"variant"`
	Context domain.EvidenceContext `json:"context"`
	Codes   []string               `json:"codes,omitempty"`
}

type evidenceRequest struct {
	Variant string                 `json:"variant"`
	Context domain.EvidenceContext `json:"context"`
}

// evidenceResponse is the per-code result; context carries the justification.
type evidenceResponse struct {
	Code     domain.EvidenceCode `json:"code"`
	Strength domain.Strength     `json:"strength"`
	Context  string              `json:"context"`
}

type combineRequest struct {
	Evidence []domain.EvidenceResult `json:"evidence" binding:"required"`
}

type feedbackRequest struct {
	Variant               string                 `json:"variant" binding:"required"`
	Context               domain.EvidenceContext `json:"context"`
	CuratorClassification string                 `json:"curator_classification" binding:"required"`
	Notes                 string                 `json:"notes"`
}

type feedbackListResponse struct {
	Feedback []*feedback.Feedback `json:"feedback"`
	Total    int64                `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"timestamp":        time.Now().UTC(),
		"version":          Version,
		"tables_version":   s.classifier.Tables().Version,
		"frequency_source": s.classifier.FrequencySource(),
		"feedback_enabled": s.feedback != nil,
	})
}

// handleClassify evaluates the requested codes and combines them into a label.
func (s *Server) handleClassify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid request body", err)
		return
	}

	codes := make([]domain.EvidenceCode, 0, len(req.Codes))
	for _, raw := range req.Codes {
		code, err := domain.ParseEvidenceCode(raw)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, domain.CodeUnknownCode, "Unknown evidence code", err)
			return
		}
		codes = append(codes, code)
	}

	report, err := s.classifier.Classify(c.Request.Context(), req.Variant, req.Context, codes...)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleEvaluate evaluates one evidence code. Every well-formed request gets a
// result; an unknown code or unparseable variant yields a null strength.
func (s *Server) handleEvaluate(c *gin.Context) {
	var req evidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid request body", err)
		return
	}

	result := s.classifier.EvaluateCode(c.Request.Context(), c.Param("code"), req.Variant, req.Context)
	c.JSON(http.StatusOK, evidenceResponse{
		Code:     result.Code,
		Strength: result.Strength,
		Context:  result.Justification,
	})
}

// handleCombine applies the combination table to caller-supplied evidence.
func (s *Server) handleCombine(c *gin.Context) {
	var req combineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid request body", err)
		return
	}
	for i, r := range req.Evidence {
		if r.Code == "" {
			s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Evidence code is required",
				domain.NewValidationError("evidence["+strconv.Itoa(i)+"].code", "is required", r.Code))
			return
		}
	}

	c.JSON(http.StatusOK, s.classifier.Engine().Combine(req.Evidence))
}

// handleTables returns the gene tables in use.
func (s *Server) handleTables(c *gin.Context) {
	c.JSON(http.StatusOK, s.classifier.Tables())
}

// handleSubmitFeedback re-runs the classification and records the curator's review of it.
func (s *Server) handleSubmitFeedback(c *gin.Context) {
	if s.feedback == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.CodeStorageError, "Feedback store is disabled", nil)
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid request body", err)
		return
	}
	curator, err := domain.ParseClassification(req.CuratorClassification)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid curator classification", err)
		return
	}

	report, err := s.classifier.Classify(c.Request.Context(), req.Variant, req.Context)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}

	fb := feedback.FromReport(report, curator, req.Notes)
	if err := s.feedback.Save(c.Request.Context(), fb); err != nil {
		s.respondServiceError(c, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": c.GetString(middleware.RequestIDKey),
		"variant":    fb.NormalizedHGVS,
		"engine":     fb.EngineClassification,
		"curator":    fb.CuratorClassification,
		"agreed":     fb.Agreed,
	}).Info("Curator feedback recorded")

	c.JSON(http.StatusCreated, fb)
}

// handleGetFeedback returns the review for ?variant=, or a page of reviews.
func (s *Server) handleGetFeedback(c *gin.Context) {
	if s.feedback == nil {
		s.respondError(c, http.StatusServiceUnavailable, domain.CodeStorageError, "Feedback store is disabled", nil)
		return
	}
	ctx := c.Request.Context()

	if variant := c.Query("variant"); variant != "" {
		hgvs := s.classifier.Describe(variant, domain.EvidenceContext{}).HGVS()
		if hgvs == "" {
			s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Could not parse variant",
				domain.NewValidationError("variant", "is not a coding HGVS change", variant))
			return
		}
		fb, err := s.feedback.Get(ctx, hgvs)
		if err != nil {
			s.respondServiceError(c, err)
			return
		}
		if fb == nil {
			s.respondError(c, http.StatusNotFound, domain.CodeNotFound, "No feedback for variant", domain.ErrNotFound)
			return
		}
		c.JSON(http.StatusOK, fb)
		return
	}

	limit, err := queryInt(c, "limit", defaultFeedbackPageSize)
	if err != nil || limit <= 0 || limit > maxFeedbackPageSize {
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid limit",
			domain.NewValidationError("limit", "must be between 1 and 500", c.Query("limit")))
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid offset",
			domain.NewValidationError("offset", "must be a non-negative integer", c.Query("offset")))
		return
	}

	items, err := s.feedback.List(ctx, limit, offset)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	total, err := s.feedback.Count(ctx)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	if items == nil {
		items = []*feedback.Feedback{}
	}
	c.JSON(http.StatusOK, feedbackListResponse{Feedback: items, Total: total, Limit: limit, Offset: offset})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// respondServiceError maps service and store errors onto HTTP statuses.
func (s *Server) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		s.respondError(c, http.StatusBadRequest, domain.CodeInvalidInput, "Invalid input", err)
	case errors.Is(err, domain.ErrUnknownCode):
		s.respondError(c, http.StatusBadRequest, domain.CodeUnknownCode, "Unknown evidence code", err)
	case errors.Is(err, domain.ErrNotFound):
		s.respondError(c, http.StatusNotFound, domain.CodeNotFound, "Not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(c, http.StatusRequestTimeout, domain.CodeTimeout, "Request timeout", err)
	default:
		_ = c.Error(err)
		s.respondError(c, http.StatusInternalServerError, domain.CodeInternalServer, "Internal server error", err)
	}
}

func (s *Server) respondError(c *gin.Context, status int, code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	apiErr := domain.NewAPIError(code, message, details, c.GetString(middleware.RequestIDKey))
	c.AbortWithStatusJSON(status, gin.H{"error": apiErr})
}
