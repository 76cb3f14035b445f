package controllers

import (
	"context"
	"errors"
	"net/http"

	"renalscan/middlewares"
	"renalscan/models"
	"renalscan/services"
	"renalscan/utils"

	"github.com/gin-gonic/gin"
)

type AnalysisController struct {
	History *services.HistoryService
	// SendReport delivers a shared analysis; utils.SendAnalysisReport in production.
	SendReport func(ctx context.Context, to string, r utils.AnalysisReport) error
}

// constructor
func NewAnalysisController(h *services.HistoryService) *AnalysisController {
	return &AnalysisController{History: h, SendReport: utils.SendAnalysisReport}
}

// List returns the previous analyses, newest first. Failures surface as an
// advisory with an empty list rather than an error status.
func (ac *AnalysisController) List(c *gin.Context) {
	res := ac.History.List(c.Request.Context(), middlewares.PersonID(c))
	c.JSON(http.StatusOK, res)
}

func (ac *AnalysisController) Get(c *gin.Context) {
	rec, ok := ac.selectAnalysis(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": rec})
}

func (ac *AnalysisController) Normalize(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ac.History.Normalize(raw, middlewares.PersonID(c)))
}

func (ac *AnalysisController) Summary(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ac.History.Summarize(raw, middlewares.PersonID(c)))
}

type shareRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (ac *AnalysisController) Share(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, ok := ac.selectAnalysis(c)
	if !ok {
		return
	}

	if err := ac.SendReport(c.Request.Context(), req.Email, reportFor(rec)); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not send the report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report sent"})
}

func (ac *AnalysisController) selectAnalysis(c *gin.Context) (*models.AnalysisRecord, bool) {
	personID := middlewares.PersonID(c)
	rec, err := ac.History.Select(c.Request.Context(), personID, c.Param("id"))
	switch {
	case err == nil:
		return rec, true
	case errors.Is(err, services.ErrAnalysisNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrHistoryUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
	return nil, false
}

func reportFor(rec *models.AnalysisRecord) utils.AnalysisReport {
	r := utils.AnalysisReport{
		Name:       rec.DisplayName,
		AnalyzedAt: rec.AnalyzedAt,
		ImageURL:   rec.CapturedImageURL,
	}
	if rec.ConclusionText != nil {
		r.Conclusion = *rec.ConclusionText
	}
	if rec.Recommendations != nil {
		r.Recommendations = *rec.Recommendations
	}
	for _, row := range services.MineralSummaryFromTotals(rec.NutrientTotals, "").Minerals {
		r.Minerals = append(r.Minerals, row.Classification)
	}
	return r
}
