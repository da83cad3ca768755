package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sentiment-api/internal/inference"
	"sentiment-api/internal/models"
	"sentiment-api/internal/service"
)

type SentimentHandler interface {
	Analyze(c *gin.Context)
	History(c *gin.Context)
}

type sentimentHandler struct {
	analysisService service.AnalysisService
	authService     service.AuthService
	logger          *zap.Logger
}

func NewSentimentHandler(analysisService service.AnalysisService, authService service.AuthService, logger *zap.Logger) SentimentHandler {
	return &sentimentHandler{
		analysisService: analysisService,
		authService:     authService,
		logger:          logger,
	}
}

type AnalyzeRequest struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// Analyze handles POST /sentiment/analyze/.
//
// Single-label mode returns a scalar label and score; multi-label mode
// returns parallel label and score arrays. Internal error detail is
// logged, never echoed to the caller.
func (h *sentimentHandler) Analyze(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	mode := inference.ParseMode(req.Type)
	h.logger.Info("User submitted text for analysis",
		zap.String("username", user.Username),
		zap.String("mode", mode.String()))

	analysis, err := h.analysisService.Analyze(c.Request.Context(), user, req.Text, mode)
	if err != nil {
		h.respondAnalysisError(c, err)
		return
	}

	var result gin.H
	if mode == inference.ModeSingleLabel {
		result = gin.H{"label": analysis.Labels[0], "score": analysis.Scores[0]}
	} else {
		result = gin.H{"label": analysis.Labels, "score": analysis.Scores}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Text analyzed successfully",
		"data": gin.H{
			"username":      analysis.Username,
			"submission_id": analysis.SubmissionID,
			"result":        result,
		},
	})
}

// History handles GET /sentiment/analyze/.
func (h *sentimentHandler) History(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		return
	}

	results, err := h.analysisService.History(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("Failed to fetch history", zap.String("username", user.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch analysis data"})
		return
	}

	if len(results) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": fmt.Sprintf("No analysis data found for %s", user.Username),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Fetched analysis data",
		"data": gin.H{
			"username": user.Username,
			"results":  results,
		},
	})
}

// currentUser resolves the authenticated user set by the auth middleware.
// Responds and returns nil when the account no longer exists.
func (h *sentimentHandler) currentUser(c *gin.Context) *models.User {
	username := c.MustGet("username").(string)
	user, err := h.authService.GetUser(username)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token"})
			return nil
		}
		h.logger.Error("Failed to resolve user", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return nil
	}
	return user
}

func (h *sentimentHandler) respondAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": errorMessage(err)})
	case errors.Is(err, service.ErrModelUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Sentiment analysis model currently unavailable"})
	case errors.Is(err, service.ErrAnalysisFailed):
		h.logger.Error("Analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to analyze text"})
	default:
		h.logger.Error("Analysis pipeline error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
	}
}

// errorMessage strips the wrap prefix from validation errors, which are
// user-correctable and safe to echo.
func errorMessage(err error) string {
	if msg, ok := strings.CutPrefix(err.Error(), service.ErrInvalidInput.Error()+": "); ok {
		return msg
	}
	return err.Error()
}
