package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hydrosense/analytics/internal/domain/analytics"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// AnalyticsHandler exposes the analytics service over HTTP.
type AnalyticsHandler struct {
	service analytics.Service
	logger  *zap.Logger
}

// NewAnalyticsHandler creates the handler.
func NewAnalyticsHandler(service analytics.Service, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, logger: logger}
}

// userID resolves the acting user from the X-User-ID header. Identity is
// established upstream; this service only needs the subject.
func (h *AnalyticsHandler) userID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader("X-User-ID")
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_USER_ID",
			Message: "X-User-ID header must be a valid UUID",
		})
		return uuid.Nil, false
	}
	return id, true
}

func (h *AnalyticsHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidTimeRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_TIME_RANGE",
			Message: "start date must not be after end date",
		})
	case errors.Is(err, analytics.ErrInvalidMetric):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_METRIC",
			Message: "at least one valid metric is required",
		})
	case errors.Is(err, analytics.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_FILTER",
			Message: "filter parameters are invalid",
		})
	default:
		h.logger.Error("analytics request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "failed to process analytics request",
		})
	}
}

// GenerateTimeSeries handles POST /v1/analytics/time-series.
func (h *AnalyticsHandler) GenerateTimeSeries(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req analytics.TimeSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	start, end := analytics.DefaultRange(req.Period, req.StartDate, req.EndDate, time.Now().UTC())
	series, err := h.service.GenerateTimeSeries(c.Request.Context(), userID, req.Metric, req.Period, start, end)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

// GenerateAnalytics handles POST /v1/analytics/query.
func (h *AnalyticsHandler) GenerateAnalytics(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req analytics.AnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.service.GenerateAnalytics(c.Request.Context(), userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GenerateDashboard handles POST /v1/analytics/dashboard.
func (h *AnalyticsHandler) GenerateDashboard(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req analytics.DashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}
	if req.Period == "" {
		req.Period = analytics.PeriodMonthly
	}

	dashboard, err := h.service.GenerateDashboard(c.Request.Context(), userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// InvalidateDashboardCache handles DELETE /v1/analytics/dashboard/cache.
func (h *AnalyticsHandler) InvalidateDashboardCache(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.service.InvalidateDashboards(c.Request.Context(), userID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}

// ListInsights handles GET /v1/analytics/insights.
func (h *AnalyticsHandler) ListInsights(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	filter := analytics.InsightFilter{Limit: 50}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "INVALID_FILTER",
				Message: "limit must be between 1 and 500",
			})
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "INVALID_FILTER",
				Message: "offset must be non-negative",
			})
			return
		}
		filter.Offset = offset
	}
	if raw := c.Query("type"); raw != "" {
		filter.Types = []analytics.InsightType{analytics.InsightType(raw)}
	}
	if raw := c.Query("metric"); raw != "" {
		m := analytics.Metric(raw)
		filter.Metric = &m
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "INVALID_FILTER",
				Message: "since must be RFC3339",
				Details: err.Error(),
			})
			return
		}
		filter.Since = &since
	}

	insights, err := h.service.ListInsights(c.Request.Context(), userID, filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"insights": insights,
		"count":    len(insights),
	})
}

// GenerateInsights handles POST /v1/analytics/insights/generate.
func (h *AnalyticsHandler) GenerateInsights(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	period := analytics.Period(c.DefaultQuery("period", string(analytics.PeriodMonthly)))

	insights, err := h.service.GenerateInsightReport(c.Request.Context(), userID, period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"insights": insights,
		"count":    len(insights),
	})
}
