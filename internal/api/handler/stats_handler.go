package handler

import (
	"log"
	"net/http"
	"time"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	statsService *service.StatsService
}

func NewStatsHandler(ss *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: ss}
}

// bindRange parses the lotId/start/end query filter shared by every stats
// endpoint. Reports false after writing the error response.
func (h *StatsHandler) bindRange(c *gin.Context) (*int, time.Time, time.Time, bool) {
	var filter domain.StatsFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, time.Time{}, time.Time{}, false
	}
	from, err := parseTimestamp(filter.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, time.Time{}, time.Time{}, false
	}
	to, err := parseTimestamp(filter.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, time.Time{}, time.Time{}, false
	}
	if !to.After(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be after start"})
		return nil, time.Time{}, time.Time{}, false
	}
	return filter.LotID, from, to, true
}

// GET /statistics/summary
func (h *StatsHandler) Summary(c *gin.Context) {
	lotID, from, to, ok := h.bindRange(c)
	if !ok {
		return
	}
	report, err := h.statsService.Summarize(c.Request.Context(), from, to, lotID)
	if err != nil {
		log.Printf("StatsHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build summary"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GET /statistics/hourly
func (h *StatsHandler) Hourly(c *gin.Context) {
	lotID, from, to, ok := h.bindRange(c)
	if !ok {
		return
	}
	buckets, err := h.statsService.HourlyBreakdown(c.Request.Context(), from, to, lotID)
	if err != nil {
		log.Printf("StatsHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build hourly breakdown"})
		return
	}
	c.JSON(http.StatusOK, buckets)
}

// GET /statistics/daily
func (h *StatsHandler) Daily(c *gin.Context) {
	lotID, from, to, ok := h.bindRange(c)
	if !ok {
		return
	}
	buckets, err := h.statsService.DailyBreakdown(c.Request.Context(), from, to, lotID)
	if err != nil {
		log.Printf("StatsHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build daily breakdown"})
		return
	}
	c.JSON(http.StatusOK, buckets)
}

// GET /statistics/peak-utilization
func (h *StatsHandler) PeakUtilization(c *gin.Context) {
	lotID, from, to, ok := h.bindRange(c)
	if !ok {
		return
	}
	buckets, err := h.statsService.PeakUtilization(c.Request.Context(), from, to, lotID)
	if err != nil {
		log.Printf("StatsHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build utilization report"})
		return
	}
	c.JSON(http.StatusOK, buckets)
}
