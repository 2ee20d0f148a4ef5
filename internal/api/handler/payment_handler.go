package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/repository"
	"plaza_backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(ps *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

// parseTimestamp accepts RFC3339 or a bare date.
func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q, want RFC3339 or YYYY-MM-DD", value)
}

// POST /payments
func (h *PaymentHandler) Pay(c *gin.Context) {
	var dto domain.PaymentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := parseTimestamp(dto.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.paymentService.Pay(c.Request.Context(), dto.Plate, dto.SpaceID, start, dto.Fee, dto.Method, dto.Reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		log.Printf("PaymentHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record payment"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// POST /payments/batch-generate
func (h *PaymentHandler) BatchGenerate(c *gin.Context) {
	var dto domain.BatchGenerateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	from, err := parseTimestamp(dto.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := parseTimestamp(dto.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !to.After(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be after start"})
		return
	}

	created, err := h.paymentService.BatchGenerate(c.Request.Context(), from, to, dto.Force)
	if err != nil {
		log.Printf("PaymentHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "batch generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

// GET /payments/:sessionKey
func (h *PaymentHandler) GetByKey(c *gin.Context) {
	key := c.Param("sessionKey")
	record, err := h.paymentService.FindByKey(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch payment record"})
		return
	}
	c.JSON(http.StatusOK, record)
}
