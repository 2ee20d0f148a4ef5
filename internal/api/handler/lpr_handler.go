package handler

import (
	"encoding/base64"
	"log"
	"net/http"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

type LPRHandler struct {
	lprService *service.LPRService
}

func NewLPRHandler(lprService *service.LPRService) *LPRHandler {
	return &LPRHandler{lprService: lprService}
}

// POST /lpr/process-image
func (h *LPRHandler) ProcessImage(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	imageBytes, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		log.Printf("LPRHandler: base64 decode failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data"})
		return
	}
	if len(imageBytes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty image data"})
		return
	}

	detectedPlate, confidence, err := h.lprService.ProcessImageForLPR(c.Request.Context(), imageBytes)
	if err != nil {
		log.Printf("LPRHandler: plate extraction failed: %v", err)
		c.JSON(http.StatusOK, domain.LPRResponseDTO{
			DetectedPlate: "",
			ErrorMessage:  "no plate recognized",
		})
		return
	}

	c.JSON(http.StatusOK, domain.LPRResponseDTO{
		DetectedPlate: domain.NormalizePlate(detectedPlate),
		Confidence:    confidence,
	})
}
