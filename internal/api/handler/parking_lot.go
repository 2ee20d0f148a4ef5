package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/repository"
	"plaza_backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingLotHandler struct {
	registryService *service.RegistryService
}

func NewParkingLotHandler(rs *service.RegistryService) *ParkingLotHandler {
	return &ParkingLotHandler{registryService: rs}
}

// POST /parking-lots
func (h *ParkingLotHandler) CreateParkingLot(c *gin.Context) {
	var dto domain.ParkingLotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.registryService.CreateLot(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrInvalidLotStatus) || errors.Is(err, service.ErrInvalidRate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("ParkingLotHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create parking lot"})
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// GET /parking-lots/:id
func (h *ParkingLotHandler) GetParkingLotByID(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot ID"})
		return
	}

	lot, err := h.registryService.GetLotByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "parking lot not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch parking lot"})
		return
	}
	c.JSON(http.StatusOK, lot)
}

// GET /parking-lots
func (h *ParkingLotHandler) GetAllParkingLots(c *gin.Context) {
	lots, err := h.registryService.GetAllLots(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list parking lots"})
		return
	}
	c.JSON(http.StatusOK, lots)
}

// PATCH /parking-lots/:id
func (h *ParkingLotHandler) PatchParkingLot(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot ID"})
		return
	}

	var dto domain.ParkingLotPatchDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.registryService.PatchLot(c.Request.Context(), id, dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "parking lot not found"})
			return
		}
		if errors.Is(err, service.ErrLotOccupied) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "lot_occupied"})
			return
		}
		if errors.Is(err, service.ErrInvalidLotStatus) || errors.Is(err, service.ErrInvalidRate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("ParkingLotHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update parking lot"})
		return
	}
	c.JSON(http.StatusOK, lot)
}
