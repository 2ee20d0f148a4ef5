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

type ParkingSpaceHandler struct {
	registryService *service.RegistryService
}

func NewParkingSpaceHandler(rs *service.RegistryService) *ParkingSpaceHandler {
	return &ParkingSpaceHandler{registryService: rs}
}

// POST /parking-lots/:id/spaces
func (h *ParkingSpaceHandler) CreateParkingSpace(c *gin.Context) {
	lotIDStr := c.Param("id")
	lotID, err := strconv.Atoi(lotIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot ID"})
		return
	}

	var dto domain.ParkingSpaceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	space, err := h.registryService.CreateSpace(c.Request.Context(), lotID, dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "parking lot not found"})
			return
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Printf("ParkingSpaceHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create parking space"})
		return
	}
	c.JSON(http.StatusCreated, space)
}

// GET /parking-lots/:id/spaces
func (h *ParkingSpaceHandler) GetSpacesByLot(c *gin.Context) {
	lotIDStr := c.Param("id")
	lotID, err := strconv.Atoi(lotIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lot ID"})
		return
	}

	spaces, err := h.registryService.GetSpacesByLotID(c.Request.Context(), lotID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list parking spaces"})
		return
	}
	c.JSON(http.StatusOK, spaces)
}

// GET /parking-spaces/:id
func (h *ParkingSpaceHandler) GetSpaceByID(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid space ID"})
		return
	}

	space, err := h.registryService.GetSpaceByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "parking space not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch parking space"})
		return
	}
	c.JSON(http.StatusOK, space)
}

// DELETE /parking-spaces/:id
func (h *ParkingSpaceHandler) DeleteSpace(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid space ID"})
		return
	}

	if err := h.registryService.DeleteSpace(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "parking space not found"})
			return
		}
		if errors.Is(err, service.ErrSpaceOccupied) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "space_occupied"})
			return
		}
		log.Printf("ParkingSpaceHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete parking space"})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
