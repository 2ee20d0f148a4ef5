package handler

import (
	"errors"
	"log"
	"net/http"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/repository"
	"plaza_backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingHandler struct {
	occupancyService *service.OccupancyService
}

func NewParkingHandler(os *service.OccupancyService) *ParkingHandler {
	return &ParkingHandler{occupancyService: os}
}

// POST /parking/entry
func (h *ParkingHandler) VehicleEntry(c *gin.Context) {
	var dto domain.VehicleEntryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.occupancyService.Enter(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "parking space not found"})
		case errors.Is(err, service.ErrSpaceOccupied):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "space_occupied"})
		case errors.Is(err, service.ErrVehicleAlreadyParked):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "vehicle_already_parked"})
		case errors.Is(err, service.ErrLotNotOperating):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "lot_not_operating"})
		default:
			log.Printf("ParkingHandler: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register vehicle entry"})
		}
		return
	}
	c.JSON(http.StatusCreated, session)
}

// POST /parking/exit
func (h *ParkingHandler) VehicleExit(c *gin.Context) {
	var dto domain.VehicleExitDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.occupancyService.Exit(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoOpenSession):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": "no_open_session"})
		default:
			log.Printf("ParkingHandler: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register vehicle exit"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /parking/occupancy
func (h *ParkingHandler) CurrentOccupancy(c *gin.Context) {
	var filter domain.OccupancyFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.occupancyService.OccupancyView(c.Request.Context(), filter.LotID)
	if err != nil {
		log.Printf("ParkingHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load occupancy"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// GET /parking/sessions/open
func (h *ParkingHandler) OpenSessions(c *gin.Context) {
	var filter domain.OccupancyFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessions, err := h.occupancyService.CurrentOccupancy(c.Request.Context(), filter.LotID)
	if err != nil {
		log.Printf("ParkingHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list open sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}
