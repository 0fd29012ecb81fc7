package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/cruise-planner/internal/domain/trip"
)

// CreateTrip registers a new trip for the calling device.
func (h *Handler) CreateTrip(c *gin.Context) {
	var req trip.CreateTripRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.trips.CreateTrip(c.Request.Context(), mustOwner(c), req)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// ListTrips returns the device's trips, newest first.
func (h *Handler) ListTrips(c *gin.Context) {
	trips, err := h.trips.ListTrips(c.Request.Context(), mustOwner(c))
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

func (h *Handler) GetTrip(c *gin.Context) {
	t, err := h.trips.GetTrip(c.Request.Context(), c.Param("tripId"), mustOwner(c))
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) UpdateTrip(c *gin.Context) {
	var req trip.UpdateTripRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.trips.UpdateTrip(c.Request.Context(), c.Param("tripId"), mustOwner(c), req)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTrip removes the trip and its stored plans.
func (h *Handler) DeleteTrip(c *gin.Context) {
	if err := h.trips.DeleteTrip(c.Request.Context(), c.Param("tripId"), mustOwner(c)); err != nil {
		abortWithAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddPort(c *gin.Context) {
	var req trip.PortRequest
	if !bindJSON(c, &req) {
		return
	}
	port, err := h.trips.AddPort(c.Request.Context(), c.Param("tripId"), mustOwner(c), req)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, port)
}

func (h *Handler) UpdatePort(c *gin.Context) {
	var req trip.UpdatePortRequest
	if !bindJSON(c, &req) {
		return
	}
	port, err := h.trips.UpdatePort(c.Request.Context(), c.Param("tripId"), c.Param("portId"), mustOwner(c), req)
	if err != nil {
		abortWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, port)
}

// RemovePort deletes a port and its plans. Removing an absent port succeeds.
func (h *Handler) RemovePort(c *gin.Context) {
	if err := h.trips.RemovePort(c.Request.Context(), c.Param("tripId"), c.Param("portId"), mustOwner(c)); err != nil {
		abortWithAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
