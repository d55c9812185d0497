package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/app/services"
	"github.com/yigit/hostelhub/internal/middleware"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

// HostelController handles hostels and their rooms
type HostelController struct {
	hostelService *services.HostelService
	authz         Authorizer
}

// NewHostelController creates a new HostelController
func NewHostelController(hostelService *services.HostelService, authz Authorizer) *HostelController {
	return &HostelController{
		hostelService: hostelService,
		authz:         authz,
	}
}

// CreateHostel registers a hostel
// @Summary Create a hostel
// @Description Registers a new active hostel. Owners always become the owner of the hostel they create.
// @Tags hostels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateHostelRequest true "Hostel information"
// @Success 201 {object} dto.APIResponse{data=models.Hostel} "Hostel created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /hostels [post]
func (c *HostelController) CreateHostel(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}

	var req dto.CreateHostelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondValidationError(ctx, err)
		return
	}
	if caller.Role == models.RoleOwner {
		req.OwnerID = &caller.UserID
	}

	hostel, err := c.hostelService.CreateHostel(ctx.Request.Context(), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, hostel, "Hostel created")
}

// ListHostels lists the hostels visible to the caller
// @Summary List hostels
// @Description Admins see every hostel; other staff see the hostels they own or work in
// @Tags hostels
// @Produce json
// @Security BearerAuth
// @Param activeOnly query bool false "Only active hostels"
// @Success 200 {object} dto.APIResponse{data=[]models.Hostel} "Hostels retrieved"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /hostels [get]
func (c *HostelController) ListHostels(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}

	hostels, err := c.hostelService.ListHostels(ctx.Request.Context(), ctx.Query("activeOnly") == "true")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	visible := make([]*models.Hostel, 0, len(hostels))
	for _, h := range hostels {
		err := c.authz.CanAccessHostel(ctx.Request.Context(), caller, h.ID)
		switch {
		case err == nil:
			visible = append(visible, h)
		case errors.Is(err, apperrors.ErrPermissionDenied):
		default:
			middleware.HandleAPIError(ctx, err)
			return
		}
	}
	respond(ctx, http.StatusOK, visible, "")
}

// SetHostelStatus activates or deactivates a hostel
// @Summary Activate or deactivate a hostel
// @Description Inactive hostels take no admissions and are skipped by billing and subscription runs
// @Tags hostels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Hostel ID" Format(int64) minimum(1)
// @Param request body dto.UpdateHostelStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=models.Hostel} "Hostel updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Hostel not found"
// @Router /hostels/{id}/status [patch]
func (c *HostelController) SetHostelStatus(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	hostelID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateHostelStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondValidationError(ctx, err)
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessHostel(rc, caller, hostelID) }) {
		return
	}

	hostel, err := c.hostelService.SetHostelStatus(ctx.Request.Context(), hostelID, *req.IsActive)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, hostel, "Hostel status updated")
}

// CreateRoom adds a room to a hostel
// @Summary Create a room
// @Description Adds an empty room; the room number must be unique within the hostel
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Hostel ID" Format(int64) minimum(1)
// @Param request body dto.CreateRoomRequest true "Room information"
// @Success 201 {object} dto.APIResponse{data=dto.RoomView} "Room created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Hostel not found"
// @Failure 409 {object} dto.ErrorResponse "Room number already exists"
// @Router /hostels/{id}/rooms [post]
func (c *HostelController) CreateRoom(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	hostelID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req dto.CreateRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondValidationError(ctx, err)
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessHostel(rc, caller, hostelID) }) {
		return
	}

	view, err := c.hostelService.CreateRoom(ctx.Request.Context(), hostelID, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, view, "Room created")
}

// ListRooms lists a hostel's rooms with their availability
// @Summary List rooms of a hostel
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Hostel ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]dto.RoomView} "Rooms retrieved"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Hostel not found"
// @Router /hostels/{id}/rooms [get]
func (c *HostelController) ListRooms(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	hostelID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessHostel(rc, caller, hostelID) }) {
		return
	}

	views, err := c.hostelService.ListRoomViews(ctx.Request.Context(), hostelID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, views, "")
}

// GetRoom returns the occupancy view of one room
// @Summary Get a room
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.RoomView} "Room retrieved"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Router /rooms/{id} [get]
func (c *HostelController) GetRoom(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	roomID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessRoom(rc, caller, roomID) }) {
		return
	}

	view, err := c.hostelService.GetRoomView(ctx.Request.Context(), roomID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, view, "")
}

// ResizeRoom changes the bed capacity of a room
// @Summary Resize a room
// @Description Fails with OCC_001 when the new capacity is below the beds currently occupied
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID" Format(int64) minimum(1)
// @Param request body dto.ResizeRoomRequest true "New capacity"
// @Success 200 {object} dto.APIResponse{data=dto.RoomView} "Room resized"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Failure 409 {object} dto.ErrorResponse "Capacity below occupancy"
// @Router /rooms/{id}/beds [patch]
func (c *HostelController) ResizeRoom(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	roomID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req dto.ResizeRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondValidationError(ctx, err)
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessRoom(rc, caller, roomID) }) {
		return
	}

	view, err := c.hostelService.ResizeRoom(ctx.Request.Context(), roomID, req.TotalBeds)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, view, "Room resized")
}

// ReconcileRoom recounts a room's occupied beds from its active students
// @Summary Reconcile room occupancy
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.RoomView} "Room reconciled"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Room not found"
// @Router /rooms/{id}/reconcile [post]
func (c *HostelController) ReconcileRoom(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	roomID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessRoom(rc, caller, roomID) }) {
		return
	}

	view, err := c.hostelService.ReconcileRoom(ctx.Request.Context(), roomID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, view, "Room reconciled")
}
