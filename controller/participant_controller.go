// controller/participant_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	meet_errors "github.com/trackmeet/api/errors"
	"github.com/trackmeet/api/model"
	"github.com/trackmeet/api/service"
	"github.com/trackmeet/api/util"
	helper_util "github.com/trackmeet/api/util/helper"
)

const broadcastWarning = "change saved but live subscribers were not notified"

type ParticipantController struct {
	participantService service.IParticipantService
}

func NewParticipantController(participantService service.IParticipantService) *ParticipantController {
	return &ParticipantController{
		participantService: participantService,
	}
}

// RegisterRoutes registers the API routes
func (pc *ParticipantController) RegisterRoutes(r *gin.RouterGroup) {
	participants := r.Group("/participants")
	{
		participants.POST("", pc.CreateParticipant)
		participants.PUT("/:id", pc.UpdateParticipant)
		participants.DELETE("/:id", pc.DeleteParticipant)
		participants.GET("/:id", pc.GetParticipant)
		participants.GET("", pc.ListParticipants)
		participants.GET("/lookup", pc.LookupParticipant)
	}
}

// CreateParticipant endpoint
func (pc *ParticipantController) CreateParticipant(c *gin.Context) {
	var input model.NewParticipant
	if err := c.ShouldBindJSON(&input); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid participant data", meet_errors.ErrInvalidParticipantData)
		return
	}
	actorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", meet_errors.ErrUnauthorized)
		return
	}

	created, err := pc.participantService.CreateParticipant(c, input, actorID)
	if err != nil {
		switch {
		case errors.Is(err, meet_errors.ErrBroadcastFailure):
			// The record is committed; report success with a warning.
			c.JSON(http.StatusCreated, gin.H{"data": created, "warning": broadcastWarning})
		case errors.Is(err, meet_errors.ErrInvalidParticipantData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid participant data", err)
		case errors.Is(err, meet_errors.ErrParticipantConflict):
			util.RespondWithError(c, http.StatusConflict, "Participant already exists", err)
		case errors.Is(err, meet_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create participant", meet_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// UpdateParticipant endpoint
func (pc *ParticipantController) UpdateParticipant(c *gin.Context) {
	participantID := c.Param("id")
	var patch model.ParticipantPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid participant data", err)
		return
	}
	actorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updated, err := pc.participantService.UpdateParticipant(c, participantID, patch, actorID)
	if err != nil {
		switch {
		case errors.Is(err, meet_errors.ErrBroadcastFailure):
			c.JSON(http.StatusOK, gin.H{"data": updated, "warning": broadcastWarning})
		case errors.Is(err, meet_errors.ErrParticipantNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Participant not found", err)
		case errors.Is(err, meet_errors.ErrInvalidParticipantData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid participant data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update participant", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

// DeleteParticipant endpoint
func (pc *ParticipantController) DeleteParticipant(c *gin.Context) {
	participantID := c.Param("id")
	actorID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	deleted, err := pc.participantService.DeleteParticipant(c, participantID, actorID)
	if err != nil {
		if errors.Is(err, meet_errors.ErrBroadcastFailure) {
			c.JSON(http.StatusOK, gin.H{"deleted": true, "warning": broadcastWarning})
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete participant", err)
		return
	}
	if !deleted {
		util.RespondWithError(c, http.StatusNotFound, "Participant not found", meet_errors.ErrParticipantNotFound)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetParticipant endpoint
func (pc *ParticipantController) GetParticipant(c *gin.Context) {
	participantID := c.Param("id")

	participant, err := pc.participantService.GetParticipant(c, participantID)
	if err != nil {
		if errors.Is(err, meet_errors.ErrParticipantNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Participant not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to get participant", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": participant})
}

// ListParticipants endpoint
func (pc *ParticipantController) ListParticipants(c *gin.Context) {
	page, limit, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	result, err := pc.participantService.ListParticipants(c, page, limit)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list participants", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// LookupParticipant endpoint resolves a participant by email.
func (pc *ParticipantController) LookupParticipant(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Missing email parameter", meet_errors.ErrInvalidParticipantData)
		return
	}

	participant, err := pc.participantService.GetParticipantByEmail(c, email)
	if err != nil {
		if errors.Is(err, meet_errors.ErrParticipantNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Participant not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to look up participant", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": participant})
}
