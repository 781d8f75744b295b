package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// TrackingHandler exposes SLA tracking state, queryable by ticket.
type TrackingHandler struct {
	trackings repository.TrackingRepository
}

// NewTrackingHandler returns a new handler instance.
func NewTrackingHandler(trackings repository.TrackingRepository) *TrackingHandler {
	return &TrackingHandler{trackings: trackings}
}

type trackingResponse struct {
	TicketID              string           `json:"ticket_id"`
	ResponseDeadline      time.Time        `json:"response_deadline"`
	ResolutionDeadline    time.Time        `json:"resolution_deadline"`
	RespondedAt           *time.Time       `json:"responded_at,omitempty"`
	PausedAt              *time.Time       `json:"paused_at,omitempty"`
	PausedMinutes         int              `json:"paused_minutes"`
	WarningResponseSent   bool             `json:"warning_response_sent"`
	WarningResolutionSent bool             `json:"warning_resolution_sent"`
	BreachResponse        bool             `json:"breach_response"`
	BreachResolution      bool             `json:"breach_resolution"`
	ResponseState         domain.LaneState `json:"response_state"`
	ResolutionState       domain.LaneState `json:"resolution_state"`
	EscalatedAt           *time.Time       `json:"escalated_at,omitempty"`
}

// GetByTicket returns the tracking attached to a ticket.
func (h *TrackingHandler) GetByTicket(c *fiber.Ctx) error {
	tracking, err := h.trackings.GetByTicket(c.UserContext(), c.Params("ticketID"))
	if err != nil {
		return err
	}
	return c.JSON(trackingResponse{
		TicketID:              tracking.TicketID,
		ResponseDeadline:      tracking.ResponseDeadline,
		ResolutionDeadline:    tracking.ResolutionDeadline,
		RespondedAt:           tracking.RespondedAt,
		PausedAt:              tracking.PausedAt,
		PausedMinutes:         tracking.PausedMinutes,
		WarningResponseSent:   tracking.WarningResponseSent,
		WarningResolutionSent: tracking.WarningResolutionSent,
		BreachResponse:        tracking.BreachResponse,
		BreachResolution:      tracking.BreachResolution,
		ResponseState:         tracking.ResponseState,
		ResolutionState:       tracking.ResolutionState,
		EscalatedAt:           tracking.EscalatedAt,
	})
}
