package dto

import "github.com/atempo-hq/workcal-api/internal/models"

// CreateEventRequest describes the event creation payload.
type CreateEventRequest struct {
	Date        string           `json:"date" validate:"required"`
	Type        models.EventType `json:"event_type" validate:"required"`
	Description *string          `json:"description,omitempty"`
}
