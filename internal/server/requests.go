package server

// Request types for WebSocket commands with validation tags.
// These types define the expected input for each command and use
// go-playground/validator struct tags for automatic validation.

// SubmitRequest is the request body for capture/submit.
type SubmitRequest struct {
	ConsultationID string `json:"consultation_id" validate:"required,uuid"`
	Notes          string `json:"notes" validate:"omitempty,max=5000"`
}

// AudioUpdateRequest is the request body for audio/update.
type AudioUpdateRequest struct {
	Input string `json:"input" validate:"omitempty,max=256"`
}

// EventsRequest is the request body for events/get.
type EventsRequest struct {
	Limit  int    `json:"limit" validate:"omitempty,gte=1,lte=500"`
	Offset int    `json:"offset" validate:"omitempty,gte=0"`
	Filter string `json:"filter" validate:"omitempty,oneof=capture upload"`
}
