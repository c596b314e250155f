package handlers

import "time"

type jobRequest struct {
	Pickup      string   `json:"pickup"`
	Dropoff     string   `json:"dropoff"`
	Reward      *float64 `json:"reward"`
	WaitSeconds float64  `json:"wait_seconds,omitempty"`
}

type batchRequest struct {
	Items           []jobRequest `json:"items"`
	IntervalSeconds *float64     `json:"interval_seconds,omitempty"`
}

type batchAcceptedResponse struct {
	Accepted int `json:"accepted"`
}

type assignRequest struct {
	CourierID string `json:"courier_id"`
}

type assignResponse struct {
	AnnouncementID string `json:"announcement_id"`
	CourierID      string `json:"courier_id"`
	Result         string `json:"result"`
}

type announcementDTO struct {
	ID              string    `json:"id"`
	Pickup          string    `json:"pickup"`
	Dropoff         string    `json:"dropoff"`
	Reward          float64   `json:"reward"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	ChosenCourierID string    `json:"chosen_courier_id,omitempty"`
}

type candidatureDTO struct {
	ID          string    `json:"id"`
	CourierID   string    `json:"courier_id"`
	CourierName string    `json:"courier_name"`
	ETA         int       `json:"eta"`
	CreatedAt   time.Time `json:"created_at"`
}

type selectionDTO struct {
	ID        string    `json:"id"`
	CourierID string    `json:"courier_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type announcementViewDTO struct {
	announcementDTO
	Selection    *selectionDTO    `json:"selection,omitempty"`
	Candidatures []candidatureDTO `json:"candidatures"`
}

type outcomeDTO struct {
	Announcement announcementDTO `json:"announcement"`
	Result       string          `json:"result"`
	Winner       *candidatureDTO `json:"winner,omitempty"`
	Candidates   int             `json:"candidates"`
	DurationMS   int64           `json:"duration_ms"`
}

type notificationDTO struct {
	ID             string    `json:"id"`
	CourierID      string    `json:"courier_id"`
	Type           string    `json:"type"`
	AnnouncementID string    `json:"announcement_id"`
	CreatedAt      time.Time `json:"created_at"`
}
