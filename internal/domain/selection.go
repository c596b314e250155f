package domain

import (
	"fmt"
	"strings"
	"time"

	"service-dispatch/internal/apperr"
)

// Selection records the single winning bid of an announcement.
type Selection struct {
	ID             string
	AnnouncementID string
	CourierID      string
	Status         SelectionStatus
	CreatedAt      time.Time
}

// NewSelection builds the selection of courierID for announcementID.
func NewSelection(announcementID, courierID string, at time.Time) (Selection, error) {
	if err := requireIDs(announcementID, courierID); err != nil {
		return Selection{}, err
	}
	return Selection{
		ID:             NewID(),
		AnnouncementID: strings.TrimSpace(announcementID),
		CourierID:      strings.TrimSpace(courierID),
		Status:         SelectionAssigned,
		CreatedAt:      at.UTC(),
	}, nil
}

func requireIDs(announcementID, courierID string) error {
	if strings.TrimSpace(announcementID) == "" {
		return fmt.Errorf("%w: announcement id is required", apperr.ErrInvalid)
	}
	if strings.TrimSpace(courierID) == "" {
		return fmt.Errorf("%w: courier id is required", apperr.ErrInvalid)
	}
	return nil
}
