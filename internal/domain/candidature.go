package domain

import (
	"fmt"
	"strings"
	"time"

	"service-dispatch/internal/apperr"
)

// Candidature is a courier bid on an announcement. ETA is an opaque ranking
// value, lower is better.
type Candidature struct {
	ID             string
	AnnouncementID string
	CourierID      string
	CourierName    string
	ETA            int
	CreatedAt      time.Time
}

// NewCandidature validates and builds a bid.
func NewCandidature(announcementID, courierID, courierName string, eta int, at time.Time) (Candidature, error) {
	announcementID = strings.TrimSpace(announcementID)
	courierID = strings.TrimSpace(courierID)
	if announcementID == "" {
		return Candidature{}, fmt.Errorf("%w: announcement id is required", apperr.ErrInvalid)
	}
	if courierID == "" {
		return Candidature{}, fmt.Errorf("%w: courier id is required", apperr.ErrInvalid)
	}
	if eta <= 0 {
		return Candidature{}, fmt.Errorf("%w: eta must be positive, got %d", apperr.ErrInvalid, eta)
	}
	return Candidature{
		ID:             NewID(),
		AnnouncementID: announcementID,
		CourierID:      courierID,
		CourierName:    strings.TrimSpace(courierName),
		ETA:            eta,
		CreatedAt:      at.UTC(),
	}, nil
}

// Less orders candidatures by ETA, then creation time, then id.
func (c Candidature) Less(other Candidature) bool {
	if c.ETA != other.ETA {
		return c.ETA < other.ETA
	}
	if !c.CreatedAt.Equal(other.CreatedAt) {
		return c.CreatedAt.Before(other.CreatedAt)
	}
	return c.ID < other.ID
}
