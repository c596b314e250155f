package domain

import (
	"strings"
	"time"
)

// Notification is a one-way message addressed to a single courier.
type Notification struct {
	ID             string
	CourierID      string
	Type           NotificationType
	AnnouncementID string
	CreatedAt      time.Time
}

// NewAssignmentNotification tells courierID that it won announcementID.
func NewAssignmentNotification(courierID, announcementID string, at time.Time) (Notification, error) {
	if err := requireIDs(announcementID, courierID); err != nil {
		return Notification{}, err
	}
	return Notification{
		ID:             NewID(),
		CourierID:      strings.TrimSpace(courierID),
		Type:           NotificationAssignment,
		AnnouncementID: strings.TrimSpace(announcementID),
		CreatedAt:      at.UTC(),
	}, nil
}
