package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"service-dispatch/internal/apperr"
)

// Announcement is a delivery job published by the manager.
// Status and ChosenCourierID are the only fields that change after creation.
type Announcement struct {
	ID              string
	Pickup          string
	Dropoff         string
	Reward          float64
	Status          AnnouncementStatus
	CreatedAt       time.Time
	ChosenCourierID string
}

// IsOpen reports whether the announcement still accepts bids.
func (a Announcement) IsOpen() bool { return a.Status == AnnouncementOpen }

// NewAnnouncement validates the job and returns an open announcement.
func NewAnnouncement(pickup, dropoff string, reward float64, at time.Time) (Announcement, error) {
	if err := ValidateJob(pickup, dropoff, reward); err != nil {
		return Announcement{}, err
	}
	return Announcement{
		ID:        NewID(),
		Pickup:    strings.TrimSpace(pickup),
		Dropoff:   strings.TrimSpace(dropoff),
		Reward:    reward,
		Status:    AnnouncementOpen,
		CreatedAt: at.UTC(),
	}, nil
}

// ValidateJob checks what NewAnnouncement checks, without building one.
func ValidateJob(pickup, dropoff string, reward float64) error {
	if strings.TrimSpace(pickup) == "" {
		return fmt.Errorf("%w: pickup is required", apperr.ErrInvalid)
	}
	if strings.TrimSpace(dropoff) == "" {
		return fmt.Errorf("%w: dropoff is required", apperr.ErrInvalid)
	}
	return ValidateReward(reward)
}

// ValidateReward rejects negative and non-finite rewards.
func ValidateReward(reward float64) error {
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return fmt.Errorf("%w: reward must be a finite number", apperr.ErrInvalid)
	}
	if reward < 0 {
		return fmt.Errorf("%w: reward must be non-negative", apperr.ErrInvalid)
	}
	return nil
}
