package kafka

import (
	"fmt"
	"math"
	"strings"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/matching"
)

// JobDTO is the wire form of a job message.
type JobDTO struct {
	Pickup      string  `json:"pickup"`
	Dropoff     string  `json:"dropoff"`
	Reward      float64 `json:"reward"`
	WaitSeconds float64 `json:"wait_seconds,omitempty"`
}

// ToDomain converts JobDTO to matching.Job. Invalid messages are permanent errors.
func ToDomain(dto JobDTO) (matching.Job, error) {
	job := matching.Job{
		Pickup:  strings.TrimSpace(dto.Pickup),
		Dropoff: strings.TrimSpace(dto.Dropoff),
		Reward:  dto.Reward,
	}
	if err := domain.ValidateJob(job.Pickup, job.Dropoff, job.Reward); err != nil {
		return matching.Job{}, Permanent(err)
	}
	if math.IsNaN(dto.WaitSeconds) || dto.WaitSeconds < 0 {
		return matching.Job{}, Permanent(fmt.Errorf("%w: wait_seconds must be non-negative", apperr.ErrInvalid))
	}
	job.Window = time.Duration(dto.WaitSeconds * float64(time.Second))
	return job, nil
}
