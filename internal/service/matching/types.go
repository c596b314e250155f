package matching

import (
	"time"

	"service-dispatch/internal/domain"
)

// Result is the outcome of an assignment attempt or a whole cycle.
type Result string

// List of possible results
const (
	ResultAssigned        Result = "assigned"
	ResultAlreadyAssigned Result = "already_assigned"
	ResultNoCandidates    Result = "no_candidates"
)

// Job describes one delivery to publish.
type Job struct {
	Pickup  string
	Dropoff string
	Reward  float64
	// Window overrides the engine's bidding window when positive.
	Window time.Duration
	// Key makes the cycle idempotent: a job with the same key maps to the
	// same announcement, and running it again resumes that announcement.
	Key string
}

// Outcome reports a finished cycle.
type Outcome struct {
	Announcement domain.Announcement
	Result       Result
	Winner       *domain.Candidature
	Candidates   int
	Duration     time.Duration
}

// AnnouncementView is an announcement with its selection and ranked bids.
type AnnouncementView struct {
	Announcement domain.Announcement
	Selection    *domain.Selection
	Candidatures []domain.Candidature
}
