package courier

import (
	"fmt"
	"math"
	"strings"

	"service-dispatch/internal/apperr"
)

// DefaultAcceptRate is the acceptance probability of a courier without one.
const DefaultAcceptRate = 0.9

// Profile identifies a courier and its appetite for jobs.
type Profile struct {
	ID         string  `koanf:"id"`
	Name       string  `koanf:"name"`
	AcceptRate float64 `koanf:"accept_rate"`
}

// Validate checks the profile.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: courier id is required", apperr.ErrInvalid)
	}
	if math.IsNaN(p.AcceptRate) || p.AcceptRate < 0 || p.AcceptRate > 1 {
		return fmt.Errorf("%w: accept rate must be within [0,1], got %v", apperr.ErrInvalid, p.AcceptRate)
	}
	return nil
}

// DisplayName returns Name, or the id when the courier has no name.
func (p Profile) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return p.ID
}
