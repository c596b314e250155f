package handlers

import (
	"fmt"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/matching"
)

// toJob validates the request. maxWindow bounds wait_seconds when positive.
func (r jobRequest) toJob(maxWindow time.Duration) (matching.Job, error) {
	if r.Reward == nil {
		return matching.Job{}, fmt.Errorf("%w: reward is required", apperr.ErrInvalid)
	}
	if r.WaitSeconds < 0 {
		return matching.Job{}, fmt.Errorf("%w: wait_seconds must be non-negative", apperr.ErrInvalid)
	}
	window := seconds(r.WaitSeconds)
	if maxWindow > 0 && window > maxWindow {
		return matching.Job{}, fmt.Errorf("%w: wait_seconds must not exceed %g", apperr.ErrInvalid, maxWindow.Seconds())
	}
	if err := domain.ValidateJob(r.Pickup, r.Dropoff, *r.Reward); err != nil {
		return matching.Job{}, err
	}
	return matching.Job{
		Pickup:  r.Pickup,
		Dropoff: r.Dropoff,
		Reward:  *r.Reward,
		Window:  window,
	}, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func announcementToDTO(a domain.Announcement) announcementDTO {
	return announcementDTO{
		ID:              a.ID,
		Pickup:          a.Pickup,
		Dropoff:         a.Dropoff,
		Reward:          a.Reward,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
		ChosenCourierID: a.ChosenCourierID,
	}
}

func announcementsToDTO(list []domain.Announcement) []announcementDTO {
	out := make([]announcementDTO, 0, len(list))
	for _, a := range list {
		out = append(out, announcementToDTO(a))
	}
	return out
}

func candidatureToDTO(c domain.Candidature) candidatureDTO {
	return candidatureDTO{
		ID:          c.ID,
		CourierID:   c.CourierID,
		CourierName: c.CourierName,
		ETA:         c.ETA,
		CreatedAt:   c.CreatedAt,
	}
}

func viewToDTO(v matching.AnnouncementView) announcementViewDTO {
	out := announcementViewDTO{
		announcementDTO: announcementToDTO(v.Announcement),
		Candidatures:    make([]candidatureDTO, 0, len(v.Candidatures)),
	}
	for _, c := range v.Candidatures {
		out.Candidatures = append(out.Candidatures, candidatureToDTO(c))
	}
	if v.Selection != nil {
		out.Selection = &selectionDTO{
			ID:        v.Selection.ID,
			CourierID: v.Selection.CourierID,
			Status:    string(v.Selection.Status),
			CreatedAt: v.Selection.CreatedAt,
		}
	}
	return out
}

func outcomeToDTO(o matching.Outcome) outcomeDTO {
	out := outcomeDTO{
		Announcement: announcementToDTO(o.Announcement),
		Result:       string(o.Result),
		Candidates:   o.Candidates,
		DurationMS:   o.Duration.Milliseconds(),
	}
	if o.Winner != nil {
		w := candidatureToDTO(*o.Winner)
		out.Winner = &w
	}
	return out
}

func notificationsToDTO(list []domain.Notification) []notificationDTO {
	out := make([]notificationDTO, 0, len(list))
	for _, n := range list {
		out = append(out, notificationDTO{
			ID:             n.ID,
			CourierID:      n.CourierID,
			Type:           string(n.Type),
			AnnouncementID: n.AnnouncementID,
			CreatedAt:      n.CreatedAt,
		})
	}
	return out
}
