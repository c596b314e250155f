package mongostore

import (
	"time"

	"service-dispatch/internal/domain"
)

type announcementDoc struct {
	ID              string    `bson:"_id"`
	Pickup          string    `bson:"pickup"`
	Dropoff         string    `bson:"dropoff"`
	Reward          float64   `bson:"reward"`
	Status          string    `bson:"status"`
	ChosenCourierID string    `bson:"chosen_courier_id,omitempty"`
	CreatedAt       time.Time `bson:"created_at"`
}

func toAnnouncementDoc(a domain.Announcement) announcementDoc {
	return announcementDoc{
		ID:              a.ID,
		Pickup:          a.Pickup,
		Dropoff:         a.Dropoff,
		Reward:          a.Reward,
		Status:          string(a.Status),
		ChosenCourierID: a.ChosenCourierID,
		CreatedAt:       a.CreatedAt,
	}
}

func (d announcementDoc) domain() domain.Announcement {
	return domain.Announcement{
		ID:              d.ID,
		Pickup:          d.Pickup,
		Dropoff:         d.Dropoff,
		Reward:          d.Reward,
		Status:          domain.AnnouncementStatus(d.Status),
		ChosenCourierID: d.ChosenCourierID,
		CreatedAt:       d.CreatedAt.UTC(),
	}
}

type candidatureDoc struct {
	ID             string    `bson:"_id"`
	AnnouncementID string    `bson:"announcement_id"`
	CourierID      string    `bson:"courier_id"`
	CourierName    string    `bson:"courier_name"`
	ETA            int       `bson:"eta"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toCandidatureDoc(c domain.Candidature) candidatureDoc {
	return candidatureDoc{
		ID:             c.ID,
		AnnouncementID: c.AnnouncementID,
		CourierID:      c.CourierID,
		CourierName:    c.CourierName,
		ETA:            c.ETA,
		CreatedAt:      c.CreatedAt,
	}
}

func (d candidatureDoc) domain() domain.Candidature {
	return domain.Candidature{
		ID:             d.ID,
		AnnouncementID: d.AnnouncementID,
		CourierID:      d.CourierID,
		CourierName:    d.CourierName,
		ETA:            d.ETA,
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

type selectionDoc struct {
	ID             string    `bson:"_id"`
	AnnouncementID string    `bson:"announcement_id"`
	CourierID      string    `bson:"courier_id"`
	Status         string    `bson:"status"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toSelectionDoc(s domain.Selection) selectionDoc {
	return selectionDoc{
		ID:             s.ID,
		AnnouncementID: s.AnnouncementID,
		CourierID:      s.CourierID,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
	}
}

func (d selectionDoc) domain() domain.Selection {
	return domain.Selection{
		ID:             d.ID,
		AnnouncementID: d.AnnouncementID,
		CourierID:      d.CourierID,
		Status:         domain.SelectionStatus(d.Status),
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

type notificationDoc struct {
	ID             string    `bson:"_id"`
	CourierID      string    `bson:"courier_id"`
	Type           string    `bson:"type"`
	AnnouncementID string    `bson:"announcement_id"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toNotificationDoc(n domain.Notification) notificationDoc {
	return notificationDoc{
		ID:             n.ID,
		CourierID:      n.CourierID,
		Type:           string(n.Type),
		AnnouncementID: n.AnnouncementID,
		CreatedAt:      n.CreatedAt,
	}
}

func (d notificationDoc) domain() domain.Notification {
	return domain.Notification{
		ID:             d.ID,
		CourierID:      d.CourierID,
		Type:           domain.NotificationType(d.Type),
		AnnouncementID: d.AnnouncementID,
		CreatedAt:      d.CreatedAt.UTC(),
	}
}
