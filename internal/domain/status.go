package domain

type (
	// AnnouncementStatus represents the lifecycle state of an announcement.
	AnnouncementStatus string
	// SelectionStatus represents the state of a selection record.
	SelectionStatus string
	// NotificationType represents the kind of a courier notification.
	NotificationType string
)

// List of possible announcement statuses
const (
	AnnouncementOpen     AnnouncementStatus = "open"
	AnnouncementAssigned AnnouncementStatus = "assigned"
)

// SelectionAssigned is the only selection status.
const SelectionAssigned SelectionStatus = "assigned"

// List of notification types
const (
	NotificationAssignment NotificationType = "assignment"
)

var allowedAnnouncementStatuses = [...]AnnouncementStatus{
	AnnouncementOpen, AnnouncementAssigned,
}

var allowedNotificationTypes = [...]NotificationType{
	NotificationAssignment,
}

// Valid checks if the AnnouncementStatus is valid
func (s AnnouncementStatus) Valid() bool {
	for _, v := range allowedAnnouncementStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Valid checks if the NotificationType is valid
func (t NotificationType) Valid() bool {
	for _, v := range allowedNotificationTypes {
		if t == v {
			return true
		}
	}
	return false
}
