package handlers

import (
	"context"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/matching"
)

//go:generate mockgen -source=contracts.go -destination=handlers_mocks_test.go -package=handlers_test

// Dispatcher is the matching engine as seen by the HTTP layer.
type Dispatcher interface {
	RunCycle(ctx context.Context, job matching.Job) (matching.Outcome, error)
	RunBatch(ctx context.Context, jobs []matching.Job, interval time.Duration) ([]matching.Outcome, error)
	Assign(ctx context.Context, announcementID, courierID string) (matching.Result, error)
	Announcement(ctx context.Context, id string) (matching.AnnouncementView, error)
	Announcements(ctx context.Context, status domain.AnnouncementStatus, limit int) ([]domain.Announcement, error)
	Notifications(ctx context.Context, courierID string) ([]domain.Notification, error)
}

// Spawner runs detached work, such as a batch accepted with 202.
type Spawner interface {
	Go(fn func(ctx context.Context))
}
