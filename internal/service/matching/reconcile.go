package matching

import (
	"context"
	"fmt"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/store"
)

// reconcileScanLimit bounds how many recently assigned announcements are
// checked for a missing notification on each pass.
const reconcileScanLimit = 200

// Reconcile repairs the follow-up writes of Assign: open announcements that
// already have a selection are marked assigned, and winners that were never
// notified get their notification. Selections younger than two operation
// timeouts are left alone, their Assign call may still be running. It
// returns the number of repaired announcements.
func (e *Engine) Reconcile(ctx context.Context) (int, error) {
	open, err := e.store.ListAnnouncements(ctx, store.AnnouncementFilter{Status: domain.AnnouncementOpen})
	if err != nil {
		return 0, fmt.Errorf("list open announcements: %w", err)
	}
	assigned, err := e.store.ListAnnouncements(ctx, store.AnnouncementFilter{
		Status: domain.AnnouncementAssigned,
		Limit:  reconcileScanLimit,
	})
	if err != nil {
		return 0, fmt.Errorf("list assigned announcements: %w", err)
	}

	repaired := 0
	for _, a := range append(open, assigned...) {
		fixed, err := e.reconcileOne(ctx, a)
		if err != nil {
			e.metrics.Reconciled.Add(float64(repaired))
			return repaired, err
		}
		if fixed {
			repaired++
		}
	}
	e.metrics.Reconciled.Add(float64(repaired))
	return repaired, nil
}

func (e *Engine) reconcileOne(ctx context.Context, a domain.Announcement) (bool, error) {
	sel, err := e.store.GetSelection(ctx, a.ID)
	if err != nil {
		return false, fmt.Errorf("get selection of %s: %w", a.ID, err)
	}
	if sel == nil || e.now().Sub(sel.CreatedAt) < 2*e.cfg.OperationTimeout {
		return false, nil
	}

	marked := false
	if a.IsOpen() {
		marked, err = e.store.MarkAnnouncementAssigned(ctx, a.ID, sel.CourierID)
		if err != nil {
			return false, fmt.Errorf("mark %s assigned: %w", a.ID, err)
		}
	}
	notified, err := e.ensureNotified(ctx, a.ID, sel.CourierID)
	if err != nil {
		return marked, err
	}

	if marked || notified {
		e.logger.Info("announcement reconciled",
			logx.String("event", "announcement_reconciled"),
			logx.String("announcement_id", a.ID),
			logx.String("courier_id", sel.CourierID),
			logx.Bool("marked", marked),
			logx.Bool("notified", notified),
		)
	}
	return marked || notified, nil
}

// ensureNotified writes the assignment notification unless courierID
// already has one for announcementID.
func (e *Engine) ensureNotified(ctx context.Context, announcementID, courierID string) (bool, error) {
	notes, err := e.store.ListNotifications(ctx, courierID)
	if err != nil {
		return false, fmt.Errorf("list notifications of %s: %w", courierID, err)
	}
	for _, n := range notes {
		if n.AnnouncementID == announcementID && n.Type == domain.NotificationAssignment {
			return false, nil
		}
	}

	n, err := domain.NewAssignmentNotification(courierID, announcementID, e.now())
	if err != nil {
		return false, err
	}
	if err := e.store.InsertNotification(ctx, n); err != nil {
		return false, fmt.Errorf("insert notification for %s: %w", announcementID, err)
	}
	return true, nil
}
