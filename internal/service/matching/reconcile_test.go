package matching

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/store/memstore"
)

func TestEngine_Reconcile_RepairsProjectionAndNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := memstore.New()
	m := metrics.New(nil)
	e := newTestEngine(st, m)

	a, err := e.Publish(ctx, "A", "Z", 1)
	require.NoError(t, err)
	untouched, err := e.Publish(ctx, "B", "Y", 1)
	require.NoError(t, err)

	// a selection whose follow-up writes never happened
	sel, err := domain.NewSelection(a.ID, "c1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, st.InsertSelection(ctx, sel))

	n, err := e.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Reconciled))

	got, err := st.GetAnnouncement(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AnnouncementAssigned, got.Status)
	require.Equal(t, "c1", got.ChosenCourierID)

	notes, err := st.ListNotifications(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, a.ID, notes[0].AnnouncementID)

	other, err := st.GetAnnouncement(ctx, untouched.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AnnouncementOpen, other.Status)

	n, err = e.Reconcile(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestEngine_Reconcile_WritesMissingNotificationOfAssigned(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := memstore.New()
	e := newTestEngine(st, nil)

	a, err := e.Publish(ctx, "A", "Z", 1)
	require.NoError(t, err)
	sel, err := domain.NewSelection(a.ID, "c1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, st.InsertSelection(ctx, sel))
	changed, err := st.MarkAnnouncementAssigned(ctx, a.ID, "c1")
	require.NoError(t, err)
	require.True(t, changed)

	n, err := e.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	notes, err := st.ListNotifications(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
}

func TestEngine_Reconcile_LeavesFreshSelections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := memstore.New()
	e := newTestEngine(st, nil)

	a, err := e.Publish(ctx, "A", "Z", 1)
	require.NoError(t, err)
	sel, err := domain.NewSelection(a.ID, "c1", time.Now())
	require.NoError(t, err)
	require.NoError(t, st.InsertSelection(ctx, sel))

	n, err := e.Reconcile(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	got, err := st.GetAnnouncement(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AnnouncementOpen, got.Status)
}
