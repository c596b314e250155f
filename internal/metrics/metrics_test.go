package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersEveryCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AnnouncementsPublished.Inc()
	m.Assignments.WithLabelValues("assigned").Inc()
	m.RelayRetries.Add(2)

	require.Equal(t, 1.0, testutil.ToFloat64(m.AnnouncementsPublished))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Assignments.WithLabelValues("assigned")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.RelayRetries))

	count, err := testutil.GatherAndCount(reg, "dispatch_announcements_published_total", "dispatch_relay_retries_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestNew_NilRegistererSkipsRegistration(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}

func TestNew_DoubleRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
}
