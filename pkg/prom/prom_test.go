package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_Idempotent(t *testing.T) {
	require.NoError(t, Create("test-host", "test", "seva_test"))
	require.NoError(t, Create("test-host", "test", "seva_test"))
	assert.True(t, MetricSystemEnabled)

	AddPaymentRecorded("UPI", 400)
	AddPaymentRecorded("UPI", 600)

	c := metricCounterVec[key(SystemPayments, MetricPaymentsAmount)]
	require.NotNil(t, c)
	assert.Equal(t, float64(1000), testutil.ToFloat64(c.WithLabelValues("UPI")))

	SetSlotsBooked("seva-1", 3)
	g := metricGaugeVec[key(SystemSlots, MetricSlotsBooked)]
	assert.Equal(t, float64(3), testutil.ToFloat64(g.WithLabelValues("seva-1")))
}
