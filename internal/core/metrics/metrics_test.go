package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-netssl/pkg/types"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ContextInitialized(types.RoleServer)
	m.ContextFailed(types.RoleClient)
	m.Verification(types.RoleClient, true)
	m.Verification(types.RoleClient, false)
	m.Handshake(types.RoleServer, nil)
	m.Handshake(types.RoleServer, errors.New("boom"))
	m.Accepted()
	m.AcceptFailed("timeout")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContextsInitialized.WithLabelValues("server")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContextInitFailures.WithLabelValues("client")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VerificationErrors.WithLabelValues("client")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerificationOverride.WithLabelValues("client")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Handshakes.WithLabelValues("server", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Handshakes.WithLabelValues("server", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AcceptedConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AcceptErrors.WithLabelValues("timeout")))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ContextInitialized(types.RoleServer)
		m.Verification(types.RoleServer, true)
		m.Handshake(types.RoleClient, nil)
		m.Accepted()
		m.AcceptFailed("error")
	})
	assert.Nil(t, m.Registerer())
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// 两次 New(nil) 不能因重复注册而 panic
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}

func TestRateMeter_Window(t *testing.T) {
	clk := clock.NewMock()
	r := NewRateMeterWithClock(clk)

	r.Add(600)
	assert.Equal(t, int64(600), r.Total())
	assert.InDelta(t, 10.0, r.Rate(), 0.001)

	clk.Add(30 * time.Second)
	r.Add(60)
	assert.Equal(t, int64(660), r.Total())

	clk.Add(61 * time.Second)
	assert.Equal(t, int64(0), r.Total())
}

func TestTrafficCounter(t *testing.T) {
	clk := clock.NewMock()
	tc := NewTrafficCounterWithClock(clk)

	tc.LogSent(120)
	tc.LogRecv(60)
	tc.LogRecv(-1)

	stats := tc.Totals()
	assert.Equal(t, int64(120), stats.TotalOut)
	assert.Equal(t, int64(60), stats.TotalIn)
	assert.InDelta(t, 2.0, stats.RateOut, 0.001)
	assert.InDelta(t, 1.0, stats.RateIn, 0.001)

	tc.Reset()
	assert.Equal(t, Stats{}, tc.Totals())

	var nilCounter *TrafficCounter
	nilCounter.LogSent(1)
	assert.Equal(t, Stats{}, nilCounter.Totals())
}
