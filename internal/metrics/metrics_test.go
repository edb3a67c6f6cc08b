package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg, "lobbybot")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordOperationAttempt(ctx, "Join", "MatchmakingService")
	m.RecordOperationAttempt(ctx, "Join", "MatchmakingService")
	m.RecordOperationSuccess(ctx, "Join", "MatchmakingService")
	m.RecordOperationDuration(ctx, "Join", "MatchmakingService", 15*time.Millisecond)
	m.RecordGameFormed(ctx, "random")
	m.RecordQueueEviction(ctx, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("MatchmakingService", "Join")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.successes.WithLabelValues("MatchmakingService", "Join")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gamesFormed.WithLabelValues("random")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.evictions))
}

func TestPrometheusMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMetrics(reg, "lobbybot")
	require.NoError(t, err)

	_, err = NewPrometheusMetrics(reg, "lobbybot")
	assert.Error(t, err)
}
