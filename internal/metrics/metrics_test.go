package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveProvider(t *testing.T) {
	before := testutil.ToFloat64(ProviderRequestsTotal.WithLabelValues("metrics-test", OutcomeSuccess))

	ObserveProvider("metrics-test", OutcomeSuccess, 250*time.Millisecond)
	ObserveProvider("metrics-test", OutcomeSuccess, time.Second)

	require.Equal(t, before+2, testutil.ToFloat64(ProviderRequestsTotal.WithLabelValues("metrics-test", OutcomeSuccess)))
	require.GreaterOrEqual(t, testutil.CollectAndCount(ProviderLatency, "polychat_provider_latency_seconds"), 1)
}
