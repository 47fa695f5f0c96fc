package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveSync(t *testing.T) {
	before := testutil.ToFloat64(SyncOperations.WithLabelValues("push", "ok"))
	ObserveSync("push", "ok", time.Now().Add(-time.Second))
	require.Equal(t, before+1, testutil.ToFloat64(SyncOperations.WithLabelValues("push", "ok")))
}

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterCollectors(reg) })
	require.Panics(t, func() { RegisterCollectors(reg) })
}
