package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsGaugesReflectRecordedValues(t *testing.T) {
	ensureMetrics()

	RecordRunningInstances(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(runningInstances))

	RecordNodePoolSize(12)
	assert.Equal(t, float64(12), testutil.ToFloat64(nodePoolSize))

	before := testutil.ToFloat64(admissionDeniedTotal)
	RecordAdmissionDenied()
	assert.Equal(t, before+1, testutil.ToFloat64(admissionDeniedTotal))
}

func TestInitMetricsIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		InitMetrics()
		InitMetrics()
	})
}
