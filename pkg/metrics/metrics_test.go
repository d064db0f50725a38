package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSearch(t *testing.T) {
	before := testutil.ToFloat64(SearchTotal.WithLabelValues("found"))
	ObserveSearch("found", 12)
	ObserveSearch("found", 3)
	assert.Equal(t, before+2, testutil.ToFloat64(SearchTotal.WithLabelValues("found")))
}

func TestObserveSample(t *testing.T) {
	met := testutil.ToFloat64(SampleTotal.WithLabelValues("true"))
	missed := testutil.ToFloat64(SampleTotal.WithLabelValues("false"))

	ObserveSample(true, 1)
	ObserveSample(false, 50)
	ObserveSample(false, 50)

	assert.Equal(t, met+1, testutil.ToFloat64(SampleTotal.WithLabelValues("true")))
	assert.Equal(t, missed+2, testutil.ToFloat64(SampleTotal.WithLabelValues("false")))
}

func TestObserveGraph(t *testing.T) {
	ObserveGraph("contracted", 120, 340)
	assert.Equal(t, 120.0, testutil.ToFloat64(GraphNodes.WithLabelValues("contracted")))
	assert.Equal(t, 340.0, testutil.ToFloat64(GraphEdges.WithLabelValues("contracted")))
}

func TestMetricsRegistered(t *testing.T) {
	assert.Equal(t, 1, testutil.CollectAndCount(GuardrailTriggers))
}
