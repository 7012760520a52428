package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPublishedSetsGauges(t *testing.T) {
	Published(3, 2, 10, 7, 1)
	assert.Equal(t, float64(3), testutil.ToFloat64(Generation))
	assert.Equal(t, float64(10), testutil.ToFloat64(Declarations))
	assert.Equal(t, float64(1), testutil.ToFloat64(UnboundReferences))
}

func TestObserveStageCountsModules(t *testing.T) {
	before := testutil.ToFloat64(ModulesProcessed.WithLabelValues("parse"))
	ObserveStage("parse", 5*time.Millisecond, 4)
	assert.Equal(t, before+4, testutil.ToFloat64(ModulesProcessed.WithLabelValues("parse")))
}
