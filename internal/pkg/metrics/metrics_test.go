package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounts(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.TransferSettled("native", "success")
	c.TransferSettled("native", "success")
	c.TransferSettled("token", "failed")
	c.BalanceLookup("ethereum", "ok")
	c.TokenResolution("cached")
	c.BatchFinished("native", 3*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.transfers.WithLabelValues("native", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transfers.WithLabelValues("token", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.balanceLookups.WithLabelValues("ethereum", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tokenResolutions.WithLabelValues("cached")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.batchDuration))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.TransferSettled("native", "success")
		c.BatchFinished("native", time.Second)
		c.BalanceLookup("bsc", "error")
		c.TokenResolution("failed")
	})
}
