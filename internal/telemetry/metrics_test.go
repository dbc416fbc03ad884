package telemetry

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(SlugCollisionsTotal)
	SlugCollisionsTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SlugCollisionsTotal))

	hits := TreeCacheRequestsTotal.WithLabelValues("hit")
	before = testutil.ToFloat64(hits)
	hits.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(hits))
}

func TestHTTPMetricsLabels(t *testing.T) {
	c := HTTPRequestsTotal.WithLabelValues("GET", "/api/modules/{id}", "200")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestStartDBStatsCollector_StopsOnCancel(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The collector runs in its own goroutine; the call itself must return.
	returned := make(chan struct{})
	go func() {
		StartDBStatsCollector(ctx, db)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("StartDBStatsCollector blocked the caller")
	}
}
