package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(orderTransitionsCounter.WithLabelValues("code", "done"))
	OrderTransition("code", "done")
	assert.Equal(t, before+1, testutil.ToFloat64(orderTransitionsCounter.WithLabelValues("code", "done")))

	before = testutil.ToFloat64(ledgerRejectedCounter.WithLabelValues("insufficient_funds"))
	LedgerRejected("insufficient_funds")
	assert.Equal(t, before+1, testutil.ToFloat64(ledgerRejectedCounter.WithLabelValues("insufficient_funds")))
}

func TestProviderRequest(t *testing.T) {
	ProviderRequest("add", time.Now(), nil)
	ProviderRequest("add", time.Now(), errors.New("timeout"))

	assert.Equal(t, 2, testutil.CollectAndCount(providerRequestDurationHist))
}

func TestHTTPRequest(t *testing.T) {
	counter := httpRequestsTotal.WithLabelValues("GET", "/api/v1/orders/{id}", "200")
	before := testutil.ToFloat64(counter)
	HTTPRequest("GET", "/api/v1/orders/{id}", "200", 12*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
