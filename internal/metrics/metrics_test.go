package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncQuote("")
		IncQuote("both")
		IncRecurrenceDegraded()
		IncSubmission("order", true)
		IncSubmission("order", false)
		IncPayment("succeeded")
		IncTransition("3", "pet_hair_yes")
	})

	before := testutil.ToFloat64(staleSlotResponses)
	IncStaleSlots()
	assert.Equal(t, before+1, testutil.ToFloat64(staleSlotResponses))

	before = testutil.ToFloat64(taxFallbacks.WithLabelValues("missing_address"))
	IncTaxFallback("missing_address")
	assert.Equal(t, before+1, testutil.ToFloat64(taxFallbacks.WithLabelValues("missing_address")))
}
