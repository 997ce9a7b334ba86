package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dotg_booking"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	quotesComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_computed_total",
			Help:      "Price quotes computed by package.",
		},
		[]string{"package"},
	)

	taxFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_fallbacks_total",
			Help:      "Tax quotes that fell back to the before-tax price.",
		},
		[]string{"reason"},
	)

	staleSlotResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_slot_responses_total",
			Help:      "Availability responses dropped because the branch changed.",
		},
	)

	recurrenceDegraded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurrence_degraded_total",
			Help:      "Event saves that dropped an uncompilable recurrence.",
		},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Order and event submissions by target and outcome.",
		},
		[]string{"target", "outcome"},
	)

	payments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Card payments by outcome.",
		},
		[]string{"outcome"},
	)

	wizardTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transitions_total",
			Help:      "Wizard transitions by source step and event.",
		},
		[]string{"from", "event"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			quotesComputed,
			taxFallbacks,
			staleSlotResponses,
			recurrenceDegraded,
			submissions,
			payments,
			wizardTransitions,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncQuote(pkg string) {
	if pkg == "" {
		pkg = "none"
	}
	quotesComputed.WithLabelValues(pkg).Inc()
}

func IncTaxFallback(reason string) {
	taxFallbacks.WithLabelValues(reason).Inc()
}

func IncStaleSlots() {
	staleSlotResponses.Inc()
}

func IncRecurrenceDegraded() {
	recurrenceDegraded.Inc()
}

func IncSubmission(target string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	submissions.WithLabelValues(target, outcome).Inc()
}

func IncPayment(outcome string) {
	payments.WithLabelValues(outcome).Inc()
}

func IncTransition(from, event string) {
	wizardTransitions.WithLabelValues(from, event).Inc()
}
