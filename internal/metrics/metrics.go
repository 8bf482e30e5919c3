// Package metrics exposes the gate's operational counters. Notifier
// delivery failures are counted separately from authentication failures:
// a lost email never changes a decision, but it has to be visible.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	loginDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgate_login_decisions_total",
			Help: "Login risk evaluations by resulting action.",
		},
		[]string{"action"},
	)

	otpVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgate_otp_verifications_total",
			Help: "OTP verification attempts by result.",
		},
		[]string{"result"},
	)

	notifierFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgate_notifier_failures_total",
			Help: "Notification deliveries that failed, by message kind.",
		},
		[]string{"kind"},
	)
)

// Init registers the gate's collectors with the default registry.
func Init() {
	prometheus.MustRegister(loginDecisions, otpVerifications, notifierFailures)
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordLoginDecision(action string) {
	loginDecisions.WithLabelValues(action).Inc()
}

func RecordOTPVerification(result string) {
	otpVerifications.WithLabelValues(result).Inc()
}

func RecordNotifierFailure(kind string) {
	notifierFailures.WithLabelValues(kind).Inc()
}
