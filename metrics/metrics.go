package metrics

import (
	"github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/problame/forward-as-attachment-mta/utils"
)

var instance *metrics

func init() {
	instance = newMetrics()
}

func M() *metrics {
	return instance
}

type metrics struct {
	Submissions   *prometheus.CounterVec
	RelayFailures *prometheus.CounterVec
	MessageSize   prometheus.Gauge
	Registry      *prometheus.Registry
}

func newMetrics() *metrics {
	m := new(metrics)

	m.Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faam_submissions_total",
			Help: "Number of sendmail submissions by outcome",
		},
		[]string{"outcome"},
	)

	m.RelayFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faam_relay_failures_total",
			Help: "Number of failed relay transactions by the state they failed in",
		},
		[]string{"state"},
	)

	m.MessageSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "faam_original_message_bytes",
			Help: "Size of the original message read from stdin",
		},
	)

	m.Registry = prometheus.NewRegistry()
	m.Registry.MustRegister(
		m.Submissions,
		m.RelayFailures,
		m.MessageSize,
	)
	return m
}

// Push delivers the counters of this run to a Pushgateway. Strictly best
// effort: a submission's exit code never depends on metrics delivery.
func (m *metrics) Push(gateway string, logger log15.Logger) {
	if gateway == "" {
		return
	}
	err := push.New(gateway, "forward_as_attachment_mta").
		Gatherer(m.Registry).
		Grouping("instance", utils.Hostname()).
		Add()
	if err != nil {
		logger.Warn("Failed to push metrics", "gateway", gateway, "error", err)
	}
}
