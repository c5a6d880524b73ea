package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pong"

// Recorder exposes tournament lifecycle counters to Prometheus.
type Recorder struct {
	tournamentsStarted  prometheus.Counter
	tournamentsFinished *prometheus.CounterVec
	tournamentsRunning  prometheus.Gauge
	matchDuration       *prometheus.HistogramVec
	handshakeFailures   *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		tournamentsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournaments_started_total",
			Help:      "Tournaments launched on this instance.",
		}),
		tournamentsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournaments_finished_total",
			Help:      "Tournaments that stopped, by outcome.",
		}, []string{"outcome"}),
		tournamentsRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tournaments_running",
			Help:      "Tournaments currently running on this instance.",
		}),
		matchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Wall time from scheduled start to end of a match.",
			Buckets:   []float64{15, 30, 60, 90, 120, 180, 240, 300},
		}, []string{"rank"}),
		handshakeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshake_failures_total",
			Help:      "Matches aborted because a client never acknowledged.",
		}, []string{"phase"}),
	}
}

func (r *Recorder) TournamentStarted() {
	r.tournamentsStarted.Inc()
	r.tournamentsRunning.Inc()
}

func (r *Recorder) TournamentFinished(outcome string) {
	r.tournamentsFinished.WithLabelValues(outcome).Inc()
	r.tournamentsRunning.Dec()
}

func (r *Recorder) MatchFinished(rank int, d time.Duration) {
	r.matchDuration.WithLabelValues(strconv.Itoa(rank)).Observe(d.Seconds())
}

func (r *Recorder) HandshakeFailed(phase string) {
	r.handshakeFailures.WithLabelValues(phase).Inc()
}
