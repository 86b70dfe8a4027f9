package metrics

import (
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"net/http"
	"sync"
	"time"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_errors_total",
			Help: "Logged failures by error type and severity.",
		},
		[]string{"type", "severity"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "app_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
	ScoringRequestDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "app_scoring_request_duration_seconds",
			Help:       "Duration of calls to the scoring service.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"endpoint"},
	)
	ScoringFailuresCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_scoring_failures_total",
			Help: "Scoring service failures by endpoint and kind.",
		},
		[]string{"endpoint", "kind"},
	)
	ScorePollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "app_score_poll_duration_seconds",
			Help:    "Time spent waiting for a score, by outcome.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)
	ApplicationsCreatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "app_applications_created_total",
			Help: "Total number of created applications.",
		},
	)
	DuplicateApplicationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_duplicate_applications_total",
			Help: "Rejected duplicate applications by where they were detected.",
		},
		[]string{"detected_by"},
	)
	CountDriftCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "app_applications_count_drift_total",
			Help: "Number of jobs whose applications_count was repaired by a resync.",
		},
	)
	JobsDeletedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "app_jobs_deleted_total",
			Help: "Total number of deleted jobs.",
		},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ErrorsCounter)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(ScoringRequestDuration)
		prometheus.MustRegister(ScoringFailuresCounter)
		prometheus.MustRegister(ScorePollDuration)
		prometheus.MustRegister(ApplicationsCreatedCounter)
		prometheus.MustRegister(DuplicateApplicationsCounter)
		prometheus.MustRegister(CountDriftCounter)
		prometheus.MustRegister(JobsDeletedCounter)
	})
}

func StartMetricsServer(address string) *http.Server {

	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()
	log.Infof("metrics server listening on %s", address)
	return server
}

func ObserveSince(observer prometheus.Observer, start time.Time) {
	observer.Observe(time.Since(start).Seconds())
}
