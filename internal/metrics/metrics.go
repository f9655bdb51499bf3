package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	FetchStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notelink_fetch_status_total",
			Help: "Page and image fetch counts by HTTP status code",
		},
		[]string{"status"},
	)
	Images = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notelink_images_total",
			Help: "Images seen by the inliner by outcome",
		},
		[]string{"outcome"},
	)
	Summaries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notelink_summaries_total",
			Help: "Summary attempts by outcome (ok, unavailable, error)",
		},
		[]string{"outcome"},
	)
	ProcessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notelink_process_duration_seconds",
			Help:    "Duration of ProcessLink calls by mode",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notelink_stage_duration_seconds",
			Help:    "Duration of pipeline stages (fetch, extract, render)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	Failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notelink_failures_total",
			Help: "Terminal ProcessLink failures by kind",
		},
		[]string{"kind"},
	)
)

// Register adds all collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{FetchStatus, Images, Summaries, ProcessDuration, StageDuration, Failures} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveStatus counts one received HTTP status. It matches fetch.Client.Observe.
func ObserveStatus(status int) {
	FetchStatus.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveImage counts one image outcome. It matches inline.Inliner.Observe.
func ObserveImage(outcome string) {
	Images.WithLabelValues(outcome).Inc()
}
