package linkpreview

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK              = "ok"
	OutcomeFeatureDisabled = "feature_disabled"
	OutcomeFetchFailure    = "fetch_failure"
	OutcomeInvalidPreview  = "invalid_preview"
	OutcomeNoPreview       = "no_preview"
	OutcomeError           = "error"
)

var (
	// requestsTotal counts preview requests by link kind and outcome.
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkpreview_requests_total",
		Help: "Total number of link preview requests",
	}, []string{"kind", "outcome"})

	// thumbnailsTotal counts thumbnail derivations by branch.
	thumbnailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkpreview_thumbnails_total",
		Help: "Total number of thumbnail derivations",
	}, []string{"branch", "outcome"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linkpreview_fetch_duration_seconds",
		Help:    "Duration of link preview HTTP fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

func observeFetch(op string, start time.Time) {
	fetchDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrFeatureDisabled):
		return OutcomeFeatureDisabled
	case errors.Is(err, ErrFetchFailure):
		return OutcomeFetchFailure
	case errors.Is(err, ErrInvalidPreview):
		return OutcomeInvalidPreview
	case errors.Is(err, ErrNoPreview):
		return OutcomeNoPreview
	default:
		return OutcomeError
	}
}
