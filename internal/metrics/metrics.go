package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PageViewsTracked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "website_page_views_tracked_total",
		Help: "Total number of page views written to the analytics store.",
	})

	ConversionsTracked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "website_conversions_tracked_total",
		Help: "Total number of conversions written, labelled by conversion type.",
	}, []string{"conversion_type"})

	TrackingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "website_tracking_failures_total",
		Help: "Total number of tracking writes dropped because the store failed.",
	}, []string{"kind"})

	ContactSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "website_contact_submissions_total",
		Help: "Total number of contact form submissions, labelled by outcome.",
	}, []string{"outcome"})

	ReportsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "website_daily_reports_built_total",
		Help: "Total number of daily analytics reports generated.",
	})

	ContentRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "website_content_rebuilds_total",
		Help: "Total number of content re-renders triggered by the watcher.",
	})
)
