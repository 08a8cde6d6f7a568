package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution sources for city_resolutions_total
const (
	ResolutionSourceCookie  = "cookie"
	ResolutionSourceGeo     = "geo"
	ResolutionSourceDefault = "default"
)

var (
	leadsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_submitted_total",
			Help: "Leads accepted from visitors, partitioned by backend forwarding outcome",
		},
		[]string{"status"},
	)

	importChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_chunks_total",
			Help: "Excel import chunks sent to the admin backend",
		},
		[]string{"status"},
	)

	cityResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "city_resolutions_total",
			Help: "Home page city resolutions partitioned by the source that decided the city",
		},
		[]string{"source"},
	)

	wizardTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Order wizard step transitions",
		},
		[]string{"result"},
	)
)
