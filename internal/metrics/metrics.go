package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors; /metrics serves it.
	Registry = prometheus.NewRegistry()

	IncidentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "incidents",
			Name:      "created_total",
			Help:      "Incidents successfully created.",
		},
	)

	StatusUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidents",
			Name:      "status_updates_total",
			Help:      "Incident status changes by caller kind and resulting status.",
		},
		[]string{"source", "status"},
	)

	PhotosRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "incidents",
			Name:      "photos_rejected_total",
			Help:      "Photos refused at creation for exceeding the size ceiling.",
		},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "incidents",
			Name:      "notifications_sent_total",
			Help:      "Owner notification emails by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		IncidentsCreated,
		StatusUpdates,
		PhotosRejected,
		Notifications,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
