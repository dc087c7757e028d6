package pfmetrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portfolio"

// Metrics regroupe les compteurs de l'application sur un registre dédié.
// Un pointeur nil est accepté par toutes les méthodes.
type Metrics struct {
	registry *prometheus.Registry

	ViewsRecorded      prometheus.Counter
	VisitorsCreated    prometheus.Counter
	MessagesReceived   prometheus.Counter
	ValidationFailures *prometheus.CounterVec
	StorageFailures    *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ViewsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "views_recorded_total",
			Help:      "Nombre de vues enregistrées",
		}),
		VisitorsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visitors_created_total",
			Help:      "Nombre de nouveaux visiteurs",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Nombre de messages de contact enregistrés",
		}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Requêtes rejetées en validation",
		}, []string{"operation"}),
		StorageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_failures_total",
			Help:      "Erreurs de la base de données",
		}, []string{"operation"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requêtes HTTP par route, méthode et statut",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latence des requêtes HTTP",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler expose le registre au format Prometheus
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ViewRecorded(newVisitor bool) {
	if m == nil {
		return
	}
	m.ViewsRecorded.Inc()
	if newVisitor {
		m.VisitorsCreated.Inc()
	}
}

func (m *Metrics) MessageReceived() {
	if m == nil {
		return
	}
	m.MessagesReceived.Inc()
}

func (m *Metrics) ValidationFailed(operation string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) StorageFailed(operation string) {
	if m == nil {
		return
	}
	m.StorageFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
