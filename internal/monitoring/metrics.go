package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ExportsTotal   *prometheus.CounterVec
	ImagesTotal    *prometheus.CounterVec
	ImageErrsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the metrics against a specific registerer so tests
// can use an isolated registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formulary_exports_total",
			Help: "The total number of formulary documents exported",
		}, nil),
		ImagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formulary_images_embedded_total",
			Help: "The total number of images fetched and embedded",
		}, nil),
		ImageErrsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formulary_image_errors_total",
			Help: "The total number of image rows degraded to a blank cell",
		}, []string{"reason"}), // e.g. 'bad_status', 'decode_failed'
	}
}

func (m *Metrics) IncExportsTotal() {
	m.ExportsTotal.WithLabelValues().Inc()
}

func (m *Metrics) IncImagesTotal() {
	m.ImagesTotal.WithLabelValues().Inc()
}

func (m *Metrics) IncImageErrsTotal(reason string) {
	m.ImageErrsTotal.WithLabelValues(reason).Inc()
}
