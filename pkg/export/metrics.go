package export

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts exported images. Register it on whatever registry the host
// exposes or dumps.
type Metrics struct {
	Images  *prometheus.CounterVec
	Batches prometheus.Counter
	Render  prometheus.Histogram
}

// NewMetrics creates the export collectors and registers them on reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Images: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wmstudio",
				Subsystem: "export",
				Name:      "images_total",
				Help:      "Images processed by the export engine, by result.",
			},
			[]string{"result"},
		),
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wmstudio",
			Subsystem: "export",
			Name:      "batches_total",
			Help:      "Export batches started.",
		}),
		Render: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wmstudio",
			Subsystem: "export",
			Name:      "render_seconds",
			Help:      "Time to decode, watermark and encode one image.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Images, m.Batches, m.Render)
	}
	return m
}

func (m *Metrics) observe(result string, seconds float64) {
	if m == nil {
		return
	}
	m.Images.WithLabelValues(result).Inc()
	if result == resultOK {
		m.Render.Observe(seconds)
	}
}

func (m *Metrics) batch() {
	if m == nil {
		return
	}
	m.Batches.Inc()
}
