package mapper

import "github.com/prometheus/client_golang/prometheus"

// Metrics 是映射层的计数器，按实体类型打标签。nil 表示不采集。
type Metrics struct {
	identityHits   *prometheus.CounterVec
	identityMisses *prometheus.CounterVec
	loads          *prometheus.CounterVec
	saves          *prometheus.CounterVec
	deletes        *prometheus.CounterVec
}

// NewMetrics 创建并注册计数器；同一个 Registerer 只能注册一次。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelmapper",
			Subsystem: "mapper",
			Name:      name,
			Help:      help,
		}, []string{"type"})
	}
	m := &Metrics{
		identityHits:   counter("identity_hits_total", "Find calls answered by the identity map."),
		identityMisses: counter("identity_misses_total", "Find calls that created a ghost."),
		loads:          counter("loads_total", "Rows fetched to load a model."),
		saves:          counter("saves_total", "Models written to storage."),
		deletes:        counter("deletes_total", "Models deleted."),
	}
	if reg != nil {
		reg.MustRegister(m.identityHits, m.identityMisses, m.loads, m.saves, m.deletes)
	}
	return m
}

func (m *Metrics) hit(t string) {
	if m != nil {
		m.identityHits.WithLabelValues(t).Inc()
	}
}

func (m *Metrics) miss(t string) {
	if m != nil {
		m.identityMisses.WithLabelValues(t).Inc()
	}
}

func (m *Metrics) load(t string) {
	if m != nil {
		m.loads.WithLabelValues(t).Inc()
	}
}

func (m *Metrics) save(t string) {
	if m != nil {
		m.saves.WithLabelValues(t).Inc()
	}
}

func (m *Metrics) delete(t string) {
	if m != nil {
		m.deletes.WithLabelValues(t).Inc()
	}
}
