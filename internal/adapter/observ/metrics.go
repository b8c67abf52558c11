package observ

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// Metrics exports cart and inventory outcomes to Prometheus.
type Metrics struct {
	purchases  *prometheus.CounterVec
	revenue    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	restocked  prometheus.Counter
}

// NewMetrics registers the collectors on reg (prometheus.DefaultRegisterer in main).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_purchases_total",
			Help: "Completed cart purchases by cart currency",
		}, []string{"currency"}),
		revenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_revenue_minor_units_total",
			Help: "Sum of purchased cart totals in minor units by cart currency",
		}, []string{"currency"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_rejections_total",
			Help: "Cart operations rejected by validation, by error code",
		}, []string{"code"}),
		restocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_inventory_restocked_units_total",
			Help: "Units added to inventory by restocks",
		}),
	}
	reg.MustRegister(m.purchases, m.revenue, m.rejections, m.restocked)
	return m
}

func (m *Metrics) CartPurchased(currency entity.Currency, total int64) {
	m.purchases.WithLabelValues(string(currency)).Inc()
	m.revenue.WithLabelValues(string(currency)).Add(float64(total))
}

func (m *Metrics) ValidationFailed(code entity.Code) {
	m.rejections.WithLabelValues(string(code)).Inc()
}

func (m *Metrics) Restocked(quantity int) {
	m.restocked.Add(float64(quantity))
}

var _ usecase.Observer = (*Metrics)(nil)
