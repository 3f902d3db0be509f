package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_store_operations_total",
			Help: "Total number of user store operations",
		},
		[]string{"operation", "result"},
	)

	NotifyConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_connections_total",
			Help: "Total number of accepted notification channel connections",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal, StoreOperationsTotal, NotifyConnectionsTotal)
}

// ObserveStore records the outcome of a store operation.
func ObserveStore(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperationsTotal.WithLabelValues(operation, result).Inc()
}
