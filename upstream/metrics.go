package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pulsed_upstream_requests_total",
	Help: "Upstream HTTP responses by host and status",
}, []string{"host", "status"})
