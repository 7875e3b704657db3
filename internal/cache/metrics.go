package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsed_cache_hits_total",
		Help: "Query cache hits by endpoint kind",
	}, []string{"kind"})
	missTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsed_cache_misses_total",
		Help: "Query cache misses by endpoint kind",
	}, []string{"kind"})
)
