package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherstatus_ticks_total",
			Help: "Total refresh ticks by result",
		},
		[]string{"result"},
	)

	WeatherFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherstatus_weather_fetches_total",
			Help: "Total weather provider calls",
		},
		[]string{"source", "status"},
	)

	WeatherFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherstatus_weather_fetch_latency_seconds",
			Help:    "Weather provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	StatusPushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherstatus_status_pushes_total",
			Help: "Total status push attempts",
		},
		[]string{"status"},
	)

	StatusPushLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weatherstatus_status_push_latency_seconds",
			Help:    "Status push latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LastTickTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherstatus_last_tick_timestamp_seconds",
			Help: "Unix time of the last completed tick",
		},
	)
)
