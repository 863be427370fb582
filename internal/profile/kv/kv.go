// Package kv implements the durable per-profile key-value stores.
//
// Every key lives inside a namespace (the device-profile ID). Get returns
// sentinel.ErrNotFound for absent keys; Delete of an absent key is a no-op.
package kv

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store is the capability every backend provides.
type Store interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key, value string) error
	Delete(ctx context.Context, namespace string, keys ...string) error
}

var opDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "safeballot_profile_kv_duration_ms",
	Help:    "Latency of profile store operations in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
}, []string{"backend", "op"})

func observe(backend, op string, start time.Time) {
	opDuration.WithLabelValues(backend, op).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
