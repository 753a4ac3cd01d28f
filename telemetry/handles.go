package telemetry

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Caches label-bound observers to avoid per-request Vec map lookups and locks.
// Keyed by the Vec pointer plus the full labels key.

type observerKey struct {
	vec *prometheus.HistogramVec
	key string
}

var observerHandleCache sync.Map // map[observerKey]prometheus.Observer

func labelsKey(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	// '\x1f' (unit separator) cannot collide with method, status or path values.
	var b strings.Builder
	b.Grow(len(labels) * 12)
	for i, s := range labels {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(s)
	}
	return b.String()
}

// ObserverHandle returns a cached child observer for the given labels.
func ObserverHandle(hv *prometheus.HistogramVec, labels ...string) prometheus.Observer {
	k := observerKey{vec: hv, key: labelsKey(labels)}
	if v, ok := observerHandleCache.Load(k); ok {
		return v.(prometheus.Observer)
	}
	o := hv.WithLabelValues(labels...)
	actual, _ := observerHandleCache.LoadOrStore(k, o)
	return actual.(prometheus.Observer)
}

// ResetHandleCache drops every cached observer, releasing the histograms of
// recorders that are no longer used.
func ResetHandleCache() {
	observerHandleCache = sync.Map{}
}
