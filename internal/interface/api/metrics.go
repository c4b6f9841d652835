package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	subnetRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oc_neutron",
			Name:      "subnet_requests_total",
			Help:      "Subnet lifecycle requests by operation and response code.",
		},
		[]string{"operation", "code"},
	)
	subnetRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oc_neutron",
			Name:      "subnet_request_duration_seconds",
			Help:      "Subnet lifecycle request latency in seconds by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1 ms to ~16 seconds
		},
		[]string{"operation"},
	)
)

// RegisterMetrics adds the subnet request collectors to reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{subnetRequests, subnetRequestLatency} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func instrument(operation string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			subnetRequests.WithLabelValues(operation, strconv.Itoa(rec.status)).Inc()
			subnetRequestLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		}()
		handler(rec, req)
	}
}
