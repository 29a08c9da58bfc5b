package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docsummarizer"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// UploadsTotal counts finished upload attempts by terminal result
	// (complete, validation, transfer, persistence, authorization).
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "uploads_total", Help: "Finished upload attempts by result."},
		[]string{"result"},
	)
	UploadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "upload_bytes_total", Help: "Bytes transferred to object storage by completed uploads."},
	)
	UploadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: namespace, Name: "upload_duration_seconds", Help: "Wall time of upload attempts.", Buckets: prometheus.DefBuckets},
	)
	StoreMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "store_mutations_total", Help: "Mirror mutations by store, operation and result."},
		[]string{"store", "op", "result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(UploadsTotal)
	reg.MustRegister(UploadBytes)
	reg.MustRegister(UploadDuration)
	reg.MustRegister(StoreMutations)
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
