package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wa_http_requests_total", Help: "HTTP requests"},
		[]string{"route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wa_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	Sends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "whatsapp_send_total", Help: "WhatsApp send outcomes"},
		[]string{"result"},
	)
	ProviderLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "twilio_create_message_latency_seconds",
			Help:    "Twilio create message latency",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Send results.
const (
	ResultOK          = "ok"
	ResultValidation  = "validation_error"
	ResultProvider    = "provider_error"
	ResultRateLimited = "rate_limited_local"
	ResultBreakerOpen = "cb_open"
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests, HTTPDuration, Sends, ProviderLatency)
}
