package x11c

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks Prometheus counters for a Display's request/reply/error
// traffic. All methods handle a nil receiver gracefully, so a nil
// *Metrics (the Display default) is a true zero-overhead no-op with no
// import-time registration — the same pattern as
// marmos91-dittofs/internal/protocol/nfs/rpc/gss/metrics.go's
// GSSMetrics.
type Metrics struct {
	RequestsSent   prometheus.Counter
	RepliesMatched prometheus.Counter
	ErrorsMatched  prometheus.Counter
	WaitErrors     prometheus.Counter
	XIDsExhausted  prometheus.Counter
}

// NewMetrics creates and registers Display metrics under the "x11c_"
// prefix. If registerer is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		RequestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "x11c_requests_sent_total",
			Help: "Total number of requests sent to the X server.",
		}),
		RepliesMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "x11c_replies_matched_total",
			Help: "Total number of replies matched to a pending request.",
		}),
		ErrorsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "x11c_errors_matched_total",
			Help: "Total number of server errors matched to a pending request.",
		}),
		WaitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "x11c_wait_errors_total",
			Help: "Total number of errors returned directly from Wait (transport failures, unsolicited errors).",
		}),
		XIDsExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "x11c_xids_exhausted_total",
			Help: "Total number of NextXID calls that observed an exhausted allocator.",
		}),
	}

	registerer.MustRegister(m.RequestsSent, m.RepliesMatched, m.ErrorsMatched, m.WaitErrors, m.XIDsExhausted)
	return m
}

func (m *Metrics) incRequestsSent() {
	if m == nil {
		return
	}
	m.RequestsSent.Inc()
}

func (m *Metrics) incRepliesMatched() {
	if m == nil {
		return
	}
	m.RepliesMatched.Inc()
}

func (m *Metrics) incErrorsMatched() {
	if m == nil {
		return
	}
	m.ErrorsMatched.Inc()
}

func (m *Metrics) incWaitErrors() {
	if m == nil {
		return
	}
	m.WaitErrors.Inc()
}

func (m *Metrics) incXIDExhausted() {
	if m == nil {
		return
	}
	m.XIDsExhausted.Inc()
}
