// Package metrics exposes Prometheus collectors for the event stream client
// and the development stream server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

const namespace = "sarral_scan"

var _ stream.Observer = (*Client)(nil)

// Client records stream connection telemetry. It implements stream.Observer
// and its ListenerFailed method can be passed as a router failure handler.
type Client struct {
	state          *prometheus.GaugeVec
	transitions    *prometheus.CounterVec
	dials          prometheus.Counter
	dialFailures   prometheus.Counter
	retries        prometheus.Counter
	retryDelay     prometheus.Histogram
	dropped        *prometheus.CounterVec
	routed         *prometheus.CounterVec
	deliveries     *prometheus.CounterVec
	listenerPanics *prometheus.CounterVec
}

// NewClient registers the client collectors with reg.
func NewClient(reg prometheus.Registerer) *Client {
	f := promauto.With(reg)
	return &Client{
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "state",
			Help:      "1 for the current connection state, 0 otherwise.",
		}, []string{"state"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "state_transitions_total",
			Help:      "Connection state transitions.",
		}, []string{"from", "to"}),
		dials: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "dials_total",
			Help:      "Connection attempts started.",
		}),
		dialFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "dial_failures_total",
			Help:      "Connection attempts that failed before the stream opened.",
		}),
		retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "retries_scheduled_total",
			Help:      "Reconnects scheduled after a connection error.",
		}),
		retryDelay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "retry_delay_seconds",
			Help:      "Delay before each scheduled reconnect.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "frames_dropped_total",
			Help:      "Frames received but not routed.",
		}, []string{"reason"}),
		routed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "events_total",
			Help:      "Events routed by type.",
		}, []string{"type"}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "deliveries_total",
			Help:      "Listener invocations by event type.",
		}, []string{"type"}),
		listenerPanics: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "listener_failures_total",
			Help:      "Listeners that panicked.",
		}, []string{"type"}),
	}
}

// StateChanged implements stream.Observer.
func (m *Client) StateChanged(from, to stream.State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	for _, s := range []stream.State{stream.Disconnected, stream.Connecting, stream.Open, stream.Erroring} {
		v := 0.0
		if s == to {
			v = 1
		}
		m.state.WithLabelValues(s.String()).Set(v)
	}
}

// DialStarted implements stream.Observer.
func (m *Client) DialStarted() {
	if m == nil {
		return
	}
	m.dials.Inc()
}

// DialFailed implements stream.Observer.
func (m *Client) DialFailed(error) {
	if m == nil {
		return
	}
	m.dialFailures.Inc()
}

// RetryScheduled implements stream.Observer.
func (m *Client) RetryScheduled(delay time.Duration) {
	if m == nil {
		return
	}
	m.retries.Inc()
	m.retryDelay.Observe(delay.Seconds())
}

// FrameDropped implements stream.Observer. The frame's type is not used as
// a label since it is chosen by the remote end.
func (m *Client) FrameDropped(_ string, reason stream.DropReason) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(string(reason)).Inc()
}

// EventRouted implements stream.Observer.
func (m *Client) EventRouted(t events.Type, delivered int) {
	if m == nil {
		return
	}
	m.routed.WithLabelValues(string(t)).Inc()
	m.deliveries.WithLabelValues(string(t)).Add(float64(delivered))
}

// ListenerFailed matches events.FailureHandler.
func (m *Client) ListenerFailed(e events.Event, _ error) {
	if m == nil {
		return
	}
	m.listenerPanics.WithLabelValues(string(e.Type)).Inc()
}

// Server records development server activity.
type Server struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	published *prometheus.CounterVec
	scans     *prometheus.CounterVec
}

// ClientCounter reports live stream clients.
type ClientCounter func() int

// NewServer registers the server collectors with reg. sse and ws are
// sampled on every scrape and may be nil.
func NewServer(reg prometheus.Registerer, sse, ws ClientCounter) *Server {
	f := promauto.With(reg)
	m := &Server{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration. Streams are observed when they end.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "events_published_total",
			Help:      "Events accepted by the broker.",
		}, []string{"type"}),
		scans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "scans_total",
			Help:      "Simulated scans by final status.",
		}, []string{"status"}),
	}
	if sse != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "sse_clients",
			Help:      "Connected SSE clients.",
		}, func() float64 { return float64(sse()) })
	}
	if ws != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "websocket_clients",
			Help:      "Connected websocket clients.",
		}, func() float64 { return float64(ws()) })
	}
	return m
}

// ObserveRequest matches middleware.ObserveFunc.
func (m *Server) ObserveRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// EventPublished counts an event accepted by the broker.
func (m *Server) EventPublished(t events.Type) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(string(t)).Inc()
}

// ScanFinished counts a simulated scan reaching a final status.
func (m *Server) ScanFinished(status events.ScanStatus) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(string(status)).Inc()
}

// Handler serves the collectors registered with g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
