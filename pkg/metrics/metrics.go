package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mandelsoft/webrequest/pkg/server"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

const PATH = "/metrics"

const NAMESPACE = "webrequest"

var (
	hostConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Subsystem: "bridge",
			Name:      "host_connections",
			Help:      "Number of connected remote hosts",
		},
	)

	hostEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: "bridge",
			Name:      "events_total",
			Help:      "Total number of events received from remote hosts",
		},
		[]string{"event", "result"},
	)

	hostEventDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Subsystem: "bridge",
			Name:      "event_duration_seconds",
			Help:      "Duration of the dispatch of received events in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"event"},
	)
)

// Event results.
const (
	RESULT_FORWARDED = "forwarded"
	RESULT_DECIDED   = "decided"
	RESULT_NOTIFIED  = "notified"
	RESULT_FAILED    = "failed"
)

func init() {
	prometheus.MustRegister(hostConnections, hostEvents, hostEventDuration, listeners)
	server.Register(PATH, promhttp.Handler())
}

func HostConnected() {
	hostConnections.Inc()
}

func HostDisconnected() {
	hostConnections.Dec()
}

// EventDispatched records the outcome of an event received
// from a remote host.
func EventDispatched(event webrequest.EventType, result string, start time.Time) {
	hostEvents.WithLabelValues(string(event), result).Inc()
	hostEventDuration.WithLabelValues(string(event)).Observe(time.Since(start).Seconds())
}

////////////////////////////////////////////////////////////////////////////////

var listenersDesc = prometheus.NewDesc(
	prometheus.BuildFQName(NAMESPACE, "registry", "listeners"),
	"Number of registered listeners",
	[]string{"event"}, nil,
)

var filtersDesc = prometheus.NewDesc(
	prometheus.BuildFQName(NAMESPACE, "registry", "filters"),
	"Number of distinct url patterns of the installed hooks",
	[]string{"event"}, nil,
)

// registryCollector reports the state of the observed registry
// at scrape time.
type registryCollector struct {
	lock     sync.Mutex
	registry *webrequest.Registry
}

var listeners = &registryCollector{}

// ObserveRegistry sets the registry reported by the listener metrics.
func ObserveRegistry(r *webrequest.Registry) {
	listeners.lock.Lock()
	defer listeners.lock.Unlock()
	listeners.registry = r
}

func (c *registryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- listenersDesc
	ch <- filtersDesc
}

func (c *registryCollector) Collect(ch chan<- prometheus.Metric) {
	c.lock.Lock()
	r := c.registry
	c.lock.Unlock()
	if r == nil {
		return
	}
	for e, l := range r.Listeners() {
		ch <- prometheus.MustNewConstMetric(listenersDesc, prometheus.GaugeValue, float64(len(l)), string(e))
	}
	for e, f := range r.Filters() {
		ch <- prometheus.MustNewConstMetric(filtersDesc, prometheus.GaugeValue, float64(f.Len()), string(e))
	}
}
