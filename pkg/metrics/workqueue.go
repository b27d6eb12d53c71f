package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/client-go/util/workqueue"
)

const workqueueSubsystem = "workqueue"

var (
	queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: NAMESPACE,
		Subsystem: workqueueSubsystem,
		Name:      "depth",
		Help:      "Current depth of a worker pool queue",
	}, []string{"name"})

	queueAdds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: NAMESPACE,
		Subsystem: workqueueSubsystem,
		Name:      "adds_total",
		Help:      "Total number of jobs handled by a worker pool queue",
	}, []string{"name"})

	queueLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: NAMESPACE,
		Subsystem: workqueueSubsystem,
		Name:      "queue_duration_seconds",
		Help:      "How long in seconds a job stays in the queue before being executed",
		Buckets:   prometheus.ExponentialBuckets(10e-9, 10, 10),
	}, []string{"name"})

	queueWorkDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: NAMESPACE,
		Subsystem: workqueueSubsystem,
		Name:      "work_duration_seconds",
		Help:      "How long in seconds executing a job takes",
		Buckets:   prometheus.ExponentialBuckets(10e-9, 10, 10),
	}, []string{"name"})

	queueUnfinished = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: NAMESPACE,
		Subsystem: workqueueSubsystem,
		Name:      "unfinished_work_seconds",
		Help:      "Seconds of work in progress not yet observed by work_duration",
	}, []string{"name"})

	queueLongestRunning = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: NAMESPACE,
		Subsystem: workqueueSubsystem,
		Name:      "longest_running_processor_seconds",
		Help:      "How many seconds the longest running job has been running",
	}, []string{"name"})

	queueRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: NAMESPACE,
		Subsystem: workqueueSubsystem,
		Name:      "retries_total",
		Help:      "Total number of retries handled by a worker pool queue",
	}, []string{"name"})
)

func init() {
	prometheus.MustRegister(queueDepth, queueAdds, queueLatency, queueWorkDuration, queueUnfinished, queueLongestRunning, queueRetries)
	workqueue.SetProvider(workqueueProvider{})
}

// workqueueProvider exposes the metrics of named work queues,
// as used by the worker pools.
type workqueueProvider struct{}

var _ workqueue.MetricsProvider = workqueueProvider{}

func (workqueueProvider) NewDepthMetric(name string) workqueue.GaugeMetric {
	return queueDepth.WithLabelValues(name)
}

func (workqueueProvider) NewAddsMetric(name string) workqueue.CounterMetric {
	return queueAdds.WithLabelValues(name)
}

func (workqueueProvider) NewLatencyMetric(name string) workqueue.HistogramMetric {
	return queueLatency.WithLabelValues(name)
}

func (workqueueProvider) NewWorkDurationMetric(name string) workqueue.HistogramMetric {
	return queueWorkDuration.WithLabelValues(name)
}

func (workqueueProvider) NewUnfinishedWorkSecondsMetric(name string) workqueue.SettableGaugeMetric {
	return queueUnfinished.WithLabelValues(name)
}

func (workqueueProvider) NewLongestRunningProcessorSecondsMetric(name string) workqueue.SettableGaugeMetric {
	return queueLongestRunning.WithLabelValues(name)
}

func (workqueueProvider) NewRetriesMetric(name string) workqueue.CounterMetric {
	return queueRetries.WithLabelValues(name)
}
