package metrics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
)

// JobName is the Pushgateway job the run metrics are grouped under.
const JobName = "scanticket"

// Recorder holds the counters of a single run in its own registry, so nothing
// leaks between runs or tests and the whole set can be pushed at exit.
type Recorder struct {
	registry *prometheus.Registry

	FindingsExamined *prometheus.CounterVec
	FindingsDropped  *prometheus.CounterVec
	Tickets          *prometheus.CounterVec
	AssigneeLookups  *prometheus.CounterVec
	Attachments      *prometheus.CounterVec
	TrackerErrors    *prometheus.CounterVec
	TrackerLatency   *prometheus.HistogramVec
	RunDuration      prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		FindingsExamined: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanticket_findings_examined_total",
				Help: "Findings read from the report by format, before and after adapter filters",
			},
			[]string{"variant", "stage"}, // stage: examined, kept
		),
		FindingsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanticket_findings_dropped_total",
				Help: "Findings dropped before ticket creation by reason",
			},
			[]string{"reason"}, // invalid, suppressed, major_only, duplicate
		),
		Tickets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanticket_tickets_total",
				Help: "Per-finding ticket outcomes",
			},
			[]string{"outcome"}, // created, existing, dry_run, failed
		),
		AssigneeLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanticket_assignee_lookups_total",
				Help: "Assignee lookups by result",
			},
			[]string{"result"},
		),
		Attachments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanticket_attachments_total",
				Help: "Report attachment uploads by result",
			},
			[]string{"result"},
		),
		TrackerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanticket_tracker_errors_total",
				Help: "Failed tracker calls by operation",
			},
			[]string{"operation"},
		),
		TrackerLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scanticket_tracker_request_seconds",
				Help:    "Latency of tracker calls by operation",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		RunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scanticket_run_duration_seconds",
				Help: "Wall-clock duration of the run",
			},
		),
	}
}

// RecordParsed records how many findings an adapter read and kept.
func (r *Recorder) RecordParsed(variant string, examined, kept int) {
	r.FindingsExamined.WithLabelValues(variant, "examined").Add(float64(examined))
	r.FindingsExamined.WithLabelValues(variant, "kept").Add(float64(kept))
}

// RecordDropped records findings removed by a pipeline filter.
func (r *Recorder) RecordDropped(reason string, count int) {
	if count <= 0 {
		return
	}
	r.FindingsDropped.WithLabelValues(reason).Add(float64(count))
}

// RecordTicket records the outcome for one finding.
func (r *Recorder) RecordTicket(outcome string) {
	r.Tickets.WithLabelValues(outcome).Inc()
}

// RecordLookup records an assignee lookup result.
func (r *Recorder) RecordLookup(result string) {
	r.AssigneeLookups.WithLabelValues(result).Inc()
}

// RecordAttachment records an attachment upload.
func (r *Recorder) RecordAttachment(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	r.Attachments.WithLabelValues(result).Inc()
}

// ObserveTrackerCall records the latency and, on failure, the error of a tracker call.
func (r *Recorder) ObserveTrackerCall(operation string, started time.Time, err error) {
	r.TrackerLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if err != nil {
		r.TrackerErrors.WithLabelValues(operation).Inc()
	}
}

// Push sends the registry to a Pushgateway, grouped by the given labels.
func (r *Recorder) Push(ctx context.Context, url string, grouping map[string]string) error {
	pusher := push.New(url, JobName).Gatherer(r.registry)
	for name, value := range grouping {
		pusher = pusher.Grouping(name, value)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// Snapshot flattens the registry into "name{label=value,...}" keys. Counters and
// gauges report their value, histograms their sample count.
func (r *Recorder) Snapshot() (map[string]float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			out[seriesKey(family.GetName(), metric.GetLabel())] = sampleValue(family.GetType(), metric)
		}
	}
	return out, nil
}

func seriesKey(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, label.GetName()+"="+label.GetValue())
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}

func sampleValue(kind dto.MetricType, metric *dto.Metric) float64 {
	switch kind {
	case dto.MetricType_COUNTER:
		return metric.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return metric.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(metric.GetHistogram().GetSampleCount())
	default:
		return metric.GetUntyped().GetValue()
	}
}
