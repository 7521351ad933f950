package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names
const (
	TicksTotal          = "mousetracker_ticks_total"
	SamplesPublished    = "mousetracker_samples_published_total"
	AcquisitionsSkipped = "mousetracker_acquisitions_skipped_total"
	CommandsTotal       = "mousetracker_commands_total"
	TickDuration        = "mousetracker_tick_duration_seconds"
	StreamingEnabled    = "mousetracker_streaming_enabled"
	DisplayEnabled      = "mousetracker_display_enabled"
)

// Collector records sampling loop activity in Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	ticks     prometheus.Counter
	published prometheus.Counter
	skipped   prometheus.Counter
	commands  *prometheus.CounterVec
	duration  prometheus.Histogram
	streaming prometheus.Gauge
	display   prometheus.Gauge
}

// NewCollector creates the loop metrics and registers them, together with the
// Go runtime and process collectors, on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewCollectorWith(reg, reg)
}

// NewCollectorWith registers the loop metrics on reg. Handler serves gatherer.
func NewCollectorWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Collector {
	c := &Collector{
		gatherer: gatherer,
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: TicksTotal,
			Help: "Loop iterations that acquired a cursor sample.",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: SamplesPublished,
			Help: "Samples pushed to the outbound stream.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: AcquisitionsSkipped,
			Help: "Iterations skipped because the cursor position could not be read.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: CommandsTotal,
			Help: "Console commands dispatched, by action.",
		}, []string{"action"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    TickDuration,
			Help:    "Time spent in one loop iteration, excluding pacing.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14),
		}),
		streaming: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: StreamingEnabled,
			Help: "1 when samples are being pushed to the outbound stream.",
		}),
		display: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: DisplayEnabled,
			Help: "1 when telemetry lines are being printed.",
		}),
	}

	reg.MustRegister(c.ticks, c.published, c.skipped, c.commands, c.duration, c.streaming, c.display)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) TickObserved(d time.Duration) {
	c.ticks.Inc()
	c.duration.Observe(d.Seconds())
}

func (c *Collector) SamplePublished() {
	c.published.Inc()
}

func (c *Collector) AcquisitionSkipped() {
	c.skipped.Inc()
}

func (c *Collector) CommandDispatched(action string) {
	c.commands.WithLabelValues(action).Inc()
}

func (c *Collector) SetStreaming(on bool) {
	c.streaming.Set(boolToFloat(on))
}

func (c *Collector) SetDisplay(on bool) {
	c.display.Set(boolToFloat(on))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
