package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "ringclash/server/internal/telemetry"

// Counters implements Metrics on OpenTelemetry instruments and keeps a local
// copy of every value for the diagnostics endpoint. Add keys become
// counters, Store keys become gauges.
type Counters struct {
	meter metric.Meter

	mu       sync.Mutex
	values   map[string]uint64
	counters map[string]metric.Int64Counter
	gauges   map[string]metric.Int64Gauge

	tickDuration metric.Float64Histogram
}

// NewCounters builds the adapter on meter, or on the global provider when
// meter is nil (a no-op unless one is installed).
func NewCounters(meter metric.Meter) *Counters {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	c := &Counters{
		meter:    meter,
		values:   make(map[string]uint64),
		counters: make(map[string]metric.Int64Counter),
		gauges:   make(map[string]metric.Int64Gauge),
	}
	histogram, err := meter.Float64Histogram(
		"room.tick.duration",
		metric.WithDescription("Wall time spent in one room step"),
		metric.WithUnit("ms"),
	)
	if err == nil {
		c.tickDuration = histogram
	}
	return c
}

// Add increments the counter key by delta.
func (c *Counters) Add(key string, delta uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.values[key] += delta
	counter, ok := c.counters[key]
	if !ok {
		var err error
		counter, err = c.meter.Int64Counter(key)
		if err == nil {
			c.counters[key] = counter
		}
	}
	c.mu.Unlock()
	if counter != nil {
		counter.Add(context.Background(), int64(delta))
	}
}

// Store records value as the current reading of the gauge key.
func (c *Counters) Store(key string, value uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.values[key] = value
	gauge, ok := c.gauges[key]
	if !ok {
		var err error
		gauge, err = c.meter.Int64Gauge(key)
		if err == nil {
			c.gauges[key] = gauge
		}
	}
	c.mu.Unlock()
	if gauge != nil {
		gauge.Record(context.Background(), int64(value))
	}
}

// ObserveTick records a room step duration.
func (c *Counters) ObserveTick(room string, d time.Duration) {
	if c == nil || c.tickDuration == nil {
		return
	}
	c.tickDuration.Record(context.Background(), float64(d)/float64(time.Millisecond),
		metric.WithAttributes(attribute.String("room", room)))
}

// Snapshot copies the local values.
func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Keys lists the recorded keys in order.
func (c *Counters) Keys() []string {
	snapshot := c.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ Metrics = (*Counters)(nil)
