package resource

import (
	"sync"
	"time"

	"maestro/internal/logging"
	"maestro/internal/metrics"
	"maestro/internal/model"
)

const (
	defaultHistorySize = 100
	defaultAlertLimit  = 50
)

// Options configure a Monitor.
type Options struct {
	Sampler             Sampler
	HistorySize         int
	AlertLimit          int
	SafetyBufferGB      float64       // Headroom kept free when admitting a load
	ThermalThresholdPct float64       // Used-percent ceiling for load admission
	PollInterval        time.Duration // Timer-driven polling period; 0 disables
	Rules               []AlertRule

	// Fallback is the synthetic snapshot substituted when sampling fails.
	Fallback Snapshot
}

// Handler receives alerts as they fire.
type Handler func(Alert)

// Monitor samples system state on demand and on a timer, keeps a rolling
// history, and emits alerts. A failed poll never propagates: the
// configured fallback snapshot is recorded instead, marked synthetic.
type Monitor struct {
	opts Options
	log  interface {
		Debugw(msg string, kv ...interface{})
		Warnw(msg string, kv ...interface{})
	}

	mu       sync.Mutex
	history  []Snapshot
	alerts   []Alert
	handlers []Handler

	stop chan struct{}
	done chan struct{}
}

// NewMonitor builds a monitor. A nil sampler defaults to /proc sampling.
func NewMonitor(opts Options) *Monitor {
	if opts.Sampler == nil {
		opts.Sampler = NewProcSampler()
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaultHistorySize
	}
	if opts.AlertLimit <= 0 {
		opts.AlertLimit = defaultAlertLimit
	}
	if opts.SafetyBufferGB <= 0 {
		opts.SafetyBufferGB = 2.0
	}
	if opts.ThermalThresholdPct <= 0 {
		opts.ThermalThresholdPct = 85
	}
	if opts.Rules == nil {
		opts.Rules = DefaultAlertRules()
	}
	if opts.Fallback.TotalGB <= 0 {
		opts.Fallback = Snapshot{TotalGB: 16, UsedGB: 8, AvailableGB: 8, Thermal: model.ThermalNormal}
	}
	return &Monitor{opts: opts, log: logging.Get(logging.CategoryResource)}
}

// OnAlert registers a handler invoked for every alert fired by Poll.
func (m *Monitor) OnAlert(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Poll takes one sample, records it, evaluates alert rules, and returns
// the recorded snapshot. Sampling failures yield the synthetic fallback.
func (m *Monitor) Poll() Snapshot {
	snap, err := m.opts.Sampler.Sample()
	if err != nil {
		m.log.Warnw("sampling failed, using fallback", "error", err)
		snap = m.opts.Fallback
		snap.Timestamp = time.Now()
		snap.Synthetic = true
	}
	if snap.Thermal == "" {
		snap.Thermal = estimateThermal(snap.CPUPercent)
	}

	metrics.MemoryPressure.Set(float64(DerivePressure(snap)))

	var fired []Alert
	var handlers []Handler
	m.mu.Lock()
	m.history = append(m.history, snap)
	if len(m.history) > m.opts.HistorySize {
		m.history = m.history[len(m.history)-m.opts.HistorySize:]
	}
	for _, rule := range m.opts.Rules {
		value, known := metricValue(snap, rule.Metric)
		if !known || !rule.triggered(value) {
			continue
		}
		fired = append(fired, newAlert(rule, value, snap.Timestamp))
	}
	m.alerts = append(m.alerts, fired...)
	if len(m.alerts) > m.opts.AlertLimit {
		m.alerts = m.alerts[len(m.alerts)-m.opts.AlertLimit:]
	}
	handlers = append(handlers, m.handlers...)
	m.mu.Unlock()

	for _, alert := range fired {
		m.log.Debugw("alert fired", "metric", alert.Metric, "severity", alert.Severity, "current", alert.Current)
		for _, h := range handlers {
			h(alert)
		}
	}
	return snap
}

// Latest returns the most recent snapshot, polling once if the history
// is empty.
func (m *Monitor) Latest() Snapshot {
	m.mu.Lock()
	if n := len(m.history); n > 0 {
		snap := m.history[n-1]
		m.mu.Unlock()
		return snap
	}
	m.mu.Unlock()
	return m.Poll()
}

// History returns a copy of the rolling snapshot window, oldest first.
func (m *Monitor) History() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, len(m.history))
	copy(out, m.history)
	return out
}

// Alerts returns a copy of the bounded alert buffer, oldest first.
func (m *Monitor) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Pressure derives the level from the latest snapshot.
func (m *Monitor) Pressure() Pressure {
	return DerivePressure(m.Latest())
}

// CanLoad answers whether a model of the given declared size can be
// admitted right now, with the rejection reason when it cannot.
func (m *Monitor) CanLoad(estimateGB float64) (bool, string) {
	snap := m.Latest()
	if snap.UsedGB+estimateGB+m.opts.SafetyBufferGB > snap.TotalGB {
		return false, "insufficient memory headroom"
	}
	if snap.SwapUsedGB > 1.0 {
		return false, "swap in use"
	}
	if snap.UsedPct() > m.opts.ThermalThresholdPct {
		return false, "memory utilization above threshold"
	}
	return true, ""
}

// Start launches timer-driven polling. No-op when PollInterval is 0.
func (m *Monitor) Start() {
	if m.opts.PollInterval <= 0 || m.stop != nil {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Poll()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop halts timer-driven polling and waits for the poll goroutine.
func (m *Monitor) Stop() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop = nil
	m.done = nil
}
