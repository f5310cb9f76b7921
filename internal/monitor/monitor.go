// Package monitor runs a background health sampling loop and fires typed
// alerts when resource thresholds are crossed. Breaches re-fire every
// interval; de-duplication is left to the alert sink.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// AlertFunc receives one detected breach per detection pass.
type AlertFunc func(message string, code int)

// Monitor samples system health on a fixed interval and evaluates alert
// rules against each sample.
type Monitor struct {
	config  Config
	sampler Sampler
	rules   []rule

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a monitor. A nil sampler selects the live system sampler.
func New(cfg Config, sampler Sampler) (*Monitor, error) {
	cfg = cfg.withDefaults()
	if sampler == nil {
		sampler = NewSystemSampler(cfg.DiskPath)
	}

	rules, err := compileRules(cfg)
	if err != nil {
		return nil, err
	}

	return &Monitor{
		config:  cfg,
		sampler: sampler,
		rules:   rules,
	}, nil
}

// Start begins the sampling loop. onAlert is invoked from the monitor
// goroutine, once per breached rule per pass.
func (m *Monitor) Start(onAlert AlertFunc) error {
	if onAlert == nil {
		return fmt.Errorf("alert callback cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("health monitor is already running")
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.done = make(chan struct{})
	m.running = true

	go m.loop(m.ctx, m.done, onAlert)

	log.Infof("Health monitor started (interval: %s, rules: %d)", m.config.Interval, len(m.rules))
	return nil
}

// Stop terminates the loop and joins it. After Stop returns, the alert
// callback will not be invoked again.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	done := m.done
	m.mu.Unlock()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn("Health monitor stop timed out waiting for loop")
	}

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	log.Info("Health monitor stopped")
	return nil
}

// IsRunning reports whether the loop is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}, onAlert AlertFunc) {
	defer close(done)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	// Prime throughput counters so the first scheduled pass has a delta.
	if _, err := m.sampler.Sample(ctx); err != nil {
		log.Debugf("Initial health sample failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pass(ctx, onAlert)
		}
	}
}

// pass runs one detection cycle. The context is re-checked before alerting
// so a concurrent Stop wins over an in-flight sample.
func (m *Monitor) pass(ctx context.Context, onAlert AlertFunc) {
	sample, err := m.sampler.Sample(ctx)
	if err != nil {
		log.Debugf("Health sample failed: %v", err)
		return
	}

	signals := evaluate(m.rules, sample)
	if len(signals) == 0 {
		return
	}
	if ctx.Err() != nil {
		return
	}

	for _, sig := range signals {
		sig.Timestamp = time.Now()
		log.Warnf("Health alert | kind=%s code=%d msg=%q", sig.Kind, sig.Code, sig.Message)
		onAlert(sig.Message, sig.Code)
	}
}
