package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadscout/internal/config"
)

func TestCheckerRunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{
		CheckIntervalSecs: 1,
		MissRateThreshold: 0.75,
		MinResolutions:    10,
	}
	checker := NewChecker(New(), NewAlerter(cfg), nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Run returned.
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestCheckerDefaultInterval(t *testing.T) {
	// Zero interval should fall back to the 5 minute default without
	// panicking on startup.
	checker := NewChecker(New(), NewAlerter(config.MonitoringConfig{}), nil, config.MonitoringConfig{})
	assert.NotNil(t, checker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}

func TestCheckerEvaluatesOpenCircuits(t *testing.T) {
	t.Parallel()

	cfg := config.MonitoringConfig{MissRateThreshold: 0.75, MinResolutions: 10}
	m := New()
	checker := NewChecker(m, NewAlerter(cfg), func() []string { return []string{"yelp"} }, cfg)

	// Exercises the check path directly without waiting on the ticker.
	alerts := checker.alerter.Evaluate(m.Snapshot(), checker.openCircuits())
	assert.Len(t, alerts, 1)
	assert.Equal(t, AlertCircuitOpen, alerts[0].Type)
}
