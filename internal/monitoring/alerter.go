package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertEmailMissRate AlertType = "email_miss_rate"
	AlertCircuitOpen   AlertType = "circuit_open"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a metrics Snapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot and the currently open circuits against
// thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap Snapshot, openCircuits []string) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	attempted := snap.EmailsFound + snap.EmailsMissed
	if attempted >= a.cfg.MinResolutions && attempted > 0 {
		missRate := float64(snap.EmailsMissed) / float64(attempted)
		if missRate > a.cfg.MissRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertEmailMissRate,
				Severity: "high",
				Message: fmt.Sprintf(
					"Email miss rate %.1f%% exceeds threshold %.1f%% (%d missed / %d resolved)",
					missRate*100, a.cfg.MissRateThreshold*100,
					snap.EmailsMissed, attempted,
				),
				Details: map[string]any{
					"miss_rate": missRate,
					"threshold": a.cfg.MissRateThreshold,
					"missed":    snap.EmailsMissed,
					"attempted": attempted,
				},
				Timestamp: now,
			})
		}
	}

	if len(openCircuits) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertCircuitOpen,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d listing source(s) have an open circuit breaker: %v",
				len(openCircuits), openCircuits,
			),
			Details: map[string]any{
				"sources": openCircuits,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
