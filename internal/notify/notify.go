// Package notify delivers urgent-review notifications. Delivery is
// best-effort: a failed notification is logged, never escalated, and
// never changes a record's disposition.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/caretide/provdir/internal/config"
	"github.com/caretide/provdir/internal/model"
)

// Notification is the payload sent when a record lands in the urgent band.
type Notification struct {
	ProviderID  string         `json:"provider_id"`
	NPI         string         `json:"npi"`
	Name        string         `json:"name"`
	Score       float64        `json:"score"`
	Disposition string         `json:"disposition"`
	TicketID    string         `json:"ticket_id,omitempty"`
	Priority    model.Priority `json:"priority"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Notifier delivers urgent notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Webhook posts notifications to a configured HTTP endpoint.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier. An empty URL yields a notifier
// that drops everything silently.
func NewWebhook(cfg config.NotifyConfig) *Webhook {
	return &Webhook{
		url:    cfg.WebhookURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *Webhook) Send(ctx context.Context, n Notification) error {
	if w.url == "" {
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return eris.Wrap(err, "notify: marshal notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: send")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}

	zap.L().Info("urgent notification sent",
		zap.String("provider_id", n.ProviderID),
		zap.Float64("score", n.Score))
	return nil
}
