// Package alerting delivers high-risk notifications to a webhook with a
// per-message cooldown so repeated scoring of the same mail does not spam
// the channel.
package alerting

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/core"
)

const defaultCooldown = 15 * time.Minute

// WebhookAlerter posts JSON alerts to a configured webhook URL.
type WebhookAlerter struct {
	url      string
	cooldown time.Duration
	client   *http.Client
	logger   *zap.Logger
	clock    func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewWebhookAlerter creates an alerter posting to url. A zero cooldown
// selects the default of 15 minutes.
func NewWebhookAlerter(url string, cooldown time.Duration, logger *zap.Logger) *WebhookAlerter {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &WebhookAlerter{
		url:      url,
		cooldown: cooldown,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		clock:    time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// Notify sends the alert unless one for the same message fired within the
// cooldown window.
func (a *WebhookAlerter) Notify(ctx context.Context, alert core.Alert) error {
	key := alertKey(alert)
	if !a.shouldSend(key) {
		a.logger.Debug("alert suppressed by cooldown",
			zap.String("message_id", alert.MessageID))
		return nil
	}

	payload := map[string]interface{}{
		"text": fmt.Sprintf("High-risk message detected (score %d)\nSender: %s\nSubject: %s",
			alert.Score, alert.Sender, alert.Subject),
		"message_id": alert.MessageID,
		"score":      alert.Score,
	}
	if alert.TopLink != "" {
		payload["top_link"] = alert.TopLink
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}

	a.logger.Info("alert delivered",
		zap.String("message_id", alert.MessageID),
		zap.Int("score", alert.Score))
	return nil
}

func (a *WebhookAlerter) shouldSend(key string) bool {
	now := a.clock()
	a.mu.Lock()
	defer a.mu.Unlock()

	if sent, ok := a.lastSent[key]; ok && now.Sub(sent) < a.cooldown {
		return false
	}
	a.lastSent[key] = now

	// drop stale entries so the map does not grow unbounded
	for k, t := range a.lastSent {
		if now.Sub(t) >= a.cooldown {
			delete(a.lastSent, k)
		}
	}
	return true
}

// alertKey dedupes on the message id when present, otherwise on the
// sender/subject pair.
func alertKey(alert core.Alert) string {
	id := alert.MessageID
	if id == "" {
		id = alert.Sender + "|" + alert.Subject
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
