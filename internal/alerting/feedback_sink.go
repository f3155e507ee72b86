package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/core"
)

// WebhookFeedbackSink forwards user feedback to an external collector as a
// JSON POST.
type WebhookFeedbackSink struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookFeedbackSink creates a sink posting to url.
func NewWebhookFeedbackSink(url string, logger *zap.Logger) *WebhookFeedbackSink {
	return &WebhookFeedbackSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Submit delivers one feedback record.
func (s *WebhookFeedbackSink) Submit(ctx context.Context, label core.FeedbackLabel, detail map[string]string) error {
	body, err := json.Marshal(map[string]interface{}{
		"label":  string(label),
		"detail": detail,
	})
	if err != nil {
		return fmt.Errorf("failed to encode feedback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build feedback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver feedback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("feedback webhook returned status %d", resp.StatusCode)
	}
	s.logger.Debug("feedback forwarded", zap.String("label", string(label)))
	return nil
}
