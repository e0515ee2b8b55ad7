// -----------------------------------------------------------------------
// Notification sink - structured log always, webhook POST when configured
// -----------------------------------------------------------------------

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/models"
)

// Service delivers decision notifications. Delivery is best effort: a
// failed webhook is logged and dropped, it never fails the caller.
type Service struct {
	webhookURL string
	client     *http.Client
	logger     arbor.ILogger
}

// NewService creates a notification service. An empty webhook URL leaves
// log-only delivery.
func NewService(config *common.NotifyConfig, logger arbor.ILogger) *Service {
	timeout := config.TimeoutDuration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		webhookURL: config.WebhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Notify publishes a decision event.
func (s *Service) Notify(ctx context.Context, event *models.NotificationEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	s.logger.Info().
		Str("kind", string(event.Kind)).
		Str("change_id", event.ChangeID).
		Str("entity_type", string(event.EntityType)).
		Str("entity_id", event.EntityID).
		Str("reason", event.Reason).
		Msg("Decision notification")

	if s.webhookURL == "" {
		return
	}

	if err := s.postWebhook(ctx, event); err != nil {
		s.logger.Warn().
			Err(err).
			Str("change_id", event.ChangeID).
			Msg("Webhook notification failed")
	}
}

func (s *Service) postWebhook(ctx context.Context, event *models.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
