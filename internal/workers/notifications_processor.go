// internal/workers/notification_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/services"
	"github.com/bookmybike/marketplace-be/internal/pkg/config"
)

// SoldPayload represents the payload for sold-unit notification tasks
type SoldPayload struct {
	UnitID        string `json:"unit_id"`
	VariantID     string `json:"variant_id"`
	DealershipID  string `json:"dealership_id"`
	ChassisNumber string `json:"chassis_number"`
}

// SoldQueue enqueues sold-unit notifications onto asynq, keeping CRM
// and invoicing work off the transition request path.
type SoldQueue struct {
	client *asynq.Client
	logger *slog.Logger
}

// Statically assert that *SoldQueue implements the SoldNotifier interface.
var _ services.SoldNotifier = (*SoldQueue)(nil)

// NewSoldQueue creates a new sold notification queue
func NewSoldQueue(client *asynq.Client, logger *slog.Logger) *SoldQueue {
	return &SoldQueue{
		client: client,
		logger: logger.With(slog.String("component", "sold_queue")),
	}
}

// NotifySold enqueues a sold notification for the unit
func (q *SoldQueue) NotifySold(ctx context.Context, unit *domain.StockUnit) error {
	payload := SoldPayload{
		UnitID:        unit.ID.String(),
		VariantID:     unit.VariantID.String(),
		DealershipID:  unit.DealershipID.String(),
		ChassisNumber: unit.ChassisNumber,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sold payload: %w", err)
	}

	task := asynq.NewTask(TypeSoldNotify, b)
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to enqueue sold notification: %w", err)
	}

	q.logger.InfoContext(ctx, "sold notification queued",
		slog.String("unit_id", payload.UnitID),
		slog.String("task_id", info.ID))

	return nil
}

// NotificationProcessor handles notification tasks
type NotificationProcessor struct {
	config *config.Config
	logger *slog.Logger
}

// NewNotificationProcessor creates a new notification processor
func NewNotificationProcessor(config *config.Config, logger *slog.Logger) *NotificationProcessor {
	return &NotificationProcessor{
		config: config,
		logger: logger.With(slog.String("processor", "notification")),
	}
}

// ProcessSold handles a sold-unit notification task
func (p *NotificationProcessor) ProcessSold(ctx context.Context, t *asynq.Task) error {
	var payload SoldPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "processing sold notification",
		slog.String("unit_id", payload.UnitID),
		slog.String("dealership_id", payload.DealershipID),
		slog.String("chassis", payload.ChassisNumber))

	// In development, just log the notification
	if p.config.App.Environment == "development" {
		p.logger.InfoContext(ctx, "sold notification would be delivered",
			slog.String("unit_id", payload.UnitID))
		return nil
	}

	subject := fmt.Sprintf("Unit sold: %s", payload.ChassisNumber)
	body := fmt.Sprintf("Stock unit %s (variant %s) at dealership %s has been marked SOLD.",
		payload.UnitID, payload.VariantID, payload.DealershipID)

	return p.sendEmail(ctx, "sales@bookmy.bike", subject, body)
}

// SendEmail sends email notifications
func (p *NotificationProcessor) SendEmail(ctx context.Context, t *asynq.Task) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	to := payload["to"].(string)
	subject := payload["subject"].(string)
	body := payload["body"].(string)

	p.logger.InfoContext(ctx, "sending email",
		slog.String("to", to),
		slog.String("subject", subject))

	// In development, just log the email
	if p.config.App.Environment == "development" {
		p.logger.InfoContext(ctx, "email would be sent",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.String("body", body))
		return nil
	}

	return p.sendEmail(ctx, to, subject, body)
}

func (p *NotificationProcessor) sendEmail(ctx context.Context, to, subject, body string) error {
	// Production email sending
	// This is a simplified version - in production you'd use a service like SendGrid
	from := "noreply@bookmy.bike"
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		from, to, subject, body,
	))

	auth := smtp.PlainAuth("", "", "", "smtp.example.com")
	if err := smtp.SendMail("smtp.example.com:587", auth, from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	p.logger.InfoContext(ctx, "email sent successfully")
	return nil
}
