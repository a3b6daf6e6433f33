package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/comptoir/comptoir/internal/notify"
	"github.com/comptoir/comptoir/internal/platform/httpx"
)

// NotifyDeliverJob loads a stored notification and pushes it out through the
// mailer. Already-sent rows are skipped so redelivery is harmless.
type NotifyDeliverJob struct {
	Logger *slog.Logger
	Repo   notify.Repository
	Mailer *Mailer
}

func NewNotifyDeliverJob(logger *slog.Logger, repo notify.Repository, mailer *Mailer) *NotifyDeliverJob {
	return &NotifyDeliverJob{Logger: logger, Repo: repo, Mailer: mailer}
}

// Handle processes TaskTypeNotifyDeliver tasks.
func (j *NotifyDeliverJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("notify deliver: handler not configured")
	}
	var payload NotifyDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	n, err := j.Repo.Get(ctx, payload.NotificationID)
	if errors.Is(err, httpx.ErrNotFound) {
		// The row was deleted between enqueue and delivery.
		return asynq.SkipRetry
	}
	if err != nil {
		return err
	}
	if n.IsSent {
		return nil
	}

	if err := j.Mailer.Send(n.Recipient, n.Subject, n.Message); err != nil {
		j.Logger.Error("notification delivery failed",
			slog.Int64("notification_id", n.ID),
			slog.String("recipient", n.Recipient),
			slog.Any("error", err))
		return err
	}

	if err := j.Repo.MarkSent(ctx, n.ID); err != nil {
		return err
	}
	j.Logger.Info("notification delivered",
		slog.Int64("notification_id", n.ID),
		slog.String("type", string(n.Type)))
	return nil
}
