package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifyDeliver delivers one stored notification.
	TaskTypeNotifyDeliver = "notify:deliver"
)

// NotifyDeliverPayload identifies the notification row to deliver.
type NotifyDeliverPayload struct {
	NotificationID int64 `json:"notification_id"`
}

// NewNotifyDeliverTask constructs an Asynq task for one notification.
func NewNotifyDeliverTask(payload NotifyDeliverPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyDeliver, data), nil
}
