package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPurge removes expired login session records.
	TaskSessionsPurge = "sessions:purge"
	// TaskObjectsRemove deletes stored objects left behind by a report deletion.
	TaskObjectsRemove = "objects:remove"
)

// SessionsPurgePayload carries an optional grace period; sessions that expired
// less than Grace ago are kept.
type SessionsPurgePayload struct {
	Grace time.Duration `json:"grace"`
}

// NewSessionsPurgeTask constructs the purge task.
func NewSessionsPurgeTask(grace time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(SessionsPurgePayload{Grace: grace})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsPurge, data, asynq.Queue(QueueDefault)), nil
}

// ObjectsRemovePayload lists the object keys to delete.
type ObjectsRemovePayload struct {
	Keys []string `json:"keys"`
}

// NewObjectsRemoveTask constructs the object removal task.
func NewObjectsRemoveTask(keys []string) (*asynq.Task, error) {
	data, err := json.Marshal(ObjectsRemovePayload{Keys: keys})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskObjectsRemove, data, asynq.Queue(QueueDefault)), nil
}
