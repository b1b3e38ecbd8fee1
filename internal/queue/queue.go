package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

func EnqueuePost(asynqClient *asynq.Client, payload PublishPostPayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)

	// A deterministic task ID keeps the minute sweep from queueing the
	// same post twice while an earlier task is still pending.
	taskID := fmt.Sprintf("%s:%d", TaskTypePublishPost, payload.PostID)

	_, err = asynqClient.Enqueue(task, asynq.ProcessIn(delay), asynq.TaskID(taskID))
	if err != nil {
		return err
	}

	log.Printf("Task scheduled: %+v", payload)
	return nil
}
