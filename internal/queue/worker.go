package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialflow/internal/models"
)

func (j *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	outcome, err := j.publisher.PublishPost(ctx, payload.PostID)
	if err != nil {
		// Infrastructure failure: let asynq retry the task later.
		log.Printf("Error publishing post %d: %v", payload.PostID, err)
		return err
	}

	if outcome.Status == models.PostStatusFailed {
		// The attempt ran and its failure is already recorded on the
		// post, so the task itself is done.
		log.Printf("Post %d failed to publish: %s", payload.PostID, outcome.ErrorMessage)
	} else {
		log.Printf("Post %d published: %s", payload.PostID, outcome.PlatformPostID)
	}

	return nil
}
