package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/maheshrc27/socialflow/internal/queue"
	"github.com/maheshrc27/socialflow/internal/repository"
)

const dueBatchLimit = 100

// PublishDueJob sweeps for scheduled posts whose time has passed and
// hands them to the task queue. It backstops posts that never got an
// enqueue at creation time, for example after a process restart.
type PublishDueJob struct {
	pr     repository.PostRepository
	client *asynq.Client
}

func NewPublishDueJob(pr repository.PostRepository, client *asynq.Client) *PublishDueJob {
	return &PublishDueJob{
		pr:     pr,
		client: client,
	}
}

func (c *PublishDueJob) EnqueueDuePosts() {
	ctx := context.Background()

	posts, err := c.pr.ListReadyForPublishing(ctx, time.Now(), dueBatchLimit)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, post := range posts {
		payload := queue.PublishPostPayload{PostID: post.ID}
		err := queue.EnqueuePost(c.client, payload, 0)
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			slog.Info("Unable to enqueue due post",
				slog.Int64("post_id", post.ID),
				slog.String("error", err.Error()))
		}
	}
}
