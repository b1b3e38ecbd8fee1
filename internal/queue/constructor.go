package queue

import (
	"github.com/maheshrc27/socialflow/internal/service"
)

type Queue struct {
	publisher service.PublishService
}

func NewQueue(publisher service.PublishService) *Queue {
	return &Queue{
		publisher: publisher,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
