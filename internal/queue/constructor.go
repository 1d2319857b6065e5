package queue

import (
	"github.com/maheshrc27/socialsync/internal/service"
)

type Queue struct {
	ps service.PublishService
}

func NewQueue(ps service.PublishService) *Queue {
	return &Queue{ps: ps}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
	// PublishAt is the slot the task was queued for, in unix seconds.
	PublishAt int64 `json:"publish_at,omitempty"`
}
