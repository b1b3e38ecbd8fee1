package handlers

import (
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/queue"
	"github.com/maheshrc27/socialflow/internal/service"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	publisher   service.PublishService
	AsynqClient *asynq.Client
}

func NewPostHandler(service service.PostService, publisher service.PublishService, asynqClient *asynq.Client) *PostHandler {
	return &PostHandler{s: service, publisher: publisher, AsynqClient: asynqClient}
}

// CreatePost accepts a multipart form. Posts with a future scheduled_time
// are queued; a scheduled_time already in the past publishes right away and
// the response carries the platform result.
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	pc := transfer.PostCreation{
		Platform:      c.FormValue("platform"),
		PostType:      c.FormValue("post_type"),
		Caption:       c.FormValue("caption"),
		Title:         c.FormValue("title"),
		Text:          c.FormValue("text"),
		Link:          c.FormValue("link"),
		ScheduledTime: c.FormValue("scheduled_time"),
		Timezone:      c.FormValue("timezone"),
		Recurrence:    c.FormValue("recurrence"),
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["files"]
		pc.PollOptions = pollOptions(form)
	}
	if minutes, err := strconv.Atoi(c.FormValue("poll_minutes")); err == nil {
		pc.PollMinutes = minutes
	}

	created, err := h.s.CreatePost(c.Context(), userID, &pc, files)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	if created.PublishNow {
		return h.publishCreated(c, created)
	}

	if created.Status == models.PostStatusScheduled {
		err = queue.EnqueuePost(h.AsynqClient, queue.PublishPostPayload{PostID: created.PostID}, created.Delay)
		if err != nil {
			slog.Error(err.Error())
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Error scheduling post",
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"post":    created,
	})
}

// PublishPost publishes a draft or retries a failed post on demand.
func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	// Ownership check before the publish pipeline touches the post.
	if _, err := h.s.PostInfo(c.Context(), int64(postID), userID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	outcome, err := h.publisher.PublishPost(c.Context(), int64(postID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Unable to publish post",
		})
	}

	return publishResponse(c, outcome)
}

func (h *PostHandler) publishCreated(c *fiber.Ctx, created *transfer.PostCreated) error {
	outcome, err := h.publisher.PublishPost(c.Context(), created.PostID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Unable to publish post",
		})
	}
	outcome.PublishedImmediately = true

	return publishResponse(c, outcome)
}

func publishResponse(c *fiber.Ctx, outcome *transfer.PublishOutcome) error {
	if outcome.Status == models.PostStatusFailed {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success":    false,
			"message":    outcome.ErrorMessage,
			"error_code": outcome.ErrorKind,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":         true,
		"platform_result": outcome,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userId := GetUserID(c)
	postId := c.QueryInt("id", 0)

	if postId != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postId), userId)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to list posts",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) PostHistory(c *fiber.Ctx) error {
	userId := GetUserID(c)
	postId := c.QueryInt("id", 0)

	history, err := h.s.History(c.Context(), int64(postId), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posting history",
		})
	}

	return c.Status(fiber.StatusOK).JSON(history)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userID, int64(postId))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// pollOptions reads repeated poll_options fields, tolerating a single
// comma separated value from clients that cannot send repeated keys.
func pollOptions(form *multipart.Form) []string {
	values := form.Value["poll_options"]
	if len(values) == 1 && strings.Contains(values[0], ",") {
		values = strings.Split(values[0], ",")
	}

	options := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			options = append(options, trimmed)
		}
	}
	return options
}
