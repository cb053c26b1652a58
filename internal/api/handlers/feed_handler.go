package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hena/stays/internal/api/middleware"
	"hena/stays/internal/ingest"
	"hena/stays/internal/models"
)

// feedLockTTL bounds how long one feed request can hold its lock.
const feedLockTTL = 2 * time.Minute

// Locker serialises requests that touch the same feed.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// RefreshTrigger queues a refresh of approved feeds and reports whether a new one was queued.
type RefreshTrigger func(ctx context.Context) (bool, error)

// FeedHandler exposes the feed ingestion pipeline over REST.
type FeedHandler struct {
	pipeline ingest.IPipeline
	locker   Locker
	refresh  RefreshTrigger
}

// NewFeedHandler creates a FeedHandler. locker may be nil to disable locking.
func NewFeedHandler(pipeline ingest.IPipeline, locker Locker, refresh RefreshTrigger) *FeedHandler {
	return &FeedHandler{pipeline: pipeline, locker: locker, refresh: refresh}
}

type submitFeedRequest struct {
	URL string `json:"url" binding:"required"`
}

type rejectFeedRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// feedLockKey identifies a feed by its creator and URL, which is known both
// before the first submission and for every stored entity.
func feedLockKey(creator primitive.ObjectID, url string) string {
	return "feed:" + creator.Hex() + ":" + url
}

func (h *FeedHandler) withLock(c *gin.Context, key string, fn func() error) error {
	if h.locker == nil {
		return fn()
	}
	release, err := h.locker.Acquire(c.Request.Context(), key, feedLockTTL)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// withEntityLock resolves the stored feed and takes the same lock a
// submission of its URL by its creator would take.
func (h *FeedHandler) withEntityLock(c *gin.Context, id primitive.ObjectID, fn func() error) error {
	entity, err := h.pipeline.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return h.withLock(c, feedLockKey(entity.Creator, entity.URL), fn)
}

func feedID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feed ID format"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// Submit handles POST /v1/feeds
func (h *FeedHandler) Submit(c *gin.Context) {
	var req submitFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A feed url is required"})
		return
	}
	user := middleware.CurrentUser(c)
	url := strings.TrimSpace(req.URL)

	var res *ingest.SubmissionResult
	err := h.withLock(c, feedLockKey(user.ID, url), func() error {
		var err error
		res, err = h.pipeline.Submit(c.Request.Context(), user, url, ingest.ModeUser)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Get handles GET /v1/feeds/:id
func (h *FeedHandler) Get(c *gin.Context) {
	id, ok := feedID(c)
	if !ok {
		return
	}
	entity, err := h.pipeline.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// Revalidate handles POST /v1/feeds/:id/revalidate
func (h *FeedHandler) Revalidate(c *gin.Context) {
	h.revalidate(c, ingest.ModeUser)
}

// AdminRevalidate handles POST /v1/admin/feeds/:id/revalidate
func (h *FeedHandler) AdminRevalidate(c *gin.Context) {
	h.revalidate(c, ingest.ModeAdmin)
}

func (h *FeedHandler) revalidate(c *gin.Context, mode ingest.Mode) {
	id, ok := feedID(c)
	if !ok {
		return
	}
	var res *ingest.SubmissionResult
	err := h.withEntityLock(c, id, func() error {
		var err error
		res, err = h.pipeline.Revalidate(c.Request.Context(), middleware.CurrentUser(c), id, mode)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// List handles GET /v1/admin/feeds?status=
func (h *FeedHandler) List(c *gin.Context) {
	status := models.FeedStatus(c.Query("status"))
	switch status {
	case "", models.FeedStatusPending, models.FeedStatusApproved, models.FeedStatusRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown feed status"})
		return
	}

	entities, err := h.pipeline.List(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entities)
}

// Approve handles POST /v1/admin/feeds/:id/approve
func (h *FeedHandler) Approve(c *gin.Context) {
	id, ok := feedID(c)
	if !ok {
		return
	}
	var res *ingest.ApprovalResult
	err := h.withEntityLock(c, id, func() error {
		var err error
		res, err = h.pipeline.Approve(c.Request.Context(), middleware.CurrentUser(c), id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Reject handles POST /v1/admin/feeds/:id/reject
func (h *FeedHandler) Reject(c *gin.Context) {
	id, ok := feedID(c)
	if !ok {
		return
	}
	var req rejectFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ingest.ErrRejectionReasonRequired.Error()})
		return
	}

	var entity *models.PropertiesXMLEntity
	err := h.withEntityLock(c, id, func() error {
		var err error
		entity, err = h.pipeline.Reject(c.Request.Context(), middleware.CurrentUser(c), id, req.Reason)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// Refresh handles POST /v1/admin/feeds/refresh
func (h *FeedHandler) Refresh(c *gin.Context) {
	queued, err := h.refresh(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}
