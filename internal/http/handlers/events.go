package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Muhsin-Gun/event-API/internal/http/middleware"
	"github.com/Muhsin-Gun/event-API/internal/http/validation"
	"github.com/Muhsin-Gun/event-API/internal/modules/events"
	"github.com/Muhsin-Gun/event-API/internal/shared/apperr"
	"github.com/Muhsin-Gun/event-API/internal/storage"
)

const maxPosterBytes = 5 << 20

type EventHandler struct {
	Repo    *events.Repo
	Storage storage.Storage
	Logger  *slog.Logger
}

type eventInput struct {
	Title       string    `json:"title" binding:"required,min=3,max=100"`
	Description string    `json:"description" binding:"max=500"`
	Date        time.Time `json:"date" binding:"required"`
	Location    string    `json:"location" binding:"required"`
	Price       int       `json:"price" binding:"min=0"`
}

// Create lets any authenticated user publish an event.
func (h *EventHandler) Create(c *gin.Context) {
	var in eventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Event payload is invalid", validation.FromBindError(err, &in)))
		return
	}

	now := time.Now()
	e := events.Event{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Location:    in.Location,
		Price:       in.Price,
		CreatedBy:   middleware.CurrentUserID(c),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Repo.Create(c.Request.Context(), &e); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": e})
}

func (h *EventHandler) List(c *gin.Context) {
	in := events.ListParams{
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "limit", 10),
		Search:   c.Query("search"),
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			in.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			in.To = &t
		}
	}
	if v := intQuery(c, "minPrice", -1); v >= 0 {
		in.MinPrice = &v
	}
	if v := intQuery(c, "maxPrice", -1); v >= 0 {
		in.MaxPrice = &v
	}

	res, err := h.Repo.List(c.Request.Context(), in)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.PageSize
	if limit < 1 || limit > 100 {
		limit = 10
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    res.Items,
		"meta":    pageMeta(page, limit, res.Total),
	})
}

func (h *EventHandler) Get(c *gin.Context) {
	e, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Event not found"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": e})
}

// Update is creator-only.
func (h *EventHandler) Update(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Event not found"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if existing.CreatedBy != middleware.CurrentUserID(c) {
		middleware.Fail(c, apperr.ForbiddenErr("Not allowed to update this event"))
		return
	}

	var in eventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Event payload is invalid", validation.FromBindError(err, &in)))
		return
	}

	updated, err := h.Repo.Update(c.Request.Context(), id, events.UpdateParams{
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Location:    in.Location,
		Price:       in.Price,
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
}

// Delete is creator-only.
func (h *EventHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Event not found"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if existing.CreatedBy != middleware.CurrentUserID(c) {
		middleware.Fail(c, apperr.ForbiddenErr("Not allowed to delete this event"))
		return
	}

	if err := h.Repo.Delete(c.Request.Context(), id); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Event deleted successfully", "id": id})
}

// UploadPoster stores a poster image for the event (creator-only).
func (h *EventHandler) UploadPoster(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Event not found"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if existing.CreatedBy != middleware.CurrentUserID(c) {
		middleware.Fail(c, apperr.ForbiddenErr("Not allowed to update this event"))
		return
	}

	fh, err := c.FormFile("poster")
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("poster file required", nil))
		return
	}
	if fh.Size > maxPosterBytes {
		middleware.Fail(c, apperr.InvalidErr("poster too large (max 5MB)", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	defer f.Close()

	res, err := h.Storage.Put(c.Request.Context(), f, storage.PutInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	if err := h.Repo.SetPoster(c.Request.Context(), id, res.Key, res.URL); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	// best effort cleanup of the replaced poster
	if existing.PosterKey != nil && *existing.PosterKey != res.Key {
		if err := h.Storage.Delete(c.Request.Context(), *existing.PosterKey); err != nil {
			h.Logger.Warn("old poster cleanup failed", "event_id", id, "key", *existing.PosterKey, "err", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "posterUrl": res.URL})
}
