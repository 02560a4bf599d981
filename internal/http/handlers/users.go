package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Muhsin-Gun/event-API/internal/http/middleware"
	"github.com/Muhsin-Gun/event-API/internal/modules/users"
	"github.com/Muhsin-Gun/event-API/internal/shared/apperr"
)

type UserHandler struct {
	Repo *users.Repo
}

func (h *UserHandler) List(c *gin.Context) {
	res, err := h.Repo.List(c.Request.Context(), users.ListParams{
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "limit", 10),
		Search:   c.Query("search"),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	out := make([]gin.H, len(res.Items))
	for i, u := range res.Items {
		out[i] = publicUser(u)
	}

	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 10)
	c.JSON(http.StatusOK, gin.H{
		"data": out,
		"meta": pageMeta(page, limit, res.Total),
	})
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("User does not exist"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, publicUser(u))
}

type userUpdateInput struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=64"`
	Email    *string `json:"email" binding:"omitempty,email"`
}

// Update changes profile fields. Passwords go through the reset flow and
// roles never change here; callers may only update themselves unless admin.
func (h *UserHandler) Update(c *gin.Context) {
	id := c.Param("id")

	if middleware.CurrentUserID(c) != id && middleware.CurrentRole(c) != users.RoleAdmin {
		middleware.Fail(c, apperr.ForbiddenErr("Not allowed"))
		return
	}

	var in userUpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid update payload", nil))
		return
	}

	fields := map[string]any{}
	if in.Username != nil {
		fields["username"] = *in.Username
	}
	if in.Email != nil {
		fields["email"] = *in.Email
	}

	u, err := h.Repo.Update(c.Request.Context(), id, fields)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("User not found"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, publicUser(u))
}

func (h *UserHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if middleware.CurrentUserID(c) != id && middleware.CurrentRole(c) != users.RoleAdmin {
		middleware.Fail(c, apperr.ForbiddenErr("Not allowed"))
		return
	}

	u, err := h.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("User does not exist"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted", "user": publicUser(u)})
}
