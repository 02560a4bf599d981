package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Muhsin-Gun/event-API/internal/http/middleware"
	"github.com/Muhsin-Gun/event-API/internal/modules/reports"
	"github.com/Muhsin-Gun/event-API/internal/shared/apperr"
)

type ReportHandler struct {
	Service *reports.Service
}

// Sales is admin-only (enforced by route middleware).
func (h *ReportHandler) Sales(c *gin.Context) {
	from, err1 := time.Parse("2006-01-02", c.Query("from"))
	to, err2 := time.Parse("2006-01-02", c.Query("to"))
	if err1 != nil || err2 != nil {
		middleware.Fail(c, apperr.InvalidErr("from and to are required (YYYY-MM-DD)", nil))
		return
	}

	rep, err := h.Service.Sales(c.Request.Context(), from, to, c.DefaultQuery("groupBy", "month"))
	if err != nil {
		if errors.Is(err, reports.ErrBadRange) {
			middleware.Fail(c, apperr.InvalidErr("from and to are required (YYYY-MM-DD)", nil))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, rep)
}

func (h *ReportHandler) StatusRollup(c *gin.Context) {
	rollup, err := h.Service.StatusRollup(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rollup})
}
