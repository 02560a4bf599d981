package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func pageMeta(page, limit int, total int64) gin.H {
	if limit < 1 {
		limit = 1
	}
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return gin.H{"page": page, "limit": limit, "total": total, "pages": pages}
}
