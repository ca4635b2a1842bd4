// Package handler holds the helpers shared by the HTTP handlers.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/lab-api/internal/middleware"
	"github.com/jwalitptl/lab-api/internal/model"
	apperrors "github.com/jwalitptl/lab-api/pkg/errors"
	"github.com/jwalitptl/lab-api/pkg/httputil"
)

// ParseID reads a positive integer path parameter. Anything else is a
// not-found, the same answer a foreign id gets.
func ParseID(c *gin.Context, name, resource string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithError(c, apperrors.NotFound(resource, err))
		return 0, false
	}
	return id, true
}

// BindListQuery reads search, sort, order, limit and offset, plus the
// filters named in filters (query parameter -> column).
func BindListQuery(c *gin.Context, filters map[string]string) (model.ListQuery, bool) {
	var q model.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithBindError(c, err)
		return q, false
	}
	for param, column := range filters {
		if v, ok := c.GetQuery(param); ok && v != "" {
			q = q.Filter(column, v)
		}
	}
	return q, true
}

// RespondWithPage sends one page with its pagination block.
func RespondWithPage[T any](c *gin.Context, page *model.Page[T]) {
	httputil.RespondWithPagination(c, page.Items, httputil.NewPagination(page.Total, page.Limit, page.Offset))
}

// LabID returns the caller's lab as resolved by the auth middleware.
func LabID(c *gin.Context) int64 {
	return middleware.LabID(c)
}
