// Package handlers implements the REST endpoint handlers.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// respond writes the payload in the standard success envelope.
func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, common.NewSuccessResponse(data))
}

// respondError maps the error chain to an HTTP status via its code.  Server
// errors are masked with the code's default message; client errors pass the
// real message through so callers can fix their request.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	message := err.Error()
	if errors.IsServerError(code) {
		message = errors.DefaultMessageForCode(code)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, common.NewErrorResponse(code.String(), message))
}

// parseAsOf reads the optional as_of query parameter.  Absent means "today",
// signalled by the zero Date.
func parseAsOf(c *gin.Context) (ltypes.Date, bool) {
	asOf, err := ltypes.ParseDate(c.Query("as_of"))
	if err != nil {
		respondError(c, errors.New(errors.ErrCodeInvalidDate, "as_of must be formatted YYYY-MM-DD").WithCause(err))
		return ltypes.Date{}, false
	}
	return asOf, true
}

// parsePagination reads page and page_size, leaving zero for the service
// layer to default.
func parsePagination(c *gin.Context) (page, pageSize int) {
	if v := c.Query("page"); v != "" {
		page, _ = strconv.Atoi(v)
	}
	if v := c.Query("page_size"); v != "" {
		pageSize, _ = strconv.Atoi(v)
	}
	return page, pageSize
}

// requireParam reads a path parameter, rejecting the request when empty.
func requireParam(c *gin.Context, name string) (string, bool) {
	v := c.Param(name)
	if v == "" {
		respondError(c, errors.InvalidParam(name+" is required"))
		return "", false
	}
	return v, true
}
