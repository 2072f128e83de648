package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-dash/internal/query"
	"github.com/celerix-dev/celerix-dash/internal/remote"
	"github.com/celerix-dev/celerix-dash/internal/users"
)

// statusOf maps a service error to the status the API answers with.
func statusOf(err error) int {
	var re *remote.Error
	var fe *query.FetchError
	switch {
	case errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, users.ErrEmptyPatch):
		return http.StatusBadRequest
	case errors.As(err, &re), errors.As(err, &fe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(statusOf(err), gin.H{"error": err.Error()})
}

// userID parses the :id route parameter.
func userID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
