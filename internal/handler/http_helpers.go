package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/newsdesk/internal/service"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// writeServiceError maps the service error taxonomy onto HTTP statuses:
// validation 400, permission 403, not-found and expired 404, conflict and
// illegal transition 409, build failure 500.
func writeServiceError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		permissionErr *service.PermissionError
		buildErr      *service.BuildError
	)

	switch {
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &permissionErr):
		respondError(c, http.StatusForbidden, permissionErr.Error())
	case errors.Is(err, service.ErrExpired):
		respondError(c, http.StatusNotFound, service.ErrExpired.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrConflict):
		respondError(c, http.StatusConflict, err.Error())
	case errors.As(err, &buildErr):
		respondError(c, http.StatusInternalServerError, buildErr.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}
