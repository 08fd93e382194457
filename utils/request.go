package utils

import (
	"fmt"
	"strconv"

	"live-shopping/internal/biddingerrors"

	"github.com/gin-gonic/gin"
)

// MaxListLimit caps the limit query parameter of list endpoints
const MaxListLimit = 500

// PathID returns the named path parameter, which must be a valid ID
func PathID(c *gin.Context, name string) (string, error) {
	id := c.Param(name)
	if !IsValidID(id) {
		return "", fmt.Errorf("%w: %s %q", biddingerrors.ErrInvalidID, name, id)
	}
	return id, nil
}

// QueryLimit parses the "limit" query parameter. A missing value yields
// fallback and values above MaxListLimit are capped.
func QueryLimit(c *gin.Context, fallback int) (int, error) {
	raw, ok := c.GetQuery("limit")
	if !ok || raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer, got %q", biddingerrors.ErrValidation, raw)
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, nil
}
