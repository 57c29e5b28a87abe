package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

// GetLimit reads the "limit" query parameter. Missing or invalid values fall back to
// def; values above max are clamped.
func GetLimit(c echo.Context, def, max int) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
