package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type indexResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// Index handles GET /api and lists the resource roots.
func Index(version string) echo.HandlerFunc {
	resp := indexResponse{
		Name:    "Bug Tracker API",
		Version: version,
		Endpoints: map[string]string{
			"auth":   "/api/auth",
			"bugs":   "/api/bugs",
			"users":  "/api/users",
			"health": "/api/health",
			"docs":   "/swagger/index.html",
		},
	}
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, resp)
	}
}
