package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bugtracker/tracker-system/internal/api/middleware"
	"github.com/bugtracker/tracker-system/internal/core/ports"
)

// ctxActor extracts the caller injected by the Auth middleware. A missing
// user id means the route was mounted without Auth.
func ctxActor(c echo.Context) (ports.Actor, error) {
	userID, _ := c.Get(middleware.CtxUserID).(string)
	if userID == "" {
		return ports.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	username, _ := c.Get(middleware.CtxUsername).(string)
	role, _ := c.Get(middleware.CtxRole).(string)
	return ports.Actor{UserID: userID, Username: username, Role: role}, nil
}

func ctxClaims(c echo.Context) (ports.TokenClaims, error) {
	actor, err := ctxActor(c)
	if err != nil {
		return ports.TokenClaims{}, err
	}
	tokenID, _ := c.Get(middleware.CtxTokenID).(string)
	exp, _ := c.Get(middleware.CtxTokenExp).(time.Time)
	return ports.TokenClaims{
		UserID:    actor.UserID,
		Username:  actor.Username,
		Role:      actor.Role,
		TokenID:   tokenID,
		ExpiresAt: exp,
	}, nil
}
