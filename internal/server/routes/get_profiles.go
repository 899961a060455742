package routes

import (
	"net/http"

	"github.com/inboxgraph/backend/internal/server/middleware"
	"github.com/inboxgraph/backend/pkg/common"
	pgxstore "github.com/inboxgraph/backend/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

// GetProfilesHandler lists all stored participant profiles.
func GetProfilesHandler(c echo.Context) error {
	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn

	profiles, err := pgxstore.NewMailDBStorageWithConnection(conn).ListProfiles(ctx)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	if profiles == nil {
		profiles = []common.Profile{}
	}

	return c.JSON(http.StatusOK, profiles)
}
