package routes

import (
	"net/http"

	"github.com/inboxgraph/backend/internal/server/middleware"
	"github.com/inboxgraph/backend/pkg/common"
	pgxstore "github.com/inboxgraph/backend/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

// GetParticipantsHandler lists every distinct address seen across the
// archived emails, with the most recently observed display name.
func GetParticipantsHandler(c echo.Context) error {
	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn

	participants, err := pgxstore.NewMailDBStorageWithConnection(conn).DistinctParticipants(ctx)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	if participants == nil {
		participants = []common.Participant{}
	}

	return c.JSON(http.StatusOK, participants)
}
