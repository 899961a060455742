package routes

import (
	"net/http"
	"strconv"

	"github.com/inboxgraph/backend/internal/server/middleware"
	"github.com/inboxgraph/backend/pkg/common"
	pgxstore "github.com/inboxgraph/backend/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

// GetEmailsHandler lists the most recently ingested emails, newest first.
// The optional limit query parameter caps the result size (default 50).
func GetEmailsHandler(c echo.Context) error {
	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
		}
		limit = parsed
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn

	emails, err := pgxstore.NewMailDBStorageWithConnection(conn).RecentEmails(ctx, limit)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	if emails == nil {
		emails = []common.NormalizedEmail{}
	}

	return c.JSON(http.StatusOK, emails)
}
