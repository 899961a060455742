package routes

import (
	"net/http"

	"github.com/inboxgraph/backend/internal/server/middleware"
	"github.com/inboxgraph/backend/pkg/common"
	pgxstore "github.com/inboxgraph/backend/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

// GetRelationshipsHandler lists all stored pairwise relationships.
func GetRelationshipsHandler(c echo.Context) error {
	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn

	relationships, err := pgxstore.NewMailDBStorageWithConnection(conn).ListRelationships(ctx)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	if relationships == nil {
		relationships = []common.Relationship{}
	}

	return c.JSON(http.StatusOK, relationships)
}
