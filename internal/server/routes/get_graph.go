package routes

import (
	"net/http"

	"github.com/inboxgraph/backend/internal/server/middleware"
	"github.com/inboxgraph/backend/pkg/graph"
	pgxstore "github.com/inboxgraph/backend/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

// GetGraphHandler projects the persisted relationships into the node/edge
// view the frontend renders.
func GetGraphHandler(c echo.Context) error {
	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn

	view, err := graph.LoadGraph(ctx, pgxstore.NewMailDBStorageWithConnection(conn))
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, view)
}
