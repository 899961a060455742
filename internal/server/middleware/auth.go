package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ProviderTokenHeader carries the mail provider's OAuth access token,
// obtained by the frontend during interactive consent.
const ProviderTokenHeader = "X-Provider-Token"

func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		token := strings.Split(authHeader, " ")[1]
		app := c.(*AppContext).App

		// Master API Key bypass
		if app.MasterAPIKey != "" && app.MasterUserEmail != "" && token == app.MasterAPIKey {
			c.(*AppContext).User = &AppUser{
				Email: app.MasterUserEmail,
				Name:  "Master",
			}
			return next(c)
		}

		// Parse JWT token
		k := *c.(*AppContext).App.Key
		parsed, err := jwt.Parse(token, k.Keyfunc)
		if err != nil || !parsed.Valid {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		email, ok := claims["email"].(string)
		if !ok || email == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid user email"})
		}

		name := ""
		if nameClaim, ok := claims["name"].(string); ok {
			name = nameClaim
		}

		c.(*AppContext).User = &AppUser{
			Email: email,
			Name:  name,
		}

		return next(c)
	}
}

// ProviderToken returns the mail provider access token of the request, or
// "" when the header is absent.
func ProviderToken(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(ProviderTokenHeader))
}
