package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware gates the API behind a static key when one is
// configured. Without a configured key the API is open.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		app := c.(*AppContext).App
		if app.APIKey == "" {
			return next(c)
		}

		provided := c.Request().Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(app.APIKey)) != 1 {
			return c.JSON(http.StatusUnauthorized, map[string]any{
				"success": false,
				"error":   "invalid API key",
			})
		}
		return next(c)
	}
}
