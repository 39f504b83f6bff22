package middleware

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/vantagegraph/vantage/backend/pkg/ai"
	"github.com/vantagegraph/vantage/backend/pkg/config"
	"github.com/vantagegraph/vantage/backend/pkg/query"
	"github.com/vantagegraph/vantage/backend/pkg/search"
	"github.com/vantagegraph/vantage/backend/pkg/staging"
)

// App bundles the shared clients every handler needs.
type App struct {
	DBConn   *pgxpool.Pool
	Queue    *amqp091.Channel
	AiClient ai.Client
	Engine   *search.Engine
	Router   *query.Router
	Staging  *staging.Manager
	Detector *staging.Detector
	Cfg      config.Config
	APIKey   string
}

// AppContext carries the app handle through the echo request chain.
type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}
