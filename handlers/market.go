// handlers/market_routes.go
package handlers

import (
	"portfolio-tracker-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMarketRoutes(app *fiber.App, market *services.MarketDataClient) {
	// 🔓 No user context needed — but Gateway auth still applies globally
	app.Get("/market/top", market.GetTopCoins)
	app.Get("/market/search", market.SearchCoins)
}
