// handlers/watchlist_routes.go
package handlers

import (
	"portfolio-tracker-service/middleware"
	"portfolio-tracker-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWatchlistRoutes(app *fiber.App, watchlistService *services.WatchlistService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/watchlists", watchlistService.CreateWatchlist)
	secured.Get("/watchlists", watchlistService.GetUserWatchlists)
	secured.Delete("/watchlists/:id", watchlistService.DeleteWatchlist)

	secured.Post("/watchlists/:id/coins", watchlistService.AddCoin)
	secured.Delete("/watchlists/:id/coins/:coin_api_id", watchlistService.RemoveCoin)
}
