// portfolio-tracker-service/services/market_service.go
package services

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetTopCoins proxies the top-listings endpoint for the browse table.
func (m *MarketDataClient) GetTopCoins(ctx *fiber.Ctx) error {
	limit, err := strconv.Atoi(ctx.Query("limit", "100"))
	if err != nil {
		limit = 100
	}

	coins, err := m.TopListings(ctx.Context(), limit)
	if err != nil {
		log.Printf("ERROR fetching top listings: %v", err)
		return ctx.Status(502).JSON(fiber.Map{"error": "failed to fetch top coins"})
	}
	return ctx.JSON(fiber.Map{"data": coins})
}

// SearchCoins proxies the symbol search for the add-coin dialog.
func (m *MarketDataClient) SearchCoins(ctx *fiber.Ctx) error {
	symbol := ctx.Query("symbol")
	if symbol == "" {
		return ctx.Status(400).JSON(fiber.Map{"error": "symbol query parameter is required"})
	}

	coins, err := m.SearchBySymbol(ctx.Context(), symbol)
	if err != nil {
		log.Printf("ERROR searching coins for %q: %v", symbol, err)
		return ctx.Status(502).JSON(fiber.Map{"error": "coin search failed"})
	}
	return ctx.JSON(fiber.Map{"data": coins})
}
