// portfolio-tracker-service/services/watchlist_service.go
package services

import (
	"errors"
	"log"

	"portfolio-tracker-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WatchlistService struct {
	DB     *gorm.DB
	Market *MarketDataClient
}

func NewWatchlistService(db *gorm.DB, market *MarketDataClient) *WatchlistService {
	return &WatchlistService{DB: db, Market: market}
}

func (s *WatchlistService) loadWatchlist(userID, watchlistID string) (*models.Watchlist, error) {
	var list models.Watchlist
	err := s.DB.
		Preload("Coins", func(db *gorm.DB) *gorm.DB {
			return db.Order("added_at ASC")
		}).
		Where("id = ? AND user_id = ?", watchlistID, userID).
		First(&list).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *WatchlistService) CreateWatchlist(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}

	list := &models.Watchlist{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        body.Name,
		Slug:        slug.Make(body.Name),
		Description: body.Description,
	}
	if err := s.DB.Create(list).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	log.Printf("✅ [WATCHLIST] Created watchlist %q for user %s", list.Name, userID)
	return c.Status(201).JSON(list)
}

func (s *WatchlistService) GetUserWatchlists(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var lists []models.Watchlist
	err := s.DB.
		Preload("Coins", func(db *gorm.DB) *gorm.DB {
			return db.Order("added_at ASC")
		}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&lists).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch watchlists"})
	}
	return c.JSON(lists)
}

func (s *WatchlistService) DeleteWatchlist(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	watchlistID := c.Params("id")

	list, err := s.loadWatchlist(userID, watchlistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "watchlist not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch watchlist"})
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("watchlist_id = ?", list.ID).Delete(&models.WatchlistCoin{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Watchlist{}, "id = ?", list.ID).Error
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to delete watchlist"})
	}
	return c.JSON(fiber.Map{"deleted": list.ID})
}

// AddCoin snapshots the current quote for a coin into the watchlist.
// Re-adding an existing coin refreshes its snapshot — that is the only
// moment watchlist data is updated.
func (s *WatchlistService) AddCoin(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	watchlistID := c.Params("id")

	var body struct {
		CoinApiID int64 `json:"coin_api_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.CoinApiID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "coin_api_id is required"})
	}

	list, err := s.loadWatchlist(userID, watchlistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "watchlist not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch watchlist"})
	}

	quotes, err := s.Market.QuotesByID(c.Context(), []int64{body.CoinApiID})
	if err != nil {
		return c.Status(502).JSON(fiber.Map{"error": "failed to fetch quote for coin"})
	}
	marketCoin, ok := quotes[body.CoinApiID]
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "coin not found on market API"})
	}
	quote := marketCoin.USDQuote()

	coin := models.WatchlistCoin{
		ID:                uuid.NewString(),
		WatchlistID:       list.ID,
		CoinApiID:         marketCoin.ID,
		Name:              marketCoin.Name,
		Symbol:            marketCoin.Symbol,
		Rank:              marketCoin.CmcRank,
		Price:             quote.Price,
		PercentChange1h:   quote.PercentChange1h,
		PercentChange24h:  quote.PercentChange24h,
		PercentChange7d:   quote.PercentChange7d,
		MarketCap:         quote.MarketCap,
		Volume24h:         quote.Volume24h,
		CirculatingSupply: marketCoin.CirculatingSupply,
	}

	// Upsert on (watchlist_id, coin_api_id): re-adding refreshes the snapshot.
	err = s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "watchlist_id"}, {Name: "coin_api_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"symbol",
			"rank",
			"price",
			"percent_change_1h",
			"percent_change_24h",
			"percent_change_7d",
			"market_cap",
			"volume_24h",
			"circulating_supply",
			"refreshed_at",
		}),
	}).Create(&coin).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB upsert failed"})
	}

	return c.Status(201).JSON(coin)
}

func (s *WatchlistService) RemoveCoin(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	watchlistID := c.Params("id")
	coinApiID := c.Params("coin_api_id")

	list, err := s.loadWatchlist(userID, watchlistID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "watchlist not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch watchlist"})
	}

	result := s.DB.Where("watchlist_id = ? AND coin_api_id = ?", list.ID, coinApiID).
		Delete(&models.WatchlistCoin{})
	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to remove coin"})
	}
	if result.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "coin not found in watchlist"})
	}
	return c.JSON(fiber.Map{"deleted": coinApiID})
}
