// portfolio-tracker-service/services/wallet_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"portfolio-tracker-service/models"
	"portfolio-tracker-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletService struct {
	DB     *gorm.DB
	Market *MarketDataClient
}

func NewWalletService(db *gorm.DB, market *MarketDataClient) *WalletService {
	return &WalletService{DB: db, Market: market}
}

// loadUserWallets fetches every wallet of a user with coins and transactions
// preloaded in chronological order — the snapshot the aggregation core runs on.
func (s *WalletService) loadUserWallets(userID string) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := s.DB.
		Preload("Coins", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Coins.Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&wallets).Error
	return wallets, err
}

// loadWallet fetches one wallet, enforcing ownership.
func (s *WalletService) loadWallet(userID, walletID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.DB.
		Preload("Coins", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Coins.Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ? AND user_id = ?", walletID, userID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func coinIDs(coins []models.Coin) []int64 {
	seen := make(map[int64]bool, len(coins))
	var ids []int64
	for _, c := range coins {
		if !seen[c.CoinApiID] {
			seen[c.CoinApiID] = true
			ids = append(ids, c.CoinApiID)
		}
	}
	return ids
}

func (s *WalletService) CreateWallet(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}

	wallet := &models.Wallet{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   body.Name,
		Slug:   slug.Make(body.Name),
	}
	if err := s.DB.Create(wallet).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	log.Printf("✅ [WALLET] Created wallet %q for user %s", wallet.Name, userID)
	return c.Status(201).JSON(wallet)
}

func (s *WalletService) GetUserWallets(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	wallets, err := s.loadUserWallets(userID)
	if err != nil {
		log.Printf("ERROR fetching wallets for user %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch wallets"})
	}
	return c.JSON(wallets)
}

func (s *WalletService) DeleteWallet(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	walletID := c.Params("id")

	wallet, err := s.loadWallet(userID, walletID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "wallet not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch wallet"})
	}

	// Cascade: transactions → coins → wallet
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for _, coin := range wallet.Coins {
			if err := tx.Where("coin_id = ?", coin.ID).Delete(&models.Transaction{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("wallet_id = ?", wallet.ID).Delete(&models.Coin{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Wallet{}, "id = ?", wallet.ID).Error
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to delete wallet"})
	}

	log.Printf("🗑️  [WALLET] Deleted wallet %s (user %s)", walletID, userID)
	return c.JSON(fiber.Map{"deleted": walletID})
}

// AddCoinTransaction appends a buy or sell to a coin, creating the coin on
// its first buy. Denormalized totals are recomputed inside the same DB
// transaction as the write, and a sell that zeroes out the holding removes
// the coin together with its history.
func (s *WalletService) AddCoinTransaction(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	walletID := c.Params("id")

	var body struct {
		CoinApiID    int64   `json:"coin_api_id"`
		Name         string  `json:"name"`
		Symbol       string  `json:"symbol"`
		Quantity     float64 `json:"quantity"`
		PricePerCoin float64 `json:"price_per_coin"`
		Type         string  `json:"type"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	if body.Type == "" {
		body.Type = models.TransactionTypeBuy
	}
	if body.Type != models.TransactionTypeBuy && body.Type != models.TransactionTypeSell {
		return c.Status(400).JSON(fiber.Map{"error": "type must be \"buy\" or \"sell\""})
	}
	if body.CoinApiID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "coin_api_id is required"})
	}
	if !isPositiveFinite(body.Quantity) || !isPositiveFinite(body.PricePerCoin) {
		return c.Status(400).JSON(fiber.Map{"error": "quantity and price_per_coin must be positive numbers"})
	}

	wallet, err := s.loadWallet(userID, walletID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "wallet not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch wallet"})
	}

	var coin *models.Coin
	for i := range wallet.Coins {
		if wallet.Coins[i].CoinApiID == body.CoinApiID {
			coin = &wallet.Coins[i]
			break
		}
	}

	if coin == nil {
		if body.Type == models.TransactionTypeSell {
			return c.Status(400).JSON(fiber.Map{"error": "cannot sell a coin that is not in the wallet"})
		}
		if body.Name == "" {
			return c.Status(400).JSON(fiber.Map{"error": "name is required for a new coin"})
		}
		wallet.Coins = append(wallet.Coins, models.Coin{
			ID:        uuid.NewString(),
			WalletID:  wallet.ID,
			CoinApiID: body.CoinApiID,
			Name:      body.Name,
			Symbol:    body.Symbol,
		})
		coin = &wallet.Coins[len(wallet.Coins)-1]
	}

	transaction := models.Transaction{
		ID:           uuid.NewString(),
		CoinID:       coin.ID,
		Quantity:     body.Quantity,
		PricePerCoin: body.PricePerCoin,
		Type:         body.Type,
		CreatedAt:    time.Now().UTC(),
	}
	prices := s.Market.PricesByID(c.Context(), coinIDs(wallet.Coins))
	removeCoin := models.ApplyTransaction(wallet, coin.ID, &transaction, prices)

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if removeCoin {
			if err := tx.Where("coin_id = ?", coin.ID).Delete(&models.Transaction{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Coin{}, "id = ?", coin.ID).Error; err != nil {
				return err
			}
		} else {
			// Upsert: first buy inserts the coin, later transactions only
			// refresh its cached quantity.
			coinRow := models.Coin{
				ID:            coin.ID,
				WalletID:      coin.WalletID,
				CoinApiID:     coin.CoinApiID,
				Name:          coin.Name,
				Symbol:        coin.Symbol,
				TotalQuantity: coin.TotalQuantity,
				CreatedAt:     coin.CreatedAt,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"total_quantity"}),
			}).Create(&coinRow).Error; err != nil {
				return err
			}
			if err := tx.Create(&transaction).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Wallet{}).
			Where("id = ?", wallet.ID).
			Update("total_value", wallet.TotalValue).Error
	})
	if err != nil {
		log.Printf("ERROR persisting transaction for wallet %s: %v", wallet.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	updated, err := s.loadWallet(userID, walletID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to reload wallet"})
	}
	return c.Status(201).JSON(updated)
}

// DeleteCoin removes a coin and all of its transactions from a wallet and
// returns the updated wallet, matching the frontend's delete-coin flow.
func (s *WalletService) DeleteCoin(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	walletID := c.Params("id")
	coinApiID, err := strconv.ParseInt(c.Params("coin_api_id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid coin_api_id"})
	}

	wallet, err := s.loadWallet(userID, walletID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "wallet not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch wallet"})
	}

	var target *models.Coin
	remaining := make([]models.Coin, 0, len(wallet.Coins))
	for i := range wallet.Coins {
		if wallet.Coins[i].CoinApiID == coinApiID {
			target = &wallet.Coins[i]
			continue
		}
		remaining = append(remaining, wallet.Coins[i])
	}
	if target == nil {
		return c.Status(404).JSON(fiber.Map{"error": "coin not found in wallet"})
	}

	wallet.Coins = remaining
	prices := s.Market.PricesByID(c.Context(), coinIDs(wallet.Coins))
	models.RecomputeWallet(wallet, prices)

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("coin_id = ?", target.ID).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Coin{}, "id = ?", target.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Wallet{}).
			Where("id = ?", wallet.ID).
			Update("total_value", wallet.TotalValue).Error
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to delete coin"})
	}

	log.Printf("🗑️  [WALLET] Removed coin %d from wallet %s", coinApiID, walletID)
	return c.JSON(wallet)
}

// coinView is one row of the assets table: the coin plus its computed
// holdings and current value.
type coinView struct {
	CoinApiID int64                 `json:"coin_api_id"`
	Name      string                `json:"name"`
	Symbol    string                `json:"symbol"`
	Holdings  models.HoldingSummary `json:"holdings"`
	Value     float64               `json:"value"`
}

func buildCoinViews(coins []models.Coin, prices map[int64]float64) ([]coinView, float64) {
	views := make([]coinView, 0, len(coins))
	total := 0.0
	for _, coin := range coins {
		price, ok := prices[coin.CoinApiID]
		value := models.CoinValue(coin, price, ok)
		views = append(views, coinView{
			CoinApiID: coin.CoinApiID,
			Name:      coin.Name,
			Symbol:    coin.Symbol,
			Holdings:  models.ComputeHoldings(coin.Transactions),
			Value:     value,
		})
		total += value
	}
	return views, total
}

// GetOverview serves the cross-portfolio view: same-coin holdings merged
// across every wallet, valued at live prices, with the allocation breakdown.
func (s *WalletService) GetOverview(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	wallets, err := s.loadUserWallets(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch wallets"})
	}

	aggregated := models.AggregateCoins(wallets)
	prices := s.Market.PricesByID(c.Context(), coinIDs(aggregated))

	views, total := buildCoinViews(aggregated, prices)
	allocation := models.RankAllocations(aggregated, func(coin models.Coin) float64 {
		price, ok := prices[coin.CoinApiID]
		return models.CoinValue(coin, price, ok)
	})

	return c.JSON(fiber.Map{
		"total_value": total,
		"coins":       views,
		"allocation":  allocation,
	})
}

// GetWalletAllocation serves the allocation breakdown for a single wallet.
func (s *WalletService) GetWalletAllocation(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	walletID := c.Params("id")

	wallet, err := s.loadWallet(userID, walletID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "wallet not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch wallet"})
	}

	prices := s.Market.PricesByID(c.Context(), coinIDs(wallet.Coins))
	allocation := models.RankAllocations(wallet.Coins, func(coin models.Coin) float64 {
		price, ok := prices[coin.CoinApiID]
		return models.CoinValue(coin, price, ok)
	})

	return c.JSON(allocation)
}

// GetCoinTransactions serves the transactions view for one coin.
func (s *WalletService) GetCoinTransactions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	walletID := c.Params("id")
	coinApiID, err := strconv.ParseInt(c.Params("coin_api_id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid coin_api_id"})
	}

	wallet, err := s.loadWallet(userID, walletID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "wallet not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch wallet"})
	}

	for _, coin := range wallet.Coins {
		if coin.CoinApiID == coinApiID {
			return c.JSON(fiber.Map{
				"name":         coin.Name,
				"coin_api_id":  coin.CoinApiID,
				"holdings":     models.ComputeHoldings(coin.Transactions),
				"transactions": coin.Transactions,
			})
		}
	}
	return c.Status(404).JSON(fiber.Map{"error": "coin not found in wallet"})
}

// ExportPortfolio serializes the user's wallets to JSON, uploads the backup
// to R2 and returns the download URL.
func (s *WalletService) ExportPortfolio(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	wallets, err := s.loadUserWallets(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch wallets"})
	}

	data, err := utils.BuildPortfolioExport(userID, wallets)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to build export"})
	}

	key := fmt.Sprintf("exports/%s/%s.json", userID, time.Now().UTC().Format("20060102T150405Z"))
	url, err := utils.UploadBytesToR2(data, key, "application/json")
	if err != nil {
		log.Printf("❌ [EXPORT] Upload failed for user %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to upload export"})
	}

	log.Printf("✅ [EXPORT] Portfolio export for user %s → %s", userID, key)
	return c.JSON(fiber.Map{"url": url})
}

func isPositiveFinite(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
