// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"portfolio-tracker-service/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StartRevaluationScheduler revalues every wallet from fresh quotes on a
// fixed interval, keeping the cached TotalValue columns close to the market.
// Failures skip the tick; stale caches are still served.
func (s *WalletService) StartRevaluationScheduler(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := s.RevalueAllWallets(context.Background()); err != nil {
				log.Printf("[Revaluation] %v", err)
			}
		}),
	)
}

// RevalueAllWallets recomputes every wallet's denormalized totals at current
// prices and persists them.
func (s *WalletService) RevalueAllWallets(ctx context.Context) error {
	var wallets []models.Wallet
	err := s.DB.
		Preload("Coins").
		Preload("Coins.Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Find(&wallets).Error
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		return nil
	}

	var allCoins []models.Coin
	for _, w := range wallets {
		allCoins = append(allCoins, w.Coins...)
	}
	prices := s.Market.PricesByID(ctx, coinIDs(allCoins))

	for i := range wallets {
		w := &wallets[i]
		before := w.TotalValue
		models.RecomputeWallet(w, prices)
		if w.TotalValue == before {
			continue
		}
		if err := s.DB.Model(&models.Wallet{}).
			Where("id = ?", w.ID).
			Update("total_value", w.TotalValue).Error; err != nil {
			log.Printf("[Revaluation] Failed to update wallet %s: %v", w.ID, err)
		}
	}

	log.Printf("✅ Revalued %d wallet(s)", len(wallets))
	return nil
}
