// workers/snapshot_worker.go
package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"portfolio-tracker-service/models"
	"portfolio-tracker-service/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SnapshotWorker periodically records each user's combined wallet value and
// ships a daily JSON backup of every portfolio to R2.
type SnapshotWorker struct {
	DB *gorm.DB

	lastBackup time.Time
}

func NewSnapshotWorker(db *gorm.DB) *SnapshotWorker {
	return &SnapshotWorker{DB: db}
}

const backupInterval = 24 * time.Hour

// Run takes one snapshot per user per tick. Failures skip the tick and leave
// prior state untouched — the next tick retries from scratch.
func (w *SnapshotWorker) Run(ctx context.Context, interval time.Duration) {
	log.Println("Starting portfolio snapshot worker...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot worker stopped.")
			return
		case <-ticker.C:
			if err := w.takeSnapshots(); err != nil {
				log.Printf("❌ Snapshot tick failed: %v", err)
				continue
			}
			if time.Since(w.lastBackup) >= backupInterval {
				if err := w.exportBackups(); err != nil {
					log.Printf("❌ Backup export failed: %v", err)
					// Do NOT advance lastBackup on failure — retry next tick
					continue
				}
				w.lastBackup = time.Now().UTC()
			}
		}
	}
}

func (w *SnapshotWorker) takeSnapshots() error {
	type userTotal struct {
		UserID     string
		TotalValue float64
	}

	var totals []userTotal
	err := w.DB.Model(&models.Wallet{}).
		Select("user_id, SUM(total_value) AS total_value").
		Group("user_id").
		Scan(&totals).Error
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		return nil
	}

	snapshots := make([]models.PortfolioSnapshot, len(totals))
	for i, t := range totals {
		snapshots[i] = models.PortfolioSnapshot{
			ID:         uuid.NewString(),
			UserID:     t.UserID,
			TotalValue: t.TotalValue,
		}
	}
	if err := w.DB.Create(&snapshots).Error; err != nil {
		return err
	}

	log.Printf("📸 Recorded %d portfolio snapshot(s)", len(snapshots))
	return nil
}

func (w *SnapshotWorker) exportBackups() error {
	var userIDs []string
	if err := w.DB.Model(&models.Wallet{}).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error; err != nil {
		return err
	}

	day := time.Now().UTC().Format("2006-01-02")
	for _, userID := range userIDs {
		var wallets []models.Wallet
		err := w.DB.
			Preload("Coins").
			Preload("Coins.Transactions", func(db *gorm.DB) *gorm.DB {
				return db.Order("created_at ASC")
			}).
			Where("user_id = ?", userID).
			Find(&wallets).Error
		if err != nil {
			log.Printf("❌ Backup: failed to load wallets for user %s: %v", userID, err)
			continue
		}

		data, err := utils.BuildPortfolioExport(userID, wallets)
		if err != nil {
			log.Printf("❌ Backup: failed to serialize portfolio for user %s: %v", userID, err)
			continue
		}

		key := fmt.Sprintf("backups/%s/%s.json", userID, day)
		if _, err := utils.UploadBytesToR2(data, key, "application/json"); err != nil {
			log.Printf("❌ Backup: upload failed for user %s: %v", userID, err)
			continue
		}
	}

	log.Printf("✅ Daily backup export finished for %d user(s)", len(userIDs))
	return nil
}
