// models/snapshot.go
package models

import (
	"time"
)

// PortfolioSnapshot is a point-in-time record of a user's combined wallet
// value, written by the snapshot worker. Powers the value-history view.
type PortfolioSnapshot struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID     string    `json:"user_id" gorm:"not null;index"`
	TotalValue float64   `json:"total_value" gorm:"not null"`
	TakenAt    time.Time `json:"taken_at" gorm:"autoCreateTime;index"`
}
