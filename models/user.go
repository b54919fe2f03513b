// models/user.go
package models

import (
	"time"
)

// PortfolioUser is the local record for a gateway-authenticated user.
// Auth lives upstream; this row only carries portfolio-level settings.
// Created lazily the first time an authenticated user touches the service.
type PortfolioUser struct {
	ID             string `json:"id" gorm:"primaryKey;type:uuid"`
	ExternalUserID string `json:"external_user_id" gorm:"uniqueIndex;not null"`
	// Savings target for the combined value of all wallets. 0 means unset.
	WalletsValueGoal float64   `json:"wallets_value_goal" gorm:"default:0"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
