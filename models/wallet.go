// models/wallet.go
package models

import (
	"time"
)

// Transaction types
const (
	TransactionTypeBuy  = "buy"
	TransactionTypeSell = "sell"
)

// Transaction is a single buy or sell event for a coin.
// Immutable once created — corrections are modeled as new transactions.
type Transaction struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	CoinID       string    `json:"coin_id" gorm:"not null;index;type:uuid"`
	Quantity     float64   `json:"quantity" gorm:"not null"`
	PricePerCoin float64   `json:"price_per_coin" gorm:"not null"`
	// Snapshot of the wallet's total value at the moment of the transaction.
	// Kept for historical display, never recomputed later.
	NewWalletValue float64   `json:"new_wallet_value"`
	Type           string    `json:"type" gorm:"type:varchar(8);not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Coin is a holding of one external cryptocurrency within a wallet,
// backed by its transaction history.
type Coin struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	WalletID string `json:"wallet_id" gorm:"not null;index;uniqueIndex:idx_wallet_coin,priority:1;type:uuid"`
	// External market-data identifier (CMC id). Unique within a wallet.
	CoinApiID int64  `json:"coin_api_id" gorm:"not null;uniqueIndex:idx_wallet_coin,priority:2"`
	Name      string `json:"name" gorm:"not null"`
	Symbol    string `json:"symbol"`
	// Cached signed sum of transaction quantities (buys add, sells subtract).
	// Recomputed via RecomputeWallet on every mutating path.
	TotalQuantity float64   `json:"total_quantity" gorm:"default:0"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Insertion order is chronological order.
	Transactions []Transaction `json:"transactions,omitempty" gorm:"foreignKey:CoinID"`
}

// Wallet is a named portfolio owned by exactly one user.
type Wallet struct {
	ID     string `json:"id" gorm:"primaryKey;type:uuid"`
	UserID string `json:"user_id" gorm:"not null;index"` // external user ID from the gateway
	Name   string `json:"name" gorm:"not null"`
	Slug   string `json:"slug" gorm:"index"`
	// Cached sum of each coin's current market value. Not authoritative,
	// refreshed by the revaluation scheduler and on every write.
	TotalValue float64   `json:"total_value" gorm:"default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Coins []Coin `json:"coins,omitempty" gorm:"foreignKey:WalletID"`
}
