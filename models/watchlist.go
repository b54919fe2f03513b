// models/watchlist.go
package models

import (
	"time"
)

// Watchlist tracks coins for price visibility without ownership.
type Watchlist struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      string    `json:"user_id" gorm:"not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	Slug        string    `json:"slug" gorm:"index"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Coins []WatchlistCoin `json:"coins,omitempty" gorm:"foreignKey:WatchlistID"`
}

// WatchlistCoin is a denormalized quote snapshot. It is refreshed only when
// the user re-adds the coin — there is no transaction history behind it.
type WatchlistCoin struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	WatchlistID string `json:"watchlist_id" gorm:"not null;index;uniqueIndex:idx_watchlist_coin,priority:1;type:uuid"`
	CoinApiID   int64  `json:"coin_api_id" gorm:"not null;uniqueIndex:idx_watchlist_coin,priority:2"`
	Name        string `json:"name" gorm:"not null"`
	Symbol      string `json:"symbol"`

	// Quote snapshot. Absent upstream fields are stored as 0.
	Rank              int     `json:"rank"`
	Price             float64 `json:"price"`
	PercentChange1h   float64 `json:"percent_change_1h"`
	PercentChange24h  float64 `json:"percent_change_24h"`
	PercentChange7d   float64 `json:"percent_change_7d"`
	MarketCap         float64 `json:"market_cap"`
	Volume24h         float64 `json:"volume_24h"`
	CirculatingSupply float64 `json:"circulating_supply"`

	AddedAt     time.Time `json:"added_at" gorm:"autoCreateTime"`
	RefreshedAt time.Time `json:"refreshed_at" gorm:"autoUpdateTime"`
}
