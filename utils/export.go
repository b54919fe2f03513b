// utils/export.go
package utils

import (
	"encoding/json"
	"time"

	"portfolio-tracker-service/models"
)

// PortfolioExport is the backup document uploaded to R2. Raw numbers carry
// the data; formatted strings make the file readable on its own.
type PortfolioExport struct {
	UserID              string          `json:"user_id"`
	ExportedAt          time.Time       `json:"exported_at"`
	TotalValue          float64         `json:"total_value"`
	TotalValueFormatted string          `json:"total_value_formatted"`
	Wallets             []models.Wallet `json:"wallets"`
}

// BuildPortfolioExport serializes a user's wallets into the backup document.
func BuildPortfolioExport(userID string, wallets []models.Wallet) ([]byte, error) {
	total := 0.0
	for _, w := range wallets {
		total += w.TotalValue
	}

	export := PortfolioExport{
		UserID:              userID,
		ExportedAt:          time.Now().UTC(),
		TotalValue:          total,
		TotalValueFormatted: FormatAsCurrency(total),
		Wallets:             wallets,
	}
	return json.MarshalIndent(export, "", "  ")
}
