package utils

import (
	"encoding/json"
	"testing"

	"portfolio-tracker-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1,234,567.89", FormatNumber(1234567.891))
	assert.Equal(t, "0.00", FormatNumber(0))
}

func TestFormatAsCurrency(t *testing.T) {
	assert.Equal(t, "$20,000.00", FormatAsCurrency(20000))
}

func TestBuildPortfolioExport(t *testing.T) {
	wallets := []models.Wallet{
		{ID: "w1", Name: "Main", TotalValue: 1500},
		{ID: "w2", Name: "Cold storage", TotalValue: 500},
	}

	data, err := BuildPortfolioExport("user-1", wallets)
	require.NoError(t, err)

	var export PortfolioExport
	require.NoError(t, json.Unmarshal(data, &export))

	assert.Equal(t, "user-1", export.UserID)
	assert.InDelta(t, 2000.0, export.TotalValue, 1e-9)
	assert.Equal(t, "$2,000.00", export.TotalValueFormatted)
	assert.Len(t, export.Wallets, 2)
	assert.False(t, export.ExportedAt.IsZero())
}
