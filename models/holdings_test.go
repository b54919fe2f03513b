package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buyTx(quantity, price float64) Transaction {
	return Transaction{Type: TransactionTypeBuy, Quantity: quantity, PricePerCoin: price}
}

func sellTx(quantity, price float64) Transaction {
	return Transaction{Type: TransactionTypeSell, Quantity: quantity, PricePerCoin: price}
}

func TestComputeHoldings_BuySellSequence(t *testing.T) {
	// buy 1 @ 100, buy 1 @ 200, sell 1 @ 150
	summary := ComputeHoldings([]Transaction{
		buyTx(1, 100),
		buyTx(1, 200),
		sellTx(1, 150),
	})

	assert.InDelta(t, 1.0, summary.TotalQuantity, 1e-9)
	assert.InDelta(t, 150.0, summary.AvgBuyPrice, 1e-9)
	require.NotNil(t, summary.AvgSellPrice)
	assert.InDelta(t, 150.0, *summary.AvgSellPrice, 1e-9)
}

func TestComputeHoldings_OnlyBuys(t *testing.T) {
	summary := ComputeHoldings([]Transaction{
		buyTx(2, 10),
		buyTx(3, 20),
		buyTx(0.5, 40),
	})

	assert.InDelta(t, 5.5, summary.TotalQuantity, 1e-9)
	// weighted mean: (2*10 + 3*20 + 0.5*40) / 5.5
	assert.InDelta(t, 100.0/5.5, summary.AvgBuyPrice, 1e-9)
	assert.Nil(t, summary.AvgSellPrice, "never-sold must stay distinguishable from sold-at-zero")
}

func TestComputeHoldings_WeightedNotSimpleMean(t *testing.T) {
	summary := ComputeHoldings([]Transaction{
		buyTx(9, 10),
		buyTx(1, 110),
	})

	// quantity-weighted: (90 + 110) / 10 = 20, not (10+110)/2 = 60
	assert.InDelta(t, 20.0, summary.AvgBuyPrice, 1e-9)
}

func TestComputeHoldings_Empty(t *testing.T) {
	summary := ComputeHoldings(nil)

	assert.Zero(t, summary.TotalQuantity)
	assert.Zero(t, summary.AvgBuyPrice, "no buys must yield 0, not a division by zero")
	assert.Nil(t, summary.AvgSellPrice)
}

func TestComputeHoldings_OnlySells(t *testing.T) {
	summary := ComputeHoldings([]Transaction{sellTx(2, 30)})

	assert.InDelta(t, -2.0, summary.TotalQuantity, 1e-9)
	assert.Zero(t, summary.AvgBuyPrice)
	require.NotNil(t, summary.AvgSellPrice)
	assert.InDelta(t, 30.0, *summary.AvgSellPrice, 1e-9)
}

func TestComputeHoldings_Idempotent(t *testing.T) {
	txs := []Transaction{buyTx(1, 100), sellTx(0.25, 120), buyTx(2, 90)}

	first := ComputeHoldings(txs)
	second := ComputeHoldings(txs)

	assert.Equal(t, first.TotalQuantity, second.TotalQuantity)
	assert.Equal(t, first.AvgBuyPrice, second.AvgBuyPrice)
	assert.Equal(t, *first.AvgSellPrice, *second.AvgSellPrice)
}

func TestCoinValue_LivePrice(t *testing.T) {
	coin := Coin{TotalQuantity: 3, Transactions: []Transaction{buyTx(3, 10)}}

	assert.InDelta(t, 60.0, CoinValue(coin, 20, true), 1e-9)
}

func TestCoinValue_FallbackToLastTransactionPrice(t *testing.T) {
	// live price unavailable, transactions [{buy,2,50}] → falls back to 50
	coin := Coin{TotalQuantity: 2, Transactions: []Transaction{buyTx(2, 50)}}

	assert.InDelta(t, 100.0, CoinValue(coin, 0, false), 1e-9)
}

func TestCoinValue_FallbackUsesMostRecentPrice(t *testing.T) {
	coin := Coin{
		TotalQuantity: 3,
		Transactions:  []Transaction{buyTx(2, 50), buyTx(1, 80)},
	}

	assert.InDelta(t, 240.0, CoinValue(coin, 0, false), 1e-9)
}

func TestCoinValue_NoPriceNoHistory(t *testing.T) {
	coin := Coin{TotalQuantity: 5}

	assert.Zero(t, CoinValue(coin, 0, false), "valuation must degrade to 0, never fail")
}

func TestAggregateCoins_MergesSameCoinAcrossWallets(t *testing.T) {
	wallets := []Wallet{
		{Coins: []Coin{{CoinApiID: 1, Name: "Bitcoin", TotalQuantity: 2, Transactions: []Transaction{buyTx(2, 100)}}}},
		{Coins: []Coin{{CoinApiID: 1, Name: "Bitcoin", TotalQuantity: 3, Transactions: []Transaction{buyTx(3, 110)}}}},
	}

	coins := AggregateCoins(wallets)

	require.Len(t, coins, 1)
	assert.InDelta(t, 5.0, coins[0].TotalQuantity, 1e-9)
	assert.Len(t, coins[0].Transactions, 2)
	// wallet order then per-wallet chronological order
	assert.InDelta(t, 100.0, coins[0].Transactions[0].PricePerCoin, 1e-9)
	assert.InDelta(t, 110.0, coins[0].Transactions[1].PricePerCoin, 1e-9)
}

func TestAggregateCoins_KeepsDistinctCoinsSeparate(t *testing.T) {
	wallets := []Wallet{
		{Coins: []Coin{
			{CoinApiID: 1, Name: "Bitcoin", TotalQuantity: 1},
			{CoinApiID: 2, Name: "Ethereum", TotalQuantity: 4},
		}},
		{Coins: []Coin{{CoinApiID: 2, Name: "Ethereum", TotalQuantity: 6}}},
	}

	coins := AggregateCoins(wallets)

	require.Len(t, coins, 2)
	assert.Equal(t, "Bitcoin", coins[0].Name)
	assert.Equal(t, "Ethereum", coins[1].Name)
	assert.InDelta(t, 10.0, coins[1].TotalQuantity, 1e-9)
}

func TestAggregateCoins_OutputIsSynthetic(t *testing.T) {
	wallets := []Wallet{
		{ID: "w1", Coins: []Coin{{ID: "c1", WalletID: "w1", CoinApiID: 1, Name: "Bitcoin"}}},
	}

	coins := AggregateCoins(wallets)

	require.Len(t, coins, 1)
	assert.Empty(t, coins[0].ID, "aggregated coins must not carry row identity")
	assert.Empty(t, coins[0].WalletID, "aggregated coins must not reference source wallets")
}

func TestAggregateCoins_Deterministic(t *testing.T) {
	wallets := []Wallet{
		{Coins: []Coin{{CoinApiID: 3, Name: "Solana"}, {CoinApiID: 1, Name: "Bitcoin"}}},
		{Coins: []Coin{{CoinApiID: 2, Name: "Ethereum"}, {CoinApiID: 1, Name: "Bitcoin"}}},
	}

	first := AggregateCoins(wallets)
	second := AggregateCoins(wallets)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].CoinApiID, second[i].CoinApiID)
	}
}

func fixedValue(coin Coin) float64 {
	return coin.TotalQuantity
}

func makeCoins(n int) []Coin {
	coins := make([]Coin, n)
	for i := range coins {
		coins[i] = Coin{
			Name:          fmt.Sprintf("Coin%d", i),
			TotalQuantity: float64(n - i), // descending values already
		}
	}
	return coins
}

func totalAllocationValue(entries []AllocationEntry) float64 {
	total := 0.0
	for _, e := range entries {
		total += e.Value
	}
	return total
}

func TestRankAllocations_EmptyInput(t *testing.T) {
	entries := RankAllocations(nil, fixedValue)

	assert.Empty(t, entries, "no Others entry may appear for empty input")
}

func TestRankAllocations_SevenCoinsNoOthers(t *testing.T) {
	entries := RankAllocations(makeCoins(7), fixedValue)

	require.Len(t, entries, 7)
	for _, e := range entries {
		assert.NotEqual(t, "Others", e.Name)
	}
}

func TestRankAllocations_EightCoinsCollapseIntoOthers(t *testing.T) {
	entries := RankAllocations(makeCoins(8), fixedValue)

	require.Len(t, entries, 8)
	last := entries[7]
	assert.Equal(t, "Others", last.Name)
	assert.InDelta(t, 1.0, last.Value, 1e-9) // only the smallest coin was excluded
	assert.Equal(t, ChartPalette[7%len(ChartPalette)], last.Color)
}

func TestRankAllocations_ConservationOfTotalValue(t *testing.T) {
	for _, n := range []int{0, 1, 7, 8, 50} {
		coins := makeCoins(n)
		inputTotal := 0.0
		for _, c := range coins {
			inputTotal += fixedValue(c)
		}

		entries := RankAllocations(coins, fixedValue)

		assert.InDelta(t, inputTotal, totalAllocationValue(entries), 1e-6,
			"total value must be conserved for %d coins", n)
		assert.LessOrEqual(t, len(entries), 8)
	}
}

func TestRankAllocations_SortsDescendingWithStableTies(t *testing.T) {
	coins := []Coin{
		{Name: "Small", TotalQuantity: 1},
		{Name: "TieA", TotalQuantity: 5},
		{Name: "TieB", TotalQuantity: 5},
		{Name: "Big", TotalQuantity: 9},
	}

	entries := RankAllocations(coins, fixedValue)

	require.Len(t, entries, 4)
	assert.Equal(t, "Big", entries[0].Name)
	assert.Equal(t, "TieA", entries[1].Name, "ties must keep input order")
	assert.Equal(t, "TieB", entries[2].Name)
	assert.Equal(t, "Small", entries[3].Name)
}

func TestRankAllocations_ColorsFollowRankPosition(t *testing.T) {
	entries := RankAllocations(makeCoins(5), fixedValue)

	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, ColorByIndex(i), e.Color)
	}
}

func TestColorByIndex_Cycles(t *testing.T) {
	n := len(ChartPalette)

	assert.Equal(t, ChartPalette[0], ColorByIndex(0))
	assert.Equal(t, ChartPalette[0], ColorByIndex(n))
	assert.Equal(t, ChartPalette[1], ColorByIndex(n+1))
}

func TestRecomputeWallet_CachesMatchRecomputation(t *testing.T) {
	wallet := Wallet{
		Coins: []Coin{
			{
				CoinApiID: 1,
				// stale cache on purpose
				TotalQuantity: 999,
				Transactions:  []Transaction{buyTx(2, 100), sellTx(0.5, 120)},
			},
			{
				CoinApiID:     2,
				TotalQuantity: -1,
				Transactions:  []Transaction{buyTx(10, 1)},
			},
		},
	}

	RecomputeWallet(&wallet, map[int64]float64{1: 200, 2: 2})

	// cached quantity equals the from-scratch reduction
	assert.InDelta(t, 1.5, wallet.Coins[0].TotalQuantity, 1e-9)
	assert.InDelta(t, 10.0, wallet.Coins[1].TotalQuantity, 1e-9)
	// 1.5*200 + 10*2
	assert.InDelta(t, 320.0, wallet.TotalValue, 1e-9)
}

func TestRecomputeWallet_MissingPriceFallsBack(t *testing.T) {
	wallet := Wallet{
		Coins: []Coin{
			{CoinApiID: 7, Transactions: []Transaction{buyTx(2, 50)}},
		},
	}

	RecomputeWallet(&wallet, map[int64]float64{})

	assert.InDelta(t, 100.0, wallet.TotalValue, 1e-9, "missing price uses last transaction price")
}

func TestRecomputeWallet_EmptyWallet(t *testing.T) {
	wallet := Wallet{}

	RecomputeWallet(&wallet, nil)

	assert.Zero(t, wallet.TotalValue)
}

func TestApplyTransaction_BuySetsSnapshotOnStoredRow(t *testing.T) {
	wallet := Wallet{
		Coins: []Coin{{ID: "c1", CoinApiID: 1, Transactions: []Transaction{buyTx(1, 100)}}},
	}
	tx := buyTx(1, 100)

	removed := ApplyTransaction(&wallet, "c1", &tx, map[int64]float64{1: 150})

	assert.False(t, removed)
	assert.InDelta(t, 300.0, wallet.TotalValue, 1e-9)
	assert.InDelta(t, 300.0, tx.NewWalletValue, 1e-9)
	// the copy kept in the history carries the same snapshot
	history := wallet.Coins[0].Transactions
	require.Len(t, history, 2)
	assert.InDelta(t, 300.0, history[1].NewWalletValue, 1e-9)
}

func TestApplyTransaction_OversellRemovesCoinBeforeValuation(t *testing.T) {
	wallet := Wallet{
		Coins: []Coin{{ID: "c1", CoinApiID: 1, Transactions: []Transaction{buyTx(1, 100)}}},
	}
	tx := sellTx(2, 100)

	removed := ApplyTransaction(&wallet, "c1", &tx, map[int64]float64{1: 100})

	assert.True(t, removed)
	assert.Empty(t, wallet.Coins)
	// the negative holding must not leak into the cached total
	assert.Zero(t, wallet.TotalValue)
	assert.Zero(t, tx.NewWalletValue)
}

func TestApplyTransaction_SellToZeroRemovesCoinKeepsOthers(t *testing.T) {
	wallet := Wallet{
		Coins: []Coin{
			{ID: "c1", CoinApiID: 1, Transactions: []Transaction{buyTx(2, 100)}},
			{ID: "c2", CoinApiID: 2, Transactions: []Transaction{buyTx(10, 1)}},
		},
	}
	tx := sellTx(2, 120)

	removed := ApplyTransaction(&wallet, "c1", &tx, map[int64]float64{1: 120, 2: 2})

	assert.True(t, removed)
	require.Len(t, wallet.Coins, 1)
	assert.Equal(t, "c2", wallet.Coins[0].ID)
	assert.InDelta(t, 20.0, wallet.TotalValue, 1e-9)
}

func TestApplyTransaction_UnknownCoinIsNoOp(t *testing.T) {
	wallet := Wallet{
		Coins: []Coin{{ID: "c1", CoinApiID: 1, TotalQuantity: 1}},
	}
	tx := buyTx(1, 100)

	removed := ApplyTransaction(&wallet, "missing", &tx, nil)

	assert.False(t, removed)
	assert.Empty(t, wallet.Coins[0].Transactions)
}
