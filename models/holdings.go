// models/holdings.go
package models

import (
	"sort"
)

// ChartPalette is the fixed color cycle for allocation charts.
// Index 0 is also the "Overview" accent color in the frontend.
var ChartPalette = []string{
	"#5178ff",
	"#f7931a",
	"#627eea",
	"#26a17b",
	"#e84142",
	"#8247e5",
	"#f3ba2f",
	"#c2c2c2",
}

// ColorByIndex returns a palette color for a rank position, cycling when the
// position exceeds the palette length.
func ColorByIndex(i int) string {
	if i < 0 {
		i = -i
	}
	return ChartPalette[i%len(ChartPalette)]
}

// HoldingSummary is the aggregate of one coin's transaction history.
type HoldingSummary struct {
	TotalQuantity float64 `json:"total_quantity"`
	AvgBuyPrice   float64 `json:"avg_buy_price"`
	// nil when the coin was never sold, so the frontend can show "—"
	// instead of conflating "never sold" with "sold at zero".
	AvgSellPrice *float64 `json:"avg_sell_price"`
}

// ComputeHoldings reduces a transaction history to the quantity held and the
// quantity-weighted average buy and sell prices. Buys add to the quantity,
// sells subtract. Average prices are plain weighted means per side — sells
// are not netted against their buys (no cost-basis matching).
func ComputeHoldings(txs []Transaction) HoldingSummary {
	var (
		quantity  float64
		buyQty    float64
		buyCost   float64
		sellQty   float64
		sellTotal float64
	)

	for _, tx := range txs {
		switch tx.Type {
		case TransactionTypeBuy:
			quantity += tx.Quantity
			buyQty += tx.Quantity
			buyCost += tx.Quantity * tx.PricePerCoin
		case TransactionTypeSell:
			quantity -= tx.Quantity
			sellQty += tx.Quantity
			sellTotal += tx.Quantity * tx.PricePerCoin
		}
	}

	summary := HoldingSummary{TotalQuantity: quantity}
	if buyQty > 0 {
		summary.AvgBuyPrice = buyCost / buyQty
	}
	if sellQty > 0 {
		avgSell := sellTotal / sellQty
		summary.AvgSellPrice = &avgSell
	}
	return summary
}

// CoinValue computes a coin's current market value. When the live price is
// unavailable it falls back to the most recent known transaction price, then
// to zero — valuation degrades for display, it never fails.
func CoinValue(coin Coin, price float64, priceOK bool) float64 {
	if !priceOK {
		if n := len(coin.Transactions); n > 0 {
			price = coin.Transactions[n-1].PricePerCoin
		} else {
			price = 0
		}
	}
	return coin.TotalQuantity * price
}

// AggregateCoins merges same-coin holdings across wallets into unified
// per-coin totals for the cross-portfolio overview. Transaction histories are
// concatenated in wallet order then per-wallet chronological order, so the
// result is deterministic for a given input. The returned coins are synthetic
// views — they carry no wallet or row identity.
func AggregateCoins(wallets []Wallet) []Coin {
	merged := make(map[int64]*Coin)
	var order []int64

	for _, w := range wallets {
		for _, c := range w.Coins {
			agg, ok := merged[c.CoinApiID]
			if !ok {
				agg = &Coin{
					CoinApiID: c.CoinApiID,
					Name:      c.Name,
					Symbol:    c.Symbol,
				}
				merged[c.CoinApiID] = agg
				order = append(order, c.CoinApiID)
			}
			agg.TotalQuantity += c.TotalQuantity
			agg.Transactions = append(agg.Transactions, c.Transactions...)
		}
	}

	coins := make([]Coin, 0, len(order))
	for _, id := range order {
		coins = append(coins, *merged[id])
	}
	return coins
}

// AllocationEntry is one slice of the allocation chart.
type AllocationEntry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// maxAllocationSlices is the number of coins shown individually before the
// long tail collapses into a single "Others" slice.
const maxAllocationSlices = 7

// RankAllocations values every coin, sorts descending (stable — ties keep
// input order), colors by rank position and folds entries past the top 7 into
// an "Others" slice. The output total always equals the input total.
func RankAllocations(coins []Coin, valueOf func(Coin) float64) []AllocationEntry {
	entries := make([]AllocationEntry, 0, len(coins))
	for _, c := range coins {
		entries = append(entries, AllocationEntry{
			Name:  c.Name,
			Value: valueOf(c),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	for i := range entries {
		entries[i].Color = ColorByIndex(i)
	}

	if len(entries) <= maxAllocationSlices {
		return entries
	}

	others := AllocationEntry{
		Name:  "Others",
		Color: ColorByIndex(maxAllocationSlices),
	}
	for _, e := range entries[maxAllocationSlices:] {
		others.Value += e.Value
	}
	return append(entries[:maxAllocationSlices:maxAllocationSlices], others)
}

// RecomputeWallet is the single place denormalized totals are rebuilt: every
// coin's TotalQuantity from its transaction list, and the wallet's TotalValue
// from coin values at the given prices. All mutating paths and the
// revaluation scheduler go through here so the caches cannot drift.
// ApplyTransaction appends the transaction to its coin's history and rebuilds
// the wallet's cached totals at the given prices. A sell that empties the coin
// drops it from the wallet before the recompute, so TotalValue never counts a
// holding that is being removed. The transaction's NewWalletValue is set to
// the resulting total. Reports whether the coin was removed.
func ApplyTransaction(w *Wallet, coinID string, transaction *Transaction, prices map[int64]float64) bool {
	var coin *Coin
	for i := range w.Coins {
		if w.Coins[i].ID == coinID {
			coin = &w.Coins[i]
			break
		}
	}
	if coin == nil {
		return false
	}
	coin.Transactions = append(coin.Transactions, *transaction)

	removed := transaction.Type == TransactionTypeSell &&
		ComputeHoldings(coin.Transactions).TotalQuantity <= 0
	if removed {
		remaining := make([]Coin, 0, len(w.Coins)-1)
		for i := range w.Coins {
			if w.Coins[i].ID != coinID {
				remaining = append(remaining, w.Coins[i])
			}
		}
		w.Coins = remaining
	}

	RecomputeWallet(w, prices)

	transaction.NewWalletValue = w.TotalValue
	if !removed {
		coin.Transactions[len(coin.Transactions)-1].NewWalletValue = w.TotalValue
	}
	return removed
}

func RecomputeWallet(w *Wallet, prices map[int64]float64) {
	total := 0.0
	for i := range w.Coins {
		coin := &w.Coins[i]
		coin.TotalQuantity = ComputeHoldings(coin.Transactions).TotalQuantity
		price, ok := prices[coin.CoinApiID]
		total += CoinValue(*coin, price, ok)
	}
	w.TotalValue = total
}
