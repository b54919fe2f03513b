// handlers/wallet_routes.go
package handlers

import (
	"portfolio-tracker-service/middleware"
	"portfolio-tracker-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWalletRoutes(app *fiber.App, walletService *services.WalletService, userService *services.UserService) {
	// 🔐 All wallet data is user-scoped — user context required throughout
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Wallet CRUD
	secured.Post("/wallets", walletService.CreateWallet)
	secured.Get("/wallets", walletService.GetUserWallets)
	secured.Delete("/wallets/:id", walletService.DeleteWallet)

	// Cross-portfolio overview (aggregated coins + allocation)
	secured.Get("/wallets/overview", walletService.GetOverview)
	secured.Get("/wallets/:id/allocation", walletService.GetWalletAllocation)

	// Coins & transactions
	secured.Post("/wallets/:id/coins", walletService.AddCoinTransaction)
	secured.Delete("/wallets/:id/coins/:coin_api_id", walletService.DeleteCoin)
	secured.Get("/wallets/:id/coins/:coin_api_id/transactions", walletService.GetCoinTransactions)

	// Portfolio backup export → R2
	secured.Post("/wallets/export", walletService.ExportPortfolio)

	// User record & savings goal
	secured.Get("/users/me", userService.GetMe)
	secured.Put("/users/me/goal", userService.UpdateGoal)
}
