// portfolio-tracker-service/services/user_service.go
package services

import (
	"errors"
	"math"

	"portfolio-tracker-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// EnsureUserRecord returns the local row for a gateway user, creating it on
// first touch. Identity itself lives upstream.
func (s *UserService) EnsureUserRecord(externalUserID string) (*models.PortfolioUser, error) {
	var user models.PortfolioUser
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.PortfolioUser{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetMe returns the user record plus the combined wallet value and progress
// toward the savings goal (percent, capped at 100; 0 while the goal is unset).
func (s *UserService) GetMe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	user, err := s.EnsureUserRecord(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load user record"})
	}

	var totalValue float64
	if err := s.DB.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(total_value), 0)").
		Scan(&totalValue).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to sum wallet values"})
	}

	progress := 0.0
	if user.WalletsValueGoal > 0 {
		progress = math.Min(totalValue/user.WalletsValueGoal*100, 100)
	}

	return c.JSON(fiber.Map{
		"id":                 user.ID,
		"external_user_id":   user.ExternalUserID,
		"wallets_value_goal": user.WalletsValueGoal,
		"total_value":        totalValue,
		"goal_progress":      progress,
	})
}

// UpdateGoal sets the savings target. Zero clears it.
func (s *UserService) UpdateGoal(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var body struct {
		Goal float64 `json:"goal"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Goal < 0 || math.IsInf(body.Goal, 0) || math.IsNaN(body.Goal) {
		return c.Status(400).JSON(fiber.Map{"error": "goal must be a non-negative number"})
	}

	user, err := s.EnsureUserRecord(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load user record"})
	}

	if err := s.DB.Model(user).Update("wallets_value_goal", body.Goal).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to update goal"})
	}

	return c.JSON(fiber.Map{"wallets_value_goal": body.Goal})
}
