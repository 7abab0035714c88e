package admin

import (
	"vaulty/database"
	"vaulty/models"
	"vaulty/services"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// GetUsers returns all users with pagination
func GetUsers(c *fiber.Ctx) error {
	db := database.GetDB()

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	search := c.Query("search", "")

	offset := (page - 1) * limit

	var users []models.User
	var total int64

	query := db.Model(&models.User{})
	if search != "" {
		query = query.Where("username LIKE ? OR email LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	query.Count(&total)

	if err := query.Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to fetch users",
		})
	}

	return c.JSON(fiber.Map{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUser returns a single user by ID
func GetUser(c *fiber.Ctx) error {
	db := database.GetDB()
	id := c.Params("id")

	var user models.User
	if err := db.Preload("Badges.Badge").First(&user, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.JSON(user)
}

// UpdateUser updates a user's account flags and profile fields. Ledger
// balances are changed through GrantPoints, not here.
func UpdateUser(c *fiber.Ctx) error {
	db := database.GetDB()
	id := c.Params("id")

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	var updateData struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
		IsAdmin     *bool  `json:"is_admin"`
		IsBanned    *bool  `json:"is_banned"`
		IsGhost     *bool  `json:"is_ghost"`
	}

	if err := c.BodyParser(&updateData); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if updateData.Username != "" {
		user.Username = updateData.Username
	}
	if updateData.Email != "" {
		email := updateData.Email
		user.Email = &email
	}
	if updateData.DisplayName != "" {
		user.DisplayName = updateData.DisplayName
	}
	if updateData.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(updateData.Password), bcrypt.DefaultCost)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{
				"error": "Failed to hash password",
			})
		}
		user.Password = string(hashed)
	}
	if updateData.IsAdmin != nil {
		user.IsAdmin = *updateData.IsAdmin
	}
	if updateData.IsBanned != nil {
		user.IsBanned = *updateData.IsBanned
	}
	if updateData.IsGhost != nil {
		user.IsGhost = *updateData.IsGhost
	}

	if err := db.Save(&user).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to update user",
		})
	}

	user.Password = ""
	return c.JSON(user)
}

// DeleteUser removes a user account
func DeleteUser(c *fiber.Ctx) error {
	db := database.GetDB()
	id := c.Params("id")

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	if err := db.Delete(&user).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to delete user",
		})
	}

	return c.JSON(fiber.Map{
		"message": "User deleted successfully",
	})
}

type GrantPointsRequest struct {
	Points int    `json:"points"`
	XP     int    `json:"xp"`
	Note   string `json:"note"`
}

// GrantPoints credits points and XP from the system. The grant goes through
// the wallet so a ledger entry is recorded and rank-up events fire.
func GrantPoints(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid user id",
		})
	}

	var req GrantPointsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Points <= 0 && req.XP <= 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "Nothing to grant",
		})
	}

	wallet := services.GetWalletService()
	if req.Points > 0 {
		note := req.Note
		if note == "" {
			note = "admin grant"
		}
		if _, err := wallet.Grant(uint(id), req.Points, models.TransferGrant, note); err != nil {
			return c.Status(500).JSON(fiber.Map{
				"error": "Failed to grant points",
			})
		}
	}
	if req.XP > 0 {
		if err := wallet.AwardXP(uint(id), req.XP); err != nil {
			return c.Status(500).JSON(fiber.Map{
				"error": "Failed to award XP",
			})
		}
	}

	var user models.User
	database.GetDB().First(&user, id)
	user.Password = ""

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}
