package admin

import (
	"time"

	"vaulty/database"
	"vaulty/ledger"
	"vaulty/models"
	"vaulty/services"

	"github.com/gofiber/fiber/v2"
)

// GetAnalytics returns platform-wide counters for the admin dashboard
func GetAnalytics(c *fiber.Ctx) error {
	db := database.GetDB()
	now := time.Now().UTC()

	var totalUsers, guests, banned int64
	db.Model(&models.User{}).Count(&totalUsers)
	db.Model(&models.User{}).Where("is_guest = ?", true).Count(&guests)
	db.Model(&models.User{}).Where("is_banned = ?", true).Count(&banned)

	var activeToday int64
	db.Model(&models.User{}).Where("last_login >= ?", now.Add(-24*time.Hour)).Count(&activeToday)

	planCounts := fiber.Map{}
	for _, p := range ledger.Plans {
		var n int64
		db.Model(&models.User{}).Where("plan = ?", p).Count(&n)
		planCounts[string(p)] = n
	}

	var pointsInCirculation int64
	db.Model(&models.User{}).Select("COALESCE(SUM(points), 0)").Scan(&pointsInCirculation)

	var transfersToday int64
	db.Model(&models.Transfer{}).Where("created_at >= ?", now.Add(-24*time.Hour)).Count(&transfersToday)

	var revenue float64
	db.Model(&models.Payment{}).Select("COALESCE(SUM(amount_usd), 0)").Scan(&revenue)

	var pendingReferrals, settledReferrals int64
	db.Model(&models.Referral{}).Where("status = ?", models.ReferralPending).Count(&pendingReferrals)
	db.Model(&models.Referral{}).Where("status = ?", models.ReferralSettled).Count(&settledReferrals)

	return c.JSON(fiber.Map{
		"success": true,
		"users": fiber.Map{
			"total":        totalUsers,
			"guests":       guests,
			"banned":       banned,
			"active_today": activeToday,
			"by_plan":      planCounts,
		},
		"ledger": fiber.Map{
			"points_in_circulation": pointsInCirculation,
			"transfers_today":       transfersToday,
		},
		"revenue_usd": revenue,
		"referrals": fiber.Map{
			"pending": pendingReferrals,
			"settled": settledReferrals,
		},
	})
}

// RunPlanSweep manually triggers the expired-plan downgrade pass
func RunPlanSweep(c *fiber.Ctx) error {
	svc := services.GetPlanService()
	if svc == nil {
		return c.Status(500).JSON(fiber.Map{"error": "Service unavailable"})
	}

	reverted, err := svc.RevertExpiredPlans(time.Now().UTC())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Sweep failed"})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"reverted": reverted,
	})
}

// RunReferralSweep manually expires stale pending referrals
func RunReferralSweep(c *fiber.Ctx) error {
	svc := services.GetQuestService()
	if svc == nil {
		return c.Status(500).JSON(fiber.Map{"error": "Service unavailable"})
	}

	expired, err := svc.ExpireStaleReferrals(time.Now().UTC())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Sweep failed"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"expired": expired,
	})
}
