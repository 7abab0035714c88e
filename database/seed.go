// database/seed.go - Badge catalog and promo fixture seeding
package database

import (
	"log"
	"time"

	"vaulty/ledger"
	"vaulty/models"

	"gorm.io/gorm"
)

// badgeCatalog is the fixed, global badge catalog. Seeding is idempotent:
// existing rows are left untouched.
var badgeCatalog = []models.Badge{
	{ID: "early-adopter", Name: "Early Adopter", Description: "Joined during the launch window", Image: "/badges/early-adopter.png"},
	{ID: "quest-master", Name: "Quest Master", Description: "Claimed every daily quest in one day", Image: "/badges/quest-master.png"},
	{ID: "generous", Name: "Generous", Description: "Sent 10,000 points in tips", Image: "/badges/generous.png"},
	{ID: "high-roller", Name: "High Roller", Description: "Hit Ruby rank", Image: "/badges/high-roller.png"},
	{ID: ledger.BadgePremiumPro, Name: "Premium Pro", Description: "Active Pro subscription", Image: "/badges/premium-pro.png"},
	{ID: ledger.BadgePremiumUltra, Name: "Premium Ultra", Description: "Active Ultra subscription", Image: "/badges/premium-ultra.png"},
	{ID: ledger.BadgePremiumMax, Name: "Premium Max", Description: "Active Max subscription", Image: "/badges/premium-max.png"},
}

// SeedBadges inserts any missing catalog badges.
func SeedBadges(db *gorm.DB) {
	seeded := 0
	for _, badge := range badgeCatalog {
		var count int64
		db.Model(&models.Badge{}).Where("id = ?", badge.ID).Count(&count)
		if count > 0 {
			continue
		}
		if err := db.Create(&badge).Error; err != nil {
			log.Printf("Failed to seed badge %s: %v", badge.ID, err)
			continue
		}
		seeded++
	}
	if seeded > 0 {
		log.Printf("✅ Seeded %d catalog badges", seeded)
	}
}

// promoFixtures are the starter codes. Bulk imports go through
// cmd/promo-importer; this only guarantees the welcome code exists.
func promoFixtures() []models.PromoCode {
	expiry := time.Now().UTC().AddDate(1, 0, 0)
	return []models.PromoCode{
		{Code: "WELCOME10", DiscountPercent: 10, ScopePlan: ledger.ScopeAll, ExpiresAt: &expiry, Active: true},
	}
}

// SeedPromos inserts any missing promo fixtures. Existing codes are left
// untouched.
func SeedPromos(db *gorm.DB) {
	seeded := 0
	for _, promo := range promoFixtures() {
		var count int64
		db.Model(&models.PromoCode{}).Where("code = ?", promo.Code).Count(&count)
		if count > 0 {
			continue
		}
		if err := db.Create(&promo).Error; err != nil {
			log.Printf("Failed to seed promo %s: %v", promo.Code, err)
			continue
		}
		seeded++
	}
	if seeded > 0 {
		log.Printf("✅ Seeded %d promo fixtures", seeded)
	}
}
