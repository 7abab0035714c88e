// database/migrate.go - Database Migration Runner
package database

import (
	"log"

	"vaulty/models"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Badge{},
		&models.UserBadge{},
		&models.PromoCode{},
		&models.QuestProgress{},
		&models.Transfer{},
		&models.Referral{},
		&models.Payment{},
		&models.Offer{},
		&models.Course{},
		&models.Companion{},
		&models.CompanionMemory{},
		&models.ChatMessage{},
	); err != nil {
		log.Fatalf("❌ Failed to run core migrations: %v", err)
	}

	log.Println("✅ Core migrations completed")

	createCoreIndexes()
	SeedBadges(db)
	SeedPromos(db)

	log.Println("✅ All migrations completed successfully")
}

// createCoreIndexes creates indexes for core tables
func createCoreIndexes() {
	db := GetDB()
	log.Println("Creating core indexes...")

	// User indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_xp ON users(xp DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_points ON users(points DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_ghost ON users(is_ghost)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_plan_expiry ON users(plan_expiry)")

	// Ledger indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_transfers_from ON transfers(from_user_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_transfers_to ON transfers(to_user_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_transfers_created ON transfers(created_at DESC)")

	// Promo indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_promo_codes_code ON promo_codes(code)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_promo_codes_active ON promo_codes(active)")

	// Quest / referral indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_quest_progress_user ON quest_progress(user_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_referrals_code ON referrals(code)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_referrals_status ON referrals(status)")

	// Chat indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_chat_messages_channel ON chat_messages(channel_id, created_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_chat_messages_companion ON chat_messages(companion_id)")

	log.Println("✅ Core indexes created successfully")
}
