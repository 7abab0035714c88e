// Bulk promo code importer. Reads a JSON file of promo definitions and
// upserts them into the promo_codes table.
//
// Usage: promo-importer [path/to/promos.json]
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"vaulty/database"
	"vaulty/ledger"
	"vaulty/models"

	"github.com/joho/godotenv"
	"gorm.io/gorm/clause"
)

type JSONPromo struct {
	Code            string     `json:"code"`
	DiscountPercent float64    `json:"discount_percent"`
	ScopePlan       string     `json:"scope_plan,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Active          *bool      `json:"active,omitempty"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	jsonPath := "./data/promos.json"
	if len(os.Args) > 1 {
		jsonPath = os.Args[1]
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		log.Fatal("Failed to read JSON file:", err)
	}

	var entries []JSONPromo
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Fatal("Failed to parse JSON:", err)
	}

	fmt.Printf("Found %d promo definitions\n\n", len(entries))

	database.InitDB()
	db := database.GetDB()

	var promos []models.PromoCode
	skipped := 0

	for _, e := range entries {
		code := ledger.NormalizeCode(e.Code)
		if code == "" {
			log.Printf("Skipping entry with empty code")
			skipped++
			continue
		}
		if !ledger.ValidDiscountPercent(e.DiscountPercent) {
			log.Printf("Skipping %s: discount %.2f out of range", code, e.DiscountPercent)
			skipped++
			continue
		}

		scope := e.ScopePlan
		if scope == "" {
			scope = ledger.ScopeAll
		} else if scope != ledger.ScopeAll {
			plan, ok := ledger.ParsePlan(scope)
			if !ok || !plan.IsPaid() {
				log.Printf("Skipping %s: unknown scope %q", code, e.ScopePlan)
				skipped++
				continue
			}
			scope = string(plan)
		}

		active := true
		if e.Active != nil {
			active = *e.Active
		}

		promos = append(promos, models.PromoCode{
			Code:            code,
			DiscountPercent: e.DiscountPercent,
			ScopePlan:       scope,
			ExpiresAt:       e.ExpiresAt,
			Active:          active,
		})
	}

	batchSize := 500
	imported := 0
	for i := 0; i < len(promos); i += batchSize {
		end := i + batchSize
		if end > len(promos) {
			end = len(promos)
		}

		batch := promos[i:end]
		// Re-running the importer refreshes existing codes in place.
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"discount_percent", "scope_plan", "expires_at", "active"}),
		}).Create(&batch).Error; err != nil {
			log.Printf("Error inserting batch %d-%d: %v\n", i, end, err)
			continue
		}
		imported += len(batch)
		fmt.Printf("Imported %d/%d\n", imported, len(promos))
	}

	fmt.Printf("\nDone: %d imported, %d skipped\n", imported, skipped)
}
