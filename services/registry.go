// services/registry.go - Process-wide service singletons wired at startup
package services

import "gorm.io/gorm"

var (
	walletService    *WalletService
	planService      *PlanService
	questService     *QuestService
	companionService *CompanionService
	marketClient     *MarketClient
)

// InitServices builds the service graph on top of the shared DB handle.
// Call after InitEventBroker.
func InitServices(db *gorm.DB) {
	events := GetEventBroker()
	walletService = NewWalletService(db, events)
	planService = NewPlanService(db, walletService, events)
	questService = NewQuestService(db, walletService)
	companionService = NewCompanionService(db, NewAIClient())
	marketClient = NewMarketClient()
}

func GetWalletService() *WalletService       { return walletService }
func GetPlanService() *PlanService           { return planService }
func GetQuestService() *QuestService         { return questService }
func GetCompanionService() *CompanionService { return companionService }
func GetMarketClient() *MarketClient         { return marketClient }
