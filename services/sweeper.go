// services/sweeper.go - Background plan-expiry and referral sweeps
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper runs periodic cleanup jobs: reverting lapsed paid plans (so the
// stored plan field eventually agrees with the limit checks, which never
// trust it alone) and expiring stale pending referrals.
type Sweeper struct {
	Plans     *PlanService
	Quests    *QuestService
	scheduler gocron.Scheduler
}

var sweeper *Sweeper

// InitSweeper initializes and starts the singleton sweeper.
func InitSweeper(plans *PlanService, quests *QuestService) {
	sweeper = &Sweeper{Plans: plans, Quests: quests}
	sweeper.Start()
}

// GetSweeper returns the initialized sweeper.
func GetSweeper() *Sweeper {
	return sweeper
}

func (s *Sweeper) Start() {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("Failed to create sweep scheduler: %v", err)
		return
	}
	s.scheduler = sched
	sched.Start()

	// Every hour: revert expired paid plans and strip their premium badges
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			reverted, err := s.Plans.RevertExpiredPlans(time.Now().UTC())
			if err != nil {
				log.Printf("[Sweeper] plan expiry sweep failed: %v", err)
				return
			}
			if reverted > 0 {
				log.Printf("✅ Reverted %d expired plans", reverted)
			}
		}),
	)

	// Every 6 hours: expire pending referrals past the TTL
	_, _ = sched.NewJob(
		gocron.DurationJob(6*time.Hour),
		gocron.NewTask(func() {
			expired, err := s.Quests.ExpireStaleReferrals(time.Now().UTC())
			if err != nil {
				log.Printf("[Sweeper] referral sweep failed: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("✅ Expired %d stale referrals", expired)
			}
		}),
	)
}

// Stop shuts the scheduler down.
func (s *Sweeper) Stop() {
	if s != nil && s.scheduler != nil {
		_ = s.scheduler.Shutdown()
	}
}
