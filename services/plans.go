// services/plans.go - Subscription tier transitions and payment confirmation
package services

import (
	"errors"
	"time"

	"vaulty/ledger"
	"vaulty/models"

	"gorm.io/gorm"
)

var (
	ErrUnknownPlan   = errors.New("unknown plan")
	ErrPromoRejected = errors.New("promo code rejected")
	ErrUserNotFound  = errors.New("user not found")
)

type PlanService struct {
	DB     *gorm.DB
	Wallet *WalletService
	Events *EventBroker
}

func NewPlanService(db *gorm.DB, wallet *WalletService, events *EventBroker) *PlanService {
	return &PlanService{DB: db, Wallet: wallet, Events: events}
}

// ChangePlan sets a user's tier in one transaction: the premium badge set is
// recomputed from the target plan (never toggled incrementally), expiry is
// stamped now+30d for paid tiers and cleared for free. Safe to retry.
func (s *PlanService) ChangePlan(userID uint, plan ledger.Plan, now time.Time) (*models.User, error) {
	var user models.User

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Badges").First(&user, userID).Error; err != nil {
			return ErrUserNotFound
		}

		newBadges := ledger.BadgesAfterPlanChange(badgeIDs(user.Badges), plan)

		// Replace the premium family: delete all, re-create the survivor set
		// entries that are premium, keep non-premium rows untouched.
		if err := tx.Where("user_id = ? AND badge_id LIKE ?", userID, "%premium%").
			Delete(&models.UserBadge{}).Error; err != nil {
			return err
		}
		for _, id := range newBadges {
			if !ledger.IsPremiumBadge(id) {
				continue
			}
			if err := tx.Create(&models.UserBadge{
				UserID:    userID,
				BadgeID:   id,
				AwardedAt: now,
			}).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{"plan": plan}
		if plan.IsPaid() {
			updates["plan_expiry"] = now.Add(ledger.PlanDuration)
		} else {
			updates["plan_expiry"] = nil
		}
		// Update through a fresh model value: running it on the loaded user
		// would auto-upsert the preloaded badge association and resurrect the
		// rows deleted above.
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return err
		}

		return tx.Preload("Badges").First(&user, userID).Error
	})
	if err != nil {
		return nil, err
	}

	s.Events.Publish(LedgerEvent{Type: "plan_change", UserID: userID, Payload: map[string]interface{}{
		"plan": plan,
	}})

	return &user, nil
}

// QuotePlan computes the price the user would pay, applying an optional
// promo code. The stored code is re-validated against the target plan here;
// a code applied earlier for a different plan does not carry over.
func (s *PlanService) QuotePlan(plan ledger.Plan, promoCode string, now time.Time) (float64, *ledger.PromoResult, ledger.PromoRejectReason, error) {
	base := ledger.LimitsFor(plan).PriceUSD
	if promoCode == "" {
		return base, nil, "", nil
	}

	var promo models.PromoCode
	err := s.DB.Where("code = ?", ledger.NormalizeCode(promoCode)).First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return base, nil, ledger.PromoNotFound, nil
		}
		return 0, nil, "", err
	}

	result, reason := ledger.ApplyPromo(promo.PromoInput(), base, plan, now)
	if reason != "" {
		return base, nil, reason, nil
	}
	return result.DiscountedPrice, result, "", nil
}

// ConfirmPayment applies a successful payment callback: record the payment
// as pending, upgrade the plan, grant the purchase bonus, then mark the row
// confirmed. Duplicate callbacks with the same provider reference return the
// confirmed record without a second upgrade; a callback retried after a
// half-finished attempt finds the pending row and resumes the upgrade.
func (s *PlanService) ConfirmPayment(providerRef string, userID uint, plan ledger.Plan, amountUSD float64, promoCode string, now time.Time) (*models.Payment, error) {
	if !plan.IsPaid() {
		return nil, ErrUnknownPlan
	}

	payment := models.Payment{
		ProviderRef: providerRef,
		UserID:      userID,
		Plan:        plan,
		AmountUSD:   amountUSD,
		PromoCode:   ledger.NormalizeCode(promoCode),
		Status:      models.PaymentPending,
	}
	if err := s.DB.Create(&payment).Error; err != nil {
		// The unique index caught a duplicate provider reference.
		var existing models.Payment
		if dup := s.DB.Where("provider_ref = ?", providerRef).First(&existing).Error; dup != nil {
			return nil, err
		}
		if existing.Status == models.PaymentConfirmed {
			return &existing, nil
		}
		// An earlier callback recorded the payment but died before the
		// upgrade applied; resume it from the stored row.
		payment = existing
	}

	if _, err := s.ChangePlan(payment.UserID, payment.Plan, now); err != nil {
		return nil, err
	}

	if bonus := ledger.LimitsFor(payment.Plan).BonusPoints; bonus > 0 {
		if _, err := s.Wallet.Grant(payment.UserID, bonus, models.TransferBonus, "plan purchase bonus"); err != nil {
			return nil, err
		}
	}

	if err := s.DB.Model(&payment).Update("status", models.PaymentConfirmed).Error; err != nil {
		return nil, err
	}
	payment.Status = models.PaymentConfirmed
	return &payment, nil
}

// RevertExpiredPlans downgrades every user whose paid plan has lapsed.
// Returns the number of users reverted.
func (s *PlanService) RevertExpiredPlans(now time.Time) (int, error) {
	var expired []models.User
	if err := s.DB.Where("plan <> ? AND (plan_expiry IS NULL OR plan_expiry < ?)", ledger.PlanFree, now).
		Find(&expired).Error; err != nil {
		return 0, err
	}

	reverted := 0
	for _, u := range expired {
		if _, err := s.ChangePlan(u.ID, ledger.PlanFree, now); err != nil {
			continue
		}
		reverted++
	}
	return reverted, nil
}

func badgeIDs(badges []models.UserBadge) []string {
	ids := make([]string, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, b.BadgeID)
	}
	return ids
}
