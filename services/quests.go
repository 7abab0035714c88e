// services/quests.go - Quest claiming and two-phase referral settlement
package services

import (
	"errors"
	"math/rand"
	"strings"
	"time"

	"vaulty/ledger"
	"vaulty/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUnknownQuest     = errors.New("unknown quest action")
	ErrQuestCapReached  = errors.New("daily cap reached")
	ErrReferralNotFound = errors.New("referral code not found")
	ErrOwnReferralCode  = errors.New("cannot use your own referral code")
)

// QuestGrant is the reward paid out by a successful claim.
type QuestGrant struct {
	Action ledger.QuestAction `json:"action"`
	Points int                `json:"points"`
	XP     int                `json:"xp"`
	Count  int                `json:"count"`
	Cap    int                `json:"cap"`
}

type QuestService struct {
	DB     *gorm.DB
	Wallet *WalletService
}

func NewQuestService(db *gorm.DB, wallet *WalletService) *QuestService {
	return &QuestService{DB: db, Wallet: wallet}
}

// Claim grants one quest reward if the daily cap allows. The cap check and
// counter bump happen inside one transaction; a capped claim is a denial,
// not an error worth retrying.
func (s *QuestService) Claim(userID uint, action ledger.QuestAction, now time.Time) (*QuestGrant, error) {
	quest, ok := ledger.QuestByAction(action)
	if !ok {
		return nil, ErrUnknownQuest
	}
	if action == ledger.QuestInvite {
		// Invite has no immediate reward; the referral flow settles it.
		return nil, ErrUnknownQuest
	}

	day := ledger.DayKey(now)
	var grant QuestGrant

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var progress models.QuestProgress
		claimed := now
		err := tx.Where("user_id = ? AND action = ?", userID, action).First(&progress).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			progress = models.QuestProgress{
				UserID:        userID,
				Action:        action,
				Day:           day,
				Count:         1,
				LifetimeCount: 1,
				LastClaimedAt: &claimed,
			}
			// The composite unique index turns a concurrent first claim into
			// a create error rather than a double grant.
			if err := tx.Create(&progress).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			// Day rollover resets the counter; the cap rides in the
			// statement itself so two concurrent claims cannot both pass
			// against a stale count.
			bump := tx.Model(&models.QuestProgress{}).
				Where("user_id = ? AND action = ?", userID, action)
			if quest.DailyCap > 0 {
				bump = bump.Where("day <> ? OR count < ?", day, quest.DailyCap)
			}
			res := bump.Updates(map[string]interface{}{
				"count":           gorm.Expr("CASE WHEN day = ? THEN count + 1 ELSE 1 END", day),
				"day":             day,
				"lifetime_count":  gorm.Expr("lifetime_count + 1"),
				"last_claimed_at": claimed,
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrQuestCapReached
			}
			if err := tx.Where("user_id = ? AND action = ?", userID, action).First(&progress).Error; err != nil {
				return err
			}
		}

		grant = QuestGrant{
			Action: action,
			Points: rewardPoints(quest),
			XP:     quest.XP,
			Count:  progress.Count,
			Cap:    quest.DailyCap,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if grant.Points > 0 {
		if _, err := s.Wallet.Grant(userID, grant.Points, models.TransferBonus, "quest: "+string(action)); err != nil {
			return nil, err
		}
	}
	if grant.XP > 0 {
		if err := s.Wallet.AwardXP(userID, grant.XP); err != nil {
			return nil, err
		}
	}

	return &grant, nil
}

// Progress returns the user's quest state for today, with stale day buckets
// presented as zero.
func (s *QuestService) Progress(userID uint, now time.Time) ([]QuestGrant, error) {
	var rows []models.QuestProgress
	if err := s.DB.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}

	day := ledger.DayKey(now)
	byAction := map[ledger.QuestAction]models.QuestProgress{}
	for _, r := range rows {
		byAction[r.Action] = r
	}

	out := make([]QuestGrant, 0, len(ledger.Quests))
	for _, q := range ledger.Quests {
		count := 0
		if r, ok := byAction[q.Action]; ok && r.Day == day {
			count = r.Count
		}
		out = append(out, QuestGrant{
			Action: q.Action,
			Points: q.Points,
			XP:     q.XP,
			Count:  count,
			Cap:    q.DailyCap,
		})
	}
	return out, nil
}

// IssueReferral creates (or returns) the user's pending referral record and
// stable code. Phase one of the two-phase invite reward.
func (s *QuestService) IssueReferral(userID uint) (*models.Referral, error) {
	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return nil, ErrUserNotFound
	}

	if user.ReferralCode == "" {
		user.ReferralCode = NewReferralCode()
		if err := s.DB.Model(&user).Update("referral_code", user.ReferralCode).Error; err != nil {
			return nil, err
		}
	}

	referral := models.Referral{
		ReferrerID: userID,
		Code:       user.ReferralCode,
		Status:     models.ReferralPending,
	}
	if err := s.DB.Create(&referral).Error; err != nil {
		return nil, err
	}
	return &referral, nil
}

// SettleReferral completes phase two on the invitee's registration: the
// oldest matching pending record is marked settled and both parties are
// credited. Unknown or exhausted codes are a soft failure so registration
// itself still succeeds.
func (s *QuestService) SettleReferral(code string, referredID uint, now time.Time) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrReferralNotFound
	}

	var referral models.Referral
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("code = ? AND status = ?", code, models.ReferralPending).
			Order("created_at ASC").
			First(&referral).Error; err != nil {
			return ErrReferralNotFound
		}
		if referral.ReferrerID == referredID {
			return ErrOwnReferralCode
		}

		return tx.Model(&referral).Updates(map[string]interface{}{
			"status":      models.ReferralSettled,
			"referred_id": referredID,
			"settled_at":  now,
		}).Error
	})
	if err != nil {
		return err
	}

	// Both sides earn the reward.
	for _, id := range []uint{referral.ReferrerID, referredID} {
		if _, err := s.Wallet.Grant(id, ledger.ReferralRewardPoints, models.TransferBonus, "referral reward"); err != nil {
			return err
		}
		if err := s.Wallet.AwardXP(id, ledger.ReferralRewardXP); err != nil {
			return err
		}
	}
	return nil
}

// ExpireStaleReferrals marks pending referrals past the TTL as expired.
func (s *QuestService) ExpireStaleReferrals(now time.Time) (int64, error) {
	cutoff := now.Add(-ledger.ReferralPendingTTL)
	res := s.DB.Model(&models.Referral{}).
		Where("status = ? AND created_at < ?", models.ReferralPending, cutoff).
		Update("status", models.ReferralExpired)
	return res.RowsAffected, res.Error
}

// NewReferralCode returns a short uppercase invite code.
func NewReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// rewardPoints draws from the quest's reward range when it has one.
func rewardPoints(q ledger.Quest) int {
	if q.MaxPoints > q.Points {
		return q.Points + rand.Intn(q.MaxPoints-q.Points+1)
	}
	return q.Points
}
