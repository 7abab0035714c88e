// ledger/quests.go - Quest catalog and daily-cap rules
package ledger

import (
	"strings"
	"time"
)

// QuestAction identifies a reward-granting user action.
type QuestAction string

const (
	QuestDailyLogin QuestAction = "daily_login"
	QuestWatchVideo QuestAction = "watch_video"
	QuestShare      QuestAction = "share"
	QuestInvite     QuestAction = "invite"
)

// Quest describes one entry in the fixed quest catalog.
type Quest struct {
	Action      QuestAction `json:"action"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	DailyCap    int         `json:"daily_cap"` // 0 = no daily cap (lifetime action)
	Points      int         `json:"points"`
	MaxPoints   int         `json:"max_points"` // > Points when the reward is drawn from a range
	XP          int         `json:"xp"`
}

// Quests is the static quest catalog. Invite has no daily cap from the
// claiming user's side; its reward settles later via the referral flow.
var Quests = []Quest{
	{Action: QuestDailyLogin, Name: "Daily Login", Description: "Check in once per day", DailyCap: 1, Points: 50, MaxPoints: 50, XP: 25},
	{Action: QuestWatchVideo, Name: "Watch a Video", Description: "Watch a sponsored video", DailyCap: 10, Points: 5, MaxPoints: 15, XP: 5},
	{Action: QuestShare, Name: "Share Vaulty", Description: "Share on a social platform", DailyCap: 5, Points: 20, MaxPoints: 20, XP: 10},
	{Action: QuestInvite, Name: "Invite a Friend", Description: "Reward settles when your friend registers", DailyCap: 0, Points: 0, MaxPoints: 0, XP: 0},
}

// ReferralReward is granted to both parties when an invited user registers
// with the referral code.
const (
	ReferralRewardPoints = 200
	ReferralRewardXP     = 100
)

// ReferralPendingTTL is how long an issued referral stays claimable.
const ReferralPendingTTL = 30 * 24 * time.Hour

// QuestByAction looks a quest up in the catalog.
func QuestByAction(action QuestAction) (Quest, bool) {
	for _, q := range Quests {
		if q.Action == action {
			return q, true
		}
	}
	return Quest{}, false
}

// ParseQuestAction normalizes an action name from a request body.
func ParseQuestAction(s string) (QuestAction, bool) {
	a := QuestAction(strings.ToLower(strings.TrimSpace(s)))
	_, ok := QuestByAction(a)
	return a, ok
}

// DayKey buckets a time into a UTC calendar day. Daily caps reset when the
// key changes, independent of the client's local clock.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CapReached reports whether a claim count has exhausted the quest's daily
// cap for the day.
func (q Quest) CapReached(count int) bool {
	return q.DailyCap > 0 && count >= q.DailyCap
}
