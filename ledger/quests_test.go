package ledger

import (
	"testing"
	"time"
)

func TestDayKeyUTCBoundary(t *testing.T) {
	// 23:30 UTC and 00:30 UTC the next day land in different buckets even
	// when a local zone would put them in the same calendar day.
	late := time.Date(2025, 5, 1, 23, 30, 0, 0, time.UTC)
	early := time.Date(2025, 5, 2, 0, 30, 0, 0, time.UTC)
	if DayKey(late) == DayKey(early) {
		t.Fatal("UTC midnight should split the day bucket")
	}

	// Same instant in a different zone maps to the same bucket.
	loc := time.FixedZone("UTC+9", 9*3600)
	if DayKey(late) != DayKey(late.In(loc)) {
		t.Fatal("DayKey must be zone-independent")
	}
}

func TestQuestCapReached(t *testing.T) {
	watch, ok := QuestByAction(QuestWatchVideo)
	if !ok {
		t.Fatal("watch_video missing from catalog")
	}
	if watch.CapReached(9) {
		t.Fatal("9/10 should not be capped")
	}
	if !watch.CapReached(10) {
		t.Fatal("10/10 should be capped")
	}

	invite, _ := QuestByAction(QuestInvite)
	if invite.CapReached(1_000_000) {
		t.Fatal("invite has no daily cap")
	}
}

func TestParseQuestAction(t *testing.T) {
	if a, ok := ParseQuestAction(" Daily_Login "); !ok || a != QuestDailyLogin {
		t.Fatalf("ParseQuestAction=%s,%v", a, ok)
	}
	if _, ok := ParseQuestAction("rob_bank"); ok {
		t.Fatal("unknown action accepted")
	}
}
