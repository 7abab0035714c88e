package ledger

import "testing"

func TestRankForXPBoundaries(t *testing.T) {
	for i, r := range Ranks {
		if got := RankForXP(r.MinXP); got.ID != r.ID {
			t.Fatalf("RankForXP(%d)=%s, want %s", r.MinXP, got.ID, r.ID)
		}
		if i > 0 {
			prev := Ranks[i-1]
			if got := RankForXP(r.MinXP - 1); got.ID != prev.ID {
				t.Fatalf("RankForXP(%d)=%s, want %s", r.MinXP-1, got.ID, prev.ID)
			}
		}
	}
}

func TestRankForXPTotal(t *testing.T) {
	if got := RankForXP(0); got.ID != "bronze" {
		t.Fatalf("RankForXP(0)=%s, want bronze", got.ID)
	}
	if got := RankForXP(-50); got.ID != "bronze" {
		t.Fatalf("RankForXP(-50)=%s, want bronze", got.ID)
	}
	top := Ranks[len(Ranks)-1]
	if got := RankForXP(top.MinXP * 10); got.ID != top.ID {
		t.Fatalf("RankForXP(huge)=%s, want %s", got.ID, top.ID)
	}
}

func TestRankMonotonicity(t *testing.T) {
	prev := RankForXP(0).MinXP
	for xp := 0; xp <= 60000; xp += 37 {
		cur := RankForXP(xp).MinXP
		if cur < prev {
			t.Fatalf("rank decreased at xp=%d: %d < %d", xp, cur, prev)
		}
		prev = cur
	}
}

func TestShowRankIcon(t *testing.T) {
	if ShowRankIcon(4999) {
		t.Fatal("xp=4999 should not show rank icon")
	}
	if !ShowRankIcon(5000) {
		t.Fatal("xp=5000 should show rank icon")
	}
}

func TestNextRank(t *testing.T) {
	next := NextRank(0)
	if next == nil || next.ID != "silver" {
		t.Fatalf("NextRank(0)=%v, want silver", next)
	}
	top := Ranks[len(Ranks)-1]
	if got := NextRank(top.MinXP); got != nil {
		t.Fatalf("NextRank at top = %v, want nil", got)
	}
}
