package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vaulty/ledger"
	"vaulty/models"
)

func newStubAI(t *testing.T, handler http.HandlerFunc) *AIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &AIClient{
		BaseURL:     srv.URL,
		Client:      srv.Client(),
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
	}
}

func okHandler(reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(aiResponse{Content: reply})
	}
}

func TestSendMessageConsumesCreditBeforeAICall(t *testing.T) {
	db := newTestDB(t)
	var calls int32
	ai := newStubAI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		okHandler("hello")(w, r)
	})
	svc := NewCompanionService(db, ai)

	alice := createTestUser(t, db, "alice", 0)
	now := time.Now().UTC()

	companion, err := svc.CreateCompanion(alice.ID, "Nova", "a cheerful guide", now)
	if err != nil {
		t.Fatalf("CreateCompanion: %v", err)
	}

	// Free tier: 20 credits per day.
	for i := 0; i < 20; i++ {
		if _, err := svc.SendMessage(alice.ID, companion.ID, "hi", now); err != nil {
			t.Fatalf("message %d: %v", i+1, err)
		}
	}

	if _, err := svc.SendMessage(alice.ID, companion.ID, "one more", now); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("21st message err=%v, want quota exceeded", err)
	}
	// The denied turn never reached the AI API.
	if got := atomic.LoadInt32(&calls); got != 20 {
		t.Fatalf("AI calls=%d, want 20", got)
	}
}

func TestSendMessageQuotaResetsNextDay(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db, newStubAI(t, okHandler("hey")))

	alice := createTestUser(t, db, "alice", 0)
	day1 := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	companion, err := svc.CreateCompanion(alice.ID, "Nova", "a guide", day1)
	if err != nil {
		t.Fatalf("CreateCompanion: %v", err)
	}

	for i := 0; i < 20; i++ {
		if _, err := svc.SendMessage(alice.ID, companion.ID, "hi", day1); err != nil {
			t.Fatalf("message %d: %v", i+1, err)
		}
	}
	if _, err := svc.SendMessage(alice.ID, companion.ID, "hi", day1); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("exhausted err=%v", err)
	}

	day2 := time.Date(2025, 4, 2, 0, 5, 0, 0, time.UTC)
	if _, err := svc.SendMessage(alice.ID, companion.ID, "morning", day2); err != nil {
		t.Fatalf("next-day message: %v", err)
	}
}

func TestConcurrentMessagesNeverExceedQuota(t *testing.T) {
	db := newTestDB(t)
	var calls int32
	ai := newStubAI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		okHandler("hi")(w, r)
	})
	svc := NewCompanionService(db, ai)

	alice := createTestUser(t, db, "alice", 0)
	now := time.Now().UTC()

	companion, err := svc.CreateCompanion(alice.ID, "Nova", "persona", now)
	if err != nil {
		t.Fatalf("CreateCompanion: %v", err)
	}

	// Park usage five credits under the free cap of 20.
	db.Model(&models.User{}).Where("id = ?", alice.ID).
		Updates(map[string]interface{}{
			"message_credits_used": 15,
			"credits_day":          ledger.DayKey(now),
		})

	const workers = 8 // only 5 fit under the cap
	var wg sync.WaitGroup
	sent := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SendMessage(alice.ID, companion.ID, "hi", now); err == nil {
				sent <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(sent)

	wins := 0
	for range sent {
		wins++
	}
	if wins != 5 {
		t.Fatalf("successful sends=%d, want 5", wins)
	}
	// Denied turns never reached the AI API.
	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Fatalf("AI calls=%d, want 5", got)
	}

	var user models.User
	if err := db.First(&user, alice.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.MessageCreditsUsed != 20 {
		t.Fatalf("credits used=%d, want 20", user.MessageCreditsUsed)
	}
}

func TestAIClientRetriesTransientFailures(t *testing.T) {
	var attempts int32
	ai := newStubAI(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		okHandler("recovered")(w, r)
	})

	reply, err := ai.Complete("persona", nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "recovered" {
		t.Fatalf("reply=%q", reply)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("attempts=%d, want 3", got)
	}
}

func TestAIClientStopsAfterAttemptCeiling(t *testing.T) {
	var attempts int32
	ai := newStubAI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := ai.Complete("persona", nil)
	if !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("err=%v, want unavailable", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("attempts=%d, want 3", got)
	}
}

func TestAIClientDoesNotRetryClientErrors(t *testing.T) {
	var attempts int32
	ai := newStubAI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	if _, err := ai.Complete("persona", nil); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("attempts=%d, want 1", got)
	}
}

func TestCreateCompanionSlotLimit(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db, newStubAI(t, okHandler("hi")))
	now := time.Now().UTC()

	alice := createTestUser(t, db, "alice", 0)

	// Free tier: one slot.
	if _, err := svc.CreateCompanion(alice.ID, "First", "persona", now); err != nil {
		t.Fatalf("first companion: %v", err)
	}
	if _, err := svc.CreateCompanion(alice.ID, "Second", "persona", now); !errors.Is(err, ErrSlotLimitReached) {
		t.Fatalf("second companion err=%v, want slot limit", err)
	}

	// Pro expands to three slots; an expired pro falls back to the free limit.
	expiry := now.Add(24 * time.Hour)
	db.Model(&models.User{}).Where("id = ?", alice.ID).
		Updates(map[string]interface{}{"plan": ledger.PlanPro, "plan_expiry": expiry})
	if _, err := svc.CreateCompanion(alice.ID, "Second", "persona", now); err != nil {
		t.Fatalf("pro second companion: %v", err)
	}

	lapsed := expiry.Add(time.Hour)
	if _, err := svc.CreateCompanion(alice.ID, "Third", "persona", lapsed); !errors.Is(err, ErrSlotLimitReached) {
		t.Fatalf("lapsed-plan companion err=%v, want slot limit", err)
	}
}

func TestSaveMemoryEnforcesQuota(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db, newStubAI(t, okHandler("hi")))
	now := time.Now().UTC()

	alice := createTestUser(t, db, "alice", 0)
	companion, err := svc.CreateCompanion(alice.ID, "Nova", "persona", now)
	if err != nil {
		t.Fatalf("CreateCompanion: %v", err)
	}

	memory, err := svc.SaveMemory(alice.ID, companion.ID, "likes astronomy", now)
	if err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	if memory.SizeMB <= 0 {
		t.Fatalf("memory size=%f, want > 0", memory.SizeMB)
	}

	// Free tier: 0.5 GB quota. Park usage right at the boundary so the next
	// note, however small, must be denied.
	db.Model(&models.User{}).Where("id = ?", alice.ID).
		UpdateColumn("memory_used_mb", 512.0)
	if _, err := svc.SaveMemory(alice.ID, companion.ID, "one more", now); !errors.Is(err, ErrMemoryQuotaExceeded) {
		t.Fatalf("over-quota err=%v, want memory quota exceeded", err)
	}

	// A denied save stores nothing.
	var count int64
	db.Model(&models.CompanionMemory{}).Where("owner_id = ?", alice.ID).Count(&count)
	if count != 1 {
		t.Fatalf("stored memories=%d, want 1", count)
	}
}

func TestSaveMemoryAccumulatesUsage(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db, newStubAI(t, okHandler("hi")))
	now := time.Now().UTC()

	alice := createTestUser(t, db, "alice", 0)
	companion, err := svc.CreateCompanion(alice.ID, "Nova", "persona", now)
	if err != nil {
		t.Fatalf("CreateCompanion: %v", err)
	}

	first, err := svc.SaveMemory(alice.ID, companion.ID, "enjoys hiking on weekends", now)
	if err != nil {
		t.Fatalf("first SaveMemory: %v", err)
	}
	second, err := svc.SaveMemory(alice.ID, companion.ID, "allergic to peanuts", now)
	if err != nil {
		t.Fatalf("second SaveMemory: %v", err)
	}

	var user models.User
	db.First(&user, alice.ID)
	want := first.SizeMB + second.SizeMB
	if diff := user.MemoryUsedMB - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("memory used=%f, want %f", user.MemoryUsedMB, want)
	}

	// Deleting a note releases its metered size.
	if err := svc.DeleteMemory(alice.ID, first.ID); err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}
	db.First(&user, alice.ID)
	if diff := user.MemoryUsedMB - second.SizeMB; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("memory used after delete=%f, want %f", user.MemoryUsedMB, second.SizeMB)
	}
}

func TestSaveMemoryRejectsForeignCompanion(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db, newStubAI(t, okHandler("hi")))
	now := time.Now().UTC()

	alice := createTestUser(t, db, "alice", 0)
	bob := createTestUser(t, db, "bob", 0)

	companion, err := svc.CreateCompanion(alice.ID, "Nova", "persona", now)
	if err != nil {
		t.Fatalf("CreateCompanion: %v", err)
	}
	if _, err := svc.SaveMemory(bob.ID, companion.ID, "note", now); err == nil {
		t.Fatal("expected foreign companion to be rejected")
	}

	memory, err := svc.SaveMemory(alice.ID, companion.ID, "note", now)
	if err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	if err := svc.DeleteMemory(bob.ID, memory.ID); err == nil {
		t.Fatal("expected foreign memory delete to be rejected")
	}
}

func TestSendMessageRejectsForeignCompanion(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db, newStubAI(t, okHandler("hi")))
	now := time.Now().UTC()

	alice := createTestUser(t, db, "alice", 0)
	bob := createTestUser(t, db, "bob", 0)

	companion, err := svc.CreateCompanion(alice.ID, "Nova", "persona", now)
	if err != nil {
		t.Fatalf("CreateCompanion: %v", err)
	}
	if _, err := svc.SendMessage(bob.ID, companion.ID, "hi", now); err == nil {
		t.Fatal("expected foreign companion to be rejected")
	}
}
