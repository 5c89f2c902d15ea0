package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/giygas/hospital-portal/entities"
)

func completeSession(id string) entities.Session {
	return entities.Session{
		ID:          id,
		Token:       "api-token",
		UserID:      "7",
		Role:        entities.RolePatient,
		DisplayName: "Pat Doe",
	}
}

func TestSaveRejectsIncompleteSessions(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*entities.Session)
	}{
		{"missing id", func(s *entities.Session) { s.ID = "" }},
		{"missing token", func(s *entities.Session) { s.Token = "" }},
		{"missing user id", func(s *entities.Session) { s.UserID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := completeSession("abc")
			tt.mutate(&s)
			if err := store.Save(ctx, s); !errors.Is(err, ErrIncompleteSession) {
				t.Errorf("expected ErrIncompleteSession, got %v", err)
			}
		})
	}

	if store.Count() != 0 {
		t.Errorf("expected nothing stored, got %d sessions", store.Count())
	}
}

func TestSaveLoadClear(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	if err := store.Save(ctx, completeSession("abc")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok := store.Load(ctx, "abc")
	if !ok {
		t.Fatal("expected session to load")
	}
	if got.Token != "api-token" || got.Role != entities.RolePatient {
		t.Errorf("unexpected session %+v", got)
	}
	if got.ExpiresAt.IsZero() || got.CreatedAt.IsZero() {
		t.Error("expected timestamps to be filled in")
	}

	store.Clear(ctx, "abc")
	if _, ok := store.Load(ctx, "abc"); ok {
		t.Error("expected session to be gone after Clear")
	}
	if store.Count() != 0 {
		t.Errorf("expected empty store, got %d", store.Count())
	}
}

func TestLoadExpiredSessionClearsIt(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Save(context.Background(), completeSession("abc")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := store.Load(context.Background(), "abc"); ok {
		t.Fatal("expected expired session to be absent")
	}
	if store.Count() != 0 {
		t.Errorf("expected expired session to be removed, %d left", store.Count())
	}
}

func TestSweep(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	now := time.Now()

	live := completeSession("live")
	live.ExpiresAt = now.Add(time.Hour)
	dead := completeSession("dead")
	dead.ExpiresAt = now.Add(-time.Minute)
	forever := completeSession("forever")

	for _, s := range []entities.Session{live, dead, forever} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save %s: %v", s.ID, err)
		}
	}

	if removed := store.Sweep(now); removed != 1 {
		t.Errorf("expected 1 swept session, got %d", removed)
	}
	if store.Count() != 2 {
		t.Errorf("expected 2 sessions left, got %d", store.Count())
	}
}

func TestContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no session in empty context")
	}

	ctx := WithSession(context.Background(), completeSession("abc"))
	s, ok := FromContext(ctx)
	if !ok || s.ID != "abc" {
		t.Errorf("expected session abc, got %+v (ok=%v)", s, ok)
	}

	partial := completeSession("abc")
	partial.Token = ""
	if _, ok := FromContext(WithSession(context.Background(), partial)); ok {
		t.Error("expected partial session to be treated as absent")
	}
}

func TestInFlight(t *testing.T) {
	guard := NewInFlight()

	done, ok := guard.TryBegin("s1", "book")
	if !ok {
		t.Fatal("expected first action to start")
	}

	if _, ok := guard.TryBegin("s1", "book"); ok {
		t.Error("expected duplicate action to be refused")
	}
	if otherDone, ok := guard.TryBegin("s2", "book"); !ok {
		t.Error("expected another session to start the same action")
	} else {
		otherDone()
	}
	if otherDone, ok := guard.TryBegin("s1", "cancel"); !ok {
		t.Error("expected a different action to start")
	} else {
		otherDone()
	}

	done()
	done()

	if guard.Len() != 0 {
		t.Errorf("expected no outstanding actions, got %d", guard.Len())
	}
	if again, ok := guard.TryBegin("s1", "book"); !ok {
		t.Error("expected action to start again once finished")
	} else {
		again()
	}
}
