package interfaces_test

import (
	"context"
	"testing"
	"time"

	"github.com/giygas/hospital-portal/apiclient"
	"github.com/giygas/hospital-portal/apiclient/apitest"
	"github.com/giygas/hospital-portal/auth"
	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/health"
	"github.com/giygas/hospital-portal/interfaces"
	"github.com/giygas/hospital-portal/scheduler"
	"github.com/giygas/hospital-portal/session"
	"github.com/giygas/hospital-portal/validation"
)

var (
	_ interfaces.SessionStore  = (*session.MemoryStore)(nil)
	_ interfaces.APIClient     = (*apiclient.Client)(nil)
	_ interfaces.APIClient     = (*apitest.Client)(nil)
	_ interfaces.Authenticator = (*auth.Authenticator)(nil)
	_ interfaces.HealthChecker = (*health.HealthCheckerImpl)(nil)
	_ interfaces.Scheduler     = (*scheduler.Scheduler)(nil)
)

// testSessionStore checks the behaviour every SessionStore must have.
func testSessionStore(t *testing.T, store interfaces.SessionStore) {
	t.Helper()
	ctx := context.Background()

	if err := store.Save(ctx, entities.Session{ID: "partial", Role: entities.RolePatient}); err == nil {
		t.Error("Expected an incomplete session to be refused")
	}
	if _, ok := store.Load(ctx, "partial"); ok {
		t.Error("An incomplete session must never be loadable")
	}

	s := entities.Session{ID: "s1", Token: "t", UserID: "1", Role: entities.RoleDoctor, ExpiresAt: time.Now().Add(time.Minute)}
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, ok := store.Load(ctx, "s1")
	if !ok || got.Token != "t" || got.Role != entities.RoleDoctor {
		t.Errorf("Expected the saved session back, got %+v (%v)", got, ok)
	}
	if store.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", store.Count())
	}

	if removed := store.Sweep(time.Now().Add(time.Hour)); removed != 1 {
		t.Errorf("Expected sweep to remove 1 expired session, got %d", removed)
	}

	if err := store.Save(ctx, entities.Session{ID: "s2", Token: "t", UserID: "2", Role: entities.RolePatient}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	store.Clear(ctx, "s2")
	if _, ok := store.Load(ctx, "s2"); ok || store.Count() != 0 {
		t.Error("Expected Clear to remove the whole session")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	testSessionStore(t, session.NewMemoryStore(time.Hour))
}

func TestValidatorInterface(t *testing.T) {
	var v interfaces.FormValidator = validation.NewFormValidator()

	if err := v.ValidateID("42"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := v.ValidateTargetStatus("pending"); err == nil {
		t.Error("Pending is never a transition target")
	}
}

func TestAuthenticatorInterface(t *testing.T) {
	api := &apitest.Client{
		LoginResponse: entities.LoginResult{Token: "tok", UserID: "3", Role: entities.RolePharmacy},
	}
	store := session.NewMemoryStore(time.Hour)
	var a interfaces.Authenticator = auth.NewAuthenticator(api, store, time.Hour)

	s, err := a.Login(context.Background(), "pharma", "secret")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Role != entities.RolePharmacy || store.Count() != 1 {
		t.Errorf("Expected a stored pharmacy session, got %+v", s)
	}

	a.Logout(context.Background(), s.ID)
	if store.Count() != 0 {
		t.Error("Expected logout to clear the session")
	}
}
