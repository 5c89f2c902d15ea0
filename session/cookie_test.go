package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func requestWithCookie(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestCookieRoundTrip(t *testing.T) {
	codec := NewCookieCodec(testSecret, true)
	s := completeSession(NewID())
	s.ExpiresAt = time.Now().Add(time.Hour)

	cookie, err := codec.Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if cookie.Name != CookieName || !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("unexpected cookie attributes %+v", cookie)
	}
	if strings.Contains(cookie.Value, "api-token") {
		t.Error("cookie must not carry the API token")
	}

	id, ok := codec.Decode(requestWithCookie(cookie))
	if !ok || id != s.ID {
		t.Errorf("expected id %s, got %s (ok=%v)", s.ID, id, ok)
	}
}

func TestCookieRejectsTampering(t *testing.T) {
	codec := NewCookieCodec(testSecret, false)
	s := completeSession("abc")
	s.ExpiresAt = time.Now().Add(time.Hour)

	cookie, err := codec.Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	other := NewCookieCodec(strings.Repeat("x", 32), false)
	if _, ok := other.Decode(requestWithCookie(cookie)); ok {
		t.Error("expected cookie signed with another secret to be rejected")
	}

	tampered := *cookie
	tampered.Value = cookie.Value[:len(cookie.Value)-2] + "xx"
	if _, ok := codec.Decode(requestWithCookie(&tampered)); ok {
		t.Error("expected tampered cookie to be rejected")
	}

	if _, ok := codec.Decode(requestWithCookie(nil)); ok {
		t.Error("expected missing cookie to be rejected")
	}
}

func TestCookieRejectsExpiredAndForeignTokens(t *testing.T) {
	codec := NewCookieCodec(testSecret, false)
	s := completeSession("abc")
	s.ExpiresAt = time.Now().Add(-time.Minute)

	cookie, err := codec.Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, ok := codec.Decode(requestWithCookie(cookie)); ok {
		t.Error("expected expired cookie to be rejected")
	}

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ID: "abc", Issuer: "someone-else"}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := codec.Decode(requestWithCookie(&http.Cookie{Name: CookieName, Value: foreign})); ok {
		t.Error("expected token from another issuer to be rejected")
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: "abc", Issuer: issuer}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := codec.Decode(requestWithCookie(&http.Cookie{Name: CookieName, Value: none})); ok {
		t.Error("expected unsigned token to be rejected")
	}
}

func TestMiddlewareInjectsSession(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	codec := NewCookieCodec(testSecret, false)
	s := completeSession(NewID())
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	stored, _ := store.Load(context.Background(), s.ID)
	cookie, err := codec.Encode(stored)
	if err != nil {
		t.Fatal(err)
	}

	var seen bool
	handler := Middleware(store, codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := FromContext(r.Context())
		seen = ok && got.ID == s.ID
	}))

	handler.ServeHTTP(httptest.NewRecorder(), requestWithCookie(cookie))
	if !seen {
		t.Error("expected session in request context")
	}
}

func TestMiddlewareDropsStaleCookie(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	codec := NewCookieCodec(testSecret, false)
	s := completeSession("cleared")
	s.ExpiresAt = time.Now().Add(time.Hour)
	cookie, err := codec.Encode(s)
	if err != nil {
		t.Fatal(err)
	}

	handler := Middleware(store, codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); ok {
			t.Error("expected no session for a cleared id")
		}
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, requestWithCookie(cookie))

	if set := rr.Header().Get("Set-Cookie"); !strings.Contains(set, CookieName+"=;") {
		t.Errorf("expected the stale cookie to be deleted, got %q", set)
	}
}
