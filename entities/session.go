package entities

import "time"

// Session is the proof of authentication the portal holds for one browser:
// the hospital API token plus the cached identity.
// Token is opaque and is only ever forwarded as a bearer credential.
type Session struct {
	ID          string    `json:"id"`
	Token       string    `json:"-"`
	UserID      string    `json:"user_id"`
	Role        Role      `json:"role"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Complete reports whether every required field is present. A session is
// either complete or it does not exist. The role may be RoleUnknown: such
// users are signed in but have no dashboard.
func (s Session) Complete() bool {
	return s.ID != "" && s.Token != "" && s.UserID != ""
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
