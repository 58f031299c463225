package session

import (
	"encoding/json"
	"fmt"
)

// Persisted keys.
const (
	KeyUser  = "user"
	KeyToken = "token"
	KeyUsers = "users"
)

// User is the signed-in identity. Extra carries any additional fields the
// persisted user object held so they survive a round trip.
type User struct {
	Email string
	Extra map[string]any
}

// MarshalJSON flattens Extra next to email.
func (u User) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(u.Extra)+1)
	for k, v := range u.Extra {
		m[k] = v
	}
	m["email"] = u.Email
	return json.Marshal(m)
}

// UnmarshalJSON reads email and keeps every other field in Extra.
func (u *User) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	u.Email = ""
	u.Extra = nil
	if v, ok := m["email"]; ok {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("user email: expected string, got %T", v)
		}
		u.Email = s
		delete(m, "email")
	}
	if len(m) > 0 {
		u.Extra = m
	}
	return nil
}

// Session is the authentication state. IsAuthenticated is derived from
// Token being non-empty.
type Session struct {
	User            *User  `json:"user"`
	Token           string `json:"token,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Credential is a registration record. Stored in plaintext.
type Credential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s Session) clone() Session {
	if s.User == nil {
		return s
	}
	u := *s.User
	if s.User.Extra != nil {
		u.Extra = make(map[string]any, len(s.User.Extra))
		for k, v := range s.User.Extra {
			u.Extra[k] = v
		}
	}
	s.User = &u
	return s
}
