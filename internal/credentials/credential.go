package credentials

import (
	"time"

	"golang.org/x/oauth2"
)

// AccountCredential is the persisted OAuth2 grant for one user.
type AccountCredential struct {
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// State classifies a credential. It is derived on every read and never stored.
type State int

const (
	StateAbsent State = iota
	StateValid
	StateExpiredRefreshable
	StateExpiredUnrefreshable
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateValid:
		return "valid"
	case StateExpiredRefreshable:
		return "expired_refreshable"
	case StateExpiredUnrefreshable:
		return "expired_unrefreshable"
	default:
		return "unknown"
	}
}

// expiryDelta matches the skew oauth2.Token.Valid applies.
const expiryDelta = 10 * time.Second

// StateOf derives the state of cred at now. A nil credential is Absent and a
// zero expiry never expires.
func StateOf(cred *AccountCredential, now time.Time) State {
	if cred == nil || cred.AccessToken == "" && cred.RefreshToken == "" {
		return StateAbsent
	}
	if cred.AccessToken != "" && (cred.Expiry.IsZero() || cred.Expiry.Add(-expiryDelta).After(now)) {
		return StateValid
	}
	if cred.RefreshToken != "" {
		return StateExpiredRefreshable
	}
	return StateExpiredUnrefreshable
}

// Token converts the credential to an oauth2 token.
func (c *AccountCredential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    c.TokenType,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// FromToken builds a credential for userID from tok. Refresh responses often
// omit the refresh token, so previous is consulted to keep it.
func FromToken(userID string, tok *oauth2.Token, scopes []string, previous *AccountCredential) *AccountCredential {
	cred := &AccountCredential{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scopes:       scopes,
	}
	if previous != nil {
		if cred.RefreshToken == "" {
			cred.RefreshToken = previous.RefreshToken
		}
		if len(cred.Scopes) == 0 {
			cred.Scopes = previous.Scopes
		}
	}
	return cred
}
