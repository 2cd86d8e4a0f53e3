package credentials

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestStateOf(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cred *AccountCredential
		want State
	}{
		{"nil", nil, StateAbsent},
		{"empty", &AccountCredential{}, StateAbsent},
		{"valid", &AccountCredential{AccessToken: "a", Expiry: now.Add(time.Hour)}, StateValid},
		{"no expiry", &AccountCredential{AccessToken: "a"}, StateValid},
		{"inside skew", &AccountCredential{AccessToken: "a", RefreshToken: "r", Expiry: now.Add(5 * time.Second)}, StateExpiredRefreshable},
		{"expired with refresh", &AccountCredential{AccessToken: "a", RefreshToken: "r", Expiry: now.Add(-time.Hour)}, StateExpiredRefreshable},
		{"refresh only", &AccountCredential{RefreshToken: "r"}, StateExpiredRefreshable},
		{"expired without refresh", &AccountCredential{AccessToken: "a", Expiry: now.Add(-time.Hour)}, StateExpiredUnrefreshable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateOf(tt.cred, now))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "absent", StateAbsent.String())
	assert.Equal(t, "valid", StateValid.String())
	assert.Equal(t, "expired_refreshable", StateExpiredRefreshable.String())
	assert.Equal(t, "expired_unrefreshable", StateExpiredUnrefreshable.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestFromToken_KeepsPreviousRefreshToken(t *testing.T) {
	prev := &AccountCredential{RefreshToken: "r1", Scopes: []string{"s"}}
	tok := &oauth2.Token{AccessToken: "a2", TokenType: "Bearer", Expiry: time.Unix(100, 0)}

	cred := FromToken("alice@example.com", tok, nil, prev)
	assert.Equal(t, "alice@example.com", cred.UserID)
	assert.Equal(t, "a2", cred.AccessToken)
	assert.Equal(t, "r1", cred.RefreshToken)
	assert.Equal(t, []string{"s"}, cred.Scopes)

	back := cred.Token()
	assert.Equal(t, "a2", back.AccessToken)
	assert.Equal(t, "r1", back.RefreshToken)
	assert.True(t, back.Expiry.Equal(time.Unix(100, 0)))
}
