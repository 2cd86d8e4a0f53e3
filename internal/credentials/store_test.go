package credentials

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "tokens")
	s := NewStore(dir, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func sampleCredential() *AccountCredential {
	return &AccountCredential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s, dir := newTestStore(t)

	_, err := s.Load(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "Load must not create the directory")
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s, dir := newTestStore(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "alice@example.com", sampleCredential()))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	fileInfo, err := os.Stat(s.Path("alice@example.com"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fileInfo.Mode().Perm())

	got, err := s.Load(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.UserID)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.Equal(t, now, got.UpdatedAt)
	assert.True(t, got.Expiry.Equal(sampleCredential().Expiry))
}

func TestStore_SaveReplacesAtomically(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "alice@example.com", sampleCredential()))
	updated := sampleCredential()
	updated.AccessToken = "access-2"
	require.NoError(t, s.Save(ctx, "alice@example.com", updated))

	got, err := s.Load(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "access-2", got.AccessToken)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp files must not be left behind")
	}
}

func TestStore_DistinctUserIDsDoNotCollide(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// these two mapped to the same file under the old sanitized naming
	ids := []string{"a.b@example.com", "a_b@example.com"}
	for i, id := range ids {
		cred := sampleCredential()
		cred.AccessToken = id
		require.NoError(t, s.Save(ctx, id, cred), "save %d", i)
	}

	assert.NotEqual(t, s.Path(ids[0]), s.Path(ids[1]))
	for _, id := range ids {
		got, err := s.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.AccessToken)
	}
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "alice@example.com", sampleCredential()))

	existed, err := s.Delete(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = s.Load(ctx, "alice@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_EmptyUserID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidUserID)
	assert.ErrorIs(t, s.Save(ctx, "", sampleCredential()), ErrInvalidUserID)
	_, err = s.Delete(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestStore_RejectsForeignFile(t *testing.T) {
	s, dir := newTestStore(t)
	require.NoError(t, os.MkdirAll(dir, 0o700))

	data, err := json.Marshal(AccountCredential{UserID: "mallory@example.com", AccessToken: "x"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path("alice@example.com"), data, 0o600))

	_, err = s.Load(context.Background(), "alice@example.com")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStore_LookalikeUserIDDoesNotReadOldFile(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(dir, 0o700))

	legacy := `{"token":"alice-access","refresh_token":"alice-refresh"}`
	legacyFile := filepath.Join(dir, "token_alice_at_example_com.json")
	require.NoError(t, os.WriteFile(legacyFile, []byte(legacy), 0o600))

	for _, id := range []string{"alice_at_example_com", "alice@example.com"} {
		_, err := s.Load(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, id)

		existed, err := s.Delete(ctx, id)
		require.NoError(t, err)
		assert.False(t, existed, id)
	}

	_, err := os.Stat(legacyFile)
	assert.NoError(t, err, "old file must stay untouched")
}

func TestStore_Import(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	legacy := `{"token":"old-access","refresh_token":"old-refresh","scopes":["s1"],"expiry":"2030-01-01T00:00:00.000000"}`
	legacyFile := filepath.Join(t.TempDir(), "token_alice_at_example_com.json")
	require.NoError(t, os.WriteFile(legacyFile, []byte(legacy), 0o600))

	got, err := s.Import(ctx, "alice@example.com", legacyFile)
	require.NoError(t, err)
	assert.Equal(t, "old-access", got.AccessToken)
	assert.Equal(t, "old-refresh", got.RefreshToken)
	assert.Equal(t, []string{"s1"}, got.Scopes)
	assert.Equal(t, 2030, got.Expiry.Year())

	loaded, err := s.Load(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "old-access", loaded.AccessToken)
	_, err = os.Stat(filepath.Join(dir, "token_"+Key("alice@example.com")+".json"))
	assert.NoError(t, err)
	_, err = os.Stat(legacyFile)
	assert.NoError(t, err, "import leaves the old file in place")

	_, err = s.Import(ctx, "alice@example.com", legacyFile)
	assert.ErrorIs(t, err, ErrExists)
}

func TestStore_ImportErrors(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0o600))
	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`not json`), 0o600))

	tests := []struct {
		name   string
		userID string
		path   string
	}{
		{"empty user", "", empty},
		{"missing file", "alice", filepath.Join(dir, "nope.json")},
		{"no token", "alice", empty},
		{"malformed", "alice", garbage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Import(ctx, tt.userID, tt.path)
			assert.Error(t, err)
		})
	}
}

func TestStore_List(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "bob@example.com", sampleCredential()))
	require.NoError(t, s.Save(ctx, "alice@example.com", sampleCredential()))
	require.NoError(t, s.Save(ctx, "alice@example.com", sampleCredential()))

	accounts, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alice@example.com", accounts[0].UserID)
	assert.Equal(t, Key("alice@example.com"), accounts[0].Key)
	assert.Equal(t, "bob@example.com", accounts[1].UserID)

	_, err = s.Delete(ctx, "bob@example.com")
	require.NoError(t, err)
	accounts, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestStore_MarkRefreshed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newTestStore(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "alice@example.com", sampleCredential()))
	accounts, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Nil(t, accounts[0].LastRefreshAt, "saving alone is not a refresh")

	now = now.Add(time.Hour)
	require.NoError(t, s.MarkRefreshed(ctx, "alice@example.com"))
	accounts, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.NotNil(t, accounts[0].LastRefreshAt)
	assert.True(t, now.Equal(*accounts[0].LastRefreshAt))

	assert.ErrorIs(t, s.MarkRefreshed(ctx, ""), ErrInvalidUserID)
}

func TestStore_MarkRefreshedAddsMissingRow(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	// a credential file the index has never seen
	other := NewStore(dir, WithoutIndex())
	require.NoError(t, other.Save(ctx, "carol@example.com", sampleCredential()))

	require.NoError(t, s.MarkRefreshed(ctx, "carol@example.com"))
	accounts, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "carol@example.com", accounts[0].UserID)
	assert.NotNil(t, accounts[0].LastRefreshAt)
}

func TestStore_MarkRefreshedWithoutIndex(t *testing.T) {
	s, _ := newTestStore(t, WithoutIndex())
	assert.NoError(t, s.MarkRefreshed(context.Background(), "alice@example.com"))
}

func TestStore_WithoutIndex(t *testing.T) {
	s, dir := newTestStore(t, WithoutIndex())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "alice@example.com", sampleCredential()))
	_, err := os.Stat(filepath.Join(dir, indexFileName))
	assert.True(t, os.IsNotExist(err))

	_, err = s.List(ctx)
	assert.Error(t, err)
}

func TestStore_ConcurrentSaves(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Save(ctx, "alice@example.com", sampleCredential()))
		}()
	}
	wg.Wait()

	got, err := s.Load(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
}

func TestKey(t *testing.T) {
	assert.Len(t, Key("alice@example.com"), 32)
	assert.Equal(t, Key("alice@example.com"), Key("alice@example.com"))
	assert.NotEqual(t, Key("alice@example.com"), Key("Alice@example.com"))
}
