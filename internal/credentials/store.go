package credentials

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/teemow/calendar-mcp/internal/logging"
)

var (
	// ErrNotFound is returned by Load when no credential exists for the user.
	ErrNotFound = errors.New("credential not found")

	// ErrInvalidUserID is returned for an empty user_id.
	ErrInvalidUserID = errors.New("user_id must not be empty")

	// ErrExists is returned by Import when userID already has a credential.
	ErrExists = errors.New("credential already exists")
)

const indexFileName = "accounts.db"

// Store reads and writes AccountCredential files under a single directory.
// The directory is created on first write.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	indexDSN     string
	indexEnabled bool

	mu       sync.Mutex
	ix       *index
	ixOpened bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for non-fatal index problems.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIndexDSN points the account index at a custom SQLite DSN.
func WithIndexDSN(dsn string) Option {
	return func(s *Store) { s.indexDSN = dsn }
}

// WithoutIndex disables the account index. List then fails.
func WithoutIndex() Option {
	return func(s *Store) { s.indexEnabled = false }
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:          dir,
		logger:       slog.Default(),
		now:          time.Now,
		indexEnabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.indexDSN == "" {
		s.indexDSN = filepath.Join(dir, indexFileName)
	}
	return s
}

// Dir returns the directory holding the credential files.
func (s *Store) Dir() string {
	return s.dir
}

// Key returns the collision-resistant storage key for userID.
func Key(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:16])
}

// Path returns the file a credential for userID is stored in.
func (s *Store) Path(userID string) string {
	return filepath.Join(s.dir, "token_"+Key(userID)+".json")
}

// Load returns the stored credential for userID or ErrNotFound.
func (s *Store) Load(ctx context.Context, userID string) (*AccountCredential, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	data, err := os.ReadFile(s.Path(userID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}

	var cred AccountCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decode credential %s: %w", s.Path(userID), err)
	}
	if cred.UserID != userID {
		return nil, fmt.Errorf("credential file %s belongs to a different account", s.Path(userID))
	}
	return &cred, nil
}

// legacyCredential is the authorized-user JSON written by the previous tooling.
type legacyCredential struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry"`
}

// Import converts the authorized-user file at path, written by the previous
// tooling, into a credential for userID. The operator names both explicitly:
// old file names were derived lossily from the account and cannot be mapped
// back safely. An existing credential is never overwritten. The old file is
// left in place.
func (s *Store) Import(ctx context.Context, userID, path string) (*AccountCredential, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if _, err := os.Stat(s.Path(userID)); err == nil {
		return nil, ErrExists
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legacy credential: %w", err)
	}

	var old legacyCredential
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("decode legacy credential %s: %w", path, err)
	}
	if old.Token == "" && old.RefreshToken == "" {
		return nil, fmt.Errorf("legacy credential %s holds no token", path)
	}

	cred := &AccountCredential{
		UserID:       userID,
		AccessToken:  old.Token,
		RefreshToken: old.RefreshToken,
		TokenType:    "Bearer",
		Scopes:       old.Scopes,
	}
	if old.Expiry != "" {
		expiry, err := time.Parse(time.RFC3339Nano, old.Expiry)
		if err != nil {
			// no timezone suffix in some files, those are UTC
			expiry, err = time.Parse("2006-01-02T15:04:05.999999", old.Expiry)
		}
		if err == nil {
			cred.Expiry = expiry.UTC()
		}
	}

	if err := s.Save(ctx, userID, cred); err != nil {
		return nil, fmt.Errorf("import legacy credential: %w", err)
	}
	s.logger.Info("imported legacy credential file", logging.UserHash(userID))
	return cred, nil
}

// Save atomically replaces the stored credential for userID.
func (s *Store) Save(ctx context.Context, userID string, cred *AccountCredential) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	if cred == nil {
		return errors.New("credential must not be nil")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	stored := *cred
	stored.UserID = userID
	stored.UpdatedAt = s.now().UTC()

	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := writeFileAtomic(s.Path(userID), data); err != nil {
		return err
	}

	if ix := s.index(); ix != nil {
		if err := ix.upsert(ctx, Key(userID), userID); err != nil {
			s.logger.Warn("failed to update account index", logging.UserHash(userID), logging.Err(err))
		}
	}
	return nil
}

// MarkRefreshed records in the index that userID's access token was just
// renewed with its refresh token. Without an index it does nothing.
func (s *Store) MarkRefreshed(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	ix := s.index()
	if ix == nil {
		return nil
	}
	at := s.now().UTC()
	ok, err := ix.markRefreshed(ctx, Key(userID), at)
	if err != nil {
		return fmt.Errorf("record refresh: %w", err)
	}
	if !ok {
		// credential files written before the index existed have no row yet
		if err := ix.upsert(ctx, Key(userID), userID); err != nil {
			return fmt.Errorf("record refresh: %w", err)
		}
		if _, err := ix.markRefreshed(ctx, Key(userID), at); err != nil {
			return fmt.Errorf("record refresh: %w", err)
		}
	}
	return nil
}

// Delete removes the stored credential and reports whether one existed.
func (s *Store) Delete(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, ErrInvalidUserID
	}

	existed := true
	if err := os.Remove(s.Path(userID)); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("delete credential: %w", err)
		}
		existed = false
	}

	if ix := s.index(); ix != nil {
		if err := ix.remove(ctx, Key(userID)); err != nil {
			s.logger.Warn("failed to update account index", logging.UserHash(userID), logging.Err(err))
		}
	}
	return existed, nil
}

// List returns the accounts known to the index. Entries whose file has
// disappeared are skipped.
func (s *Store) List(ctx context.Context) ([]Account, error) {
	ix := s.index()
	if ix == nil {
		return nil, errors.New("account index is not available")
	}
	all, err := ix.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := all[:0]
	for _, acc := range all {
		if _, err := os.Stat(s.Path(acc.UserID)); err == nil {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

// Close releases the account index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ix == nil {
		return nil
	}
	err := s.ix.close()
	s.ix = nil
	s.ixOpened = false
	return err
}

// index opens the account index on first use. A failure is logged once and
// the store keeps working without it.
func (s *Store) index() *index {
	if !s.indexEnabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ixOpened {
		return s.ix
	}
	s.ixOpened = true

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.logger.Warn("account index unavailable", logging.Err(err))
		return nil
	}
	ix, err := openIndex(s.indexDSN)
	if err != nil {
		s.logger.Warn("account index unavailable", logging.Err(err))
		return nil
	}
	s.ix = ix
	return ix
}

// writeFileAtomic writes data to a temp file next to path and renames it
// over path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credential: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync credential: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close credential: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod credential: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace credential: %w", err)
	}
	return nil
}
