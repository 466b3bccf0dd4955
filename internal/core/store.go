package core

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
)

// Stable error codes for store operations.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeStoreSerialize = "STORE_SERIALIZE"
)

const storeFile = "accounts.json"

// AccountStore is the durable collection of authenticated accounts, backed by
// a single JSON file. It maintains the invariant that a non-empty store has
// exactly one active account, healing any violation it finds on read or
// write. All operations are serialized through one mutex; persistence is a
// whole-file rewrite.
type AccountStore struct {
	mu   sync.Mutex
	path string
}

// NewAccountStore creates a store backed by <dataDir>/accounts.json.
func NewAccountStore(dataDir string) *AccountStore {
	return &AccountStore{path: filepath.Join(dataDir, storeFile)}
}

type storeDocument struct {
	Accounts []AccountRecord `json:"accounts"`
}

// Read returns all accounts. A missing, empty or unparsable file reads as an
// empty store rather than an error. If the active-flag invariant had to be
// healed, the healed state is persisted immediately.
func (s *AccountStore) Read() ([]AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// Write replaces the store's contents, normalizing active flags first.
func (s *AccountStore) Write(accounts []AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(accounts)
}

// Save upserts a freshly authenticated account. Re-authenticating a known
// uuid replaces its tokens and username in place but keeps its current active
// flag; a new account becomes active only when no existing account is.
func (s *AccountStore) Save(account *AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.readLocked()
	if err != nil {
		return err
	}

	updated := false
	for i := range accounts {
		if accounts[i].UUID == account.UUID {
			wasActive := accounts[i].IsActive
			accounts[i] = *account
			accounts[i].IsActive = wasActive
			updated = true
			break
		}
	}
	if !updated {
		record := *account
		record.IsActive = !anyActive(accounts)
		accounts = append(accounts, record)
	}

	return s.writeLocked(accounts)
}

// SetActive makes exactly the named account active.
func (s *AccountStore) SetActive(uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.readLocked()
	if err != nil {
		return err
	}

	found := false
	for i := range accounts {
		if accounts[i].UUID == uuid {
			accounts[i].IsActive = true
			found = true
		} else {
			accounts[i].IsActive = false
		}
	}
	if !found {
		return oops.Code(CodeNotFound).With("uuid", uuid).Errorf("account %s not found", uuid)
	}

	return s.writeLocked(accounts)
}

// Remove deletes the named account. If it was the active one, one of the
// remaining accounts becomes active.
func (s *AccountStore) Remove(uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.readLocked()
	if err != nil {
		return err
	}

	kept := accounts[:0]
	for _, account := range accounts {
		if account.UUID != uuid {
			kept = append(kept, account)
		}
	}
	if len(kept) == len(accounts) {
		return oops.Code(CodeNotFound).With("uuid", uuid).Errorf("account %s not found", uuid)
	}

	return s.writeLocked(kept)
}

// Active returns a copy of the active account, or nil when the store is empty.
func (s *AccountStore) Active() (*AccountRecord, error) {
	accounts, err := s.Read()
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].IsActive {
			record := accounts[i]
			return &record, nil
		}
	}
	return nil, nil
}

// Summaries returns the token-free projection of every account.
func (s *AccountStore) Summaries() ([]AccountSummary, error) {
	accounts, err := s.Read()
	if err != nil {
		return nil, err
	}
	summaries := make([]AccountSummary, 0, len(accounts))
	for i := range accounts {
		summaries = append(summaries, accounts[i].Summary())
	}
	return summaries, nil
}

func (s *AccountStore) readLocked() ([]AccountRecord, error) {
	doc := s.loadLocked()
	if normalizeActive(doc.Accounts) {
		slog.Warn("account store active flags were inconsistent, healing", "path", s.path)
		if err := s.persistLocked(doc); err != nil {
			return nil, err
		}
	}
	return doc.Accounts, nil
}

func (s *AccountStore) writeLocked(accounts []AccountRecord) error {
	normalizeActive(accounts)
	return s.persistLocked(&storeDocument{Accounts: accounts})
}

// loadLocked never fails: an unreadable or corrupt file degrades to an empty
// store so a bad accounts.json cannot brick the launcher.
func (s *AccountStore) loadLocked() *storeDocument {
	data, err := os.ReadFile(s.path)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return &storeDocument{}
	}

	doc := &storeDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		slog.Warn("account store unreadable, treating as empty", "path", s.path, "error", err)
		return &storeDocument{}
	}
	return doc
}

func (s *AccountStore) persistLocked(doc *storeDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return oops.Code(CodeStoreSerialize).Wrapf(err, "serialize account store")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return oops.Code(CodeStoreSerialize).Wrapf(err, "create data directory")
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return oops.Code(CodeStoreSerialize).Wrapf(err, "write account store")
	}
	return nil
}

// normalizeActive enforces the single-active invariant: the first active
// account wins, every later active flag is cleared, and a non-empty store
// with no active account activates its first record. Reports whether anything
// changed.
func normalizeActive(accounts []AccountRecord) bool {
	changed := false
	seenActive := false
	for i := range accounts {
		if accounts[i].IsActive {
			if seenActive {
				accounts[i].IsActive = false
				changed = true
			} else {
				seenActive = true
			}
		}
	}
	if !seenActive && len(accounts) > 0 {
		accounts[0].IsActive = true
		changed = true
	}
	return changed
}

func anyActive(accounts []AccountRecord) bool {
	for i := range accounts {
		if accounts[i].IsActive {
			return true
		}
	}
	return false
}
