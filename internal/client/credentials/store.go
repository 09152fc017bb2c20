// Package credentials keeps the user records the auth service checks
// passwords against.
//
// Records live in two partitions that are merged on every read. The seed
// partition holds the fixed demo accounts; it is hashed once in Initialize
// and never written to storage. The persisted partition holds user-created
// accounts as one JSON object under UsersKey. When both partitions contain
// the same email the seed record wins.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/sanitize"
)

// UsersKey is the storage key of the persisted partition.
const UsersKey = "@users_db"

var (
	ErrAlreadyExists  = common.ErrorAlreadyExists
	ErrSeedImmutable  = common.ErrorSeedImmutable
	ErrNotFound       = common.ErrorNotFound
	ErrMalformedValue = common.ErrorMalformedValue
)

// UserRecord is a stored account. Email is normalized.
type UserRecord struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

// SeedAccount is a demo account in plain form, before hashing.
type SeedAccount struct {
	Name     string
	Email    string
	Password string
}

// DefaultSeeds returns the demo accounts available on every fresh install.
func DefaultSeeds() []SeedAccount {
	return []SeedAccount{
		{Name: "John Doe", Email: "john@example.com", Password: "Password123"},
		{Name: "Jane Smith", Email: "jane@example.com", Password: "Password123"},
	}
}

// Store is the merged view over the seed and persisted partitions.
type Store struct {
	repo   metadata.Repository
	hasher cryptox.Hasher
	seeds  []SeedAccount

	initMu sync.Mutex
	ready  bool
	seed   map[string]UserRecord

	// serializes read-modify-write of the persisted partition
	writeMu sync.Mutex
}

// NewStore returns a store over repo that hashes the seed passwords with
// hasher on first use.
func NewStore(repo metadata.Repository, hasher cryptox.Hasher, seeds []SeedAccount) *Store {
	return &Store{repo: repo, hasher: hasher, seeds: append([]SeedAccount(nil), seeds...)}
}

// Initialize hashes the seed passwords. Only the first successful call does
// any work.
func (s *Store) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.ready {
		return nil
	}

	seed := make(map[string]UserRecord, len(s.seeds))
	for _, a := range s.seeds {
		if err := ctx.Err(); err != nil {
			return err
		}
		hash, err := s.hasher.Hash(a.Password)
		if err != nil {
			return fmt.Errorf("hash seed account %s: %w", a.Email, err)
		}
		email := sanitize.NormalizeEmail(a.Email)
		seed[email] = UserRecord{Name: a.Name, Email: email, PasswordHash: hash}
	}

	s.seed = seed
	s.ready = true
	return nil
}

// Ready reports whether Initialize has completed.
func (s *Store) Ready() bool {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	return s.ready
}

func (s *Store) seedRecord(email string) (UserRecord, bool) {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	r, ok := s.seed[email]
	return r, ok
}

// IsDemo reports whether email belongs to a demo account.
func (s *Store) IsDemo(email string) bool {
	email = sanitize.NormalizeEmail(email)
	for _, a := range s.seeds {
		if sanitize.NormalizeEmail(a.Email) == email {
			return true
		}
	}
	return false
}

// Lookup returns the record for email, or nil when no partition has it.
func (s *Store) Lookup(ctx context.Context, email string) (*UserRecord, error) {
	email = sanitize.NormalizeEmail(email)
	if r, ok := s.seedRecord(email); ok {
		return &r, nil
	}

	users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if r, ok := users[email]; ok {
		return &r, nil
	}
	return nil, nil
}

// Insert adds rec to the persisted partition and writes the partition back.
// It fails with ErrAlreadyExists when either partition already has the email.
func (s *Store) Insert(ctx context.Context, rec UserRecord) error {
	rec.Email = sanitize.NormalizeEmail(rec.Email)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.IsDemo(rec.Email) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, rec.Email)
	}

	users, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := users[rec.Email]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, rec.Email)
	}

	users[rec.Email] = rec
	return s.save(ctx, users)
}

// UpdatePasswordHash replaces the hash of a persisted account.
func (s *Store) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	email = sanitize.NormalizeEmail(email)
	if s.IsDemo(email) {
		return fmt.Errorf("%w: %s", ErrSeedImmutable, email)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	users, err := s.load(ctx)
	if err != nil {
		return err
	}
	rec, ok := users[email]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, email)
	}

	rec.PasswordHash = hash
	users[email] = rec
	return s.save(ctx, users)
}

// List returns the merged view sorted by email.
func (s *Store) List(ctx context.Context) ([]UserRecord, error) {
	users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	s.initMu.Lock()
	for email, r := range s.seed {
		users[email] = r
	}
	s.initMu.Unlock()

	out := make([]UserRecord, 0, len(users))
	for _, r := range users {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) load(ctx context.Context) (map[string]UserRecord, error) {
	raw, err := s.repo.Get(ctx, UsersKey)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	users := make(map[string]UserRecord)
	if len(raw) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedValue, UsersKey, err)
	}
	// a stored null decodes to a nil map
	if users == nil {
		return nil, fmt.Errorf("%w: %s: null", ErrMalformedValue, UsersKey)
	}
	return users, nil
}

func (s *Store) save(ctx context.Context, users map[string]UserRecord) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := s.repo.Set(ctx, UsersKey, raw); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}
