package credentials

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
)

// countingHasher считает вызовы Hash.
type countingHasher struct {
	cryptox.SHA256Hasher
	mu    sync.Mutex
	calls int
	err   error
}

func (h *countingHasher) Hash(pw string) (string, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	if h.err != nil {
		return "", h.err
	}
	return h.SHA256Hasher.Hash(pw)
}

// failingRepo returns err from every call.
type failingRepo struct {
	metadata.MemoryRepository
	err error
}

func (r *failingRepo) Get(context.Context, string) ([]byte, error) { return nil, r.err }
func (r *failingRepo) Set(context.Context, string, []byte) error   { return r.err }

func newStore(t *testing.T) (*Store, *metadata.MemoryRepository) {
	t.Helper()
	repo := metadata.NewMemoryRepository()
	s := NewStore(repo, cryptox.SHA256Hasher{}, DefaultSeeds())
	require.NoError(t, s.Initialize(context.Background()))
	return s, repo
}

func TestInitialize_HashesSeedsOnce(t *testing.T) {
	h := &countingHasher{}
	s := NewStore(metadata.NewMemoryRepository(), h, DefaultSeeds())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Initialize(context.Background()))
		}()
	}
	wg.Wait()

	assert.True(t, s.Ready())
	assert.Equal(t, len(DefaultSeeds()), h.calls)
}

func TestInitialize_HashErrorLeavesStoreUninitialized(t *testing.T) {
	h := &countingHasher{err: errors.New("boom")}
	s := NewStore(metadata.NewMemoryRepository(), h, DefaultSeeds())

	err := s.Initialize(context.Background())
	require.ErrorContains(t, err, "boom")
	assert.False(t, s.Ready())

	h.err = nil
	require.NoError(t, s.Initialize(context.Background()))
	assert.True(t, s.Ready())
}

func TestLookup_DefaultSeeds(t *testing.T) {
	s, repo := newStore(t)
	ctx := context.Background()

	rec, err := s.Lookup(ctx, "  JOHN@example.com ")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "John Doe", rec.Name)
	assert.Equal(t, "john@example.com", rec.Email)
	assert.Equal(t, "008c70392e3abfbd0fa47bbc2ed96aa99bd49e159727fcba0f2e6abeb3a9d601", rec.PasswordHash)

	// seeds never reach storage
	raw, err := repo.Get(ctx, UsersKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestLookup_Unknown(t *testing.T) {
	s, _ := newStore(t)
	rec, err := s.Lookup(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestInsert_PersistsAndLooksUp(t *testing.T) {
	s, repo := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, UserRecord{Name: "Alice", Email: "Alice@Example.com", PasswordHash: "h"}))

	rec, err := s.Lookup(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, UserRecord{Name: "Alice", Email: "alice@example.com", PasswordHash: "h"}, *rec)

	raw, err := repo.Get(ctx, UsersKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice@example.com":{"name":"Alice","email":"alice@example.com","passwordHash":"h"}}`, string(raw))

	// a second store over the same repo sees the record
	other := NewStore(repo, cryptox.SHA256Hasher{}, DefaultSeeds())
	require.NoError(t, other.Initialize(ctx))
	rec, err = other.Lookup(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestInsert_Duplicates(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	err := s.Insert(ctx, UserRecord{Name: "Fake John", Email: "john@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, s.Insert(ctx, UserRecord{Name: "Bob", Email: "bob@example.com", PasswordHash: "x"}))
	err = s.Insert(ctx, UserRecord{Name: "Bob 2", Email: " BOB@example.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	rec, err := s.Lookup(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Bob", rec.Name)
}

func TestInsert_SeedWinsOverPersistedCollision(t *testing.T) {
	repo := metadata.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, UsersKey, []byte(`{"jane@example.com":{"name":"Impostor","email":"jane@example.com","passwordHash":"x"}}`)))

	s := NewStore(repo, cryptox.SHA256Hasher{}, DefaultSeeds())
	require.NoError(t, s.Initialize(ctx))

	rec, err := s.Lookup(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", rec.Name)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Jane Smith", list[0].Name)
}

func TestInsert_ConcurrentSignupsAreNotLost(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	emails := []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io", "f@x.io"}
	var wg sync.WaitGroup
	for _, e := range emails {
		wg.Add(1)
		go func(e string) {
			defer wg.Done()
			assert.NoError(t, s.Insert(ctx, UserRecord{Name: "U", Email: e, PasswordHash: "h"}))
		}(e)
	}
	wg.Wait()

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(emails)+len(DefaultSeeds()))
}

func TestUpdatePasswordHash(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, UserRecord{Name: "Alice", Email: "alice@example.com", PasswordHash: "old"}))

	require.NoError(t, s.UpdatePasswordHash(ctx, "ALICE@example.com", "new"))
	rec, err := s.Lookup(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new", rec.PasswordHash)

	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "john@example.com", "x"), ErrSeedImmutable)
	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "ghost@example.com", "x"), ErrNotFound)
}

func TestList_SortedMergedView(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, UserRecord{Name: "Zed", Email: "zed@example.com", PasswordHash: "h"}))
	require.NoError(t, s.Insert(ctx, UserRecord{Name: "Al", Email: "al@example.com", PasswordHash: "h"}))

	list, err := s.List(ctx)
	require.NoError(t, err)

	var got []string
	for _, r := range list {
		got = append(got, r.Email)
	}
	assert.Equal(t, []string{"al@example.com", "jane@example.com", "john@example.com", "zed@example.com"}, got)
}

func TestIsDemo(t *testing.T) {
	s := NewStore(metadata.NewMemoryRepository(), cryptox.SHA256Hasher{}, DefaultSeeds())
	assert.True(t, s.IsDemo("john@example.com"))
	assert.True(t, s.IsDemo(" Jane@Example.COM "))
	assert.False(t, s.IsDemo("alice@example.com"))
	assert.False(t, s.IsDemo(""))
}

func TestMalformedPartition(t *testing.T) {
	for _, payload := range []string{"{not json", "null", "[]", `"x"`, "42"} {
		t.Run(payload, func(t *testing.T) {
			repo := metadata.NewMemoryRepository()
			ctx := context.Background()
			require.NoError(t, repo.Set(ctx, UsersKey, []byte(payload)))

			s := NewStore(repo, cryptox.SHA256Hasher{}, DefaultSeeds())
			require.NoError(t, s.Initialize(ctx))

			_, err := s.Lookup(ctx, "alice@example.com")
			assert.ErrorIs(t, err, ErrMalformedValue)

			err = s.Insert(ctx, UserRecord{Name: "Alice", Email: "alice@example.com", PasswordHash: "h"})
			assert.ErrorIs(t, err, ErrMalformedValue)

			_, err = s.List(ctx)
			assert.ErrorIs(t, err, ErrMalformedValue)

			err = s.UpdatePasswordHash(ctx, "alice@example.com", "h2")
			assert.ErrorIs(t, err, ErrMalformedValue)

			// seed lookups do not touch storage
			rec, err := s.Lookup(ctx, "john@example.com")
			require.NoError(t, err)
			assert.NotNil(t, rec)
		})
	}
}

func TestNewStore_CopiesSeeds(t *testing.T) {
	seeds := DefaultSeeds()
	s := NewStore(metadata.NewMemoryRepository(), cryptox.SHA256Hasher{}, seeds)
	seeds[0].Email = "mallory@example.com"

	assert.True(t, s.IsDemo("john@example.com"))
	assert.False(t, s.IsDemo("mallory@example.com"))
}

func TestStorageErrorsPropagate(t *testing.T) {
	boom := errors.New("disk gone")
	repo := &failingRepo{err: boom}
	s := NewStore(repo, cryptox.SHA256Hasher{}, DefaultSeeds())
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	_, err := s.Lookup(ctx, "alice@example.com")
	assert.ErrorIs(t, err, boom)

	err = s.Insert(ctx, UserRecord{Name: "Alice", Email: "alice@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, boom)
}
