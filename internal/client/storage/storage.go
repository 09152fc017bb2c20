// Package storage opens the configured durable key/value backend for the
// auth core.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/gophauth/internal/client/migrations"
	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/logging"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Backend kinds accepted by Open.
const (
	KindSQLite = "sqlite"
	KindBadger = "badger"
	KindMemory = "memory"
)

const (
	sqliteFileName = "gophauth.db"
	badgerDirName  = "badger"

	openAttempts = 3
	openBackoff  = 50 * time.Millisecond
)

// Store is an opened backend. Close releases the underlying handle.
type Store struct {
	Repo  metadata.Repository
	Kind  string
	Path  string
	close func() error
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open creates dataDir if needed and opens the backend named by kind in it.
// The memory backend ignores dataDir.
func Open(ctx context.Context, kind, dataDir string, log logging.Logger) (*Store, error) {
	switch kind {
	case KindMemory:
		return &Store{Repo: metadata.NewMemoryRepository(), Kind: kind}, nil
	case KindSQLite, KindBadger:
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}

	dir, err := filex.EnsureDir(dataDir)
	if err != nil {
		return nil, err
	}

	var st *Store
	if kind == KindSQLite {
		st, err = openSQLite(ctx, filepath.Join(dir, sqliteFileName))
	} else {
		st, err = openBadger(ctx, filepath.Join(dir, badgerDirName))
	}
	if err != nil {
		return nil, err
	}

	log.Debug(ctx, "store opened", "kind", st.Kind, "path", st.Path)
	return st, nil
}

func openSQLite(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single connection serializes writers inside this process
	db.SetMaxOpenConns(1)

	err = withRetry(ctx, func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}

	return &Store{
		Repo:  metadata.NewSQLiteRepository(db),
		Kind:  KindSQLite,
		Path:  path,
		close: db.Close,
	}, nil
}

func openBadger(ctx context.Context, path string) (*Store, error) {
	var db *badger.DB
	err := withRetry(ctx, func(context.Context) error {
		var err error
		db, err = badger.Open(badger.DefaultOptions(path).WithLogger(nil))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", path, err)
	}

	return &Store{
		Repo:  metadata.NewBadgerRepository(db),
		Kind:  KindBadger,
		Path:  path,
		close: db.Close,
	}, nil
}

// RunMigrations applies the embedded goose migrations to db. It is safe to
// call on an already migrated database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

func withRetry(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(openAttempts-1, retry.NewExponential(openBackoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
