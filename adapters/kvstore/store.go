// Package kvstore persists calculator state in a namespaced key-value table
// through sqlx. The same queries run on SQLite and PostgreSQL; placeholders
// are rebound per driver.
package kvstore

import (
	"context"
	"database/sql"
	"time"

	"gocalc/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Store reads and writes raw values in kv_store
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open, migrated connection
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

// Get returns the value under key. ok is false when the key is absent.
func (s *Store) Get(ctx context.Context, namespace, key string) (value string, ok bool, err error) {
	query := s.db.Rebind(`SELECT item_value FROM kv_store WHERE namespace = ? AND item_key = ?`)
	err = s.db.QueryRowContext(ctx, query, namespace, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to read %s/%s", namespace, key))
	}
	return value, true, nil
}

// GetAll returns every key in namespace
func (s *Store) GetAll(ctx context.Context, namespace string) (map[string]string, error) {
	var rows []struct {
		Key   string `db:"item_key"`
		Value string `db:"item_value"`
	}
	query := s.db.Rebind(`SELECT item_key, item_value FROM kv_store WHERE namespace = ?`)
	if err := s.db.SelectContext(ctx, &rows, query, namespace); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to read namespace %s", namespace))
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}

// Put upserts one value
func (s *Store) Put(ctx context.Context, namespace, key, value string) error {
	return put(ctx, s.db, namespace, key, value)
}

// Delete removes one key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	return del(ctx, s.db, namespace, key)
}

// Mutation is one write applied by Apply. A nil Value deletes the key.
type Mutation struct {
	Key   string
	Value *string
}

// Apply runs mutations in one transaction so readers never see a half-saved state
func (s *Store) Apply(ctx context.Context, namespace string, mutations ...Mutation) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to begin transaction"))
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, m := range mutations {
		if m.Value == nil {
			err = del(ctx, tx, namespace, m.Key)
		} else {
			err = put(ctx, tx, namespace, m.Key, *m.Value)
		}
		if err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to commit transaction"))
	}
	return nil
}

// Namespaces lists every namespace holding at least one key, most recently
// updated first.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	var namespaces []string
	query := `
		SELECT namespace
		FROM kv_store
		GROUP BY namespace
		ORDER BY MAX(updated_at) DESC, namespace`
	if err := s.db.SelectContext(ctx, &namespaces, query); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to list namespaces"))
	}
	return namespaces, nil
}

// DeleteNamespace removes every key in namespace
func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	query := s.db.Rebind(`DELETE FROM kv_store WHERE namespace = ?`)
	if _, err := s.db.ExecContext(ctx, query, namespace); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to delete namespace %s", namespace))
	}
	return nil
}

func put(ctx context.Context, db execer, namespace, key, value string) error {
	query := db.Rebind(`
		INSERT INTO kv_store (namespace, item_key, item_value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, item_key) DO UPDATE SET
			item_value = excluded.item_value,
			updated_at = excluded.updated_at`)

	if _, err := db.ExecContext(ctx, query, namespace, key, value, time.Now().UTC()); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to write %s/%s", namespace, key))
	}
	return nil
}

func del(ctx context.Context, db execer, namespace, key string) error {
	query := db.Rebind(`DELETE FROM kv_store WHERE namespace = ? AND item_key = ?`)
	if _, err := db.ExecContext(ctx, query, namespace, key); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to delete %s/%s", namespace, key))
	}
	return nil
}
