package registry

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"torwatch/internal/app/db"
	"torwatch/internal/app/node"
)

// PostgresStore persists the watch registry in PostgreSQL.
//
// The schema is normalized: one row per (user, fingerprint) in watch_nodes
// with a composite primary key, so concurrent adds for the same user insert
// independent rows and cannot overwrite each other. Idempotency comes from
// ON CONFLICT DO NOTHING rather than read-modify-write.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an initialized connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureUser registers the user if unseen.
func (s *PostgresStore) EnsureUser(ctx context.Context, id node.UserID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO watch_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		int64(id))
	if err != nil {
		return false, fmt.Errorf("registry: ensure user %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Add inserts the fingerprint into the user's watch set.
func (s *PostgresStore) Add(ctx context.Context, id node.UserID, fp node.Fingerprint) error {
	const insertNode = `INSERT INTO watch_nodes (user_id, fingerprint) VALUES ($1, $2)
		 ON CONFLICT (user_id, fingerprint) DO NOTHING`

	tag, err := s.pool.Exec(ctx, insertNode, int64(id), string(fp))
	if db.IsForeignKeyViolation(err) {
		// Auto-register on the write path so a user who skipped /start
		// can still add nodes.
		if _, err := s.EnsureUser(ctx, id); err != nil {
			return err
		}
		tag, err = s.pool.Exec(ctx, insertNode, int64(id), string(fp))
	}
	if err != nil {
		return fmt.Errorf("registry: add node for user %d: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAlreadyPresent
	}
	return nil
}

// Remove deletes the fingerprint from the user's watch set.
func (s *PostgresStore) Remove(ctx context.Context, id node.UserID, fp node.Fingerprint) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM watch_nodes WHERE user_id = $1 AND fingerprint = $2`,
		int64(id), string(fp))
	if err != nil {
		return false, fmt.Errorf("registry: remove node for user %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns the user's fingerprints sorted ascending.
func (s *PostgresStore) List(ctx context.Context, id node.UserID) ([]node.Fingerprint, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM watch_users WHERE user_id = $1)`,
		int64(id)).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("registry: check user %d: %w", id, err)
	}
	if !exists {
		return nil, ErrUnknownUser
	}

	rows, err := s.pool.Query(ctx,
		`SELECT fingerprint FROM watch_nodes WHERE user_id = $1 ORDER BY fingerprint`,
		int64(id))
	if err != nil {
		return nil, fmt.Errorf("registry: list nodes for user %d: %w", id, err)
	}
	defer rows.Close()

	fingerprints := []node.Fingerprint{}
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("registry: scan node for user %d: %w", id, err)
		}
		fingerprints = append(fingerprints, node.Fingerprint(fp))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: list nodes for user %d: %w", id, err)
	}

	return fingerprints, nil
}

// AllUsersWithNodes returns a snapshot of every user with a non-empty set.
// Reading ordered by (user_id, fingerprint) lets rows be grouped in a single pass.
func (s *PostgresStore) AllUsersWithNodes(ctx context.Context) ([]UserNodes, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, fingerprint FROM watch_nodes ORDER BY user_id, fingerprint`)
	if err != nil {
		return nil, fmt.Errorf("registry: snapshot watch nodes: %w", err)
	}
	defer rows.Close()

	var snapshot []UserNodes
	for rows.Next() {
		var userID int64
		var fp string
		if err := rows.Scan(&userID, &fp); err != nil {
			return nil, fmt.Errorf("registry: scan watch node: %w", err)
		}

		id := node.UserID(userID)
		if len(snapshot) == 0 || snapshot[len(snapshot)-1].UserID != id {
			snapshot = append(snapshot, UserNodes{UserID: id})
		}
		last := &snapshot[len(snapshot)-1]
		last.Fingerprints = append(last.Fingerprints, node.Fingerprint(fp))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: snapshot watch nodes: %w", err)
	}

	return snapshot, nil
}
