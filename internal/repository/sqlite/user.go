package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/accessai/internal/apperror"
	"github.com/sakif/accessai/internal/model"
	"github.com/sakif/accessai/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, password_hash, github_id, points, level, achievements, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by *sql.DB and *sql.Tx so lookups can run inside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u            model.User
		githubID     sql.NullInt64
		achievements string
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&githubID,
		&u.Points,
		&u.Level,
		&achievements,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	if err := json.Unmarshal([]byte(achievements), &u.Achievements); err != nil {
		return nil, fmt.Errorf("decoding achievements for user %s: %w", u.ID, err)
	}
	return &u, nil
}

func encodeAchievements(a []string) (string, error) {
	if a == nil {
		a = []string{}
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullableGitHubID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// isUniqueViolation detects SQLITE_CONSTRAINT_UNIQUE (extended code 2067).
func isUniqueViolation(err error) bool {
	var se *sqlitedriver.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// Create inserts a new user. Email is normalised to lower case; points and
// level are stored as given, with a zero level raised to model.StartingLevel.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := db.now()
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Level < model.StartingLevel {
		user.Level = model.StartingLevel
	}
	if user.Achievements == nil {
		user.Achievements = []string{}
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	achievements, err := encodeAchievements(user.Achievements)
	if err != nil {
		return fmt.Errorf("sqlite: encoding achievements: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		nullableGitHubID(user.GitHubID),
		user.Points,
		user.Level,
		achievements,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return getByID(ctx, db.conn, id)
}

func getByID(ctx context.Context, q querier, id string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHub resolves a GitHub identity to an account.
//
// Lookup order:
//  1. an account already linked to this GitHub ID
//  2. an existing password account with the same email, which gets linked
//  3. otherwise a new account with no password
//
// On return user holds the stored record, including progress.
func (db *DB) UpsertGitHub(ctx context.Context, user *model.User) (bool, error) {
	if user.GitHubID == nil {
		return false, fmt.Errorf("sqlite: upsert requires a GitHub ID")
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, *user.GitHubID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("sqlite: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	if existing == nil && email != "" {
		existing, err = scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("sqlite: looking up user by email: %w", err)
		}
		if existing != nil {
			existing.GitHubID = user.GitHubID
			existing.UpdatedAt = db.now()
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET github_id = ?, updated_at = ? WHERE id = ?`,
				*user.GitHubID, existing.UpdatedAt, existing.ID,
			); err != nil {
				return false, fmt.Errorf("sqlite: linking github_id to user %s: %w", existing.ID, err)
			}
		}
	}

	created := existing == nil
	if created {
		now := db.now()
		existing = &model.User{
			ID:           xid.New().String(),
			Email:        email,
			GitHubID:     user.GitHubID,
			Level:        model.StartingLevel,
			Achievements: []string{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, '', ?, 0, ?, '[]', ?, ?)`,
			existing.ID, existing.Email, *existing.GitHubID, existing.Level, now, now,
		); err != nil {
			if isUniqueViolation(err) {
				return false, apperror.Conflict("user", email)
			}
			return false, fmt.Errorf("sqlite: inserting user (githubID=%d): %w", *user.GitHubID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing upsert: %w", err)
	}
	*user = *existing
	return created, nil
}

// UpdateProgress loads the user, applies fn and writes the progress columns
// back in one transaction. updated_at is bumped so the leaderboard can break
// ties by most recent activity.
func (db *DB) UpdateProgress(ctx context.Context, id string, fn repository.ProgressFunc) (*model.User, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	u, err := getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(u); err != nil {
		return nil, err
	}

	achievements, err := encodeAchievements(u.Achievements)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding achievements: %w", err)
	}
	u.UpdatedAt = db.now()

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET points = ?, level = ?, achievements = ?, updated_at = ? WHERE id = ?`,
		u.Points, u.Level, achievements, u.UpdatedAt, u.ID,
	); err != nil {
		return nil, fmt.Errorf("sqlite: updating progress for user %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing progress for user %s: %w", id, err)
	}
	return u, nil
}

// ListByPoints returns one leaderboard page.
func (db *DB) ListByPoints(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 ORDER BY points DESC, updated_at DESC, id ASC
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, opts.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}
	return users, nil
}

func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return n, nil
}
