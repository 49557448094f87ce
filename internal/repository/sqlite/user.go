package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/model"
	"github.com/sakif/codewizard/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, password_hash, name, token, token_expires_at, is_admin, is_verified, created_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u         model.User
		token     sql.NullString
		expiresAt sql.NullInt64
		createdAt int64
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&token,
		&expiresAt,
		&u.IsAdmin,
		&u.IsVerified,
		&createdAt,
	); err != nil {
		return nil, err
	}

	u.Token = token.String
	if expiresAt.Valid {
		u.TokenExpiresAt = fromMillis(expiresAt.Int64)
	}
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

// nullToken stores an empty token as NULL so the UNIQUE index ignores it.
func nullToken(token string, expiresAt time.Time) (sql.NullString, sql.NullInt64) {
	if token == "" {
		return sql.NullString{}, sql.NullInt64{}
	}
	return sql.NullString{String: token, Valid: true},
		sql.NullInt64{Int64: toMillis(expiresAt), Valid: true}
}

// CreateUser inserts a new user. A duplicate email (or, improbably, token)
// is reported as a conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.CreatedAt = db.timestamp()
	token, expiresAt := nullToken(user.Token, user.TokenExpiresAt)

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, name, token, token_expires_at, is_admin, is_verified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		user.PasswordHash,
		user.Name,
		token,
		expiresAt,
		boolToInt(user.IsAdmin),
		boolToInt(user.IsVerified),
		toMillis(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail matches the email exactly (case-sensitive).
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// GetUserByToken returns the holder of token regardless of expiry.
func (db *DB) GetUserByToken(ctx context.Context, token string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE token = ?`, token,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", "token")
		}
		return nil, fmt.Errorf("sqlite: getting user by token: %w", err)
	}
	return u, nil
}

func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
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

// UpdateUserProfile overwrites name and email and returns the stored row.
func (db *DB) UpdateUserProfile(ctx context.Context, id int64, name, email string) (*model.User, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ? WHERE id = ?`, name, email, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("user", email)
		}
		return nil, fmt.Errorf("sqlite: updating user %d: %w", id, err)
	}
	if err := requireAffected(res, "user", id); err != nil {
		return nil, err
	}
	return db.GetUserByID(ctx, id)
}

func (db *DB) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %d: %w", id, err)
	}
	return requireAffected(res, "user", id)
}

// SwapUserToken is a compare-and-set: the new token is written only while
// the row holds no token live at now. Two concurrent logins for the same
// user therefore agree on one token.
func (db *DB) SwapUserToken(ctx context.Context, id int64, token string, expiresAt, now time.Time) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET token = ?, token_expires_at = ?
		 WHERE id = ?
		   AND (token IS NULL OR token_expires_at IS NULL OR token_expires_at <= ?)`,
		token, toMillis(expiresAt), id, toMillis(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, apperror.Conflict("session", "token")
		}
		return false, fmt.Errorf("sqlite: swapping token for user %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n == 1, nil
}

func (db *DB) ClearUserToken(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET token = NULL, token_expires_at = NULL WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing token for user %d: %w", id, err)
	}
	return requireAffected(res, "user", id)
}

func (db *DB) SetUserAdmin(ctx context.Context, id int64, isAdmin bool) (*model.User, error) {
	return db.setUserFlag(ctx, id, "is_admin", isAdmin)
}

func (db *DB) SetUserVerified(ctx context.Context, id int64, isVerified bool) (*model.User, error) {
	return db.setUserFlag(ctx, id, "is_verified", isVerified)
}

// setUserFlag updates one boolean column. column is always a constant from
// this file, never user input.
func (db *DB) setUserFlag(ctx context.Context, id int64, column string, value bool) (*model.User, error) {
	res, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = ? WHERE id = ?`, column), boolToInt(value), id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: setting %s for user %d: %w", column, id, err)
	}
	if err := requireAffected(res, "user", id); err != nil {
		return nil, err
	}
	return db.GetUserByID(ctx, id)
}

// DeleteUser removes the user; progress and submissions go with it.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}
	return requireAffected(res, "user", id)
}

// ClearExpiredTokens nulls the token of every user whose expiry is before
// now. Tokens expiring exactly at now are already unusable for login reuse
// and are picked up on the next run.
func (db *DB) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET token = NULL, token_expires_at = NULL
		 WHERE token_expires_at IS NOT NULL AND token_expires_at < ?`,
		toMillis(now),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: clearing expired tokens: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

// requireAffected turns a zero-row write into a NotFound for resource id.
func requireAffected(res sql.Result, resource string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
