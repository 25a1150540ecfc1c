package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountUpdate lists the mutable fields of an account. Nil fields are left untouched.
type AccountUpdate struct {
	PasswordHash   *string
	Locked         *bool
	PolicyEnforced *bool
	FailedAttempts *int
}

func (u AccountUpdate) empty() bool {
	return u.PasswordHash == nil && u.Locked == nil && u.PolicyEnforced == nil && u.FailedAttempts == nil
}

// AccountRepository defines persistence operations for accounts.
// Lookups return ErrUserNotFound when no record matches; Insert returns
// ErrDuplicateUsername on a username clash.
type AccountRepository interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	Insert(ctx context.Context, username, passwordHash string, role Role) (*Account, error)
	Update(ctx context.Context, id int64, upd AccountUpdate) error
	ListOrderedByUsername(ctx context.Context) ([]Account, error)
}

func boolPtr(v bool) *bool       { return &v }
func intPtr(v int) *int          { return &v }
func stringPtr(v string) *string { return &v }

// storageErr passes domain errors through and wraps everything else as ErrStorageUnavailable.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrDuplicateUsername) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}

// PgAccountRepository implements AccountRepository using pgxpool.
type PgAccountRepository struct {
	db *pgxpool.Pool
}

func NewPgAccountRepository(db *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{db: db}
}

const accountColumns = `id, username, password_hash, role, is_locked, enforce_policy, failed_attempts, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var role string
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &role, &a.Locked, &a.PolicyEnforced, &a.FailedAttempts, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	a.Role = Role(role)
	return &a, nil
}

func (r *PgAccountRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE username=$1`
	return scanAccount(r.db.QueryRow(ctx, q, username))
}

func (r *PgAccountRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return scanAccount(r.db.QueryRow(ctx, q, id))
}

func (r *PgAccountRepository) Insert(ctx context.Context, username, passwordHash string, role Role) (*Account, error) {
	q := `INSERT INTO accounts (username, password_hash, role) VALUES ($1,$2,$3) RETURNING ` + accountColumns
	a, err := scanAccount(r.db.QueryRow(ctx, q, username, passwordHash, string(role)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return a, nil
}

// Update writes only the non-nil fields of upd in a single statement.
func (r *PgAccountRepository) Update(ctx context.Context, id int64, upd AccountUpdate) error {
	if upd.empty() {
		return nil
	}
	sets := make([]string, 0, 5)
	args := make([]any, 0, 5)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}
	if upd.Locked != nil {
		add("is_locked", *upd.Locked)
	}
	if upd.PolicyEnforced != nil {
		add("enforce_policy", *upd.PolicyEnforced)
	}
	if upd.FailedAttempts != nil {
		add("failed_attempts", *upd.FailedAttempts)
	}
	sets = append(sets, "updated_at=now()")
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE accounts SET %s WHERE id=$%d`, strings.Join(sets, ", "), len(args))
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgAccountRepository) ListOrderedByUsername(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}
