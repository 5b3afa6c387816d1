package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/honeynil/auth-service/internal/models"
	pkgerrors "github.com/honeynil/auth-service/pkg/errors"
	"github.com/lib/pq"
)

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account == nil {
		return pkgerrors.ErrNilAccount
	}
	if account.Username == "" || account.Email == "" || account.PasswordHash == "" {
		return fmt.Errorf("%w: username, email and password are required", pkgerrors.ErrInvalidInput)
	}
	if account.Role == "" {
		account.Role = "user"
	}

	query := `
	INSERT INTO accounts (username, email, password_hash, role)
	VALUES ($1, $2, $3, $4)
	RETURNING id, register_time
	`
	err := r.db.QueryRowContext(
		ctx,
		query,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.Role,
	).Scan(&account.ID, &account.RegisterTime)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "email") {
				return pkgerrors.ErrEmailExists
			}
			return pkgerrors.ErrUsernameExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByUsernameOrEmail is the login lookup: the client may present
// either identifier in the same field.
func (r *PostgresAccountRepository) GetByUsernameOrEmail(ctx context.Context, text string) (*models.Account, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: lookup text cannot be empty", pkgerrors.ErrInvalidInput)
	}

	query := `SELECT id, username, email, password_hash, role, register_time FROM accounts WHERE username = $1 OR email = $1`

	var account models.Account
	err := r.db.QueryRowContext(ctx, query, text).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.RegisterTime,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrAccountNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT id, username, email, password_hash, role, register_time FROM accounts WHERE email = $1`

	var account models.Account
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.RegisterTime,
	)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrAccountNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

func (r *PostgresAccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1)`, username)
}

func (r *PostgresAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`, email)
}

func (r *PostgresAccountRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("existence check failed: %w", err)
	}
	return exists, nil
}

func (r *PostgresAccountRepository) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $1 WHERE email = $2`
	res, err := r.db.ExecContext(ctx, query, passwordHash, email)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrAccountNotFound
	}
	return nil
}
