package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/core/port"
	"github.com/abdulkaderkhouja/elpazar/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountTable = "marketplace.account"

var accountColumns = []string{
	"id",
	"user_id",
	"username",
	"password_hash",
	"two_factor_enabled",
	"lockout_until",
	"password_changed_at",
	"reset_password_token",
	"reset_password_token_expiry",
	"status",
	"is_active",
	"last_login_at",
	"created_at",
	"created_by_id",
	"created_by",
	"updated_at",
	"updated_by_id",
	"updated_by",
	"suspended_at",
	"suspended_by_id",
	"suspended_by",
	"deleted_at",
	"deleted_by_id",
	"deleted_by",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new account row and returns the generated identifier.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (int64, error) {
	stmt, args, err := r.builder.Insert(accountTable).
		Columns(
			"user_id",
			"username",
			"password_hash",
			"two_factor_enabled",
			"status",
			"is_active",
			"created_at",
			"created_by_id",
			"created_by",
		).
		Values(
			account.UserID,
			account.Username,
			account.PasswordHash,
			account.TwoFactorEnabled,
			account.Status,
			account.IsActive,
			account.CreatedAt,
			account.CreatedByID,
			account.CreatedBy,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert account sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}

	return id, nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, false)
}

// GetByUsername retrieves an account by its unique username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"username": username}, false)
}

// GetByUsernameForUpdate retrieves an account by username and acquires a
// row-level lock. Callers must already be inside a transaction.
func (r *AccountRepository) GetByUsernameForUpdate(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"username": username}, true)
}

// GetByIDForUpdate retrieves an account by identifier with a row-level lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, true)
}

// GetByResetTokenHash retrieves the account holding the given reset token hash.
func (r *AccountRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"reset_password_token": tokenHash}, false)
}

func (r *AccountRepository) getOne(ctx context.Context, where squirrel.Eq, forUpdate bool) (*domain.Account, error) {
	query := r.builder.
		Select(accountColumns...).
		From(accountTable).
		Where(where)
	if forUpdate {
		query = query.Suffix("FOR UPDATE")
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return account, nil
}

// List returns accounts matching the filter ordered by identifier.
func (r *AccountRepository) List(ctx context.Context, filter port.AccountFilter) ([]domain.Account, error) {
	query := r.builder.
		Select(accountColumns...).
		From(accountTable).
		OrderBy("id ASC")
	query = applyAccountFilter(query, filter)

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// Count returns the number of accounts matching the filter.
func (r *AccountRepository) Count(ctx context.Context, filter port.AccountFilter) (int, error) {
	query := r.builder.
		Select("COUNT(*)").
		From(accountTable)
	query = applyAccountFilter(query, filter)

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count accounts sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}

	return count, nil
}

func applyAccountFilter(query squirrel.SelectBuilder, filter port.AccountFilter) squirrel.SelectBuilder {
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.IsActive != nil {
		query = query.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}
	return query
}

// UpdateLockout sets or clears the lockout expiry on an account.
func (r *AccountRepository) UpdateLockout(ctx context.Context, id int64, lockoutUntil *time.Time) error {
	var value any
	if lockoutUntil != nil {
		value = *lockoutUntil
	}

	return r.updateByID(ctx, id, map[string]any{"lockout_until": value}, "update lockout")
}

// RecordLogin stamps the successful login time.
func (r *AccountRepository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	return r.updateByID(ctx, id, map[string]any{"last_login_at": at}, "record login")
}

// UpdatePassword replaces the stored hash and stamps the change time.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error {
	return r.updateByID(ctx, id, map[string]any{
		"password_hash":       passwordHash,
		"password_changed_at": changedAt,
		"updated_at":          changedAt,
	}, "update password")
}

// SetResetToken stores a hashed reset token and its expiry.
func (r *AccountRepository) SetResetToken(ctx context.Context, id int64, tokenHash string, expiry time.Time) error {
	return r.updateByID(ctx, id, map[string]any{
		"reset_password_token":        tokenHash,
		"reset_password_token_expiry": expiry,
	}, "set reset token")
}

// ClearResetToken removes any stored reset token.
func (r *AccountRepository) ClearResetToken(ctx context.Context, id int64) error {
	return r.updateByID(ctx, id, map[string]any{
		"reset_password_token":        nil,
		"reset_password_token_expiry": nil,
	}, "clear reset token")
}

// UpdateStatus transitions the account lifecycle state with audit columns.
func (r *AccountRepository) UpdateStatus(ctx context.Context, id int64, status domain.AccountStatus, isActive bool, actorID int64, actorName string, at time.Time) error {
	values := map[string]any{
		"status":        status,
		"is_active":     isActive,
		"updated_at":    at,
		"updated_by_id": actorID,
		"updated_by":    actorName,
	}

	if status == domain.AccountStatusSuspended {
		values["suspended_at"] = at
		values["suspended_by_id"] = actorID
		values["suspended_by"] = actorName
	} else {
		values["suspended_at"] = nil
		values["suspended_by_id"] = nil
		values["suspended_by"] = nil
	}

	return r.updateByID(ctx, id, values, "update status")
}

// SoftDelete marks the account deleted without removing audit history.
func (r *AccountRepository) SoftDelete(ctx context.Context, id int64, actorID int64, actorName string, at time.Time) error {
	return r.updateByID(ctx, id, map[string]any{
		"status":        domain.AccountStatusDeleted,
		"is_active":     false,
		"deleted_at":    at,
		"deleted_by_id": actorID,
		"deleted_by":    actorName,
		"updated_at":    at,
		"updated_by_id": actorID,
		"updated_by":    actorName,
	}, "soft delete account")
}

func (r *AccountRepository) updateByID(ctx context.Context, id int64, values map[string]any, action string) error {
	stmt, args, err := r.builder.Update(accountTable).
		SetMap(values).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s sql: %w", action, err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account

	if err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Username,
		&account.PasswordHash,
		&account.TwoFactorEnabled,
		&account.LockoutUntil,
		&account.PasswordChangedAt,
		&account.ResetTokenHash,
		&account.ResetTokenExpiry,
		&account.Status,
		&account.IsActive,
		&account.LastLoginAt,
		&account.CreatedAt,
		&account.CreatedByID,
		&account.CreatedBy,
		&account.UpdatedAt,
		&account.UpdatedByID,
		&account.UpdatedBy,
		&account.SuspendedAt,
		&account.SuspendedByID,
		&account.SuspendedBy,
		&account.DeletedAt,
		&account.DeletedByID,
		&account.DeletedBy,
	); err != nil {
		return nil, err
	}

	return &account, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
