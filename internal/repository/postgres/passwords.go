package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/core/port"
)

const passwordHistoryTable = "marketplace.old_user_passwords"

// PasswordHistoryRepository implements port.PasswordHistoryRepository using PostgreSQL.
type PasswordHistoryRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPasswordHistoryRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewPasswordHistoryRepository(exec pgExecutor) *PasswordHistoryRepository {
	return &PasswordHistoryRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *PasswordHistoryRepository) WithTx(tx pgx.Tx) *PasswordHistoryRepository {
	if tx == nil {
		return r
	}
	return &PasswordHistoryRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Append archives a superseded password hash.
func (r *PasswordHistoryRepository) Append(ctx context.Context, entry domain.OldUserPassword) error {
	stmt, args, err := r.builder.Insert(passwordHistoryTable).
		Columns("account_id", "password_hash", "password_set_at", "password_adapter").
		Values(entry.AccountID, entry.PasswordHash, entry.PasswordSetAt, entry.PasswordAdapter).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert password history sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert password history: %w", err)
	}

	return nil
}

// ListRecent returns the newest archived hashes for an account, newest first.
func (r *PasswordHistoryRepository) ListRecent(ctx context.Context, accountID int64, limit int) ([]domain.OldUserPassword, error) {
	if limit <= 0 {
		limit = 5
	}

	stmt, args, err := r.builder.
		Select("id", "account_id", "password_hash", "password_set_at", "password_adapter").
		From(passwordHistoryTable).
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("password_set_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list password history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list password history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.OldUserPassword, 0, limit)
	for rows.Next() {
		var entry domain.OldUserPassword
		if err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.PasswordHash,
			&entry.PasswordSetAt,
			&entry.PasswordAdapter,
		); err != nil {
			return nil, fmt.Errorf("scan password history: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password history: %w", err)
	}

	return entries, nil
}

// Trim drops archived hashes beyond the retention count for an account.
func (r *PasswordHistoryRepository) Trim(ctx context.Context, accountID int64, maxEntries int) error {
	if maxEntries <= 0 {
		return nil
	}

	stmt := fmt.Sprintf(`DELETE FROM %s
WHERE account_id = $1
  AND id NOT IN (
    SELECT id FROM %s
    WHERE account_id = $1
    ORDER BY password_set_at DESC, id DESC
    LIMIT $2
  )`, passwordHistoryTable, passwordHistoryTable)

	if _, err := r.exec.Exec(ctx, stmt, accountID, maxEntries); err != nil {
		return fmt.Errorf("trim password history: %w", err)
	}

	return nil
}

var _ port.PasswordHistoryRepository = (*PasswordHistoryRepository)(nil)
