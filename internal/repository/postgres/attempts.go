package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/abdulkaderkhouja/elpazar/internal/core/domain"
	"github.com/abdulkaderkhouja/elpazar/internal/core/port"
)

const attemptTable = "marketplace.failed_login_attempts"

// AttemptRepository implements port.AttemptRepository using PostgreSQL.
// Rows are append-only; nothing ever updates or deletes them.
type AttemptRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAttemptRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAttemptRepository(exec pgExecutor) *AttemptRepository {
	return &AttemptRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AttemptRepository) WithTx(tx pgx.Tx) *AttemptRepository {
	if tx == nil {
		return r
	}
	return &AttemptRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Append records one rejected login attempt.
func (r *AttemptRepository) Append(ctx context.Context, attempt domain.FailedLoginAttempt) error {
	stmt, args, err := r.builder.Insert(attemptTable).
		Columns("account_id", "ip_address", "user_agent", "reason", "attempted_at").
		Values(attempt.AccountID, attempt.IPAddress, attempt.UserAgent, attempt.Reason, attempt.AttemptedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert attempt sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert failed login attempt: %w", err)
	}

	return nil
}

// CountFailedSince counts bad-password attempts recorded strictly after the
// given instant. Other rejection reasons are excluded from the count.
func (r *AttemptRepository) CountFailedSince(ctx context.Context, accountID int64, since time.Time) (int, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From(attemptTable).
		Where(squirrel.Eq{"account_id": accountID, "reason": domain.FailureBadPassword}).
		Where(squirrel.Gt{"attempted_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count attempts sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count failed login attempts: %w", err)
	}

	return count, nil
}

// ListRecent returns the newest attempts for an account, newest first.
func (r *AttemptRepository) ListRecent(ctx context.Context, accountID int64, limit int) ([]domain.FailedLoginAttempt, error) {
	if limit <= 0 {
		limit = 20
	}

	stmt, args, err := r.builder.
		Select("id", "account_id", "ip_address", "user_agent", "reason", "attempted_at").
		From(attemptTable).
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("attempted_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list attempts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list failed login attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]domain.FailedLoginAttempt, 0, limit)
	for rows.Next() {
		var attempt domain.FailedLoginAttempt
		if err := rows.Scan(
			&attempt.ID,
			&attempt.AccountID,
			&attempt.IPAddress,
			&attempt.UserAgent,
			&attempt.Reason,
			&attempt.AttemptedAt,
		); err != nil {
			return nil, fmt.Errorf("scan failed login attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed login attempts: %w", err)
	}

	return attempts, nil
}

var _ port.AttemptRepository = (*AttemptRepository)(nil)
