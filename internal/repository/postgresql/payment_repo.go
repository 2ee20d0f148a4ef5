package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/repository"

	"github.com/lib/pq"
)

type pgPaymentRepository struct {
	db *sql.DB
}

func NewPgPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &pgPaymentRepository{db: db}
}

const paymentColumns = `id, session_key, plate, space_id, start_time, fee, status,
	                 method, reference, paid_at, created_at, updated_at`

// InsertIfAbsent relies on the unique index on session_key; the check and
// the insert collapse into one statement so two concurrent callers cannot
// both create a record for the same session.
func (r *pgPaymentRepository) InsertIfAbsent(ctx context.Context, rec *domain.PaymentRecord) (bool, error) {
	query := `INSERT INTO payment_records (session_key, plate, space_id, start_time, fee, status, method, reference, paid_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	           ON CONFLICT (session_key) DO NOTHING
	           RETURNING id, created_at, updated_at`
	var methodVal sql.NullString
	if rec.Method.Valid {
		methodVal = sql.NullString{String: rec.Method.String, Valid: true}
	}
	var referenceVal sql.NullString
	if rec.Reference.Valid {
		referenceVal = sql.NullString{String: rec.Reference.String, Valid: true}
	}
	var paidAtVal sql.NullTime
	if rec.PaidAt.Valid {
		paidAtVal = sql.NullTime{Time: rec.PaidAt.Time, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		rec.SessionKey, rec.Plate, rec.SpaceID, rec.StartTime, rec.Fee, rec.Status,
		methodVal, referenceVal, paidAtVal,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict: a record for this session key already exists.
			return false, nil
		}
		return false, fmt.Errorf("PaymentRepository.InsertIfAbsent: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.In(time.UTC)
	rec.UpdatedAt = rec.UpdatedAt.In(time.UTC)
	return true, nil
}

func (r *pgPaymentRepository) FindByKey(ctx context.Context, key string) (*domain.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_records WHERE session_key = $1`
	rec := &domain.PaymentRecord{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&rec.ID, &rec.SessionKey, &rec.Plate, &rec.SpaceID, &rec.StartTime, &rec.Fee, &rec.Status,
		&rec.Method, &rec.Reference, &rec.PaidAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("PaymentRepository.FindByKey: %w", err)
	}
	normalizePaymentTimes(rec)
	return rec, nil
}

func (r *pgPaymentRepository) FindByKeys(ctx context.Context, keys []string) ([]domain.PaymentRecord, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query := `SELECT ` + paymentColumns + ` FROM payment_records WHERE session_key = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("PaymentRepository.FindByKeys: %w", err)
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		var rec domain.PaymentRecord
		if err := rows.Scan(
			&rec.ID, &rec.SessionKey, &rec.Plate, &rec.SpaceID, &rec.StartTime, &rec.Fee, &rec.Status,
			&rec.Method, &rec.Reference, &rec.PaidAt, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("PaymentRepository.FindByKeys (scanning row): %w", err)
		}
		normalizePaymentTimes(&rec)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("PaymentRepository.FindByKeys (rows error): %w", err)
	}
	return records, nil
}

func (r *pgPaymentRepository) MarkPaid(ctx context.Context, key, method, reference string, paidAt time.Time) (*domain.PaymentRecord, error) {
	// Already-paid records are left untouched so a repeated payment request
	// cannot overwrite the original method/reference stamps.
	query := `UPDATE payment_records
	           SET status = $1, method = $2, reference = $3, paid_at = $4, updated_at = CURRENT_TIMESTAMP
	           WHERE session_key = $5 AND status <> $1`
	result, err := r.db.ExecContext(ctx, query, domain.PaymentPaid, method, reference, paidAt, key)
	if err != nil {
		return nil, fmt.Errorf("PaymentRepository.MarkPaid: %w", err)
	}
	if _, err = result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("PaymentRepository.MarkPaid (checking rows affected): %w", err)
	}
	rec, err := r.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *pgPaymentRepository) UpdateFeeIfUnpaid(ctx context.Context, key string, fee int64) error {
	query := `UPDATE payment_records
	           SET fee = $1, updated_at = CURRENT_TIMESTAMP
	           WHERE session_key = $2 AND status = $3`
	if _, err := r.db.ExecContext(ctx, query, fee, key, domain.PaymentUnpaid); err != nil {
		return fmt.Errorf("PaymentRepository.UpdateFeeIfUnpaid: %w", err)
	}
	return nil
}

func normalizePaymentTimes(rec *domain.PaymentRecord) {
	rec.StartTime = rec.StartTime.In(time.UTC)
	if rec.PaidAt.Valid {
		rec.PaidAt.Time = rec.PaidAt.Time.In(time.UTC)
	}
	rec.CreatedAt = rec.CreatedAt.In(time.UTC)
	rec.UpdatedAt = rec.UpdatedAt.In(time.UTC)
}
