package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/repository"

	"github.com/lib/pq"
)

type pgParkingSessionRepository struct {
	db *sql.DB
}

func NewPgParkingSessionRepository(db *sql.DB) repository.ParkingSessionRepository {
	return &pgParkingSessionRepository{db: db}
}

const sessionColumns = `id, session_key, lot_id, space_id, plate, start_time, exit_time,
	                 duration_minutes, fee, created_at, updated_at`

// Create appends the session and claims the space's open-session slot in
// one transaction. The parking_spaces.open_session_id column is a projection
// of the log; writing both together is what keeps them from diverging.
func (r *pgParkingSessionRepository) Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Create (begin tx): %w", err)
	}
	defer tx.Rollback()

	insert := `INSERT INTO parking_sessions (session_key, lot_id, space_id, plate, start_time)
	           VALUES ($1, $2, $3, $4, $5)
	           RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, insert,
		session.SessionKey, session.LotID, session.SpaceID, session.Plate, session.StartTime,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: session key '%s'", repository.ErrDuplicateEntry, session.SessionKey)
			}
		}
		return nil, fmt.Errorf("ParkingSessionRepository.Create: %w", err)
	}

	claim := `UPDATE parking_spaces SET open_session_id = $1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $2 AND open_session_id IS NULL`
	result, err := tx.ExecContext(ctx, claim, session.ID, session.SpaceID)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Create (claiming space): %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Create (checking claim): %w", err)
	}
	if rowsAffected == 0 {
		// Space already claimed by a concurrent session; the rollback
		// discards the inserted row.
		return nil, fmt.Errorf("%w: space %d already holds an open session", repository.ErrDuplicateEntry, session.SpaceID)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Create (commit): %w", err)
	}
	session.StartTime = session.StartTime.In(time.UTC)
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return session, nil
}

// Close writes the exit time, duration and fee, and releases the space's
// open-session slot in the same transaction.
func (r *pgParkingSessionRepository) Close(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Close (begin tx): %w", err)
	}
	defer tx.Rollback()

	update := `UPDATE parking_sessions
	           SET exit_time = $1, duration_minutes = $2, fee = $3, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $4 AND exit_time IS NULL
	           RETURNING updated_at`
	var exitTimeVal sql.NullTime
	if session.ExitTime.Valid {
		exitTimeVal = sql.NullTime{Time: session.ExitTime.Time, Valid: true}
	}
	var durationVal sql.NullInt64
	if session.DurationMinutes.Valid {
		durationVal = sql.NullInt64{Int64: session.DurationMinutes.Int64, Valid: true}
	}
	var feeVal sql.NullInt64
	if session.Fee.Valid {
		feeVal = sql.NullInt64{Int64: session.Fee.Int64, Valid: true}
	}
	err = tx.QueryRowContext(ctx, update, exitTimeVal, durationVal, feeVal, session.ID).Scan(&session.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoOpenSession
		}
		return nil, fmt.Errorf("ParkingSessionRepository.Close: %w", err)
	}

	release := `UPDATE parking_spaces SET open_session_id = NULL, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $1 AND open_session_id = $2`
	if _, err = tx.ExecContext(ctx, release, session.SpaceID, session.ID); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Close (releasing space): %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Close (commit): %w", err)
	}
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return session, nil
}

func (r *pgParkingSessionRepository) FindByKey(ctx context.Context, key string) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE session_key = $1`
	return r.queryOne(ctx, query, repository.ErrNotFound, key)
}

func (r *pgParkingSessionRepository) FindOpenBySpaceID(ctx context.Context, spaceID int) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
	           WHERE space_id = $1 AND exit_time IS NULL
	           ORDER BY start_time DESC LIMIT 1`
	return r.queryOne(ctx, query, repository.ErrNoOpenSession, spaceID)
}

func (r *pgParkingSessionRepository) FindOpenByPlate(ctx context.Context, plate string) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
	           WHERE plate = $1 AND exit_time IS NULL
	           ORDER BY start_time DESC LIMIT 1`
	return r.queryOne(ctx, query, repository.ErrNoOpenSession, plate)
}

func (r *pgParkingSessionRepository) queryOne(ctx context.Context, query string, missing error, args ...interface{}) (*domain.ParkingSession, error) {
	session := &domain.ParkingSession{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&session.ID, &session.SessionKey, &session.LotID, &session.SpaceID, &session.Plate,
		&session.StartTime, &session.ExitTime, &session.DurationMinutes, &session.Fee,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, missing
		}
		return nil, fmt.Errorf("ParkingSessionRepository.queryOne: %w", err)
	}
	normalizeSessionTimes(session)
	return session, nil
}

func (r *pgParkingSessionRepository) FindOpen(ctx context.Context, lotID *int) ([]domain.ParkingSession, error) {
	baseQuery := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE exit_time IS NULL`
	var args []interface{}
	if lotID != nil {
		baseQuery += ` AND lot_id = $1`
		args = append(args, *lotID)
	}
	baseQuery += ` ORDER BY start_time DESC`
	return r.queryMany(ctx, baseQuery, args...)
}

func (r *pgParkingSessionRepository) FindClosedInRange(ctx context.Context, from, to time.Time, lotID *int) ([]domain.ParkingSession, error) {
	conditions := []string{"exit_time IS NOT NULL", "exit_time >= $1", "exit_time < $2"}
	args := []interface{}{from, to}
	if lotID != nil {
		conditions = append(conditions, "lot_id = $3")
		args = append(args, *lotID)
	}
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY exit_time`
	return r.queryMany(ctx, query, args...)
}

func (r *pgParkingSessionRepository) FindOverlappingRange(ctx context.Context, from, to time.Time, lotID *int) ([]domain.ParkingSession, error) {
	conditions := []string{"start_time < $1", "(exit_time IS NULL OR exit_time > $2)"}
	args := []interface{}{to, from}
	if lotID != nil {
		conditions = append(conditions, "lot_id = $3")
		args = append(args, *lotID)
	}
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY start_time`
	return r.queryMany(ctx, query, args...)
}

func (r *pgParkingSessionRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]domain.ParkingSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.queryMany: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ParkingSession
	for rows.Next() {
		var session domain.ParkingSession
		if err := rows.Scan(
			&session.ID, &session.SessionKey, &session.LotID, &session.SpaceID, &session.Plate,
			&session.StartTime, &session.ExitTime, &session.DurationMinutes, &session.Fee,
			&session.CreatedAt, &session.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ParkingSessionRepository.queryMany (scanning row): %w", err)
		}
		normalizeSessionTimes(&session)
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.queryMany (rows error): %w", err)
	}
	return sessions, nil
}

func normalizeSessionTimes(session *domain.ParkingSession) {
	session.StartTime = session.StartTime.In(time.UTC)
	if session.ExitTime.Valid {
		session.ExitTime.Time = session.ExitTime.Time.In(time.UTC)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
}
