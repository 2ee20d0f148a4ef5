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

type pgParkingSpaceRepository struct {
	db *sql.DB
}

func NewPgParkingSpaceRepository(db *sql.DB) repository.ParkingSpaceRepository {
	return &pgParkingSpaceRepository{db: db}
}

func (r *pgParkingSpaceRepository) Create(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	query := `INSERT INTO parking_spaces (lot_id, space_identifier)
	           VALUES ($1, $2)
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, space.LotID, space.SpaceIdentifier).
		Scan(&space.ID, &space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				return nil, fmt.Errorf("%w: space '%s' already exists in lot %d", repository.ErrDuplicateEntry, space.SpaceIdentifier, space.LotID)
			}
			if pqErr.Code.Name() == "foreign_key_violation" {
				return nil, fmt.Errorf("%w: parking lot %d does not exist", repository.ErrNotFound, space.LotID)
			}
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.Create: %w", err)
	}
	space.CreatedAt = space.CreatedAt.In(time.UTC)
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return space, nil
}

func (r *pgParkingSpaceRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSpace, error) {
	space := &domain.ParkingSpace{}
	query := `SELECT id, lot_id, space_identifier, created_at, updated_at
	           FROM parking_spaces WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&space.ID, &space.LotID, &space.SpaceIdentifier, &space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.FindByID: %w", err)
	}
	space.CreatedAt = space.CreatedAt.In(time.UTC)
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return space, nil
}

func (r *pgParkingSpaceRepository) FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpace, error) {
	query := `SELECT id, lot_id, space_identifier, created_at, updated_at
	           FROM parking_spaces WHERE lot_id = $1 ORDER BY space_identifier`
	return r.queryMany(ctx, query, lotID)
}

func (r *pgParkingSpaceRepository) FindAll(ctx context.Context) ([]domain.ParkingSpace, error) {
	query := `SELECT id, lot_id, space_identifier, created_at, updated_at
	           FROM parking_spaces ORDER BY lot_id, space_identifier`
	return r.queryMany(ctx, query)
}

func (r *pgParkingSpaceRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]domain.ParkingSpace, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository.queryMany: %w", err)
	}
	defer rows.Close()

	var spaces []domain.ParkingSpace
	for rows.Next() {
		var space domain.ParkingSpace
		if err := rows.Scan(&space.ID, &space.LotID, &space.SpaceIdentifier, &space.CreatedAt, &space.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ParkingSpaceRepository.queryMany (scanning row): %w", err)
		}
		space.CreatedAt = space.CreatedAt.In(time.UTC)
		space.UpdatedAt = space.UpdatedAt.In(time.UTC)
		spaces = append(spaces, space)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository.queryMany (rows error): %w", err)
	}
	return spaces, nil
}

func (r *pgParkingSpaceRepository) CountByLotID(ctx context.Context, lotID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_spaces WHERE lot_id = $1`, lotID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ParkingSpaceRepository.CountByLotID: %w", err)
	}
	return count, nil
}

func (r *pgParkingSpaceRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_spaces`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ParkingSpaceRepository.CountAll: %w", err)
	}
	return count, nil
}

func (r *pgParkingSpaceRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM parking_spaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
