package repository

import (
	"context"
	"errors"
	"time"

	"plaza_backoffice/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")
var ErrNoOpenSession = errors.New("no open parking session for the given identity")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type ParkingLotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAll(ctx context.Context) ([]domain.ParkingLot, error)
	Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
}

type ParkingSpaceRepository interface {
	Create(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingSpace, error)
	FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpace, error)
	FindAll(ctx context.Context) ([]domain.ParkingSpace, error)
	CountByLotID(ctx context.Context, lotID int) (int, error)
	CountAll(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int) error
}

// ParkingSessionRepository owns the session log. Create and Close must also
// maintain the space -> open-session index in the same transaction as the
// log write; the index is a projection of the log, never a second source of
// truth.
type ParkingSessionRepository interface {
	Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	Close(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)
	FindByKey(ctx context.Context, key string) (*domain.ParkingSession, error)
	FindOpenBySpaceID(ctx context.Context, spaceID int) (*domain.ParkingSession, error)
	FindOpenByPlate(ctx context.Context, plate string) (*domain.ParkingSession, error)
	FindOpen(ctx context.Context, lotID *int) ([]domain.ParkingSession, error)
	// FindClosedInRange returns sessions whose exit time falls in [from, to).
	FindClosedInRange(ctx context.Context, from, to time.Time, lotID *int) ([]domain.ParkingSession, error)
	// FindOverlappingRange returns sessions whose [start, exit) interval
	// intersects [from, to); open sessions count as unbounded.
	FindOverlappingRange(ctx context.Context, from, to time.Time, lotID *int) ([]domain.ParkingSession, error)
}

type PaymentRepository interface {
	// InsertIfAbsent inserts the record unless one already exists for its
	// session key. Reports whether a row was created. The check and the
	// insert are atomic.
	InsertIfAbsent(ctx context.Context, rec *domain.PaymentRecord) (bool, error)
	FindByKey(ctx context.Context, key string) (*domain.PaymentRecord, error)
	FindByKeys(ctx context.Context, keys []string) ([]domain.PaymentRecord, error)
	// MarkPaid transitions the record for key to paid, stamping method,
	// reference and payment time. ErrNotFound when no record exists.
	// Already-paid records are returned unchanged.
	MarkPaid(ctx context.Context, key, method, reference string, paidAt time.Time) (*domain.PaymentRecord, error)
	// UpdateFeeIfUnpaid rewrites the fee on an unpaid record; paid records
	// are left untouched.
	UpdateFeeIfUnpaid(ctx context.Context, key string, fee int64) error
}
