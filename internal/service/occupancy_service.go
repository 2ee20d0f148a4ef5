package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/repository"

	"gopkg.in/guregu/null.v4"
)

var ErrSpaceOccupied = errors.New("space already holds an open session")
var ErrVehicleAlreadyParked = errors.New("vehicle already has an open session")
var ErrLotNotOperating = errors.New("lot is not accepting vehicles")

// OccupancyService is the authoritative ledger of parking sessions. The
// session log is the source of truth; current occupancy is always derived
// from it, never trusted from an independent flag.
type OccupancyService struct {
	lotRepo     repository.ParkingLotRepository
	spaceRepo   repository.ParkingSpaceRepository
	sessionRepo repository.ParkingSessionRepository
	payments    *PaymentService
	locks       *keyMutex
}

func NewOccupancyService(
	lotRepo repository.ParkingLotRepository,
	spaceRepo repository.ParkingSpaceRepository,
	sessionRepo repository.ParkingSessionRepository,
	payments *PaymentService,
) *OccupancyService {
	return &OccupancyService{
		lotRepo:     lotRepo,
		spaceRepo:   spaceRepo,
		sessionRepo: sessionRepo,
		payments:    payments,
		locks:       newKeyMutex(),
	}
}

func spaceLockKey(spaceID int) string { return fmt.Sprintf("space:%d", spaceID) }
func plateLockKey(plate string) string { return "plate:" + plate }

// Enter claims a free space for a vehicle and appends an open session.
// The existence checks and the append run under one exclusive section so
// two concurrent entries can never both observe "space free" and both
// succeed.
func (s *OccupancyService) Enter(ctx context.Context, dto domain.VehicleEntryDTO) (*domain.ParkingSession, error) {
	plate := domain.NormalizePlate(dto.Plate)

	unlock := s.locks.Lock(spaceLockKey(dto.SpaceID), plateLockKey(plate))
	defer unlock()

	space, err := s.spaceRepo.FindByID(ctx, dto.SpaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: space %d", repository.ErrNotFound, dto.SpaceID)
		}
		return nil, fmt.Errorf("looking up space %d: %w", dto.SpaceID, err)
	}

	lot, err := s.lotRepo.FindByID(ctx, space.LotID)
	if err != nil {
		return nil, fmt.Errorf("looking up lot %d: %w", space.LotID, err)
	}
	if lot.Status != domain.LotOperating {
		return nil, fmt.Errorf("%w: lot %d is %s", ErrLotNotOperating, lot.ID, lot.Status)
	}

	if open, err := s.sessionRepo.FindOpenBySpaceID(ctx, dto.SpaceID); err != nil && !errors.Is(err, repository.ErrNoOpenSession) {
		return nil, fmt.Errorf("checking space occupancy: %w", err)
	} else if open != nil {
		return nil, fmt.Errorf("%w: space %d holds '%s'", ErrSpaceOccupied, dto.SpaceID, open.Plate)
	}

	if open, err := s.sessionRepo.FindOpenByPlate(ctx, plate); err != nil && !errors.Is(err, repository.ErrNoOpenSession) {
		return nil, fmt.Errorf("checking vehicle occupancy: %w", err)
	} else if open != nil {
		return nil, fmt.Errorf("%w: '%s' is in space %d", ErrVehicleAlreadyParked, plate, open.SpaceID)
	}

	now := time.Now().UTC().Truncate(time.Second)
	session := &domain.ParkingSession{
		SessionKey: domain.SessionKey(plate, dto.SpaceID, now),
		LotID:      space.LotID,
		SpaceID:    dto.SpaceID,
		Plate:      plate,
		StartTime:  now,
	}

	created, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, fmt.Errorf("%w: space %d", ErrSpaceOccupied, dto.SpaceID)
		}
		return nil, fmt.Errorf("creating parking session: %w", err)
	}
	log.Printf("OccupancyService: session %d opened, plate '%s' in space %d (lot %d)", created.ID, plate, dto.SpaceID, space.LotID)
	return created, nil
}

// Exit closes the most recent open session for the plate, frees the space,
// computes the fee at the lot's current rate and records an unpaid entry in
// the payment ledger.
func (s *OccupancyService) Exit(ctx context.Context, dto domain.VehicleExitDTO) (*domain.ExitResultDTO, error) {
	plate := domain.NormalizePlate(dto.Plate)

	unlock := s.locks.Lock(plateLockKey(plate))
	defer unlock()

	session, err := s.sessionRepo.FindOpenByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, repository.ErrNoOpenSession) {
			return nil, fmt.Errorf("%w: plate '%s'", repository.ErrNoOpenSession, plate)
		}
		return nil, fmt.Errorf("looking up open session: %w", err)
	}

	exitTime := time.Now().UTC().Truncate(time.Second)
	if exitTime.Before(session.StartTime) {
		// Clock skew between writers; never bill a negative duration.
		exitTime = session.StartTime
	}

	lot, err := s.lotRepo.FindByID(ctx, session.LotID)
	if err != nil {
		return nil, fmt.Errorf("looking up lot %d for rate: %w", session.LotID, err)
	}

	fee := ComputeFee(session.StartTime, exitTime, lot.HourlyRate)
	session.ExitTime = null.TimeFrom(exitTime)
	session.DurationMinutes = null.IntFrom(int64(exitTime.Sub(session.StartTime) / time.Minute))
	session.Fee = null.IntFrom(fee)

	closed, err := s.sessionRepo.Close(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("closing parking session %d: %w", session.ID, err)
	}

	// Reconciliation is best-effort here: a failed insert is picked up by
	// the periodic backfill, the exit itself must not be rolled back.
	if err := s.payments.RecordUnpaid(ctx, closed); err != nil {
		log.Printf("OccupancyService: could not record unpaid entry for session %d: %v", closed.ID, err)
	}

	log.Printf("OccupancyService: session %d closed, plate '%s' left space %d, fee %d", closed.ID, plate, closed.SpaceID, fee)
	return &domain.ExitResultDTO{
		Plate:         plate,
		SpaceID:       closed.SpaceID,
		SessionKey:    closed.SessionKey,
		StartTime:     closed.StartTime,
		ExitTime:      exitTime,
		DurationHours: BilledHours(closed.StartTime, exitTime),
		Fee:           fee,
		PaymentStatus: string(domain.PaymentUnpaid),
	}, nil
}

// CurrentOccupancy lists open sessions, optionally filtered by lot.
func (s *OccupancyService) CurrentOccupancy(ctx context.Context, lotID *int) ([]domain.ParkingSession, error) {
	return s.sessionRepo.FindOpen(ctx, lotID)
}

// IsSpaceFree is derived from the session log on every call.
func (s *OccupancyService) IsSpaceFree(ctx context.Context, spaceID int) (bool, error) {
	_, err := s.sessionRepo.FindOpenBySpaceID(ctx, spaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNoOpenSession) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// OccupancyView projects per-space occupancy rows for the status endpoint,
// joining the space list with the open sessions.
func (s *OccupancyService) OccupancyView(ctx context.Context, lotID *int) ([]domain.SpaceOccupancy, error) {
	var spaces []domain.ParkingSpace
	var err error
	if lotID != nil {
		spaces, err = s.spaceRepo.FindByLotID(ctx, *lotID)
	} else {
		spaces, err = s.spaceRepo.FindAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("listing spaces: %w", err)
	}

	open, err := s.sessionRepo.FindOpen(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("listing open sessions: %w", err)
	}
	bySpace := make(map[int]*domain.ParkingSession, len(open))
	for i := range open {
		bySpace[open[i].SpaceID] = &open[i]
	}

	view := make([]domain.SpaceOccupancy, 0, len(spaces))
	for _, space := range spaces {
		row := domain.SpaceOccupancy{
			SpaceID:         space.ID,
			SpaceIdentifier: space.SpaceIdentifier,
			LotID:           space.LotID,
		}
		if session, ok := bySpace[space.ID]; ok {
			row.Occupied = true
			row.Plate = null.StringFrom(session.Plate)
			row.StartTime = null.TimeFrom(session.StartTime)
		}
		view = append(view, row)
	}
	return view, nil
}
