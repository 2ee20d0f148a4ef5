package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/repository"
)

var ErrLotOccupied = errors.New("lot still has open sessions")
var ErrInvalidLotStatus = errors.New("invalid lot status")
var ErrInvalidRate = errors.New("hourly rate must be non-negative")

// RegistryService owns the slow-changing lot/space configuration: which
// lots exist, their rates and operating status, and which spaces belong to
// them. Lots are never deleted, only put out of operation.
type RegistryService struct {
	lotRepo     repository.ParkingLotRepository
	spaceRepo   repository.ParkingSpaceRepository
	sessionRepo repository.ParkingSessionRepository
}

func NewRegistryService(
	lotRepo repository.ParkingLotRepository,
	spaceRepo repository.ParkingSpaceRepository,
	sessionRepo repository.ParkingSessionRepository,
) *RegistryService {
	return &RegistryService{
		lotRepo:     lotRepo,
		spaceRepo:   spaceRepo,
		sessionRepo: sessionRepo,
	}
}

func (s *RegistryService) CreateLot(ctx context.Context, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	if dto.HourlyRate < 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidRate, dto.HourlyRate)
	}
	lot := &domain.ParkingLot{
		Name:       dto.Name,
		Address:    dto.Address,
		HourlyRate: dto.HourlyRate,
		Status:     domain.LotOperating,
		MaxSpaces:  dto.MaxSpaces,
	}
	return s.lotRepo.Create(ctx, lot)
}

func (s *RegistryService) GetLotByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return s.lotRepo.FindByID(ctx, id)
}

func (s *RegistryService) GetAllLots(ctx context.Context) ([]domain.ParkingLot, error) {
	return s.lotRepo.FindAll(ctx)
}

// PatchLot applies the partial admin update: rate and/or status. A rate
// change takes effect for subsequent exits only; closed sessions and
// existing payment records keep the fee they were billed at.
func (s *RegistryService) PatchLot(ctx context.Context, id int, dto domain.ParkingLotPatchDTO) (*domain.ParkingLot, error) {
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Status != nil {
		if !domain.ValidLotStatus(*dto.Status) {
			return nil, fmt.Errorf("%w: '%s'", ErrInvalidLotStatus, *dto.Status)
		}
		newStatus := domain.LotStatus(*dto.Status)
		if newStatus != lot.Status && newStatus != domain.LotOperating && !dto.Force {
			open, err := s.sessionRepo.FindOpen(ctx, &lot.ID)
			if err != nil {
				return nil, fmt.Errorf("checking lot occupancy: %w", err)
			}
			if len(open) > 0 {
				return nil, fmt.Errorf("%w: lot %d has %d open session(s)", ErrLotOccupied, lot.ID, len(open))
			}
		}
		if newStatus != lot.Status && dto.Force {
			log.Printf("RegistryService: forced status change for lot %d: %s -> %s", lot.ID, lot.Status, newStatus)
		}
		lot.Status = newStatus
	}

	if dto.HourlyRate != nil {
		if *dto.HourlyRate < 0 {
			return nil, fmt.Errorf("%w, got %d", ErrInvalidRate, *dto.HourlyRate)
		}
		lot.HourlyRate = *dto.HourlyRate
	}

	return s.lotRepo.Update(ctx, lot)
}

func (s *RegistryService) CreateSpace(ctx context.Context, lotID int, dto domain.ParkingSpaceDTO) (*domain.ParkingSpace, error) {
	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: parking lot %d", repository.ErrNotFound, lotID)
		}
		return nil, fmt.Errorf("looking up lot %d: %w", lotID, err)
	}

	if lot.MaxSpaces > 0 {
		current, err := s.spaceRepo.CountByLotID(ctx, lotID)
		if err != nil {
			return nil, fmt.Errorf("counting spaces for lot %d: %w", lotID, err)
		}
		if current >= lot.MaxSpaces {
			return nil, fmt.Errorf("lot %d already has its maximum of %d space(s)", lotID, lot.MaxSpaces)
		}
	}

	space := &domain.ParkingSpace{
		LotID:           lotID,
		SpaceIdentifier: dto.SpaceIdentifier,
	}
	return s.spaceRepo.Create(ctx, space)
}

func (s *RegistryService) GetSpaceByID(ctx context.Context, id int) (*domain.ParkingSpace, error) {
	return s.spaceRepo.FindByID(ctx, id)
}

func (s *RegistryService) GetSpacesByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpace, error) {
	return s.spaceRepo.FindByLotID(ctx, lotID)
}

func (s *RegistryService) DeleteSpace(ctx context.Context, id int) error {
	open, err := s.sessionRepo.FindOpenBySpaceID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNoOpenSession) {
		return fmt.Errorf("checking space occupancy: %w", err)
	}
	if open != nil {
		return fmt.Errorf("%w: space %d cannot be removed", ErrSpaceOccupied, id)
	}
	return s.spaceRepo.Delete(ctx, id)
}
