package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/repository"
)

// In-memory repositories backing the service tests. All of them are
// mutex-guarded so the concurrency tests exercise the services against a
// store with the same atomicity guarantees the SQL layer provides.

type memLotRepo struct {
	mu     sync.Mutex
	nextID int
	lots   map[int]domain.ParkingLot
}

func newMemLotRepo() *memLotRepo {
	return &memLotRepo{nextID: 1, lots: make(map[int]domain.ParkingLot)}
}

func (r *memLotRepo) Create(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *lot
	stored.ID = r.nextID
	r.nextID++
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.lots[stored.ID] = stored
	out := stored
	return &out, nil
}

func (r *memLotRepo) FindByID(_ context.Context, id int) (*domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot, ok := r.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := lot
	return &out, nil
}

func (r *memLotRepo) FindAll(_ context.Context) ([]domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ParkingLot
	for _, lot := range r.lots {
		out = append(out, lot)
	}
	return out, nil
}

func (r *memLotRepo) Update(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lots[lot.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	stored := *lot
	stored.UpdatedAt = time.Now().UTC()
	r.lots[stored.ID] = stored
	out := stored
	return &out, nil
}

type memSpaceRepo struct {
	mu     sync.Mutex
	nextID int
	spaces map[int]domain.ParkingSpace
}

func newMemSpaceRepo() *memSpaceRepo {
	return &memSpaceRepo{nextID: 1, spaces: make(map[int]domain.ParkingSpace)}
}

func (r *memSpaceRepo) Create(_ context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.spaces {
		if existing.LotID == space.LotID && existing.SpaceIdentifier == space.SpaceIdentifier {
			return nil, repository.ErrDuplicateEntry
		}
	}
	stored := *space
	stored.ID = r.nextID
	r.nextID++
	r.spaces[stored.ID] = stored
	out := stored
	return &out, nil
}

func (r *memSpaceRepo) FindByID(_ context.Context, id int) (*domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	space, ok := r.spaces[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := space
	return &out, nil
}

func (r *memSpaceRepo) FindByLotID(_ context.Context, lotID int) ([]domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ParkingSpace
	for _, space := range r.spaces {
		if space.LotID == lotID {
			out = append(out, space)
		}
	}
	return out, nil
}

func (r *memSpaceRepo) FindAll(_ context.Context) ([]domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ParkingSpace
	for _, space := range r.spaces {
		out = append(out, space)
	}
	return out, nil
}

func (r *memSpaceRepo) CountByLotID(_ context.Context, lotID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, space := range r.spaces {
		if space.LotID == lotID {
			count++
		}
	}
	return count, nil
}

func (r *memSpaceRepo) CountAll(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spaces), nil
}

func (r *memSpaceRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.spaces[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.spaces, id)
	return nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	nextID   int
	sessions map[int]domain.ParkingSession
	// openBySpace mirrors the open-session index the SQL layer keeps on
	// parking_spaces.open_session_id, including its claim-if-free insert.
	openBySpace map[int]int
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{
		nextID:      1,
		sessions:    make(map[int]domain.ParkingSession),
		openBySpace: make(map[int]int),
	}
}

func (r *memSessionRepo) Create(_ context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, claimed := r.openBySpace[session.SpaceID]; claimed {
		return nil, repository.ErrDuplicateEntry
	}
	for _, existing := range r.sessions {
		if existing.SessionKey == session.SessionKey {
			return nil, repository.ErrDuplicateEntry
		}
	}
	stored := *session
	stored.ID = r.nextID
	r.nextID++
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.sessions[stored.ID] = stored
	r.openBySpace[stored.SpaceID] = stored.ID
	out := stored
	return &out, nil
}

func (r *memSessionRepo) Close(_ context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[session.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if stored.ExitTime.Valid {
		return nil, repository.ErrNoOpenSession
	}
	stored.ExitTime = session.ExitTime
	stored.DurationMinutes = session.DurationMinutes
	stored.Fee = session.Fee
	stored.UpdatedAt = time.Now().UTC()
	r.sessions[stored.ID] = stored
	if r.openBySpace[stored.SpaceID] == stored.ID {
		delete(r.openBySpace, stored.SpaceID)
	}
	out := stored
	return &out, nil
}

func (r *memSessionRepo) FindByKey(_ context.Context, key string) (*domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.SessionKey == key {
			out := session
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memSessionRepo) FindOpenBySpaceID(_ context.Context, spaceID int) (*domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.openBySpace[spaceID]
	if !ok {
		return nil, repository.ErrNoOpenSession
	}
	out := r.sessions[id]
	return &out, nil
}

func (r *memSessionRepo) FindOpenByPlate(_ context.Context, plate string) (*domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.Plate == plate && !session.ExitTime.Valid {
			out := session
			return &out, nil
		}
	}
	return nil, repository.ErrNoOpenSession
}

func (r *memSessionRepo) FindOpen(_ context.Context, lotID *int) ([]domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ParkingSession
	for _, session := range r.sessions {
		if session.ExitTime.Valid {
			continue
		}
		if lotID != nil && session.LotID != *lotID {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

func (r *memSessionRepo) FindClosedInRange(_ context.Context, from, to time.Time, lotID *int) ([]domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ParkingSession
	for _, session := range r.sessions {
		if !session.ExitTime.Valid {
			continue
		}
		if lotID != nil && session.LotID != *lotID {
			continue
		}
		exit := session.ExitTime.Time
		if exit.Before(from) || !exit.Before(to) {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

func (r *memSessionRepo) FindOverlappingRange(_ context.Context, from, to time.Time, lotID *int) ([]domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ParkingSession
	for _, session := range r.sessions {
		if lotID != nil && session.LotID != *lotID {
			continue
		}
		if !session.StartTime.Before(to) {
			continue
		}
		if session.ExitTime.Valid && !session.ExitTime.Time.After(from) {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

type memPaymentRepo struct {
	mu      sync.Mutex
	nextID  int
	records map[string]domain.PaymentRecord
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{nextID: 1, records: make(map[string]domain.PaymentRecord)}
}

func (r *memPaymentRepo) InsertIfAbsent(_ context.Context, rec *domain.PaymentRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.SessionKey]; exists {
		return false, nil
	}
	stored := *rec
	stored.ID = r.nextID
	r.nextID++
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.records[stored.SessionKey] = stored
	rec.ID = stored.ID
	return true, nil
}

func (r *memPaymentRepo) FindByKey(_ context.Context, key string) (*domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := rec
	return &out, nil
}

func (r *memPaymentRepo) FindByKeys(_ context.Context, keys []string) ([]domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PaymentRecord
	for _, key := range keys {
		if rec, ok := r.records[key]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) MarkPaid(_ context.Context, key, method, reference string, paidAt time.Time) (*domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if rec.Status != domain.PaymentPaid {
		rec.Status = domain.PaymentPaid
		rec.Method.SetValid(method)
		rec.Reference.SetValid(reference)
		rec.PaidAt.SetValid(paidAt)
		rec.UpdatedAt = time.Now().UTC()
		r.records[key] = rec
	}
	out := rec
	return &out, nil
}

func (r *memPaymentRepo) UpdateFeeIfUnpaid(_ context.Context, key string, fee int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return repository.ErrNotFound
	}
	if rec.Status == domain.PaymentUnpaid {
		rec.Fee = fee
		r.records[key] = rec
	}
	return nil
}

// newTestStack wires one lot with the given rate and spaces, plus the full
// service graph over in-memory repositories.
type testStack struct {
	lotRepo     *memLotRepo
	spaceRepo   *memSpaceRepo
	sessionRepo *memSessionRepo
	paymentRepo *memPaymentRepo

	lot       *domain.ParkingLot
	spaces    []*domain.ParkingSpace
	occupancy *OccupancyService
	payments  *PaymentService
	stats     *StatsService
	registry  *RegistryService
}

func newTestStack(hourlyRate int64, spaceCount int) *testStack {
	st := &testStack{
		lotRepo:     newMemLotRepo(),
		spaceRepo:   newMemSpaceRepo(),
		sessionRepo: newMemSessionRepo(),
		paymentRepo: newMemPaymentRepo(),
	}
	lot, _ := st.lotRepo.Create(context.Background(), &domain.ParkingLot{
		Name:       "Central Plaza",
		HourlyRate: hourlyRate,
		Status:     domain.LotOperating,
	})
	st.lot = lot
	for i := 0; i < spaceCount; i++ {
		space, _ := st.spaceRepo.Create(context.Background(), &domain.ParkingSpace{
			LotID:           lot.ID,
			SpaceIdentifier: fmt.Sprintf("A%d", i+1),
		})
		st.spaces = append(st.spaces, space)
	}
	st.payments = NewPaymentService(st.sessionRepo, st.paymentRepo, st.lotRepo, hourlyRate)
	st.occupancy = NewOccupancyService(st.lotRepo, st.spaceRepo, st.sessionRepo, st.payments)
	st.stats = NewStatsService(st.spaceRepo, st.sessionRepo, st.paymentRepo)
	st.registry = NewRegistryService(st.lotRepo, st.spaceRepo, st.sessionRepo)
	return st
}
