package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"plaza_backoffice/internal/domain"
	"plaza_backoffice/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

// PaymentService is the reconciliation ledger: it tracks paid/unpaid status
// per session, keyed by the session key stored on the session at creation.
// It never mutates parking state.
type PaymentService struct {
	sessionRepo repository.ParkingSessionRepository
	paymentRepo repository.PaymentRepository
	lotRepo     repository.ParkingLotRepository

	// defaultRate backs the batch generator when a session's lot can no
	// longer be resolved; failing the whole batch over one orphaned
	// session is worse than billing it at the house rate.
	defaultRate int64
}

func NewPaymentService(
	sessionRepo repository.ParkingSessionRepository,
	paymentRepo repository.PaymentRepository,
	lotRepo repository.ParkingLotRepository,
	defaultRate int64,
) *PaymentService {
	return &PaymentService{
		sessionRepo: sessionRepo,
		paymentRepo: paymentRepo,
		lotRepo:     lotRepo,
		defaultRate: defaultRate,
	}
}

// RecordUnpaid inserts an unpaid record for a closed session. Idempotent:
// an existing record for the same session key is left untouched.
func (s *PaymentService) RecordUnpaid(ctx context.Context, session *domain.ParkingSession) error {
	if session.Open() {
		return fmt.Errorf("session %d is still open", session.ID)
	}
	rec := &domain.PaymentRecord{
		SessionKey: session.SessionKey,
		Plate:      session.Plate,
		SpaceID:    session.SpaceID,
		StartTime:  session.StartTime,
		Fee:        session.Fee.ValueOrZero(),
		Status:     domain.PaymentUnpaid,
	}
	created, err := s.paymentRepo.InsertIfAbsent(ctx, rec)
	if err != nil {
		return fmt.Errorf("recording unpaid entry for key '%s': %w", session.SessionKey, err)
	}
	if !created {
		log.Printf("PaymentService: record for key '%s' already exists, leaving it untouched", session.SessionKey)
	}
	return nil
}

// Pay settles the payment identified by (plate, space, start time). When no
// record exists yet (the unpaid entry was never generated, e.g. a backfill
// gap) a paid record is synthesized directly rather than rejected.
func (s *PaymentService) Pay(ctx context.Context, plate string, spaceID int, start time.Time, fee int64, method, reference string) (*domain.PaymentRecord, error) {
	key := domain.SessionKey(plate, spaceID, start)
	if reference == "" {
		reference = uuid.NewString()
	}
	paidAt := time.Now().UTC().Truncate(time.Second)

	rec, err := s.paymentRepo.MarkPaid(ctx, key, method, reference, paidAt)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("settling payment for key '%s': %w", key, err)
	}

	// Late-arriving payment: synthesize the record. Prefer the fee frozen
	// on the session at exit over whatever the caller claims.
	if session, sErr := s.sessionRepo.FindByKey(ctx, key); sErr == nil && session.Fee.Valid {
		fee = session.Fee.Int64
	}
	synth := &domain.PaymentRecord{
		SessionKey: key,
		Plate:      domain.NormalizePlate(plate),
		SpaceID:    spaceID,
		StartTime:  start.UTC().Truncate(time.Second),
		Fee:        fee,
		Status:     domain.PaymentPaid,
		Method:     null.StringFrom(method),
		Reference:  null.StringFrom(reference),
		PaidAt:     null.TimeFrom(paidAt),
	}
	created, err := s.paymentRepo.InsertIfAbsent(ctx, synth)
	if err != nil {
		return nil, fmt.Errorf("synthesizing paid record for key '%s': %w", key, err)
	}
	if created {
		log.Printf("PaymentService: synthesized paid record for key '%s' (no unpaid entry existed)", key)
		return synth, nil
	}
	// Lost the race against a concurrent insert for the same key; settle
	// whatever won.
	rec, err = s.paymentRepo.MarkPaid(ctx, key, method, reference, paidAt)
	if err != nil {
		return nil, fmt.Errorf("settling payment for key '%s' after insert race: %w", key, err)
	}
	return rec, nil
}

func (s *PaymentService) FindByKey(ctx context.Context, key string) (*domain.PaymentRecord, error) {
	return s.paymentRepo.FindByKey(ctx, key)
}

// BatchGenerate synthesizes unpaid records for closed sessions in
// [from, to) that lack one. With force, fees on existing unpaid records are
// recomputed as well; paid records are never touched. Returns how many
// records were written.
func (s *PaymentService) BatchGenerate(ctx context.Context, from, to time.Time, force bool) (int, error) {
	sessions, err := s.sessionRepo.FindClosedInRange(ctx, from, to, nil)
	if err != nil {
		return 0, fmt.Errorf("listing closed sessions: %w", err)
	}

	generated := 0
	for i := range sessions {
		session := &sessions[i]
		fee := s.sessionFee(ctx, session)

		rec := &domain.PaymentRecord{
			SessionKey: session.SessionKey,
			Plate:      session.Plate,
			SpaceID:    session.SpaceID,
			StartTime:  session.StartTime,
			Fee:        fee,
			Status:     domain.PaymentUnpaid,
		}
		created, err := s.paymentRepo.InsertIfAbsent(ctx, rec)
		if err != nil {
			// One bad session must not sink the batch.
			log.Printf("PaymentService: batch generate failed for key '%s': %v", session.SessionKey, err)
			continue
		}
		if created {
			generated++
			continue
		}
		if force {
			if err := s.paymentRepo.UpdateFeeIfUnpaid(ctx, session.SessionKey, fee); err != nil {
				log.Printf("PaymentService: fee refresh failed for key '%s': %v", session.SessionKey, err)
				continue
			}
			generated++
		}
	}
	log.Printf("PaymentService: batch generate wrote %d record(s) for %d closed session(s)", generated, len(sessions))
	return generated, nil
}

// sessionFee returns the fee frozen on the session at exit, or recomputes
// it from the lot's current rate, falling back to the default rate when the
// lot cannot be resolved.
func (s *PaymentService) sessionFee(ctx context.Context, session *domain.ParkingSession) int64 {
	if session.Fee.Valid {
		return session.Fee.Int64
	}
	rate := s.defaultRate
	if lot, err := s.lotRepo.FindByID(ctx, session.LotID); err == nil {
		rate = lot.HourlyRate
	} else {
		log.Printf("PaymentService: lot %d unresolved for session %d, using default rate %d: %v", session.LotID, session.ID, s.defaultRate, err)
	}
	return ComputeFee(session.StartTime, session.ExitTime.Time, rate)
}
