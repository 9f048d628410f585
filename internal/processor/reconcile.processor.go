package processor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/internal/queue"
	"github.com/nimasrn/seva-booking/internal/repository"
	"github.com/nimasrn/seva-booking/pkg/logger"
	"github.com/nimasrn/seva-booking/pkg/prom"
	"github.com/shopspring/decimal"
)

const (
	DriftBookedSlots = "booked_slots"
	DriftOverbooked  = "overbooked"
	DriftLedger      = "ledger"
)

type SevaStore interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Seva, error)
	RecomputeBookedSlots(ctx context.Context, sevaID uuid.UUID) (int64, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type DonorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Donor, error)
	Lock(ctx context.Context, id uuid.UUID) (*model.Donor, error)
	RepairPaid(ctx context.Context, id uuid.UUID, paid decimal.Decimal, status model.PaymentStatus) error
	ListIDsBySeva(ctx context.Context, sevaID uuid.UUID) ([]uuid.UUID, error)
}

type LedgerStore interface {
	LedgerSum(ctx context.Context, donorID uuid.UUID) (decimal.Decimal, int64, error)
}

// ReconcileProcessor re-derives the values the api keeps denormalized:
// booked_slots per seva and paid_amount per donor. It only ever repairs
// drift; a clean store is left untouched.
type ReconcileProcessor struct {
	sevas       SevaStore
	donors      DonorStore
	ledger      LedgerStore
	idempotency *IdempotencyService
}

func NewReconcileProcessor(sevas SevaStore, donors DonorStore, ledger LedgerStore, idempotency *IdempotencyService) *ReconcileProcessor {
	return &ReconcileProcessor{
		sevas:       sevas,
		donors:      donors,
		ledger:      ledger,
		idempotency: idempotency,
	}
}

func (p *ReconcileProcessor) GetType() string {
	return "reconcile"
}

// Process handles one change event. Returning nil acks it.
func (p *ReconcileProcessor) Process(ctx context.Context, msg *queue.Message) error {
	ev, err := msg.Change()
	if err != nil {
		// a malformed event will never decode, drop it
		logger.Error("[reconcile] undecodable change event", "stream_id", msg.ID, "error", err)
		return nil
	}

	var pc *ProcessingContext
	if p.idempotency != nil {
		pc, err = p.idempotency.AcquireProcessingLock(ctx, msg.ID)
		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			return nil
		case errors.Is(err, ErrMaxRetriesExceeded):
			logger.Error("[reconcile] giving up on event", "stream_id", msg.ID, "table", ev.Table, "id", ev.ID)
			return nil
		case err != nil:
			return err
		}
		defer p.idempotency.ReleaseLock(ctx, pc)
	}

	start := time.Now()
	err = p.reconcile(ctx, ev)
	prom.AddReconcileDuration(time.Since(start).Seconds(), ev.Table)

	if p.idempotency != nil {
		if err != nil {
			_ = p.idempotency.MarkFailure(ctx, pc, err)
			return err
		}
		if markErr := p.idempotency.MarkSuccess(ctx, pc); markErr != nil {
			logger.Warn("[reconcile] failed to mark event done", "stream_id", msg.ID, "error", markErr)
		}
	}
	return err
}

func (p *ReconcileProcessor) reconcile(ctx context.Context, ev model.ChangeEvent) error {
	switch ev.Table {
	case model.TableSevas:
		if ev.Event == model.ChangeDelete {
			return nil
		}
		return p.ReconcileSeva(ctx, ev.ID)
	case model.TableDonors:
		if ev.Event != model.ChangeDelete {
			if err := p.ReconcileDonor(ctx, ev.ID); err != nil {
				return err
			}
		}
		if ev.SevaID != nil {
			return p.ReconcileSeva(ctx, *ev.SevaID)
		}
		return nil
	case model.TablePaymentHistory:
		if ev.SevaID != nil {
			return p.ReconcileSeva(ctx, *ev.SevaID)
		}
		return nil
	default:
		logger.Debug("[reconcile] nothing to reconcile", "table", ev.Table, "id", ev.ID)
		return nil
	}
}

// ReconcileSeva recounts booked_slots. A seva deleted in the meantime is
// not an error.
func (p *ReconcileProcessor) ReconcileSeva(ctx context.Context, sevaID uuid.UUID) error {
	var before, after int64
	err := p.sevas.WithinTransaction(ctx, func(ctx context.Context) error {
		seva, err := p.sevas.GetByID(ctx, sevaID)
		if err != nil {
			return err
		}
		before = seva.BookedSlots
		after, err = p.sevas.RecomputeBookedSlots(ctx, sevaID)
		return err
	})
	switch {
	case errors.Is(err, repository.ErrSevaNotFound):
		return nil
	case errors.Is(err, repository.ErrSlotsExhausted):
		// rows written before capacity was enforced; reported, never retried
		prom.IncReconcileDrift(DriftOverbooked)
		logger.Warn("[reconcile] seva is overbooked", "seva_id", sevaID, "consuming", after)
		return nil
	case err != nil:
		return err
	}

	prom.SetSlotsBooked(sevaID.String(), after)
	if before != after {
		prom.IncReconcileDrift(DriftBookedSlots)
		logger.Info("[reconcile] booked slots repaired", "seva_id", sevaID, "was", before, "now", after)
	}
	return nil
}

// ReconcileDonor brings paid_amount back in line with the donor's ledger.
// Donors without ledger entries are left alone.
func (p *ReconcileProcessor) ReconcileDonor(ctx context.Context, donorID uuid.UUID) error {
	var repaired bool
	var sevaID uuid.UUID
	err := p.sevas.WithinTransaction(ctx, func(ctx context.Context) error {
		d, err := p.donors.Lock(ctx, donorID)
		if err != nil {
			return err
		}
		sevaID = d.SevaID

		sum, entries, err := p.ledger.LedgerSum(ctx, donorID)
		if err != nil || entries == 0 || sum.Equal(d.PaidAmount) {
			return err
		}
		if sum.GreaterThan(d.TotalAmount) {
			logger.Warn("[reconcile] ledger exceeds total amount, left for review",
				"donor_id", donorID, "ledger", sum.String(), "total", d.TotalAmount.String())
			return nil
		}

		status := model.DeriveStatus(sum, d.TotalAmount)
		if err := p.donors.RepairPaid(ctx, donorID, sum, status); err != nil {
			return err
		}
		logger.Info("[reconcile] paid amount repaired",
			"donor_id", donorID, "was", d.PaidAmount.String(), "now", sum.String(), "status", status)
		repaired = true
		return nil
	})
	if errors.Is(err, repository.ErrDonorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if repaired {
		prom.IncReconcileDrift(DriftLedger)
		return p.ReconcileSeva(ctx, sevaID)
	}
	return nil
}

// Sweep reconciles every seva and each of its donors. The processor runs it
// on a timer to catch changes whose events were lost.
func (p *ReconcileProcessor) Sweep(ctx context.Context) error {
	ids, err := p.sevas.ListIDs(ctx)
	if err != nil {
		return err
	}
	for _, sevaID := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		donorIDs, err := p.donors.ListIDsBySeva(ctx, sevaID)
		if err != nil {
			return err
		}
		for _, id := range donorIDs {
			if err := p.ReconcileDonor(ctx, id); err != nil {
				logger.Error("[reconcile] sweep donor failed", "donor_id", id, "error", err)
			}
		}
		if err := p.ReconcileSeva(ctx, sevaID); err != nil {
			logger.Error("[reconcile] sweep seva failed", "seva_id", sevaID, "error", err)
		}
	}
	logger.Info("[reconcile] sweep finished", "sevas", len(ids))
	return nil
}
