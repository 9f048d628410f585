package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/internal/repository"
	"github.com/nimasrn/seva-booking/pkg/logger"
	"github.com/nimasrn/seva-booking/pkg/prom"
)

type PaymentService struct {
	donors   DonorRepository
	slots    SlotKeeper
	payments PaymentLedger
	profiles ProfileReader
	notifier ChangeNotifier
	now      func() time.Time
}

func NewPaymentService(donors DonorRepository, slots SlotKeeper, payments PaymentLedger, profiles ProfileReader, notifier ChangeNotifier) *PaymentService {
	return &PaymentService{
		donors:   donors,
		slots:    slots,
		payments: payments,
		profiles: profiles,
		notifier: notifierOrNoop(notifier),
		now:      time.Now,
	}
}

// RecordPayment appends one ledger entry and moves the donor's paid amount,
// status and the seva's booked slots forward in the same transaction.
func (s *PaymentService) RecordPayment(ctx context.Context, callerID, donorID uuid.UUID, req model.RecordPaymentRequest) (*model.PaymentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	caller, err := loadCaller(ctx, s.profiles, callerID)
	if err != nil {
		return nil, err
	}

	date := s.now().UTC()
	if req.PaymentDate != nil {
		date = *req.PaymentDate
	}

	var (
		res    *model.PaymentResult
		sevaID uuid.UUID
	)
	err = retryTx(ctx, func() error {
		res = &model.PaymentResult{}
		return s.donors.WithinTransaction(ctx, func(ctx context.Context) error {
			d, err := s.donors.Lock(ctx, donorID)
			if err != nil {
				return err
			}
			sevaID = d.SevaID
			if !canManageDonor(caller, d) {
				return errs.Authorization("donor %s belongs to another user", donorID)
			}
			if req.Amount.GreaterThan(d.Remaining()) {
				return errs.Validation("amount %s exceeds the remaining balance %s", req.Amount.StringFixed(2), d.Remaining().StringFixed(2))
			}

			res.Payment, err = s.payments.Create(ctx, &model.PaymentHistory{
				DonorID:     d.ID,
				Amount:      req.Amount,
				PaymentMode: req.PaymentMode,
				PaymentDate: date,
				Notes:       req.Notes,
				CreatedBy:   caller.ID,
			})
			if err != nil {
				return err
			}

			paid := d.PaidAmount.Add(req.Amount)
			status := model.DeriveStatus(paid, d.TotalAmount)
			if model.ConsumesSlot(status) && !model.ConsumesSlot(d.PaymentStatus) {
				if err := s.slots.ReserveSlot(ctx, d.SevaID, d.ID); err != nil {
					return err
				}
			}
			if err := s.donors.ApplyPayment(ctx, d.ID, paid, req.PaymentMode, date, status); err != nil {
				return err
			}
			if res.Booked, err = s.slots.RecomputeBookedSlots(ctx, d.SevaID); err != nil {
				return err
			}
			res.Donor, err = s.donors.GetByID(ctx, d.ID)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrSlotsExhausted) {
			prom.IncSlotRejected(sevaID.String())
		}
		return nil, classify(err, "record payment")
	}

	logger.Info("[payment] recorded", "donor_id", donorID, "amount", req.Amount.String(), "mode", req.PaymentMode, "status", res.Donor.PaymentStatus)
	prom.AddPaymentRecorded(string(req.PaymentMode), req.Amount.InexactFloat64())
	prom.SetSlotsBooked(res.Donor.SevaID.String(), res.Booked)

	at := s.now().UTC()
	seva := sevaRef(res.Donor.SevaID)
	s.notifier.Publish(ctx,
		model.ChangeEvent{Table: model.TablePaymentHistory, Event: model.ChangeInsert, ID: res.Payment.ID, SevaID: seva, At: at},
		model.ChangeEvent{Table: model.TableDonors, Event: model.ChangeUpdate, ID: donorID, SevaID: seva, At: at},
		model.ChangeEvent{Table: model.TableSevas, Event: model.ChangeUpdate, ID: res.Donor.SevaID, SevaID: seva, At: at},
	)
	return res, nil
}

// ListPayments returns the donor's ledger, newest payment first.
func (s *PaymentService) ListPayments(ctx context.Context, callerID, donorID uuid.UUID) ([]*model.PaymentHistory, error) {
	caller, err := loadCaller(ctx, s.profiles, callerID)
	if err != nil {
		return nil, err
	}
	d, err := s.donors.GetByID(ctx, donorID)
	if err != nil {
		return nil, classify(err, "load donor")
	}
	if !canManageDonor(caller, d) {
		return nil, errs.Authorization("donor %s belongs to another user", donorID)
	}
	list, err := s.payments.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, errs.Store(err, "list payments")
	}
	return list, nil
}
