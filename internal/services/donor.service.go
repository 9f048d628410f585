package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/internal/repository"
	"github.com/nimasrn/seva-booking/pkg/codegen"
	"github.com/nimasrn/seva-booking/pkg/logger"
	"github.com/nimasrn/seva-booking/pkg/prom"
	"github.com/shopspring/decimal"
)

const (
	maxEnrollmentAttempts = 5
	enrollmentNote        = "recorded on the enrollment form"
)

type DonorRepository interface {
	Transactor
	Create(ctx context.Context, d *model.Donor) (*model.Donor, error)
	Update(ctx context.Context, d *model.Donor) (*model.Donor, error)
	ApplyPayment(ctx context.Context, id uuid.UUID, paid decimal.Decimal, mode model.PaymentMode, date time.Time, status model.PaymentStatus) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Donor, error)
	Lock(ctx context.Context, id uuid.UUID) (*model.Donor, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f model.DonorFilter) ([]*model.Donor, int64, error)
}

// SlotKeeper is the seva side of slot accounting.
type SlotKeeper interface {
	Lock(ctx context.Context, id uuid.UUID) (*model.Seva, error)
	ReserveSlot(ctx context.Context, sevaID, donorID uuid.UUID) error
	RecomputeBookedSlots(ctx context.Context, sevaID uuid.UUID) (int64, error)
}

type PaymentLedger interface {
	Create(ctx context.Context, p *model.PaymentHistory) (*model.PaymentHistory, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*model.PaymentHistory, error)
}

type DonorService struct {
	donors        DonorRepository
	slots         SlotKeeper
	payments      PaymentLedger
	profiles      ProfileReader
	notifier      ChangeNotifier
	newEnrollment func(time.Time) (string, error)
	now           func() time.Time
}

func NewDonorService(donors DonorRepository, slots SlotKeeper, payments PaymentLedger, profiles ProfileReader, notifier ChangeNotifier) *DonorService {
	return &DonorService{
		donors:        donors,
		slots:         slots,
		payments:      payments,
		profiles:      profiles,
		notifier:      notifierOrNoop(notifier),
		newEnrollment: codegen.EnrollmentNumber,
		now:           time.Now,
	}
}

// booking is what one committed donor write touched.
type booking struct {
	donor  *model.Donor
	booked map[uuid.UUID]int64
}

// Upsert creates a donor when req.ID is nil and updates it otherwise.
// Status is always derived from the amounts, and a donor that starts
// consuming a slot is checked against the seva's capacity in the same
// transaction.
func (s *DonorService) Upsert(ctx context.Context, callerID uuid.UUID, req model.DonorUpsertRequest) (*model.Donor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	caller, err := loadCaller(ctx, s.profiles, callerID)
	if err != nil {
		return nil, err
	}

	var b *booking
	event := model.ChangeUpdate
	if req.ID == nil {
		event = model.ChangeInsert
		b, err = s.create(ctx, caller, req)
	} else {
		b, err = s.update(ctx, caller, *req.ID, req)
	}
	if err != nil {
		if errors.Is(err, repository.ErrSlotsExhausted) {
			prom.IncSlotRejected(req.SevaID.String())
		}
		return nil, classify(err, "save donor")
	}

	s.announce(ctx, event, b)
	return b.donor, nil
}

func (s *DonorService) create(ctx context.Context, caller *model.Profile, req model.DonorUpsertRequest) (*booking, error) {
	var (
		b   *booking
		err error
	)
	for attempt := 1; attempt <= maxEnrollmentAttempts; attempt++ {
		err = retryTx(ctx, func() error {
			var txErr error
			b, txErr = s.createOnce(ctx, caller, req)
			return txErr
		})
		if !errors.Is(err, repository.ErrEnrollmentTaken) {
			return b, err
		}
		logger.Debug("[donor] enrollment number collision, retrying", "attempt", attempt)
	}
	return nil, err
}

func (s *DonorService) createOnce(ctx context.Context, caller *model.Profile, req model.DonorUpsertRequest) (*booking, error) {
	now := s.now().UTC()
	enrollment, err := s.newEnrollment(now)
	if err != nil {
		return nil, errs.Store(err, "generate enrollment number")
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	paid := req.Paid()
	donor := &model.Donor{
		ID:               uuid.New(),
		EnrollmentNumber: enrollment,
		SevaID:           req.SevaID,
		AddedBy:          caller.ID,
		DonorName:        req.DonorName,
		ContactPhone:     req.ContactPhone,
		ContactEmail:     req.ContactEmail,
		PaymentMode:      req.PaymentMode,
		TotalAmount:      req.TotalAmount,
		PaidAmount:       paid,
		PaymentDate:      req.PaymentDate,
		PaymentStatus:    model.DeriveStatus(paid, req.TotalAmount),
		IsActive:         active,
	}

	b := &booking{booked: map[uuid.UUID]int64{}}
	err = s.donors.WithinTransaction(ctx, func(ctx context.Context) error {
		seva, err := s.slots.Lock(ctx, req.SevaID)
		if err != nil {
			return err
		}
		if !seva.IsActive {
			return repository.ErrSevaInactive
		}
		if model.ConsumesSlot(donor.PaymentStatus) {
			if err := s.slots.ReserveSlot(ctx, seva.ID, donor.ID); err != nil {
				return err
			}
		}

		created, err := s.donors.Create(ctx, donor)
		if err != nil {
			return err
		}
		if err := s.ledger(ctx, caller, created, paid); err != nil {
			return err
		}
		b.donor = created
		return s.recompute(ctx, b, seva.ID)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *DonorService) update(ctx context.Context, caller *model.Profile, id uuid.UUID, req model.DonorUpsertRequest) (*booking, error) {
	var b *booking
	err := retryTx(ctx, func() error {
		b = &booking{booked: map[uuid.UUID]int64{}}
		return s.donors.WithinTransaction(ctx, func(ctx context.Context) error {
			existing, err := s.donors.Lock(ctx, id)
			if err != nil {
				return err
			}
			if !canManageDonor(caller, existing) {
				return errs.Authorization("donor %s belongs to another user", id)
			}

			paid := existing.PaidAmount
			if req.PaidAmount != nil {
				paid = *req.PaidAmount
			}
			if paid.LessThan(existing.PaidAmount) {
				return errs.Validation("paid_amount cannot go below the %s already recorded", existing.PaidAmount.StringFixed(2))
			}
			if paid.GreaterThan(req.TotalAmount) {
				return errs.Validation("paid_amount must not exceed total_amount")
			}

			moved := req.SevaID != existing.SevaID
			if moved {
				seva, err := s.slots.Lock(ctx, req.SevaID)
				if err != nil {
					return err
				}
				if !seva.IsActive {
					return repository.ErrSevaInactive
				}
			}

			status := model.DeriveStatus(paid, req.TotalAmount)
			if model.ConsumesSlot(status) && (moved || !model.ConsumesSlot(existing.PaymentStatus)) {
				if err := s.slots.ReserveSlot(ctx, req.SevaID, existing.ID); err != nil {
					return err
				}
			}

			next := *existing
			next.SevaID = req.SevaID
			next.DonorName = req.DonorName
			next.ContactPhone = req.ContactPhone
			next.ContactEmail = req.ContactEmail
			next.PaymentMode = req.PaymentMode
			next.TotalAmount = req.TotalAmount
			next.PaidAmount = paid
			next.PaymentStatus = status
			if req.PaymentDate != nil {
				next.PaymentDate = req.PaymentDate
			}
			if req.IsActive != nil {
				next.IsActive = *req.IsActive
			}

			updated, err := s.donors.Update(ctx, &next)
			if err != nil {
				return err
			}
			if err := s.ledger(ctx, caller, updated, paid.Sub(existing.PaidAmount)); err != nil {
				return err
			}
			b.donor = updated

			if err := s.recompute(ctx, b, req.SevaID); err != nil {
				return err
			}
			if moved {
				return s.recompute(ctx, b, existing.SevaID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ledger appends the part of paid_amount set through the form, so that the
// payment history keeps summing to paid_amount.
func (s *DonorService) ledger(ctx context.Context, caller *model.Profile, d *model.Donor, delta decimal.Decimal) error {
	if !delta.IsPositive() {
		return nil
	}
	date := s.now().UTC()
	if d.PaymentDate != nil {
		date = *d.PaymentDate
	}
	note := enrollmentNote
	_, err := s.payments.Create(ctx, &model.PaymentHistory{
		DonorID:     d.ID,
		Amount:      delta,
		PaymentMode: d.PaymentMode,
		PaymentDate: date,
		Notes:       &note,
		CreatedBy:   caller.ID,
	})
	return err
}

func (s *DonorService) recompute(ctx context.Context, b *booking, sevaID uuid.UUID) error {
	n, err := s.slots.RecomputeBookedSlots(ctx, sevaID)
	if err != nil {
		return err
	}
	b.booked[sevaID] = n
	return nil
}

func (s *DonorService) announce(ctx context.Context, event model.ChangeKind, b *booking) {
	at := s.now().UTC()
	events := []model.ChangeEvent{{Table: model.TableDonors, Event: event, ID: b.donor.ID, SevaID: sevaRef(b.donor.SevaID), At: at}}
	for sevaID, n := range b.booked {
		prom.SetSlotsBooked(sevaID.String(), n)
		events = append(events, model.ChangeEvent{Table: model.TableSevas, Event: model.ChangeUpdate, ID: sevaID, SevaID: sevaRef(sevaID), At: at})
	}
	s.notifier.Publish(ctx, events...)
}

func (s *DonorService) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	caller, err := loadCaller(ctx, s.profiles, callerID)
	if err != nil {
		return err
	}

	var b *booking
	err = retryTx(ctx, func() error {
		b = &booking{booked: map[uuid.UUID]int64{}}
		return s.donors.WithinTransaction(ctx, func(ctx context.Context) error {
			d, err := s.donors.Lock(ctx, id)
			if err != nil {
				return err
			}
			if !canManageDonor(caller, d) {
				return errs.Authorization("donor %s belongs to another user", id)
			}
			if err := s.donors.Delete(ctx, id); err != nil {
				return err
			}
			b.donor = d
			return s.recompute(ctx, b, d.SevaID)
		})
	})
	if err != nil {
		return classify(err, "delete donor")
	}

	logger.Info("[donor] deleted", "donor_id", id, "by", callerID)
	s.announce(ctx, model.ChangeDelete, b)
	return nil
}

func (s *DonorService) Get(ctx context.Context, callerID, id uuid.UUID) (*model.Donor, error) {
	caller, err := loadCaller(ctx, s.profiles, callerID)
	if err != nil {
		return nil, err
	}
	d, err := s.donors.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err, "load donor")
	}
	if !canManageDonor(caller, d) {
		return nil, errs.Authorization("donor %s belongs to another user", id)
	}
	return d, nil
}

// List pins non admins to their own donors whatever filter they send.
func (s *DonorService) List(ctx context.Context, callerID uuid.UUID, f model.DonorFilter) ([]*model.Donor, int64, error) {
	caller, err := loadCaller(ctx, s.profiles, callerID)
	if err != nil {
		return nil, 0, err
	}
	if !model.HasCapability(caller.Role, model.CapViewAllDonors) {
		f.AddedBy = &caller.ID
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, errs.Validation("invalid status %q", *f.Status)
	}

	list, total, err := s.donors.List(ctx, f)
	if err != nil {
		return nil, 0, errs.Store(err, "list donors")
	}
	return list, total, nil
}
