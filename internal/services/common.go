package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/internal/repository"
	"github.com/nimasrn/seva-booking/pkg/pg"
)

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

// loadCaller resolves the authenticated user to a profile. A token whose
// profile was never ensured cannot act.
func loadCaller(ctx context.Context, profiles ProfileReader, callerID uuid.UUID) (*model.Profile, error) {
	p, err := profiles.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, errs.Authorization("no profile for caller, ensure the profile first")
		}
		return nil, errs.Store(err, "load caller profile")
	}
	return p, nil
}

func requireCapability(caller *model.Profile, c model.Capability) error {
	if !model.HasCapability(caller.Role, c) {
		return errs.Authorization("%s requires the %s capability", caller.Email, c)
	}
	return nil
}

// canManageDonor is the owner-only rule: admins may touch every donor,
// everyone else only the donors they added.
func canManageDonor(caller *model.Profile, d *model.Donor) bool {
	return caller.IsAdmin() || d.AddedBy == caller.ID
}

// classify turns repository sentinels into error kinds. Errors that are
// already classified pass through untouched.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := errs.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrDonorNotFound),
		errors.Is(err, repository.ErrSevaNotFound),
		errors.Is(err, repository.ErrProfileNotFound):
		return errs.Wrap(err, errs.KindNotFound, err.Error())
	case errors.Is(err, repository.ErrSlotsExhausted),
		errors.Is(err, repository.ErrSlotsBelowBooked),
		errors.Is(err, repository.ErrEnrollmentTaken),
		errors.Is(err, repository.ErrReferralCodeTaken):
		return errs.Wrap(err, errs.KindConflict, err.Error())
	case errors.Is(err, repository.ErrSevaInactive):
		return errs.Wrap(err, errs.KindValidation, err.Error())
	case pg.IsUniqueViolation(err):
		return errs.Wrap(err, errs.KindConflict, "duplicate value")
	}
	return errs.Store(err, msg)
}

const (
	maxTxRetries = 3
	baseTxDelay  = 2 * time.Millisecond
)

// retryTx reruns fn while it fails with a lock or serialization conflict,
// backing off 2ms, 4ms then 8ms. Any other error is returned at once.
func retryTx(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxTxRetries; attempt++ {
		err = fn()
		if err == nil || !pg.IsTransient(err) {
			return err
		}
		if attempt < maxTxRetries {
			delay := baseTxDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return errs.Wrap(err, errs.KindConflict, "concurrent update, please retry")
}

func sevaRef(id uuid.UUID) *uuid.UUID {
	return &id
}
