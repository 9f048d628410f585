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
)

const maxReferralCodeAttempts = 5

type ProfileRepository interface {
	Transactor
	ProfileReader
	CreateIfAbsent(ctx context.Context, p *model.Profile) (bool, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	GetByReferralCode(ctx context.Context, code string) (*model.Profile, error)
	SetReferredBy(ctx context.Context, id, referrerID uuid.UUID) (bool, error)
	SetRole(ctx context.Context, id uuid.UUID, role model.Role) error
	ListReferredBy(ctx context.Context, referrerID uuid.UUID) ([]*model.Profile, error)
}

type ReferralRepository interface {
	Create(ctx context.Context, referrerID, referredID uuid.UUID) (bool, error)
	CountByReferrer(ctx context.Context, referrerID uuid.UUID) (int64, error)
}

type ProfileService struct {
	profiles  ProfileRepository
	referrals ReferralRepository
	notifier  ChangeNotifier
	newCode   func() (string, error)
}

func NewProfileService(profiles ProfileRepository, referrals ReferralRepository, notifier ChangeNotifier) *ProfileService {
	return &ProfileService{
		profiles:  profiles,
		referrals: referrals,
		notifier:  notifierOrNoop(notifier),
		newCode:   codegen.ReferralCode,
	}
}

// EnsureProfile returns the caller's profile, creating it on first call.
// Creation never grants admin, and a referral code is honoured only on the
// call that creates the profile.
func (s *ProfileService) EnsureProfile(ctx context.Context, callerID uuid.UUID, req model.EnsureProfileRequest) (*model.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.UserID != callerID {
		return nil, errs.Authorization("a profile can only be ensured for the authenticated user")
	}

	existing, err := s.profiles.GetByID(ctx, req.UserID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, errs.Store(err, "load profile")
	}

	var events []model.ChangeEvent
	for attempt := 1; ; attempt++ {
		events, err = s.create(ctx, req)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrReferralCodeTaken) || attempt == maxReferralCodeAttempts {
			return nil, classify(err, "create profile")
		}
		logger.Debug("[profile] referral code collision, retrying", "user_id", req.UserID, "attempt", attempt)
	}

	p, err := s.profiles.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, classify(err, "reload profile")
	}
	s.notifier.Publish(ctx, events...)
	return p, nil
}

func (s *ProfileService) create(ctx context.Context, req model.EnsureProfileRequest) ([]model.ChangeEvent, error) {
	code, err := s.newCode()
	if err != nil {
		return nil, errs.Store(err, "generate referral code")
	}

	var events []model.ChangeEvent
	err = s.profiles.WithinTransaction(ctx, func(ctx context.Context) error {
		created, err := s.profiles.CreateIfAbsent(ctx, &model.Profile{
			ID:           req.UserID,
			FullName:     req.DisplayName(),
			Email:        req.Email,
			Role:         model.RoleUser,
			ReferralCode: code,
		})
		if err != nil {
			return err
		}
		if !created {
			// a concurrent call won the insert
			return nil
		}
		events = append(events, model.ChangeEvent{Table: model.TableProfiles, Event: model.ChangeInsert, ID: req.UserID, At: time.Now().UTC()})

		if req.ReferralCode == "" {
			return nil
		}
		linked, err := s.resolveReferral(ctx, req.UserID, req.ReferralCode)
		if err != nil {
			return err
		}
		if linked != uuid.Nil {
			events = append(events, model.ChangeEvent{Table: model.TableReferrals, Event: model.ChangeInsert, ID: linked, At: time.Now().UTC()})
		}
		return nil
	})
	return events, err
}

// resolveReferral links userID to the owner of code. Unknown codes and
// self referrals are ignored. It returns the referrer id when a new edge
// was written.
func (s *ProfileService) resolveReferral(ctx context.Context, userID uuid.UUID, code string) (uuid.UUID, error) {
	referrer, err := s.profiles.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			logger.Info("[profile] unknown referral code ignored", "user_id", userID, "code", code)
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	if referrer.ID == userID {
		return uuid.Nil, nil
	}

	set, err := s.profiles.SetReferredBy(ctx, userID, referrer.ID)
	if err != nil || !set {
		return uuid.Nil, err
	}
	created, err := s.referrals.Create(ctx, referrer.ID, userID)
	if err != nil || !created {
		return uuid.Nil, err
	}
	return referrer.ID, nil
}

func (s *ProfileService) Me(ctx context.Context, callerID uuid.UUID) (*model.Me, error) {
	p, err := s.profiles.GetByID(ctx, callerID)
	if err != nil {
		return nil, classify(err, "load profile")
	}
	n, err := s.referrals.CountByReferrer(ctx, p.ID)
	if err != nil {
		return nil, errs.Store(err, "count referrals")
	}
	return &model.Me{Profile: p, Capabilities: model.Capabilities(p.Role), ReferralCount: n}, nil
}

func (s *ProfileService) Referred(ctx context.Context, callerID uuid.UUID) ([]*model.Profile, error) {
	if _, err := loadCaller(ctx, s.profiles, callerID); err != nil {
		return nil, err
	}
	list, err := s.profiles.ListReferredBy(ctx, callerID)
	if err != nil {
		return nil, errs.Store(err, "list referred users")
	}
	return list, nil
}

// SetAdmin elevates the profile with the given email. Only an admin may
// call it.
func (s *ProfileService) SetAdmin(ctx context.Context, callerID uuid.UUID, req model.SetAdminRequest) (*model.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	caller, err := loadCaller(ctx, s.profiles, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		return nil, errs.Authorization("only admins can grant the admin role")
	}
	return s.promote(ctx, req.Email)
}

// PromoteByEmail grants admin without a caller. The operator CLI uses it to
// bootstrap the first admin; no HTTP route reaches it.
func (s *ProfileService) PromoteByEmail(ctx context.Context, email string) (*model.Profile, error) {
	req := model.SetAdminRequest{Email: email}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.promote(ctx, req.Email)
}

func (s *ProfileService) promote(ctx context.Context, email string) (*model.Profile, error) {
	target, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, errs.NotFound("no profile with email %s", email)
		}
		return nil, errs.Store(err, "load profile by email")
	}
	if target.Role == model.RoleAdmin {
		return target, nil
	}
	if err := s.profiles.SetRole(ctx, target.ID, model.RoleAdmin); err != nil {
		return nil, classify(err, "set role")
	}
	target.Role = model.RoleAdmin
	logger.Info("[profile] admin role granted", "profile_id", target.ID, "email", email)
	s.notifier.Publish(ctx, model.ChangeEvent{Table: model.TableProfiles, Event: model.ChangeUpdate, ID: target.ID, At: time.Now().UTC()})
	return target, nil
}
