package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/errs"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/internal/repository"
	"github.com/nimasrn/seva-booking/pkg/logger"
)

type SevaRepository interface {
	Create(ctx context.Context, s *model.Seva) (*model.Seva, error)
	Update(ctx context.Context, s *model.Seva) (*model.Seva, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Seva, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Seva, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SevaCountReader interface {
	UserSevaCounts(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]repository.SevaCounts, error)
}

type SevaService struct {
	sevas    SevaRepository
	counts   SevaCountReader
	profiles ProfileReader
	notifier ChangeNotifier
}

func NewSevaService(sevas SevaRepository, counts SevaCountReader, profiles ProfileReader, notifier ChangeNotifier) *SevaService {
	return &SevaService{
		sevas:    sevas,
		counts:   counts,
		profiles: profiles,
		notifier: notifierOrNoop(notifier),
	}
}

func (s *SevaService) admin(ctx context.Context, callerID uuid.UUID) (*model.Profile, error) {
	caller, err := loadCaller(ctx, s.profiles, callerID)
	if err != nil {
		return nil, err
	}
	if err := requireCapability(caller, model.CapManageSevas); err != nil {
		return nil, err
	}
	return caller, nil
}

func (s *SevaService) Create(ctx context.Context, callerID uuid.UUID, req model.SevaRequest) (*model.Seva, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	caller, err := s.admin(ctx, callerID)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	created, err := s.sevas.Create(ctx, &model.Seva{
		Name:          req.Name,
		Description:   req.Description,
		TotalSlots:    req.TotalSlots,
		CreatedBy:     caller.ID,
		IsActive:      active,
		AmountOptions: req.AmountOptions,
	})
	if err != nil {
		return nil, classify(err, "create seva")
	}

	logger.Info("[seva] created", "seva_id", created.ID, "name", created.Name, "total_slots", created.TotalSlots)
	s.notifier.Publish(ctx, model.ChangeEvent{Table: model.TableSevas, Event: model.ChangeInsert, ID: created.ID, SevaID: sevaRef(created.ID), At: time.Now().UTC()})
	return created, nil
}

// Update replaces the editable fields. An omitted is_active keeps the
// current value.
func (s *SevaService) Update(ctx context.Context, callerID, id uuid.UUID, req model.SevaRequest) (*model.Seva, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.admin(ctx, callerID); err != nil {
		return nil, err
	}

	current, err := s.sevas.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err, "load seva")
	}
	current.Name = req.Name
	current.Description = req.Description
	current.TotalSlots = req.TotalSlots
	current.AmountOptions = req.AmountOptions
	if req.IsActive != nil {
		current.IsActive = *req.IsActive
	}

	var updated *model.Seva
	err = retryTx(ctx, func() error {
		var txErr error
		updated, txErr = s.sevas.Update(ctx, current)
		return txErr
	})
	if err != nil {
		return nil, classify(err, "update seva")
	}

	s.notifier.Publish(ctx, model.ChangeEvent{Table: model.TableSevas, Event: model.ChangeUpdate, ID: id, SevaID: sevaRef(id), At: time.Now().UTC()})
	return updated, nil
}

// Delete removes the seva and, with it, every donor and payment entry
// recorded against it.
func (s *SevaService) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	if _, err := s.admin(ctx, callerID); err != nil {
		return err
	}
	err := retryTx(ctx, func() error {
		return s.sevas.Delete(ctx, id)
	})
	if err != nil {
		return classify(err, "delete seva")
	}

	logger.Info("[seva] deleted", "seva_id", id, "by", callerID)
	s.notifier.Publish(ctx, model.ChangeEvent{Table: model.TableSevas, Event: model.ChangeDelete, ID: id, SevaID: sevaRef(id), At: time.Now().UTC()})
	return nil
}

func (s *SevaService) Get(ctx context.Context, callerID, id uuid.UUID) (*model.Seva, error) {
	caller, err := loadCaller(ctx, s.profiles, callerID)
	if err != nil {
		return nil, err
	}
	seva, err := s.sevas.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err, "load seva")
	}
	if !seva.IsActive && !caller.IsAdmin() {
		return nil, errs.NotFound("seva %s not found", id)
	}
	return seva, nil
}

// List returns every seva to admins and only active ones to everyone else.
func (s *SevaService) List(ctx context.Context, callerID uuid.UUID) ([]*model.Seva, error) {
	caller, err := loadCaller(ctx, s.profiles, callerID)
	if err != nil {
		return nil, err
	}
	list, err := s.sevas.List(ctx, !caller.IsAdmin())
	if err != nil {
		return nil, errs.Store(err, "list sevas")
	}
	return list, nil
}

// ListForUser reports, per active seva, how many slots remain and how many
// of them the caller's own donors hold or softly block.
func (s *SevaService) ListForUser(ctx context.Context, callerID uuid.UUID) ([]model.UserSevaStats, error) {
	if _, err := loadCaller(ctx, s.profiles, callerID); err != nil {
		return nil, err
	}
	list, err := s.sevas.List(ctx, true)
	if err != nil {
		return nil, errs.Store(err, "list sevas")
	}
	counts, err := s.counts.UserSevaCounts(ctx, callerID)
	if err != nil {
		return nil, errs.Store(err, "count donors per seva")
	}

	out := make([]model.UserSevaStats, 0, len(list))
	for _, seva := range list {
		c := counts[seva.ID]
		out = append(out, model.UserSevaStats{
			Seva:           seva,
			RemainingSlots: seva.RemainingSlots(),
			BookedByMe:     c.Booked,
			BlockedByMe:    c.Blocked,
		})
	}
	return out, nil
}
