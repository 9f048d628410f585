package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService checks that the store and the change stream answer.
type HealthService struct {
	deps    map[string]Pinger
	timeout time.Duration
}

func NewHealthService(deps map[string]Pinger) *HealthService {
	return &HealthService{deps: deps, timeout: 2 * time.Second}
}

func (s *HealthService) Check(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := make(map[string]error, len(s.deps))
	for name, p := range s.deps {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			out[name] = errors.Wrapf(err, "%s ping", name)
		}
	}
	return out
}
