package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/optical-engine/generic"
)

type Service struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "billing").Logger(),
		now:   time.Now,
	}
}

// Save normalizes and validates b, then stores it. The stored bill is
// returned with its id and creation time.
func (s *Service) Save(ctx context.Context, b Bill) (Bill, error) {
	b = b.Normalize()
	if errs := b.Validate(); len(errs) > 0 {
		return b, errs
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}

	id, err := s.store.SaveBill(ctx, b)
	if err != nil {
		s.log.Error().Err(err).Str("kind", string(b.Kind)).Msg("bill save failed")
		return b, fmt.Errorf("%w: %w", generic.ErrSaveFailed, err)
	}
	b.ID = id
	s.log.Info().
		Str("id", id).
		Str("kind", string(b.Kind)).
		Int("items", len(b.Items)).
		Str("balance", b.Summary().Balance.StringFixed(2)).
		Msg("bill saved")
	return b, nil
}

func (s *Service) Load(ctx context.Context, id string) (Bill, error) {
	return s.store.LoadBill(ctx, id)
}

func (s *Service) List(ctx context.Context, prescriptionID string) ([]Bill, error) {
	return s.store.ListBills(ctx, prescriptionID)
}
