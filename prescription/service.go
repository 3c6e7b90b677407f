package prescription

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/warp/optical-engine/generic"
)

// Service is the submit path: derive, validate, then hand the record to the
// store. A failed save never loses the caller's record; it is returned
// alongside the error.
type Service struct {
	store  Store
	tables Tables
	log    zerolog.Logger
}

func NewService(store Store, tables Tables, log zerolog.Logger) *Service {
	return &Service{
		store:  store,
		tables: tables,
		log:    log.With().Str("component", "prescription").Logger(),
	}
}

func (s *Service) Tables() Tables {
	return s.tables
}

// Save stores r, inserting when existingID is empty. The returned record
// carries the derived fields and the stored id on success. On failure the
// caller's record is returned as it was passed in.
func (s *Service) Save(ctx context.Context, in Record, existingID string) (Record, error) {
	r := s.tables.DeriveAll(in)
	if errs := s.tables.ValidateRecord(r); len(errs) > 0 {
		return in, errs
	}

	id, err := s.store.Save(ctx, r, existingID)
	if err != nil {
		s.log.Error().Err(err).
			Str("prescription_no", r.PrescriptionNo).
			Str("existing_id", existingID).
			Msg("save failed")
		return in, fmt.Errorf("%w: %w", generic.ErrSaveFailed, err)
	}

	r.ID = id
	s.log.Info().
		Str("id", id).
		Str("prescription_no", r.PrescriptionNo).
		Bool("update", existingID != "").
		Msg("prescription saved")
	return r, nil
}

func (s *Service) Load(ctx context.Context, id string) (Record, error) {
	r, err := s.store.Load(ctx, id)
	if err != nil {
		s.log.Debug().Err(err).Str("id", id).Msg("load failed")
		return Record{}, err
	}
	return r, nil
}

// Search rejects unknown fields and blank queries with ErrInvalidSearch.
func (s *Service) Search(ctx context.Context, query string, field SearchField) ([]Record, error) {
	query = strings.TrimSpace(query)
	if !field.Valid() {
		return nil, fmt.Errorf("%w: unknown field %q", generic.ErrInvalidSearch, field)
	}
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", generic.ErrInvalidSearch)
	}
	return s.store.Search(ctx, query, field)
}
