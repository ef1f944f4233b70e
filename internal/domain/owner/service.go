package owner

import (
	"context"
	"fmt"
	"time"

	"ncfledger/internal/core/id"
	"ncfledger/internal/domain/policy"
	"ncfledger/pkg/logger"
)

// Service manages owner settings.
type Service struct {
	repo Repository
}

// NewService creates an owner service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new owner.
func (s *Service) Create(ctx context.Context, o *Owner) error {
	if err := s.validate(ctx, o); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return fmt.Errorf("create owner: %w", err)
	}
	logger.Info(ctx, "owner created", "owner_id", o.ID, "rnc", o.RNC)
	return nil
}

// Get returns an owner by ID.
func (s *Service) Get(ctx context.Context, ownerID id.ID) (*Owner, error) {
	return s.repo.GetByID(ctx, ownerID)
}

// Update saves changed settings. o.Version must be the version the caller read.
func (s *Service) Update(ctx context.Context, o *Owner) error {
	if err := s.validate(ctx, o); err != nil {
		return err
	}
	o.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, o)
}

// List returns owners; enabledOnly limits to owners with numbering enabled.
func (s *Service) List(ctx context.Context, enabledOnly bool) ([]*Owner, error) {
	return s.repo.List(ctx, enabledOnly)
}

func (s *Service) validate(ctx context.Context, o *Owner) error {
	if err := o.Validate(ctx); err != nil {
		return err
	}
	if o.RequireRule != "" {
		if _, err := policy.Compile(o.RequireRule); err != nil {
			return err
		}
	}
	return nil
}
