package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guidepostapp/guidepost-server/internal/config"
	"github.com/guidepostapp/guidepost-server/internal/domain"
	domainerrors "github.com/guidepostapp/guidepost-server/internal/errors"
	"github.com/guidepostapp/guidepost-server/internal/id"
	"github.com/guidepostapp/guidepost-server/internal/store"
)

// InstanceService handles business logic for server instance identity.
type InstanceService struct {
	store  store.Store
	logger *slog.Logger
	config *config.Config
}

// NewInstanceService creates a new instance service.
func NewInstanceService(store store.Store, logger *slog.Logger, config *config.Config) *InstanceService {
	return &InstanceService{
		store:  store,
		logger: logger,
		config: config,
	}
}

// GetInstance retrieves the server instance record.
func (s *InstanceService) GetInstance(ctx context.Context) (*domain.Instance, error) {
	instance, err := s.store.GetInstance(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("instance not configured").WithCause(err)
		}
		return nil, fmt.Errorf("get instance: %w", err)
	}

	return instance, nil
}

// InitializeInstance ensures a server instance record exists, creating one
// on first boot. Name and local URL from config override stored values so
// operators can rename a server without touching the database.
func (s *InstanceService) InitializeInstance(ctx context.Context, version string) (*domain.Instance, error) {
	instance, err := s.store.GetInstance(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get instance: %w", err)
		}

		instanceID, err := id.Generate("instance")
		if err != nil {
			return nil, fmt.Errorf("generate instance ID: %w", err)
		}

		now := time.Now()
		instance = &domain.Instance{
			ID:        instanceID,
			Name:      s.config.Server.Name,
			Version:   version,
			LocalUrl:  s.config.Server.LocalURL,
			SetupAt:   now,
			UpdatedAt: now,
		}

		if err := s.store.CreateInstance(ctx, instance); err != nil {
			return nil, fmt.Errorf("create instance: %w", err)
		}

		if s.logger != nil {
			s.logger.Info("Instance created",
				"instance_id", instance.ID,
				"name", instance.Name,
			)
		}

		return instance, nil
	}

	// Apply config values and the running binary's version to the
	// existing record.
	if s.config.Server.Name != "" {
		instance.Name = s.config.Server.Name
	}
	if s.config.Server.LocalURL != "" {
		instance.LocalUrl = s.config.Server.LocalURL
	}
	instance.Version = version
	instance.UpdatedAt = time.Now()

	if err := s.store.UpdateInstance(ctx, instance); err != nil {
		return nil, fmt.Errorf("update instance with config: %w", err)
	}

	return instance, nil
}

// InstanceUpdate contains optional fields for updating instance settings.
type InstanceUpdate struct {
	Name     *string
	LocalUrl *string
}

// UpdateInstanceSettings updates mutable instance fields.
// Only non-nil fields are applied. Returns the updated instance.
func (s *InstanceService) UpdateInstanceSettings(ctx context.Context, update *InstanceUpdate) (*domain.Instance, error) {
	instance, err := s.GetInstance(ctx)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		instance.Name = *update.Name
	}
	if update.LocalUrl != nil {
		instance.LocalUrl = *update.LocalUrl
	}
	instance.UpdatedAt = time.Now()

	if err := s.store.UpdateInstance(ctx, instance); err != nil {
		return nil, fmt.Errorf("update instance: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Instance settings updated",
			"instance_id", instance.ID,
			"name", instance.Name,
		)
	}

	return instance, nil
}
