package webapps

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/portico-labs/portico/internal/platform/cache"
	"github.com/portico-labs/portico/internal/roles"
	"github.com/portico-labs/portico/internal/shared"
)

// CatalogCacheKey is the Redis key holding the cached webapp catalog.
const CatalogCacheKey = "portico:catalog"

// Service handles catalog business logic and the access filter.
type Service struct {
	repo    RepositoryPort
	syncer  *roles.Syncer
	catalog *cache.JSONCache
	logger  *slog.Logger
}

// NewService builds Service instance. catalog may be nil when Redis is not
// deployed.
func NewService(repo RepositoryPort, syncer *roles.Syncer, catalog *cache.JSONCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, syncer: syncer, catalog: catalog, logger: logger}
}

// ListVisible returns the applications the given role set may see.
func (s *Service) ListVisible(ctx context.Context, roleNames []string) ([]WebApp, error) {
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return Visible(roleNames, catalog), nil
}

// ListWebApps returns the full catalog for administration.
func (s *Service) ListWebApps(ctx context.Context) ([]WebApp, error) {
	return s.repo.ListWebApps(ctx)
}

// GetWebApp fetches a registration by ID.
func (s *Service) GetWebApp(ctx context.Context, id int64) (WebApp, error) {
	return s.repo.GetWebApp(ctx, id)
}

// CreateWebApp validates and persists a new registration.
func (s *Service) CreateWebApp(ctx context.Context, req CreateWebAppRequest) (WebApp, error) {
	if err := validateName(req.Name); err != nil {
		return WebApp{}, err
	}
	if err := validateURL(req.URL); err != nil {
		return WebApp{}, err
	}
	app, err := s.repo.CreateWebApp(ctx, req.Name, req.URL, req.Description, req.RequiredRoles)
	if err != nil {
		return WebApp{}, err
	}
	s.invalidateCatalog(ctx)
	return app, nil
}

// UpdateWebApp applies a fixed field-by-field merge of the optional update
// attributes, then persists the result. Required-role links are reconciled
// only when the request carries a role set.
func (s *Service) UpdateWebApp(ctx context.Context, id int64, req UpdateWebAppRequest) (WebApp, error) {
	current, err := s.repo.GetWebApp(ctx, id)
	if err != nil {
		return WebApp{}, err
	}

	name := current.Name
	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			return WebApp{}, err
		}
		name = *req.Name
	}
	appURL := current.URL
	if req.URL != nil {
		if err := validateURL(*req.URL); err != nil {
			return WebApp{}, err
		}
		appURL = *req.URL
	}
	description := current.Description
	if req.Description != nil {
		description = *req.Description
	}

	app, err := s.repo.UpdateWebApp(ctx, id, name, appURL, description, req.RequiredRoles, req.RequiredRoles != nil)
	if err != nil {
		return WebApp{}, err
	}
	s.invalidateCatalog(ctx)
	return app, nil
}

// DeleteWebApp removes a registration and its role links.
func (s *Service) DeleteWebApp(ctx context.Context, id int64) error {
	if err := s.repo.DeleteWebApp(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// SyncRoles reconciles the registration's required-role links to exactly the
// given set.
func (s *Service) SyncRoles(ctx context.Context, webappID int64, roleNames []string) error {
	if err := s.syncer.Sync(ctx, roles.Owner{Kind: roles.OwnerWebApp, ID: webappID}, roleNames); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *Service) loadCatalog(ctx context.Context) ([]WebApp, error) {
	var catalog []WebApp
	err := s.catalog.Fetch(ctx, &catalog, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListWebApps(ctx)
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("invalidate catalog cache", slog.Any("error", err))
	}
}

func validateName(name string) error {
	if len(name) < 3 || len(name) > 100 {
		return fmt.Errorf("webapp name must be 3-100 characters: %w", shared.ErrValidation)
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("webapp url must be absolute: %w", shared.ErrValidation)
	}
	return nil
}
