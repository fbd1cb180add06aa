package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaibs3/orginsights/internal/cache"
	"github.com/shaibs3/orginsights/internal/db_model"
	"github.com/shaibs3/orginsights/internal/query"
	"github.com/shaibs3/orginsights/internal/scraper"
	"github.com/shaibs3/orginsights/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("orginsights.internal.service")

// pipelineTimeout bounds a shared pipeline run, which outlives the caller
// that started it
const pipelineTimeout = 2 * time.Minute

// ErrNotFound means the organization is neither stored nor obtainable
var ErrNotFound = errors.New("organization not found")

// Source tells where a returned organization came from
type Source string

const (
	SourceCache    Source = "cache"
	SourceDatabase Source = "database"
	SourceScrape   Source = "scrape"
)

type pipelineMode string

const (
	modeLookup pipelineMode = "lookup"
	modeScrape pipelineMode = "scrape"
)

// Result is an organization view plus its origin. View is shared with the
// cache and must not be modified.
type Result struct {
	View   *db_model.OrganizationView
	Source Source
}

// OrganizationService answers organization queries with a read-through
// cache in front of storage, and runs the fetch, extract, reconcile pipeline
// on misses and explicit scrapes.
type OrganizationService struct {
	store     storage.DbProvider
	cache     cache.Cache[*db_model.OrganizationView]
	fetcher   scraper.Fetcher
	extractor *scraper.Extractor
	cacheTTL  time.Duration
	group     singleflight.Group
	locks     *keyLock
	metrics   *metrics
	logger    *zap.Logger
}

func NewOrganizationService(
	store storage.DbProvider,
	viewCache cache.Cache[*db_model.OrganizationView],
	fetcher scraper.Fetcher,
	extractor *scraper.Extractor,
	cacheTTL time.Duration,
	meter metric.Meter,
	logger *zap.Logger,
) (*OrganizationService, error) {
	m, err := newMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create service metrics: %w", err)
	}
	return &OrganizationService{
		store:     store,
		cache:     viewCache,
		fetcher:   fetcher,
		extractor: extractor,
		cacheTTL:  cacheTTL,
		locks:     newKeyLock(),
		metrics:   m,
		logger:    logger.Named("organization_service"),
	}, nil
}

// GetOrganization returns the organization from the cache, then storage,
// then a live fetch. forceRefresh skips the first two and always fetches.
func (s *OrganizationService) GetOrganization(ctx context.Context, pageID string, forceRefresh bool) (*Result, error) {
	if !forceRefresh {
		if view, ok := s.cache.Get(pageID); ok {
			s.metrics.cacheLookup(ctx, true)
			return &Result{View: view, Source: SourceCache}, nil
		}
		s.metrics.cacheLookup(ctx, false)

		view, err := s.store.GetOrganizationView(ctx, pageID)
		switch {
		case err == nil:
			s.cache.Put(pageID, view, s.cacheTTL)
			return &Result{View: view, Source: SourceDatabase}, nil
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("failed to load organization %s: %w", pageID, err)
		}
	}

	view, err := s.runPipeline(ctx, pageID, modeLookup)
	if err != nil {
		return nil, err
	}
	return &Result{View: view, Source: SourceScrape}, nil
}

// Scrape always runs the pipeline. Fetch failures fall back to synthetic data.
func (s *OrganizationService) Scrape(ctx context.Context, pageID string) (*Result, error) {
	view, err := s.runPipeline(ctx, pageID, modeScrape)
	if err != nil {
		return nil, err
	}
	return &Result{View: view, Source: SourceScrape}, nil
}

// runPipeline collapses concurrent runs for the same page and mode into one.
// The run is detached from the starting caller's cancellation; each caller
// stops waiting when its own context ends.
func (s *OrganizationService) runPipeline(ctx context.Context, pageID string, mode pipelineMode) (*db_model.OrganizationView, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(string(mode)+":"+pageID, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(detached, pipelineTimeout)
		defer cancel()
		return s.pipeline(runCtx, pageID, mode)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("joined in-flight pipeline", zap.String("page_id", pageID), zap.String("mode", string(mode)))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*db_model.OrganizationView), nil
	}
}

func (s *OrganizationService) pipeline(ctx context.Context, pageID string, mode pipelineMode) (*db_model.OrganizationView, error) {
	ctx, span := tracer.Start(ctx, "Pipeline")
	defer span.End()
	span.SetAttributes(
		attribute.String("page_id", pageID),
		attribute.String("mode", string(mode)),
	)

	raw, err := s.fetcher.Fetch(ctx, pageID)
	if err != nil {
		span.RecordError(err)
		s.metrics.pipelineRun(ctx, mode, "fetch_failed")
		if mode == modeLookup {
			span.SetStatus(codes.Error, "fetch failed")
			if errors.Is(err, scraper.ErrPageNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("failed to fetch organization %s: %w", pageID, err)
		}
		s.logger.Warn("fetch failed, continuing with fallback data", zap.String("page_id", pageID), zap.Error(err))
		raw = nil
	}

	rec := s.extractor.Extract(raw, pageID)
	span.SetAttributes(attribute.String("provenance", string(rec.Provenance)))
	if mode == modeLookup && rec.Provenance == scraper.ProvenanceSynthetic {
		// nothing usable upstream; lookups never persist fallback data
		span.SetStatus(codes.Error, "unusable document")
		s.metrics.pipelineRun(ctx, mode, "unusable")
		s.logger.Warn("fetched document has no organization data", zap.String("page_id", pageID))
		return nil, ErrNotFound
	}

	// lookups and scrapes of one page run in separate flights
	unlock := s.locks.Lock(pageID)
	defer unlock()

	if _, err := s.store.Reconcile(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		s.metrics.pipelineRun(ctx, mode, "reconcile_failed")
		return nil, fmt.Errorf("failed to save organization %s: %w", pageID, err)
	}

	view, err := s.store.GetOrganizationView(ctx, pageID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reload failed")
		return nil, fmt.Errorf("failed to reload organization %s: %w", pageID, err)
	}
	s.cache.Put(pageID, view, s.cacheTTL)
	s.metrics.pipelineRun(ctx, mode, string(rec.Provenance))

	s.logger.Info("organization refreshed",
		zap.String("page_id", pageID),
		zap.String("mode", string(mode)),
		zap.String("provenance", string(rec.Provenance)),
	)
	return view, nil
}

func (s *OrganizationService) ListOrganizations(ctx context.Context, filter query.OrganizationFilter, req query.PageRequest) (query.Page[db_model.Organization], error) {
	orgs, total, err := s.store.ListOrganizations(ctx, filter, req)
	if err != nil {
		return query.Page[db_model.Organization]{}, fmt.Errorf("failed to list organizations: %w", err)
	}
	return query.Page[db_model.Organization]{Items: orgs, Pagination: query.NewPagination(req, total)}, nil
}

func (s *OrganizationService) ListPosts(ctx context.Context, pageID string, req query.PageRequest, withComments bool) (query.Page[db_model.Post], error) {
	orgID, err := s.organizationID(ctx, pageID)
	if err != nil {
		return query.Page[db_model.Post]{}, err
	}
	posts, total, err := s.store.ListPosts(ctx, orgID, req, withComments)
	if err != nil {
		return query.Page[db_model.Post]{}, fmt.Errorf("failed to list posts: %w", err)
	}
	return query.Page[db_model.Post]{Items: posts, Pagination: query.NewPagination(req, total)}, nil
}

func (s *OrganizationService) ListEmployees(ctx context.Context, pageID string, req query.PageRequest) (query.Page[db_model.Person], error) {
	orgID, err := s.organizationID(ctx, pageID)
	if err != nil {
		return query.Page[db_model.Person]{}, err
	}
	people, total, err := s.store.ListEmployees(ctx, orgID, req)
	if err != nil {
		return query.Page[db_model.Person]{}, fmt.Errorf("failed to list employees: %w", err)
	}
	return query.Page[db_model.Person]{Items: people, Pagination: query.NewPagination(req, total)}, nil
}

func (s *OrganizationService) ListFollowers(ctx context.Context, pageID string, req query.PageRequest) (query.Page[db_model.Follower], error) {
	orgID, err := s.organizationID(ctx, pageID)
	if err != nil {
		return query.Page[db_model.Follower]{}, err
	}
	followers, total, err := s.store.ListFollowers(ctx, orgID, req)
	if err != nil {
		return query.Page[db_model.Follower]{}, fmt.Errorf("failed to list followers: %w", err)
	}
	return query.Page[db_model.Follower]{Items: followers, Pagination: query.NewPagination(req, total)}, nil
}

// Follow records person as a follower of a stored organization
func (s *OrganizationService) Follow(ctx context.Context, pageID string, person db_model.Person) (*db_model.Follower, error) {
	orgID, err := s.organizationID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	follower, err := s.store.AddFollower(ctx, orgID, person)
	if err != nil {
		return nil, fmt.Errorf("failed to add follower: %w", err)
	}
	return follower, nil
}

func (s *OrganizationService) DeleteOrganization(ctx context.Context, pageID string) error {
	err := s.store.DeleteOrganization(ctx, pageID)
	s.cache.Invalidate(pageID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete organization %s: %w", pageID, err)
	}
	return nil
}

// ClearCache drops every cached organization and reports how many were held
func (s *OrganizationService) ClearCache() int {
	n := s.cache.Len()
	s.cache.Clear()
	s.logger.Info("cache cleared", zap.Int("entries", n))
	return n
}

func (s *OrganizationService) CacheSize() int {
	return s.cache.Len()
}

func (s *OrganizationService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *OrganizationService) organizationID(ctx context.Context, pageID string) (uint, error) {
	org, err := s.store.GetOrganization(ctx, pageID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load organization %s: %w", pageID, err)
	}
	return org.ID, nil
}
