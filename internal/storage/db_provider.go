package storage

import (
	"context"

	"github.com/shaibs3/orginsights/internal/db_model"
	"github.com/shaibs3/orginsights/internal/query"
	"github.com/shaibs3/orginsights/internal/scraper"
)

// DbProvider is the persistence boundary used by the service layer. Lookups
// of a missing organization return ErrNotFound.
type DbProvider interface {
	// Reconcile merges one scraped record into the store in a single
	// transaction and returns the organization id
	Reconcile(ctx context.Context, rec scraper.ScrapedOrganization) (uint, error)

	GetOrganization(ctx context.Context, pageID string) (*db_model.Organization, error)
	GetOrganizationView(ctx context.Context, pageID string) (*db_model.OrganizationView, error)
	ListOrganizations(ctx context.Context, filter query.OrganizationFilter, req query.PageRequest) ([]db_model.Organization, int64, error)

	ListPosts(ctx context.Context, orgID uint, req query.PageRequest, withComments bool) ([]db_model.Post, int64, error)
	ListEmployees(ctx context.Context, orgID uint, req query.PageRequest) ([]db_model.Person, int64, error)
	ListFollowers(ctx context.Context, orgID uint, req query.PageRequest) ([]db_model.Follower, int64, error)

	// AddFollower links person (matched by full name, created if unknown) as
	// a follower of the organization. Repeated calls keep a single link.
	AddFollower(ctx context.Context, orgID uint, person db_model.Person) (*db_model.Follower, error)
	DeleteOrganization(ctx context.Context, pageID string) error

	Ping(ctx context.Context) error
	Close() error
}
