package gormdb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shaibs3/orginsights/internal/db_model"
	"github.com/shaibs3/orginsights/internal/query"
	"github.com/shaibs3/orginsights/internal/scraper"
	"github.com/shaibs3/orginsights/internal/storage/shared"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewMemoryProvider(zap.NewNop(), nil)
	require.NoError(t, err)
	p.now = func() time.Time { return testNow }
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func str(s string) *string { return &s }
func num(n int64) *int64   { return &n }

func scrapedOrg(pageID string) scraper.ScrapedOrganization {
	posted := testNow.Add(-time.Hour)
	return scraper.ScrapedOrganization{
		PageID:        pageID,
		Provenance:    scraper.ProvenanceScraped,
		Name:          str("Org " + pageID),
		Description:   str("original description"),
		Industry:      str("Software"),
		FollowerCount: num(1000),
		Specialities:  []string{"Go", "Databases"},
		Posts: []scraper.ScrapedPost{
			{
				ExternalID: str("p1"),
				Content:    str("first"),
				LikeCount:  num(10),
				PostedAt:   &posted,
				Comments: []scraper.ScrapedComment{
					{AuthorName: str("A"), Content: str("nice")},
					{AuthorName: str("B"), Content: str("great")},
				},
			},
		},
		Employees: []scraper.ScrapedEmployee{
			{FullName: "Jane Doe", Headline: str("Engineer")},
			{FullName: "John Roe", Headline: str("Designer"), JobTitle: str("Lead Designer")},
		},
	}
}

func countRows(t *testing.T, p *Provider, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := p.db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestReconcile_CreatesWithDefaults(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	id, err := p.Reconcile(ctx, scraper.ScrapedOrganization{PageID: "bare", Provenance: scraper.ProvenanceScraped})
	require.NoError(t, err)
	require.NotZero(t, id)

	org, err := p.GetOrganization(ctx, "bare")
	require.NoError(t, err)
	require.Equal(t, "bare", org.Name)
	require.Zero(t, org.FollowerCount)
	require.Zero(t, org.EmployeeCount)
	require.Nil(t, org.Description)
	require.NotNil(t, org.Specialities)
	require.Empty(t, org.Specialities)
	require.Equal(t, db_model.SourceScraped, org.Source)
}

func TestReconcile_Idempotent(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	rec := scrapedOrg("acme")

	first, err := p.Reconcile(ctx, rec)
	require.NoError(t, err)
	second, err := p.Reconcile(ctx, rec)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, int64(1), countRows(t, p, &db_model.Organization{}, ""))
	require.Equal(t, int64(1), countRows(t, p, &db_model.Post{}, ""))
	require.Equal(t, int64(2), countRows(t, p, &db_model.Comment{}, ""))
	require.Equal(t, int64(2), countRows(t, p, &db_model.Person{}, ""))

	view, err := p.GetOrganizationView(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "Org acme", view.Name)
	require.Equal(t, []string{"Go", "Databases"}, []string(view.Specialities))
	require.Len(t, view.Posts, 1)
	require.Len(t, view.Employees, 2)
}

func TestReconcile_PartialUpdateKeepsExistingData(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Reconcile(ctx, scrapedOrg("acme"))
	require.NoError(t, err)

	_, err = p.Reconcile(ctx, scraper.ScrapedOrganization{
		PageID:        "acme",
		Provenance:    scraper.ProvenanceSynthetic,
		FollowerCount: num(2500),
	})
	require.NoError(t, err)

	view, err := p.GetOrganizationView(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, int64(2500), view.FollowerCount)
	require.Equal(t, "Org acme", view.Name)
	require.Equal(t, "original description", *view.Description)
	require.Equal(t, []string{"Go", "Databases"}, []string(view.Specialities))
	require.Equal(t, db_model.SourceSynthetic, view.Source)
	require.Len(t, view.Posts, 1)
	require.Len(t, view.Employees, 2)
}

func TestReconcile_ReplacesPostsAndComments(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Reconcile(ctx, scrapedOrg("acme"))
	require.NoError(t, err)

	rec := scrapedOrg("acme")
	rec.Posts = []scraper.ScrapedPost{
		{ExternalID: str("p2"), Content: str("second")},
		{ExternalID: str("p3"), Content: str("third"), Comments: []scraper.ScrapedComment{{Content: str("hi")}}},
	}
	_, err = p.Reconcile(ctx, rec)
	require.NoError(t, err)

	require.Equal(t, int64(2), countRows(t, p, &db_model.Post{}, ""))
	require.Equal(t, int64(0), countRows(t, p, &db_model.Post{}, "external_id = ?", "p1"))
	require.Equal(t, int64(1), countRows(t, p, &db_model.Comment{}, ""))
}

func TestReconcile_RelinksEmployeesAcrossOrganizations(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	acmeID, err := p.Reconcile(ctx, scrapedOrg("acme"))
	require.NoError(t, err)

	globex := scrapedOrg("globex")
	globex.Employees = []scraper.ScrapedEmployee{{FullName: "Jane Doe", Location: str("Springfield")}}
	globexID, err := p.Reconcile(ctx, globex)
	require.NoError(t, err)

	var jane db_model.Person
	require.NoError(t, p.db.Where("full_name = ?", "Jane Doe").Take(&jane).Error)
	require.Equal(t, globexID, *jane.CompanyID)
	require.Equal(t, "Springfield", *jane.Location)
	require.Equal(t, "Engineer", *jane.Headline)
	require.Equal(t, int64(2), countRows(t, p, &db_model.Person{}, ""))

	acme, _, err := p.ListEmployees(ctx, acmeID, query.NewPageRequest(1, 10, 50))
	require.NoError(t, err)
	require.Len(t, acme, 1)
	require.Equal(t, "John Roe", acme[0].FullName)

	// a rescrape without John detaches him
	rescrape := scrapedOrg("acme")
	rescrape.Employees = []scraper.ScrapedEmployee{{FullName: "Max Moe"}}
	_, err = p.Reconcile(ctx, rescrape)
	require.NoError(t, err)

	var john db_model.Person
	require.NoError(t, p.db.Where("full_name = ?", "John Roe").Take(&john).Error)
	require.Nil(t, john.CompanyID)
}

func TestReconcile_JobTitleFallsBackToHeadline(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Reconcile(ctx, scrapedOrg("acme"))
	require.NoError(t, err)

	var jane, john db_model.Person
	require.NoError(t, p.db.Where("full_name = ?", "Jane Doe").Take(&jane).Error)
	require.NoError(t, p.db.Where("full_name = ?", "John Roe").Take(&john).Error)
	require.Equal(t, "Engineer", *jane.JobTitle)
	require.Equal(t, "Lead Designer", *john.JobTitle)
}

func TestReconcile_DuplicateNamesLastWins(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	rec := scrapedOrg("acme")
	rec.Employees = []scraper.ScrapedEmployee{
		{FullName: "Sam Poe", Headline: str("first")},
		{FullName: " Sam Poe ", Headline: str("second")},
	}
	_, err := p.Reconcile(ctx, rec)
	require.NoError(t, err)

	var people []db_model.Person
	require.NoError(t, p.db.Where("full_name = ?", "Sam Poe").Find(&people).Error)
	require.Len(t, people, 1)
	require.Equal(t, "second", *people[0].Headline)
}

func TestReconcile_RollsBackOnFailure(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Reconcile(ctx, scrapedOrg("acme"))
	require.NoError(t, err)

	require.NoError(t, p.db.Callback().Create().Before("gorm:create").Register("test:fail_comments", func(db *gorm.DB) {
		if db.Statement.Table == "comments" {
			_ = db.AddError(errors.New("disk full"))
		}
	}))

	rec := scrapedOrg("acme")
	rec.Name = str("Renamed")
	rec.Posts[0].ExternalID = str("p-new")
	_, err = p.Reconcile(ctx, rec)
	require.ErrorIs(t, err, shared.ErrReconcile)

	org, err := p.GetOrganization(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "Org acme", org.Name)
	require.Equal(t, int64(1), countRows(t, p, &db_model.Post{}, "external_id = ?", "p1"))
	require.Equal(t, int64(0), countRows(t, p, &db_model.Post{}, "external_id = ?", "p-new"))
	require.Equal(t, int64(2), countRows(t, p, &db_model.Comment{}, ""))
}

func TestDeleteOrganization_Cascades(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	orgID, err := p.Reconcile(ctx, scrapedOrg("acme"))
	require.NoError(t, err)
	_, err = p.AddFollower(ctx, orgID, db_model.Person{FullName: "Fan One"})
	require.NoError(t, err)

	require.NoError(t, p.DeleteOrganization(ctx, "acme"))

	require.Equal(t, int64(0), countRows(t, p, &db_model.Organization{}, ""))
	require.Equal(t, int64(0), countRows(t, p, &db_model.Post{}, ""))
	require.Equal(t, int64(0), countRows(t, p, &db_model.Comment{}, ""))
	require.Equal(t, int64(0), countRows(t, p, &db_model.OrganizationFollower{}, ""))
	require.Equal(t, int64(3), countRows(t, p, &db_model.Person{}, ""))
	require.Equal(t, int64(0), countRows(t, p, &db_model.Person{}, "company_id IS NOT NULL"))

	_, err = p.GetOrganization(ctx, "acme")
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.ErrorIs(t, p.DeleteOrganization(ctx, "acme"), shared.ErrNotFound)
}

func TestListOrganizations_FiltersAndOrder(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	seed := []struct {
		pageID    string
		name      string
		industry  string
		followers int64
	}{
		{"alpha", "Alpha Labs", "Software", 15_000},
		{"beta", "Beta Works", "Hardware", 20_000},
		{"gamma", "Gamma Soft", "Software Development", 25_000},
		{"delta", "Delta_Co", "Software", 30_000},
		{"eps", "Epsilon", "Retail", 30_001},
	}
	for _, s := range seed {
		_, err := p.Reconcile(ctx, scraper.ScrapedOrganization{
			PageID:        s.pageID,
			Name:          str(s.name),
			Industry:      str(s.industry),
			FollowerCount: num(s.followers),
		})
		require.NoError(t, err)
	}

	pageIDs := func(orgs []db_model.Organization) []string {
		ids := make([]string, len(orgs))
		for i, o := range orgs {
			ids[i] = o.PageID
		}
		return ids
	}
	all := query.NewPageRequest(1, 50, 50)

	orgs, total, err := p.ListOrganizations(ctx, query.OrganizationFilter{Followers: query.ParseFollowerRange("20k-30k")}, all)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, []string{"delta", "gamma", "beta"}, pageIDs(orgs))

	orgs, _, err = p.ListOrganizations(ctx, query.OrganizationFilter{Industry: "SOFTWARE"}, all)
	require.NoError(t, err)
	require.Equal(t, []string{"delta", "gamma", "alpha"}, pageIDs(orgs))

	orgs, _, err = p.ListOrganizations(ctx, query.OrganizationFilter{Name: "a_c"}, all)
	require.NoError(t, err)
	require.Equal(t, []string{"delta"}, pageIDs(orgs))

	orgs, _, err = p.ListOrganizations(ctx, query.OrganizationFilter{Followers: query.ParseFollowerRange("abc-20k")}, all)
	require.NoError(t, err)
	require.Equal(t, []string{"beta", "alpha"}, pageIDs(orgs))

	orgs, total, err = p.ListOrganizations(ctx, query.OrganizationFilter{}, query.NewPageRequest(2, 2, 50))
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Equal(t, []string{"gamma", "beta"}, pageIDs(orgs))
}

func TestListPosts_OrderAndComments(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	older := testNow.Add(-48 * time.Hour)
	newer := testNow.Add(-time.Hour)
	many := make([]scraper.ScrapedComment, 12)
	for i := range many {
		many[i] = scraper.ScrapedComment{Content: str(fmt.Sprintf("c%d", i))}
	}

	orgID, err := p.Reconcile(ctx, scraper.ScrapedOrganization{
		PageID: "acme",
		Posts: []scraper.ScrapedPost{
			{ExternalID: str("undated")},
			{ExternalID: str("older"), PostedAt: &older},
			{ExternalID: str("newer"), PostedAt: &newer, Comments: many},
		},
	})
	require.NoError(t, err)

	posts, total, err := p.ListPosts(ctx, orgID, query.NewPageRequest(1, 25, 25), true)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, "newer", *posts[0].ExternalID)
	require.Equal(t, "older", *posts[1].ExternalID)
	require.Equal(t, "undated", *posts[2].ExternalID)
	require.Len(t, posts[0].Comments, commentsPerPost)
	require.Equal(t, "c0", *posts[0].Comments[0].Content)
	require.NotNil(t, posts[1].Comments)
	require.Empty(t, posts[1].Comments)

	posts, _, err = p.ListPosts(ctx, orgID, query.NewPageRequest(1, 25, 25), false)
	require.NoError(t, err)
	require.Nil(t, posts[0].Comments)
}

func TestFollowers(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	orgID, err := p.Reconcile(ctx, scrapedOrg("acme"))
	require.NoError(t, err)

	_, err = p.AddFollower(ctx, orgID, db_model.Person{FullName: "Fan One"})
	require.NoError(t, err)
	p.now = func() time.Time { return testNow.Add(time.Minute) }
	f, err := p.AddFollower(ctx, orgID, db_model.Person{FullName: "Jane Doe"})
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", f.FullName)

	// following twice keeps one link
	_, err = p.AddFollower(ctx, orgID, db_model.Person{FullName: "Fan One"})
	require.NoError(t, err)

	followers, total, err := p.ListFollowers(ctx, orgID, query.NewPageRequest(1, 10, 50))
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "Fan One", followers[0].FullName)
	require.Equal(t, "Jane Doe", followers[1].FullName)
	require.True(t, followers[0].FollowedAt.Equal(testNow))

	// Jane stays an employee while following
	require.Equal(t, int64(3), countRows(t, p, &db_model.Person{}, ""))

	_, err = p.AddFollower(ctx, orgID, db_model.Person{FullName: "  "})
	require.Error(t, err)
}

func TestGetOrganization_NotFound(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.GetOrganization(context.Background(), "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = p.GetOrganizationView(context.Background(), "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPing(t *testing.T) {
	p := newTestProvider(t)
	require.NoError(t, p.Ping(context.Background()))
}
