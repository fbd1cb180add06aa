package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("orginsights.internal.scraper")

// ErrPageNotFound means the profile does not exist upstream
var ErrPageNotFound = errors.New("organization page not found")

// Fetcher loads the raw document for one organization. It may block for
// several seconds.
type Fetcher interface {
	Fetch(ctx context.Context, pageID string) (*RawDocument, error)
}

type HTTPFetcherConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// HTTPFetcher loads the about, posts and people pages of a company profile.
// Only the about page is mandatory; the other two degrade to empty sections.
type HTTPFetcher struct {
	http    *resty.Client
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewHTTPFetcher(cfg HTTPFetcherConfig, logger *zap.Logger) *HTTPFetcher {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("user-agent", cfg.UserAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &HTTPFetcher{
		http:    client,
		baseURL: baseURL,
		logger:  logger.Named("fetcher"),
		now:     time.Now,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageID string) (*RawDocument, error) {
	ctx, span := tracer.Start(ctx, "Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("page_id", pageID)),
	)
	defer span.End()

	start := f.now()
	about, err := f.section(ctx, pageID, "about")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch about section")
		return nil, err
	}

	doc := &RawDocument{
		PageID:    pageID,
		URL:       fmt.Sprintf("%s/%s", f.baseURL, pageID),
		About:     about,
		FetchedAt: start,
	}

	if doc.Posts, err = f.section(ctx, pageID, "posts"); err != nil {
		f.logger.Warn("posts section unavailable", zap.String("page_id", pageID), zap.Error(err))
	}
	if doc.People, err = f.section(ctx, pageID, "people"); err != nil {
		f.logger.Warn("people section unavailable", zap.String("page_id", pageID), zap.Error(err))
	}

	f.logger.Info("fetched organization page",
		zap.String("page_id", pageID),
		zap.Int("about_bytes", len(doc.About.Body)),
		zap.Int("posts_bytes", len(doc.Posts.Body)),
		zap.Int("people_bytes", len(doc.People.Body)),
		zap.Duration("elapsed", f.now().Sub(start)),
	)
	return doc, nil
}

func (f *HTTPFetcher) section(ctx context.Context, pageID, name string) (Section, error) {
	res, err := f.http.R().
		SetContext(ctx).
		SetPathParam("pageID", pageID).
		Get("/{pageID}/" + name + "/")
	if err != nil {
		return Section{}, fmt.Errorf("failed to fetch %s section: %w", name, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return Section{}, ErrPageNotFound
	}
	if res.IsError() {
		return Section{}, fmt.Errorf("failed to fetch %s section: http status %d", name, res.StatusCode())
	}
	return Section{
		Body:        res.Body(),
		ContentType: res.Header().Get("Content-Type"),
	}, nil
}
