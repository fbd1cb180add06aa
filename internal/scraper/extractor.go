package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const (
	maxPosts            = 20
	maxCommentsPerPost  = 10
	maxEmployees        = 15
	linkedinTitleSuffix = "| LinkedIn"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	followersRe  = regexp.MustCompile(`([\d][\d,.]*)\s*([km])?\s+followers`)
	employeesRe  = regexp.MustCompile(`([\d][\d,.]*)\s*([km])?\s+employees`)
	countRe      = regexp.MustCompile(`([\d][\d,.]*)\s*([km])?`)
	yearRe       = regexp.MustCompile(`\d{4}`)
)

// Extractor turns a RawDocument into a ScrapedOrganization. It never fails:
// when nothing usable can be read it returns the synthetic fallback record.
type Extractor struct {
	logger    *zap.Logger
	synthetic *Synthesizer
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{
		logger:    logger.Named("extractor"),
		synthetic: NewSynthesizer(time.Now),
	}
}

// NewExtractorWithClock pins the clock used for synthetic timestamps
func NewExtractorWithClock(logger *zap.Logger, now func() time.Time) *Extractor {
	return &Extractor{
		logger:    logger.Named("extractor"),
		synthetic: NewSynthesizer(now),
	}
}

func (e *Extractor) Extract(raw *RawDocument, pageID string) ScrapedOrganization {
	if raw == nil {
		return e.fallback(pageID, "no document")
	}

	rec := ScrapedOrganization{
		PageID:     pageID,
		Provenance: ProvenanceScraped,
	}
	if doc := e.parse(raw.About, pageID, "about"); doc != nil {
		extractOrganization(doc, &rec)
	}
	if doc := e.parse(raw.Posts, pageID, "posts"); doc != nil {
		rec.Posts = extractPosts(doc, pageID)
	}
	if doc := e.parse(raw.People, pageID, "people"); doc != nil {
		rec.Employees = extractEmployees(doc)
	}

	if rec.Name == nil && len(rec.Posts) == 0 && len(rec.Employees) == 0 {
		return e.fallback(pageID, "document yielded no data")
	}
	if rec.URL == nil {
		rec.URL = optional(raw.URL)
	}

	e.logger.Debug("extracted organization",
		zap.String("page_id", pageID),
		zap.Int("posts", len(rec.Posts)),
		zap.Int("employees", len(rec.Employees)),
	)
	return rec
}

func (e *Extractor) fallback(pageID, reason string) ScrapedOrganization {
	e.logger.Warn("using synthetic organization data",
		zap.String("page_id", pageID),
		zap.String("reason", reason),
	)
	return e.synthetic.Organization(pageID)
}

// parse decodes a section to UTF-8 and builds a goquery document from it
func (e *Extractor) parse(s Section, pageID, name string) *goquery.Document {
	if s.Empty() {
		return nil
	}
	enc, _, _ := charset.DetermineEncoding(s.Body, s.ContentType)
	data, err := enc.NewDecoder().Bytes(s.Body)
	if err != nil {
		if !utf8.Valid(s.Body) {
			e.logger.Debug("undecodable section", zap.String("page_id", pageID), zap.String("section", name), zap.Error(err))
			return nil
		}
		data = s.Body
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		e.logger.Debug("unparsable section", zap.String("page_id", pageID), zap.String("section", name), zap.Error(err))
		return nil
	}
	doc.Find("script,noscript,style").Remove()
	return doc
}

func extractOrganization(doc *goquery.Document, rec *ScrapedOrganization) {
	rec.Name = firstText(doc.Selection, "h1")
	if rec.Name == nil {
		title := doc.Find(`meta[property="og:title"]`).AttrOr("content", "")
		rec.Name = optional(strings.TrimSuffix(strings.TrimSpace(title), linkedinTitleSuffix))
	}

	rec.Description = firstText(doc.Selection, ".org-top-card-summary__tagline")
	if rec.Description == nil {
		rec.Description = firstAttr(doc.Selection, `meta[name="description"]`, "content")
	}
	if rec.Description == nil {
		rec.Description = firstAttr(doc.Selection, `meta[property="og:description"]`, "content")
	}

	rec.URL = firstAttr(doc.Selection, `link[rel="canonical"]`, "href")
	rec.Industry = firstText(doc.Selection, ".org-top-card-summary-info-list__info-item")
	rec.Website = firstAttr(doc.Selection, ".org-top-card-primary-actions__website", "href")
	rec.Headquarters = firstText(doc.Selection, ".org-location-card p")
	rec.CompanyType = firstText(doc.Selection, ".org-page-details__definition-text")

	rec.ProfilePicture = firstAttr(doc.Selection, ".org-top-card-primary-content__logo", "src")
	if rec.ProfilePicture == nil {
		rec.ProfilePicture = firstAttr(doc.Selection, `meta[property="og:image"]`, "content")
	}

	summary := strings.ToLower(cleanText(doc.Find(".org-top-card-summary-info-list").First().Text()))
	rec.FollowerCount = matchCount(followersRe, summary)
	rec.EmployeeCount = matchCount(employeesRe, summary)

	doc.Find(".org-page-details-module__specialities span").Each(func(_ int, s *goquery.Selection) {
		if t := cleanText(s.Text()); t != "" {
			rec.Specialities = append(rec.Specialities, t)
		}
	})

	if founded := firstText(doc.Selection, ".org-page-details__founded"); founded != nil {
		if y, err := strconv.Atoi(yearRe.FindString(*founded)); err == nil {
			rec.FoundedYear = &y
		}
	}
}

func extractPosts(doc *goquery.Document, pageID string) []ScrapedPost {
	var posts []ScrapedPost
	doc.Find("div.feed-shared-update-v2").EachWithBreak(func(idx int, s *goquery.Selection) bool {
		post := ScrapedPost{
			ExternalID:   firstAttr(s, "", "data-urn"),
			Content:      firstText(s, ".feed-shared-text, .update-components-text"),
			URL:          firstAttr(s, `a[href*="/feed/update/"]`, "href"),
			LikeCount:    selectCount(s, ".social-details-social-counts__reactions-count"),
			CommentCount: selectCount(s, ".social-details-social-counts__comments"),
			ShareCount:   selectCount(s, ".social-details-social-counts__shares"),
			PostedAt:     firstTime(s, "time[datetime]"),
		}
		if post.ExternalID == nil {
			post.ExternalID = optional(fmt.Sprintf("post_%s_%d", pageID, idx))
		}
		post.MediaType, post.MediaURL = detectMedia(s)

		s.Find(".comments-comment-item").EachWithBreak(func(i int, c *goquery.Selection) bool {
			post.Comments = append(post.Comments, ScrapedComment{
				AuthorName:       firstText(c, ".comments-post-meta__name-text"),
				AuthorProfileURL: firstAttr(c, ".comments-post-meta__actor-link", "href"),
				Content:          firstText(c, ".comments-comment-item__main-content"),
				LikeCount:        selectCount(c, ".comments-comment-social-bar__reactions-count"),
				CommentedAt:      firstTime(c, "time[datetime]"),
			})
			return i+1 < maxCommentsPerPost
		})

		posts = append(posts, post)
		return idx+1 < maxPosts
	})
	return posts
}

func extractEmployees(doc *goquery.Document) []ScrapedEmployee {
	var employees []ScrapedEmployee
	doc.Find("div.org-people-profile-card").Each(func(_ int, s *goquery.Selection) {
		if len(employees) >= maxEmployees {
			return
		}
		name := firstText(s, ".org-people-profile-card__profile-title")
		if name == nil {
			return
		}
		emp := ScrapedEmployee{
			FullName:       *name,
			Headline:       firstText(s, ".lt-line-clamp"),
			ProfileURL:     firstAttr(s, "a", "href"),
			ProfilePicture: firstAttr(s, "img", "src"),
			Location:       firstText(s, ".org-people-profile-card__location"),
		}
		if emp.ProfileURL != nil {
			emp.Username = usernameFromProfile(*emp.ProfileURL)
		}
		employees = append(employees, emp)
	})
	return employees
}

const (
	postImageSelector   = ".update-components-image img, .feed-shared-image img"
	postArticleSelector = ".update-components-article, .feed-shared-article, article"
)

// detectMedia classifies a post by its richest embedded element. Images are
// only looked up inside the content containers so actor avatars don't count.
func detectMedia(s *goquery.Selection) (mediaType, mediaURL *string) {
	kind := "text"
	switch {
	case s.Find("video").Length() > 0:
		kind = "video"
		mediaURL = firstAttr(s, "video", "src")
		if mediaURL == nil {
			mediaURL = firstAttr(s, "video source", "src")
		}
	case s.Find(postImageSelector).Length() > 0:
		kind = "image"
		mediaURL = firstAttr(s, postImageSelector, "src")
	case s.Find(postArticleSelector).Length() > 0:
		kind = "article"
		mediaURL = firstAttr(s.Find(postArticleSelector).First(), "a", "href")
	}
	return &kind, mediaURL
}

// usernameFromProfile pulls the handle out of a ".../in/<handle>" profile URL
func usernameFromProfile(profileURL string) *string {
	u, err := url.Parse(profileURL)
	if err != nil {
		return nil
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "in" {
			return optional(parts[i+1])
		}
	}
	return nil
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func firstText(s *goquery.Selection, selector string) *string {
	return optional(cleanText(s.Find(selector).First().Text()))
}

// firstAttr reads attr from the first match of selector, or from s itself
// when selector is empty
func firstAttr(s *goquery.Selection, selector, attr string) *string {
	target := s
	if selector != "" {
		target = s.Find(selector)
	}
	return optional(target.First().AttrOr(attr, ""))
}

func firstTime(s *goquery.Selection, selector string) *time.Time {
	raw := firstAttr(s, selector, "datetime")
	if raw == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil
	}
	return &t
}

func selectCount(s *goquery.Selection, selector string) *int64 {
	text := firstText(s, selector)
	if text == nil {
		return nil
	}
	return matchCount(countRe, strings.ToLower(*text))
}

// matchCount reads a number with optional k/m suffix from the first two
// capture groups of re
func matchCount(re *regexp.Regexp, text string) *int64 {
	m := re.FindStringSubmatch(text)
	if len(m) < 3 {
		return nil
	}
	digits := strings.ReplaceAll(m[1], ",", "")
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil
	}
	switch m[2] {
	case "k":
		f *= 1_000
	case "m":
		f *= 1_000_000
	}
	n := int64(f)
	return &n
}
