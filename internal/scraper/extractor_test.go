package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const aboutHTML = `<html><head>
<link rel="canonical" href="https://www.linkedin.com/company/acme/">
<script>var noise = "<h1>not me</h1>";</script>
</head><body>
<h1>  Acme   Corp </h1>
<p class="org-top-card-summary__tagline">Rockets and anvils</p>
<div class="org-top-card-summary-info-list">
  <div class="org-top-card-summary-info-list__info-item">Manufacturing</div>
  <div class="org-top-card-summary-info-list__info-item">Desert, AZ</div>
  <span>25K followers</span> <span>1,204 employees</span>
</div>
<a class="org-top-card-primary-actions__website" href="https://acme.example">site</a>
<img class="org-top-card-primary-content__logo" src="https://cdn.example/acme.png">
<div class="org-page-details-module__specialities"><span>Rockets</span><span> Anvils </span><span> </span></div>
<div class="org-location-card"><p>Desert, Arizona</p></div>
<dd class="org-page-details__definition-text">Public Company</dd>
<dd class="org-page-details__founded">Founded 1949</dd>
</body></html>`

const postsHTML = `<html><body>
<div class="feed-shared-update-v2" data-urn="urn:li:activity:1">
  <div class="feed-shared-text">Launch day</div>
  <video src="https://cdn.example/v.mp4"></video>
  <span class="social-details-social-counts__reactions-count">1.5k</span>
  <span class="social-details-social-counts__comments">12 comments</span>
  <time datetime="2024-03-01T10:00:00Z">1mo</time>
  <div class="comments-comment-item">
    <span class="comments-post-meta__name-text">Wile E.</span>
    <div class="comments-comment-item__main-content">Beep?</div>
  </div>
</div>
<div class="feed-shared-update-v2">
  <div class="feed-shared-text">Plain update</div>
</div>
</body></html>`

const peopleHTML = `<html><body>
<div class="org-people-profile-card">
  <a href="https://www.linkedin.com/in/roadrunner/?trk=x"><img src="https://cdn.example/rr.png"></a>
  <div class="org-people-profile-card__profile-title">Road Runner</div>
  <div class="lt-line-clamp">Chief Speed Officer</div>
  <div class="org-people-profile-card__location">Desert</div>
</div>
<div class="org-people-profile-card">
  <div class="lt-line-clamp">No name here</div>
</div>
</body></html>`

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestExtractor_FullDocument(t *testing.T) {
	e := NewExtractorWithClock(zap.NewNop(), fixedClock)

	rec := e.Extract(&RawDocument{
		PageID: "acme",
		URL:    "https://example.test/acme",
		About:  Section{Body: []byte(aboutHTML), ContentType: "text/html; charset=utf-8"},
		Posts:  Section{Body: []byte(postsHTML)},
		People: Section{Body: []byte(peopleHTML)},
	}, "acme")

	require.Equal(t, ProvenanceScraped, rec.Provenance)
	require.Equal(t, "acme", rec.PageID)
	require.Equal(t, "Acme Corp", *rec.Name)
	require.Equal(t, "Rockets and anvils", *rec.Description)
	require.Equal(t, "https://www.linkedin.com/company/acme/", *rec.URL)
	require.Equal(t, "Manufacturing", *rec.Industry)
	require.Equal(t, "https://acme.example", *rec.Website)
	require.Equal(t, "https://cdn.example/acme.png", *rec.ProfilePicture)
	require.Equal(t, "Desert, Arizona", *rec.Headquarters)
	require.Equal(t, "Public Company", *rec.CompanyType)
	require.Equal(t, 1949, *rec.FoundedYear)
	require.Equal(t, int64(25_000), *rec.FollowerCount)
	require.Equal(t, int64(1_204), *rec.EmployeeCount)
	require.Equal(t, []string{"Rockets", "Anvils"}, rec.Specialities)

	require.Len(t, rec.Posts, 2)
	first := rec.Posts[0]
	require.Equal(t, "urn:li:activity:1", *first.ExternalID)
	require.Equal(t, "Launch day", *first.Content)
	require.Equal(t, "video", *first.MediaType)
	require.Equal(t, "https://cdn.example/v.mp4", *first.MediaURL)
	require.Equal(t, int64(1_500), *first.LikeCount)
	require.Equal(t, int64(12), *first.CommentCount)
	require.Nil(t, first.ShareCount)
	require.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), first.PostedAt.UTC())
	require.Len(t, first.Comments, 1)
	require.Equal(t, "Wile E.", *first.Comments[0].AuthorName)
	require.Equal(t, "Beep?", *first.Comments[0].Content)

	second := rec.Posts[1]
	require.Equal(t, "post_acme_1", *second.ExternalID)
	require.Equal(t, "text", *second.MediaType)
	require.Nil(t, second.PostedAt)
	require.Empty(t, second.Comments)

	require.Len(t, rec.Employees, 1)
	emp := rec.Employees[0]
	require.Equal(t, "Road Runner", emp.FullName)
	require.Equal(t, "Chief Speed Officer", *emp.Headline)
	require.Nil(t, emp.JobTitle)
	require.Equal(t, "roadrunner", *emp.Username)
	require.Equal(t, "https://cdn.example/rr.png", *emp.ProfilePicture)
	require.Equal(t, "Desert", *emp.Location)
}

func TestExtractor_MissingCountsStayUnknown(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	rec := e.Extract(&RawDocument{
		URL:   "https://example.test/quiet",
		About: Section{Body: []byte(`<html><body><h1>Quiet Co</h1></body></html>`)},
	}, "quiet")

	require.Equal(t, ProvenanceScraped, rec.Provenance)
	require.Equal(t, "Quiet Co", *rec.Name)
	require.Nil(t, rec.FollowerCount)
	require.Nil(t, rec.EmployeeCount)
	require.Nil(t, rec.FoundedYear)
	require.Empty(t, rec.Specialities)
	require.Empty(t, rec.Posts)
	require.Empty(t, rec.Employees)
	require.Equal(t, "https://example.test/quiet", *rec.URL)
}

func TestExtractor_MetaFallbacks(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	rec := e.Extract(&RawDocument{
		About: Section{Body: []byte(`<html><head>
<meta property="og:title" content="Meta Only | LinkedIn">
<meta name="description" content="From the head">
<meta property="og:image" content="https://cdn.example/og.png">
</head><body></body></html>`)},
	}, "meta-only")

	require.Equal(t, "Meta Only", *rec.Name)
	require.Equal(t, "From the head", *rec.Description)
	require.Equal(t, "https://cdn.example/og.png", *rec.ProfilePicture)
}

func TestExtractor_Latin1Body(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	body := append([]byte(`<html><body><h1>Caf`), 0xe9, '<', '/', 'h', '1', '>')
	rec := e.Extract(&RawDocument{
		About: Section{Body: body, ContentType: "text/html; charset=iso-8859-1"},
	}, "cafe")

	require.Equal(t, "Café", *rec.Name)
}

func TestExtractor_FallsBackToSynthetic(t *testing.T) {
	e := NewExtractorWithClock(zap.NewNop(), fixedClock)

	tests := []struct {
		name string
		raw  *RawDocument
	}{
		{name: "nil document", raw: nil},
		{name: "empty sections", raw: &RawDocument{}},
		{name: "unrelated markup", raw: &RawDocument{About: Section{Body: []byte(`<html><body><p>login wall</p></body></html>`)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(tt.raw, "deepsolv")
			require.Equal(t, ProvenanceSynthetic, rec.Provenance)
			require.Equal(t, "DeepSolv", *rec.Name)
			require.Len(t, rec.Posts, syntheticPosts)
			require.Len(t, rec.Employees, syntheticEmployees)
		})
	}
}

func TestMatchCount(t *testing.T) {
	tests := []struct {
		text     string
		expected *int64
	}{
		{text: "12,345 followers", expected: ptr(int64(12_345))},
		{text: "2.5m followers", expected: ptr(int64(2_500_000))},
		{text: "900 followers", expected: ptr(int64(900))},
		{text: "followers", expected: nil},
		{text: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			require.Equal(t, tt.expected, matchCount(followersRe, tt.text))
		})
	}
}

func TestUsernameFromProfile(t *testing.T) {
	require.Equal(t, "jane-doe", *usernameFromProfile("https://www.linkedin.com/in/jane-doe/"))
	require.Nil(t, usernameFromProfile("https://www.linkedin.com/company/acme"))
	require.Nil(t, usernameFromProfile("::bad"))
}

func ptr[T any](v T) *T {
	return &v
}

func TestExtractor_MediaDetection(t *testing.T) {
	const avatar = `<div class="update-components-actor"><img class="update-components-actor__avatar" src="https://cdn.example/me.png"></div>`

	tests := []struct {
		name     string
		body     string
		wantType string
		wantURL  *string
	}{
		{name: "avatar only is text", body: avatar + `<div class="feed-shared-text">hi</div>`, wantType: "text"},
		{name: "content image", body: avatar + `<div class="update-components-image"><img src="https://cdn.example/pic.jpg"></div>`, wantType: "image", wantURL: ptr("https://cdn.example/pic.jpg")},
		{name: "video wins", body: avatar + `<video><source src="https://cdn.example/v.mp4"></video>`, wantType: "video", wantURL: ptr("https://cdn.example/v.mp4")},
		{name: "article link", body: avatar + `<div class="update-components-article"><a href="https://blog.example/post">read</a></div>`, wantType: "article", wantURL: ptr("https://blog.example/post")},
	}

	e := NewExtractor(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(&RawDocument{
				About: Section{Body: []byte(`<h1>Acme</h1>`)},
				Posts: Section{Body: []byte(`<div class="feed-shared-update-v2">` + tt.body + `</div>`)},
			}, "acme")

			require.Len(t, rec.Posts, 1)
			require.Equal(t, tt.wantType, *rec.Posts[0].MediaType)
			require.Equal(t, tt.wantURL, rec.Posts[0].MediaURL)
		})
	}
}
