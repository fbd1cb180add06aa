package scraper

import (
	"strings"
	"time"
)

// Provenance tells whether a record came from a real document or from the
// synthetic fallback
type Provenance string

const (
	ProvenanceScraped   Provenance = "scraped"
	ProvenanceSynthetic Provenance = "synthetic"
)

// Section is one rendered page of an organization profile
type Section struct {
	Body        []byte
	ContentType string
}

func (s Section) Empty() bool {
	return len(s.Body) == 0
}

// RawDocument is what a Fetcher produces for one organization. Any section
// may be empty when it could not be loaded.
type RawDocument struct {
	PageID    string
	URL       string
	About     Section
	Posts     Section
	People    Section
	FetchedAt time.Time
}

// ScrapedOrganization is the canonical record handed to the reconciler. Nil
// fields and empty lists mean "unknown": they never overwrite stored data.
type ScrapedOrganization struct {
	PageID     string
	Provenance Provenance

	Name           *string
	URL            *string
	ProfilePicture *string
	Description    *string
	Website        *string
	Industry       *string
	FollowerCount  *int64
	EmployeeCount  *int64
	Specialities   []string
	Headquarters   *string
	FoundedYear    *int
	CompanyType    *string

	Posts     []ScrapedPost
	Employees []ScrapedEmployee
}

type ScrapedPost struct {
	ExternalID   *string
	Content      *string
	URL          *string
	MediaURL     *string
	MediaType    *string
	LikeCount    *int64
	CommentCount *int64
	ShareCount   *int64
	PostedAt     *time.Time
	Comments     []ScrapedComment
}

type ScrapedComment struct {
	AuthorName       *string
	AuthorProfileURL *string
	Content          *string
	LikeCount        *int64
	CommentedAt      *time.Time
}

// ScrapedEmployee is matched against stored people by FullName
type ScrapedEmployee struct {
	FullName       string
	Username       *string
	Headline       *string
	JobTitle       *string
	ProfileURL     *string
	ProfilePicture *string
	Location       *string
}

// optional returns nil for blank strings
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
