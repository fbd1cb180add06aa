package db_model

import (
	"time"

	"gorm.io/datatypes"
)

// Provenance markers stored on an organization after each reconciliation
const (
	SourceScraped   = "scraped"
	SourceSynthetic = "synthetic"
)

// Organization represents a company profile page
type Organization struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	PageID         string                      `gorm:"size:255;uniqueIndex;not null" json:"page_id"`
	Name           string                      `gorm:"size:255;not null" json:"name"`
	URL            *string                     `gorm:"size:500" json:"url"`
	ProfilePicture *string                     `gorm:"size:1000" json:"profile_picture"`
	Description    *string                     `gorm:"type:text" json:"description"`
	Website        *string                     `gorm:"size:500" json:"website"`
	Industry       *string                     `gorm:"size:255" json:"industry"`
	FollowerCount  int64                       `gorm:"not null;default:0;index" json:"follower_count"`
	EmployeeCount  int64                       `gorm:"not null;default:0" json:"employee_count"`
	Specialities   datatypes.JSONSlice[string] `json:"specialities"`
	Headquarters   *string                     `gorm:"size:500" json:"headquarters"`
	FoundedYear    *int                        `json:"founded_year"`
	CompanyType    *string                     `gorm:"size:100" json:"company_type"`
	Source         string                      `gorm:"size:20;not null" json:"source"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`

	Posts     []Post   `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
	Employees []Person `gorm:"foreignKey:CompanyID;constraint:OnDelete:SET NULL" json:"-"`
}

// Post is owned by exactly one organization and replaced wholesale on every
// reconciliation that carries posts
type Post struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OrganizationID uint       `gorm:"not null;index" json:"-"`
	ExternalID     *string    `gorm:"size:100" json:"external_id"`
	Content        *string    `gorm:"type:text" json:"content"`
	PostURL        *string    `gorm:"size:500" json:"post_url"`
	MediaURL       *string    `gorm:"size:1000" json:"media_url"`
	MediaType      *string    `gorm:"size:50" json:"media_type"`
	LikeCount      int64      `gorm:"not null;default:0" json:"like_count"`
	CommentCount   int64      `gorm:"not null;default:0" json:"comment_count"`
	ShareCount     int64      `gorm:"not null;default:0" json:"share_count"`
	PostedAt       *time.Time `gorm:"index" json:"posted_at"`
	CreatedAt      time.Time  `json:"created_at"`

	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

// Comment belongs to exactly one post
type Comment struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	PostID           uint       `gorm:"not null;index" json:"-"`
	AuthorName       *string    `gorm:"size:255" json:"author_name"`
	AuthorProfileURL *string    `gorm:"size:500" json:"author_profile_url"`
	Content          *string    `gorm:"type:text" json:"content"`
	LikeCount        int64      `gorm:"not null;default:0" json:"like_count"`
	CommentedAt      *time.Time `json:"commented_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Person is an employee and/or follower. People are matched by full name
// since scraped profiles carry no stable external id.
type Person struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FullName       string    `gorm:"size:255;not null;index" json:"full_name"`
	Username       *string   `gorm:"size:255" json:"username"`
	Headline       *string   `gorm:"size:500" json:"headline"`
	ProfileURL     *string   `gorm:"size:500" json:"profile_url"`
	ProfilePicture *string   `gorm:"size:1000" json:"profile_picture"`
	Location       *string   `gorm:"size:255" json:"location"`
	JobTitle       *string   `gorm:"size:255" json:"job_title"`
	CompanyID      *uint     `gorm:"index" json:"company_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Person) TableName() string {
	return "people"
}

// OrganizationFollower links a person to an organization they follow. The
// composite key makes the relation a set.
type OrganizationFollower struct {
	OrganizationID uint      `gorm:"primaryKey"`
	PersonID       uint      `gorm:"primaryKey;index"`
	FollowedAt     time.Time `gorm:"not null"`

	Organization Organization `gorm:"constraint:OnDelete:CASCADE"`
	Person       Person       `gorm:"constraint:OnDelete:CASCADE"`
}

// Follower is a person as seen through one organization's follower list
type Follower struct {
	Person
	FollowedAt time.Time `json:"followed_at"`
}

// OrganizationView is the fully materialized organization payload: the
// organization plus its newest posts and current employees
type OrganizationView struct {
	Organization
	Posts     []Post   `json:"posts"`
	Employees []Person `json:"employees"`
}

// Models lists every table for migration, parents first
func Models() []interface{} {
	return []interface{}{
		&Organization{},
		&Post{},
		&Comment{},
		&Person{},
		&OrganizationFollower{},
	}
}
