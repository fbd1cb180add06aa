package gormdb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shaibs3/orginsights/internal/db_model"
	"github.com/shaibs3/orginsights/internal/query"
	"github.com/shaibs3/orginsights/internal/storage/shared"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	viewPosts       = 15
	viewEmployees   = 20
	commentsPerPost = 10

	postOrder = "posted_at DESC NULLS LAST, id ASC"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (p *Provider) GetOrganization(ctx context.Context, pageID string) (*db_model.Organization, error) {
	var org db_model.Organization
	err := p.read(ctx, "get_organization", func(db *gorm.DB) error {
		return findOrganization(db, pageID, &org)
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetOrganizationView loads the organization with its newest posts and its
// current employees, both bounded
func (p *Provider) GetOrganizationView(ctx context.Context, pageID string) (*db_model.OrganizationView, error) {
	var view db_model.OrganizationView
	err := p.read(ctx, "get_organization_view", func(db *gorm.DB) error {
		if err := findOrganization(db, pageID, &view.Organization); err != nil {
			return err
		}
		view.Posts = []db_model.Post{}
		if err := db.Where("organization_id = ?", view.ID).
			Order(postOrder).
			Limit(viewPosts).
			Find(&view.Posts).Error; err != nil {
			return fmt.Errorf("failed to load posts: %w", err)
		}
		view.Employees = []db_model.Person{}
		if err := db.Where("company_id = ?", view.ID).
			Order("id").
			Limit(viewEmployees).
			Find(&view.Employees).Error; err != nil {
			return fmt.Errorf("failed to load employees: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (p *Provider) ListOrganizations(ctx context.Context, filter query.OrganizationFilter, req query.PageRequest) ([]db_model.Organization, int64, error) {
	orgs := []db_model.Organization{}
	var total int64

	filtered := func(db *gorm.DB) *gorm.DB {
		q := db.Model(&db_model.Organization{})
		if name := strings.TrimSpace(filter.Name); name != "" {
			q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(name))
		}
		if industry := strings.TrimSpace(filter.Industry); industry != "" {
			q = q.Where(`LOWER(industry) LIKE ? ESCAPE '\'`, containsPattern(industry))
		}
		if filter.Followers.Min != nil {
			q = q.Where("follower_count >= ?", *filter.Followers.Min)
		}
		if filter.Followers.Max != nil {
			q = q.Where("follower_count <= ?", *filter.Followers.Max)
		}
		return q
	}

	err := p.read(ctx, "list_organizations", func(db *gorm.DB) error {
		if err := filtered(db).Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count organizations: %w", err)
		}
		return filtered(db).
			Order("follower_count DESC, id ASC").
			Offset(req.Offset()).
			Limit(req.Limit()).
			Find(&orgs).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return orgs, total, nil
}

func (p *Provider) ListPosts(ctx context.Context, orgID uint, req query.PageRequest, withComments bool) ([]db_model.Post, int64, error) {
	posts := []db_model.Post{}
	var total int64

	err := p.read(ctx, "list_posts", func(db *gorm.DB) error {
		if err := db.Model(&db_model.Post{}).Where("organization_id = ?", orgID).Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count posts: %w", err)
		}
		if err := db.Where("organization_id = ?", orgID).
			Order(postOrder).
			Offset(req.Offset()).
			Limit(req.Limit()).
			Find(&posts).Error; err != nil {
			return fmt.Errorf("failed to load posts: %w", err)
		}
		if withComments {
			return attachComments(db, posts)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// attachComments loads up to commentsPerPost comments for each post. A
// Preload limit would apply to the whole batch, not per post.
func attachComments(db *gorm.DB, posts []db_model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	index := make(map[uint]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Comments = []db_model.Comment{}
	}

	var comments []db_model.Comment
	if err := db.Where("post_id IN ?", ids).Order("post_id, id").Find(&comments).Error; err != nil {
		return fmt.Errorf("failed to load comments: %w", err)
	}
	for _, c := range comments {
		i := index[c.PostID]
		if len(posts[i].Comments) < commentsPerPost {
			posts[i].Comments = append(posts[i].Comments, c)
		}
	}
	return nil
}

func (p *Provider) ListEmployees(ctx context.Context, orgID uint, req query.PageRequest) ([]db_model.Person, int64, error) {
	people := []db_model.Person{}
	var total int64

	err := p.read(ctx, "list_employees", func(db *gorm.DB) error {
		if err := db.Model(&db_model.Person{}).Where("company_id = ?", orgID).Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count employees: %w", err)
		}
		return db.Where("company_id = ?", orgID).
			Order("id").
			Offset(req.Offset()).
			Limit(req.Limit()).
			Find(&people).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return people, total, nil
}

func (p *Provider) ListFollowers(ctx context.Context, orgID uint, req query.PageRequest) ([]db_model.Follower, int64, error) {
	followers := []db_model.Follower{}
	var total int64

	err := p.read(ctx, "list_followers", func(db *gorm.DB) error {
		if err := db.Model(&db_model.OrganizationFollower{}).Where("organization_id = ?", orgID).Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count followers: %w", err)
		}
		return followerQuery(db, orgID).
			Order("organization_followers.followed_at, people.id").
			Offset(req.Offset()).
			Limit(req.Limit()).
			Scan(&followers).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return followers, total, nil
}

func (p *Provider) AddFollower(ctx context.Context, orgID uint, person db_model.Person) (*db_model.Follower, error) {
	name := strings.TrimSpace(person.FullName)
	if name == "" {
		return nil, fmt.Errorf("follower full name is required")
	}

	var follower db_model.Follower
	err := p.write(ctx, "add_follower", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var stored db_model.Person
			err := tx.Where("full_name = ?", name).Order("id").Take(&stored).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				stored = db_model.Person{
					FullName:       name,
					Username:       person.Username,
					Headline:       person.Headline,
					ProfileURL:     person.ProfileURL,
					ProfilePicture: person.ProfilePicture,
					Location:       person.Location,
					JobTitle:       person.JobTitle,
				}
				if err := tx.Create(&stored).Error; err != nil {
					return fmt.Errorf("failed to create person: %w", err)
				}
			case err != nil:
				return fmt.Errorf("failed to load person: %w", err)
			}

			link := db_model.OrganizationFollower{
				OrganizationID: orgID,
				PersonID:       stored.ID,
				FollowedAt:     p.now().UTC(),
			}
			if err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&link).Error; err != nil {
				return fmt.Errorf("failed to link follower: %w", err)
			}
			return followerQuery(tx, orgID).
				Where("people.id = ?", stored.ID).
				Take(&follower).Error
		})
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("follower linked",
		zap.Uint("organization_id", orgID),
		zap.String("full_name", name))
	return &follower, nil
}

// DeleteOrganization removes the organization with its posts, comments and
// follower links, and detaches its employees. The schema carries the same
// rules as foreign keys; the explicit statements keep backends without
// enforced constraints consistent.
func (p *Provider) DeleteOrganization(ctx context.Context, pageID string) error {
	err := p.write(ctx, "delete_organization", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var org db_model.Organization
			if err := findOrganization(tx, pageID, &org); err != nil {
				return err
			}
			owned := tx.Model(&db_model.Post{}).Select("id").Where("organization_id = ?", org.ID)
			if err := tx.Where("post_id IN (?)", owned).Delete(&db_model.Comment{}).Error; err != nil {
				return fmt.Errorf("failed to delete comments: %w", err)
			}
			if err := tx.Where("organization_id = ?", org.ID).Delete(&db_model.Post{}).Error; err != nil {
				return fmt.Errorf("failed to delete posts: %w", err)
			}
			if err := tx.Where("organization_id = ?", org.ID).Delete(&db_model.OrganizationFollower{}).Error; err != nil {
				return fmt.Errorf("failed to delete follower links: %w", err)
			}
			if err := tx.Model(&db_model.Person{}).Where("company_id = ?", org.ID).Update("company_id", nil).Error; err != nil {
				return fmt.Errorf("failed to detach employees: %w", err)
			}
			if err := tx.Delete(&org).Error; err != nil {
				return fmt.Errorf("failed to delete organization: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	p.logger.Info("organization deleted", zap.String("page_id", pageID))
	return nil
}

func findOrganization(db *gorm.DB, pageID string, org *db_model.Organization) error {
	err := db.Where("page_id = ?", pageID).Take(org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load organization: %w", err)
	}
	return nil
}

func followerQuery(db *gorm.DB, orgID uint) *gorm.DB {
	return db.Table("people").
		Select("people.*, organization_followers.followed_at").
		Joins("JOIN organization_followers ON organization_followers.person_id = people.id").
		Where("organization_followers.organization_id = ?", orgID)
}

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
