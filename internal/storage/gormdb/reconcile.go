package gormdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shaibs3/orginsights/internal/db_model"
	"github.com/shaibs3/orginsights/internal/scraper"
	"github.com/shaibs3/orginsights/internal/storage/shared"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Reconcile upserts the organization, replaces its posts and relinks its
// employees in one transaction. Absent fields and empty lists leave stored
// data untouched. Any failure rolls back the whole unit.
func (p *Provider) Reconcile(ctx context.Context, rec scraper.ScrapedOrganization) (uint, error) {
	var orgID uint
	err := p.write(ctx, "reconcile", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			now := p.now().UTC()

			org, err := upsertOrganization(tx, rec, now)
			if err != nil {
				return err
			}
			orgID = org.ID

			if len(rec.Posts) > 0 {
				if err := replacePosts(tx, org.ID, rec.Posts); err != nil {
					return err
				}
			}
			if len(rec.Employees) > 0 {
				if err := relinkEmployees(tx, org.ID, rec.Employees); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		p.logger.Error("reconciliation rolled back", zap.String("page_id", rec.PageID), zap.Error(err))
		return 0, fmt.Errorf("%w: page %s: %w", shared.ErrReconcile, rec.PageID, err)
	}

	p.logger.Info("organization reconciled",
		zap.String("page_id", rec.PageID),
		zap.Uint("organization_id", orgID),
		zap.String("source", string(rec.Provenance)),
		zap.Int("posts", len(rec.Posts)),
		zap.Int("employees", len(rec.Employees)),
	)
	return orgID, nil
}

func upsertOrganization(tx *gorm.DB, rec scraper.ScrapedOrganization, now time.Time) (*db_model.Organization, error) {
	var org db_model.Organization
	err := tx.Where("page_id = ?", rec.PageID).Take(&org).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		org = newOrganization(rec, now)
		if err := tx.Create(&org).Error; err != nil {
			return nil, fmt.Errorf("failed to create organization: %w", err)
		}
		return &org, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	if err := tx.Model(&org).Updates(organizationChanges(rec, now)).Error; err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return &org, nil
}

func newOrganization(rec scraper.ScrapedOrganization, now time.Time) db_model.Organization {
	org := db_model.Organization{
		PageID:         rec.PageID,
		Name:           rec.PageID,
		URL:            rec.URL,
		ProfilePicture: rec.ProfilePicture,
		Description:    rec.Description,
		Website:        rec.Website,
		Industry:       rec.Industry,
		Specialities:   datatypes.JSONSlice[string]{},
		Headquarters:   rec.Headquarters,
		FoundedYear:    rec.FoundedYear,
		CompanyType:    rec.CompanyType,
		Source:         sourceOf(rec.Provenance),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if rec.Name != nil {
		org.Name = *rec.Name
	}
	if rec.FollowerCount != nil {
		org.FollowerCount = *rec.FollowerCount
	}
	if rec.EmployeeCount != nil {
		org.EmployeeCount = *rec.EmployeeCount
	}
	if len(rec.Specialities) > 0 {
		org.Specialities = rec.Specialities
	}
	return org
}

// organizationChanges lists only the fields the scrape actually produced
func organizationChanges(rec scraper.ScrapedOrganization, now time.Time) map[string]interface{} {
	changes := map[string]interface{}{
		"updated_at": now,
		"source":     sourceOf(rec.Provenance),
	}
	setPresent(changes, "name", rec.Name)
	setPresent(changes, "url", rec.URL)
	setPresent(changes, "profile_picture", rec.ProfilePicture)
	setPresent(changes, "description", rec.Description)
	setPresent(changes, "website", rec.Website)
	setPresent(changes, "industry", rec.Industry)
	setPresent(changes, "headquarters", rec.Headquarters)
	setPresent(changes, "company_type", rec.CompanyType)

	if rec.FollowerCount != nil {
		changes["follower_count"] = *rec.FollowerCount
	}
	if rec.EmployeeCount != nil {
		changes["employee_count"] = *rec.EmployeeCount
	}
	if rec.FoundedYear != nil {
		changes["founded_year"] = *rec.FoundedYear
	}
	if len(rec.Specialities) > 0 {
		changes["specialities"] = datatypes.JSONSlice[string](rec.Specialities)
	}
	return changes
}

func replacePosts(tx *gorm.DB, orgID uint, scraped []scraper.ScrapedPost) error {
	owned := tx.Model(&db_model.Post{}).Select("id").Where("organization_id = ?", orgID)
	if err := tx.Where("post_id IN (?)", owned).Delete(&db_model.Comment{}).Error; err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	if err := tx.Where("organization_id = ?", orgID).Delete(&db_model.Post{}).Error; err != nil {
		return fmt.Errorf("failed to delete posts: %w", err)
	}

	posts := make([]db_model.Post, 0, len(scraped))
	for _, sp := range scraped {
		post := db_model.Post{
			OrganizationID: orgID,
			ExternalID:     sp.ExternalID,
			Content:        sp.Content,
			PostURL:        sp.URL,
			MediaURL:       sp.MediaURL,
			MediaType:      sp.MediaType,
			LikeCount:      valueOrZero(sp.LikeCount),
			CommentCount:   valueOrZero(sp.CommentCount),
			ShareCount:     valueOrZero(sp.ShareCount),
			PostedAt:       sp.PostedAt,
		}
		for _, sc := range sp.Comments {
			post.Comments = append(post.Comments, db_model.Comment{
				AuthorName:       sc.AuthorName,
				AuthorProfileURL: sc.AuthorProfileURL,
				Content:          sc.Content,
				LikeCount:        valueOrZero(sc.LikeCount),
				CommentedAt:      sc.CommentedAt,
			})
		}
		posts = append(posts, post)
	}
	if err := tx.Create(&posts).Error; err != nil {
		return fmt.Errorf("failed to insert posts: %w", err)
	}
	return nil
}

// relinkEmployees detaches every current employee, then matches each scraped
// employee by exact full name. Later duplicates in one batch overwrite
// earlier ones.
func relinkEmployees(tx *gorm.DB, orgID uint, scraped []scraper.ScrapedEmployee) error {
	if err := tx.Model(&db_model.Person{}).
		Where("company_id = ?", orgID).
		Update("company_id", nil).Error; err != nil {
		return fmt.Errorf("failed to detach employees: %w", err)
	}

	for _, se := range scraped {
		name := strings.TrimSpace(se.FullName)
		if name == "" {
			continue
		}
		jobTitle := se.JobTitle
		if jobTitle == nil {
			jobTitle = se.Headline
		}

		var person db_model.Person
		err := tx.Where("full_name = ?", name).Order("id").Take(&person).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			person = db_model.Person{
				FullName:       name,
				Username:       se.Username,
				Headline:       se.Headline,
				ProfileURL:     se.ProfileURL,
				ProfilePicture: se.ProfilePicture,
				Location:       se.Location,
				JobTitle:       jobTitle,
				CompanyID:      &orgID,
			}
			if err := tx.Create(&person).Error; err != nil {
				return fmt.Errorf("failed to create employee %q: %w", name, err)
			}
			continue
		case err != nil:
			return fmt.Errorf("failed to load employee %q: %w", name, err)
		}

		changes := map[string]interface{}{"company_id": orgID}
		setPresent(changes, "username", se.Username)
		setPresent(changes, "headline", se.Headline)
		setPresent(changes, "profile_url", se.ProfileURL)
		setPresent(changes, "profile_picture", se.ProfilePicture)
		setPresent(changes, "location", se.Location)
		setPresent(changes, "job_title", jobTitle)
		if err := tx.Model(&person).Updates(changes).Error; err != nil {
			return fmt.Errorf("failed to update employee %q: %w", name, err)
		}
	}
	return nil
}

func setPresent(changes map[string]interface{}, column string, v *string) {
	if v != nil {
		changes[column] = *v
	}
}

func sourceOf(p scraper.Provenance) string {
	if p == scraper.ProvenanceSynthetic {
		return db_model.SourceSynthetic
	}
	return db_model.SourceScraped
}

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
