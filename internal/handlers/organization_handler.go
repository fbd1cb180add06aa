package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shaibs3/orginsights/internal/db_model"
	"github.com/shaibs3/orginsights/internal/query"
	"github.com/shaibs3/orginsights/internal/service"
	"go.uber.org/zap"
)

// OrganizationService is the part of the service layer the HTTP API needs
type OrganizationService interface {
	GetOrganization(ctx context.Context, pageID string, forceRefresh bool) (*service.Result, error)
	Scrape(ctx context.Context, pageID string) (*service.Result, error)
	ListOrganizations(ctx context.Context, filter query.OrganizationFilter, req query.PageRequest) (query.Page[db_model.Organization], error)
	ListPosts(ctx context.Context, pageID string, req query.PageRequest, withComments bool) (query.Page[db_model.Post], error)
	ListEmployees(ctx context.Context, pageID string, req query.PageRequest) (query.Page[db_model.Person], error)
	ListFollowers(ctx context.Context, pageID string, req query.PageRequest) (query.Page[db_model.Follower], error)
	DeleteOrganization(ctx context.Context, pageID string) error
}

// PageSizes bounds the page and per_page query parameters
type PageSizes struct {
	Default  int
	Max      int
	MaxPosts int
}

// OrganizationHandler serves the organization API
type OrganizationHandler struct {
	svc    OrganizationService
	sizes  PageSizes
	logger *zap.Logger
}

func NewOrganizationHandler(svc OrganizationService, sizes PageSizes) *OrganizationHandler {
	return &OrganizationHandler{svc: svc, sizes: sizes, logger: zap.NewNop()}
}

// RegisterRoutes registers the routes for this handler
func (h *OrganizationHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("organization_handler")

	router.HandleFunc("/organizations", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/organizations/{id}", h.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/organizations/{id}", h.handleDelete).Methods(http.MethodDelete)
	router.HandleFunc("/organizations/{id}/posts", h.handlePosts).Methods(http.MethodGet)
	router.HandleFunc("/organizations/{id}/employees", h.handleEmployees).Methods(http.MethodGet)
	router.HandleFunc("/organizations/{id}/followers", h.handleFollowers).Methods(http.MethodGet)
	router.HandleFunc("/organizations/{id}/scrape", h.handleScrape).Methods(http.MethodPost)
}

// organizationPayload renders an organization with the requested relations.
// Nil pointers are omitted; an empty list still renders as [].
type organizationPayload struct {
	*db_model.Organization
	Posts     *[]db_model.Post   `json:"posts,omitempty"`
	Employees *[]db_model.Person `json:"employees,omitempty"`
}

func newOrganizationPayload(view *db_model.OrganizationView, withPosts, withEmployees bool) organizationPayload {
	payload := organizationPayload{Organization: &view.Organization}
	if withPosts {
		payload.Posts = &view.Posts
	}
	if withEmployees {
		payload.Employees = &view.Employees
	}
	return payload
}

func (h *OrganizationHandler) handleList(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	filter := query.OrganizationFilter{
		Name:      q.Get("name"),
		Industry:  q.Get("industry"),
		Followers: query.ParseFollowerRange(q.Get("follower_range")),
	}

	page, err := h.svc.ListOrganizations(req.Context(), filter, h.pageRequest(req, h.sizes.Max))
	if err != nil {
		h.fail(w, err, "failed to list organizations")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, "Success", map[string]interface{}{
		"organizations": page.Items,
		"pagination":    page.Pagination,
	})
}

func (h *OrganizationHandler) handleGet(w http.ResponseWriter, req *http.Request) {
	pageID, ok := h.pageID(w, req)
	if !ok {
		return
	}
	q := req.URL.Query()

	res, err := h.svc.GetOrganization(req.Context(), pageID, boolParam(q.Get("force_refresh")))
	if err != nil {
		h.fail(w, err, fmt.Sprintf("Error fetching organization: %s", pageID))
		return
	}

	payload := newOrganizationPayload(res.View, boolParam(q.Get("include_posts")), boolParam(q.Get("include_employees")))
	writeJSON(w, h.logger, http.StatusOK, sourceMessage(res.Source), payload)
}

func (h *OrganizationHandler) handleScrape(w http.ResponseWriter, req *http.Request) {
	pageID, ok := h.pageID(w, req)
	if !ok {
		return
	}

	res, err := h.svc.Scrape(req.Context(), pageID)
	if err != nil {
		h.fail(w, err, "Scraping failed")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, "Organization scraped and saved successfully", newOrganizationPayload(res.View, true, true))
}

func (h *OrganizationHandler) handleDelete(w http.ResponseWriter, req *http.Request) {
	pageID, ok := h.pageID(w, req)
	if !ok {
		return
	}
	if err := h.svc.DeleteOrganization(req.Context(), pageID); err != nil {
		h.fail(w, err, "failed to delete organization")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, "Organization deleted", map[string]string{"page_id": pageID})
}

func (h *OrganizationHandler) handlePosts(w http.ResponseWriter, req *http.Request) {
	pageID, ok := h.pageID(w, req)
	if !ok {
		return
	}
	withComments := boolParam(req.URL.Query().Get("include_comments"))

	page, err := h.svc.ListPosts(req.Context(), pageID, h.pageRequest(req, h.sizes.MaxPosts), withComments)
	if err != nil {
		h.fail(w, err, "failed to list posts")
		return
	}
	var posts interface{} = page.Items
	if withComments {
		posts = withCommentLists(page.Items)
	}
	writeJSON(w, h.logger, http.StatusOK, "Success", map[string]interface{}{
		"page_id":    pageID,
		"posts":      posts,
		"pagination": page.Pagination,
	})
}

// postPayload always renders the comments key, [] when a post has none
type postPayload struct {
	db_model.Post
	Comments []db_model.Comment `json:"comments"`
}

func withCommentLists(posts []db_model.Post) []postPayload {
	out := make([]postPayload, len(posts))
	for i, p := range posts {
		out[i] = postPayload{Post: p, Comments: p.Comments}
		if out[i].Comments == nil {
			out[i].Comments = []db_model.Comment{}
		}
	}
	return out
}

func (h *OrganizationHandler) handleEmployees(w http.ResponseWriter, req *http.Request) {
	pageID, ok := h.pageID(w, req)
	if !ok {
		return
	}

	page, err := h.svc.ListEmployees(req.Context(), pageID, h.pageRequest(req, h.sizes.Max))
	if err != nil {
		h.fail(w, err, "failed to list employees")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, "Success", map[string]interface{}{
		"page_id":    pageID,
		"employees":  page.Items,
		"pagination": page.Pagination,
	})
}

func (h *OrganizationHandler) handleFollowers(w http.ResponseWriter, req *http.Request) {
	pageID, ok := h.pageID(w, req)
	if !ok {
		return
	}

	page, err := h.svc.ListFollowers(req.Context(), pageID, h.pageRequest(req, h.sizes.Max))
	if err != nil {
		h.fail(w, err, "failed to list followers")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, "Success", map[string]interface{}{
		"page_id":    pageID,
		"followers":  page.Items,
		"pagination": page.Pagination,
	})
}

// pageID extracts and validates the {id} path variable, answering 400 when
// it is malformed
func (h *OrganizationHandler) pageID(w http.ResponseWriter, req *http.Request) (string, bool) {
	id := mux.Vars(req)["id"]
	if !validPageID(id) {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid organization ID format")
		return "", false
	}
	return id, true
}

func (h *OrganizationHandler) pageRequest(req *http.Request, maxPerPage int) query.PageRequest {
	q := req.URL.Query()
	return query.NewPageRequest(
		intParam(q.Get("page"), 1),
		intParam(q.Get("per_page"), h.sizes.Default),
		maxPerPage,
	)
}

func (h *OrganizationHandler) fail(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Organization not found")
		return
	}
	h.logger.Error(message, zap.Error(err))
	writeError(w, h.logger, http.StatusInternalServerError, fmt.Sprintf("%s: %v", message, err))
}

func sourceMessage(source service.Source) string {
	switch source {
	case service.SourceCache:
		return "Retrieved from cache"
	case service.SourceDatabase:
		return "Retrieved from database"
	default:
		return "Scraped and saved successfully"
	}
}

func boolParam(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// intParam parses v, falling back to def when it is missing or not a number
func intParam(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}
