package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-clubs-api/internal/dto"
	"github.com/noah-isme/student-clubs-api/internal/models"
	appErrors "github.com/noah-isme/student-clubs-api/pkg/errors"
	"github.com/noah-isme/student-clubs-api/pkg/response"
)

type clubService interface {
	List(ctx context.Context, filter models.ClubFilter) ([]models.ClubSummary, *models.Pagination, error)
	Get(ctx context.Context, id, viewerID string) (*models.ClubSummary, error)
	Create(ctx context.Context, req dto.CreateClubRequest, actor *models.JWTClaims) (*models.Club, error)
	ToggleMembership(ctx context.Context, clubID string, actor *models.JWTClaims) (*models.ToggleResult, error)
	ListPosts(ctx context.Context, clubID string, limit int) ([]models.ClubPost, error)
	CreatePost(ctx context.Context, clubID string, req dto.CreatePostRequest, actor *models.JWTClaims) (*models.ClubPost, error)
	DeletePost(ctx context.Context, postID string) error
}

// ClubHandler exposes club, membership and post endpoints.
type ClubHandler struct {
	service clubService
}

// NewClubHandler constructs the handler.
func NewClubHandler(service clubService) *ClubHandler {
	return &ClubHandler{service: service}
}

// List godoc
// @Summary List clubs
// @Tags Clubs
// @Produce json
// @Param search query string false "Name search"
// @Param mine query bool false "Only clubs the caller belongs to"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /clubs [get]
func (h *ClubHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	filter := models.ClubFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		ViewerID: claims.UserID,
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if c.Query("mine") == "true" {
		filter.MemberID = claims.UserID
	}
	clubs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, clubs, pagination)
}

// Get godoc
// @Summary Get club
// @Tags Clubs
// @Produce json
// @Param id path string true "Club ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clubs/{id} [get]
func (h *ClubHandler) Get(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "club")
	if !ok {
		return
	}
	club, err := h.service.Get(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, club, nil)
}

// Create godoc
// @Summary Create club
// @Tags Clubs
// @Accept json
// @Produce json
// @Param payload body dto.CreateClubRequest true "Club payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /clubs [post]
func (h *ClubHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid club payload"))
		return
	}
	club, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, club)
}

// ToggleMembership godoc
// @Summary Join or leave a club
// @Description Students only. Calling twice restores the original state.
// @Tags Clubs
// @Produce json
// @Param id path string true "Club ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /clubs/{id}/membership [post]
func (h *ClubHandler) ToggleMembership(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "club")
	if !ok {
		return
	}
	result, err := h.service.ToggleMembership(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListPosts godoc
// @Summary List club posts
// @Tags Clubs
// @Produce json
// @Param id path string true "Club ID"
// @Param limit query int false "Maximum posts"
// @Success 200 {object} response.Envelope
// @Router /clubs/{id}/posts [get]
func (h *ClubHandler) ListPosts(c *gin.Context) {
	id, ok := pathID(c, "id", "club")
	if !ok {
		return
	}
	posts, err := h.service.ListPosts(c.Request.Context(), id, queryInt(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, nil)
}

// CreatePost godoc
// @Summary Post to a club
// @Description Only members of the club may post.
// @Tags Clubs
// @Accept json
// @Produce json
// @Param id path string true "Club ID"
// @Param payload body dto.CreatePostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /clubs/{id}/posts [post]
func (h *ClubHandler) CreatePost(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "club")
	if !ok {
		return
	}
	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}
	post, err := h.service.CreatePost(c.Request.Context(), id, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// DeletePost godoc
// @Summary Delete a club post
// @Tags Clubs
// @Param id path string true "Post ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /posts/{id} [delete]
func (h *ClubHandler) DeletePost(c *gin.Context) {
	id, ok := pathID(c, "id", "post")
	if !ok {
		return
	}
	if err := h.service.DeletePost(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
