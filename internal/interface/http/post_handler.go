package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/inkwell/internal/application"
	"github.com/oksasatya/inkwell/internal/domain/entity"
	"github.com/oksasatya/inkwell/internal/domain/repository"
	"github.com/oksasatya/inkwell/internal/interface/middleware"
	"github.com/oksasatya/inkwell/pkg/helpers"
	"github.com/oksasatya/inkwell/pkg/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type PostHandler struct {
	Svc    *application.PostService
	Logger *logrus.Logger
}

func NewPostHandler(svc *application.PostService, logger *logrus.Logger) *PostHandler {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &PostHandler{Svc: svc, Logger: logger}
}

// postRequest has no owner field: the owner always comes from the resolved identity.
type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type pageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,gte=0"`
	Offset int `form:"offset" binding:"omitempty,gte=0"`
}

func (q pageQuery) normalize() pageQuery {
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	return q
}

type postView struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	OwnerID    int64     `json:"owner_id"`
	OwnerEmail string    `json:"owner_email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Editable   bool      `json:"editable"`
}

func toView(p *entity.Post, viewerID int64) postView {
	return postView{
		ID:         p.ID,
		Title:      p.Title,
		Content:    p.Content,
		OwnerID:    p.OwnerID,
		OwnerEmail: p.OwnerEmail,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		Editable:   p.OwnedBy(viewerID),
	}
}

func toViews(posts []*entity.Post, viewerID int64) []postView {
	out := make([]postView, 0, len(posts))
	for _, p := range posts {
		out = append(out, toView(p, viewerID))
	}
	return out
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badInput(c, map[string]string{"id": "must be a positive integer"})
		return 0, false
	}
	return id, true
}

// List GET /api/posts?owner=&limit=&offset=
func (h *PostHandler) List(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badPayload(c, err)
		return
	}
	var owner int64
	if raw := c.Query("owner"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badInput(c, map[string]string{"owner": "must be a numeric user id"})
			return
		}
		owner = id
	}
	h.list(c, owner, q.normalize())
}

// MyPosts GET /api/me/posts
func (h *PostHandler) MyPosts(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badPayload(c, err)
		return
	}
	h.list(c, middleware.CurrentUserID(c), q.normalize())
}

func (h *PostHandler) list(c *gin.Context, owner int64, q pageQuery) {
	posts, err := h.Svc.List(c.Request.Context(), repository.PostFilter{OwnerID: owner, Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	meta := response.NewPageMeta(q.Limit, q.Offset, len(posts))
	meta.Owner = owner
	response.Success(c, http.StatusOK, toViews(posts, middleware.CurrentUserID(c)), "posts", meta)
}

// Search GET /api/posts/search?q=&limit=
func (h *PostHandler) Search(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badPayload(c, err)
		return
	}
	posts, err := h.Svc.SearchPosts(c.Request.Context(), c.Query("q"), q.Limit)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toViews(posts, middleware.CurrentUserID(c)), "search results", gin.H{"count": len(posts)})
}

// Get GET /api/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toView(p, middleware.CurrentUserID(c)), "post", nil)
}

// Create POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	owner, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.Logger, application.ErrUnauthenticated)
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	p, err := h.Svc.Create(c.Request.Context(), owner, req.Title, req.Content)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toView(p, owner.ID), "post created", nil)
}

// Update PUT /api/posts/:id
func (h *PostHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	uid := middleware.CurrentUserID(c)
	// a non-owner learns nothing from how the body is rejected
	if err := h.Svc.Authorize(c.Request.Context(), id, uid); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	p, err := h.Svc.Update(c.Request.Context(), id, uid, req.Title, req.Content)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toView(p, uid), "post updated", nil)
}

// Delete DELETE /api/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id, middleware.CurrentUserID(c)); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, "post deleted", nil)
}
