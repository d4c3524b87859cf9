package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/writervault/backend/internal/http/handlers/common"
	"github.com/writervault/backend/internal/http/response"
	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/service"
)

// ArticleHandler обслуживает CRUD и публикацию статей.
type ArticleHandler struct {
	articles *service.ArticleService
}

// NewArticleHandler создаёт хэндлер статей.
func NewArticleHandler(articles *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{articles: articles}
}

type createArticleRequest struct {
	Title         string   `json:"title" binding:"required"`
	Summary       *string  `json:"summary"`
	Content       string   `json:"content" binding:"required"`
	CategoryID    *int64   `json:"category_id"`
	Tags          []string `json:"tags"`
	IsFeatured    bool     `json:"is_featured"`
	AllowComments *bool    `json:"allow_comments"`
}

type updateArticleRequest struct {
	Title         *string   `json:"title"`
	Summary       *string   `json:"summary"`
	Content       *string   `json:"content"`
	CategoryID    *int64    `json:"category_id"`
	Tags          *[]string `json:"tags"`
	IsFeatured    *bool     `json:"is_featured"`
	AllowComments *bool     `json:"allow_comments"`
	CoverImage    *string   `json:"cover_image"`
}

// List обрабатывает GET /articles.
func (h *ArticleHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	filter := models.ArticleFilter{
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	}

	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := int64(common.ParseIntQuery(c, "category_id", 0)); v > 0 {
		filter.CategoryID = &v
	}
	if v := int64(common.ParseIntQuery(c, "collection_id", 0)); v > 0 {
		filter.CollectionID = &v
	}
	if v := c.Query("author_id"); v != "" {
		authorID, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "некорректный author_id")
			return
		}
		filter.AuthorID = &authorID
	}
	if v := c.Query("featured"); v != "" {
		featured := v == "true"
		filter.IsFeatured = &featured
	}

	articles, total, err := h.articles.List(c.Request.Context(), filter, common.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, articles, total, filter.Limit, filter.Offset)
}

// Get обрабатывает GET /articles/:id.
func (h *ArticleHandler) Get(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	article, err := h.articles.GetByID(c.Request.Context(), id, common.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, article)
}

// GetBySlug обрабатывает GET /articles/slug/:slug.
func (h *ArticleHandler) GetBySlug(c *gin.Context) {
	article, err := h.articles.GetBySlug(c.Request.Context(), c.Param("slug"), common.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, article)
}

// Create обрабатывает POST /articles.
func (h *ArticleHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректное тело запроса")
		return
	}

	article, err := h.articles.Create(c.Request.Context(), userID, service.CreateArticleInput{
		Title:         req.Title,
		Summary:       req.Summary,
		Content:       req.Content,
		CategoryID:    req.CategoryID,
		Tags:          req.Tags,
		IsFeatured:    req.IsFeatured,
		AllowComments: req.AllowComments,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, article)
}

// Update обрабатывает PATCH /articles/:id.
func (h *ArticleHandler) Update(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var req updateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректное тело запроса")
		return
	}

	in := service.UpdateArticleInput{
		Title:         req.Title,
		Summary:       req.Summary,
		Content:       req.Content,
		CategoryID:    req.CategoryID,
		IsFeatured:    req.IsFeatured,
		AllowComments: req.AllowComments,
		CoverImage:    req.CoverImage,
	}
	if req.Tags != nil {
		in.Tags = *req.Tags
		in.TagsSet = true
	}

	article, err := h.articles.Update(c.Request.Context(), id, common.Actor(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, article)
}

// Delete обрабатывает DELETE /articles/:id.
func (h *ArticleHandler) Delete(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.articles.Delete(c.Request.Context(), id, common.Actor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Publish обрабатывает POST /articles/:id/publish.
func (h *ArticleHandler) Publish(c *gin.Context) {
	h.setStatus(c, h.articles.Publish)
}

// Unpublish обрабатывает POST /articles/:id/unpublish.
func (h *ArticleHandler) Unpublish(c *gin.Context) {
	h.setStatus(c, h.articles.Unpublish)
}

// Archive обрабатывает POST /articles/:id/archive.
func (h *ArticleHandler) Archive(c *gin.Context) {
	h.setStatus(c, h.articles.Archive)
}

func (h *ArticleHandler) setStatus(c *gin.Context, op func(ctx context.Context, id int64, actor *models.User) (*models.Article, error)) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	article, err := op(c.Request.Context(), id, common.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, article)
}

// ListTags обрабатывает GET /tags.
func (h *ArticleHandler) ListTags(c *gin.Context) {
	limit := common.ParseIntQuery(c, "limit", 50)
	tags, err := h.articles.ListTags(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tags)
}
