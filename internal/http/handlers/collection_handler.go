package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/writervault/backend/internal/http/handlers/common"
	"github.com/writervault/backend/internal/http/response"
	"github.com/writervault/backend/internal/models"
	"github.com/writervault/backend/internal/service"
)

// CollectionHandler обслуживает сборники статей.
type CollectionHandler struct {
	collections *service.CollectionService
}

// NewCollectionHandler создаёт хэндлер сборников.
func NewCollectionHandler(collections *service.CollectionService) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

type createCollectionRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	Type        string  `json:"type"`
	IsPublic    *bool   `json:"is_public"`
}

type updateCollectionRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
	Status      *string `json:"status"`
	IsPublic    *bool   `json:"is_public"`
	CoverImage  *string `json:"cover_image"`
}

type collectionArticleRequest struct {
	ArticleID int64 `json:"article_id" binding:"required"`
}

// List обрабатывает GET /collections.
func (h *CollectionHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	filter := models.CollectionFilter{Limit: limit, Offset: offset}

	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("type"); v != "" {
		filter.Type = &v
	}
	if v := c.Query("author_id"); v != "" {
		authorID, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "некорректный author_id")
			return
		}
		filter.AuthorID = &authorID
	}

	collections, total, err := h.collections.List(c.Request.Context(), filter, common.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, collections, total, filter.Limit, filter.Offset)
}

// Get обрабатывает GET /collections/:id.
func (h *CollectionHandler) Get(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	collection, err := h.collections.GetByID(c.Request.Context(), id, common.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, collection)
}

// GetBySlug обрабатывает GET /collections/slug/:slug.
func (h *CollectionHandler) GetBySlug(c *gin.Context) {
	collection, err := h.collections.GetBySlug(c.Request.Context(), c.Param("slug"), common.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, collection)
}

// Create обрабатывает POST /collections.
func (h *CollectionHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req createCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректное тело запроса")
		return
	}

	collection, err := h.collections.Create(c.Request.Context(), userID, service.CreateCollectionInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, collection)
}

// Update обрабатывает PATCH /collections/:id.
func (h *CollectionHandler) Update(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var req updateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректное тело запроса")
		return
	}

	collection, err := h.collections.Update(c.Request.Context(), id, common.Actor(c), service.UpdateCollectionInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
		IsPublic:    req.IsPublic,
		CoverImage:  req.CoverImage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, collection)
}

// Delete обрабатывает DELETE /collections/:id.
func (h *CollectionHandler) Delete(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.collections.Delete(c.Request.Context(), id, common.Actor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddArticle обрабатывает POST /collections/:id/articles.
func (h *CollectionHandler) AddArticle(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var req collectionArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректное тело запроса")
		return
	}

	if err := h.collections.AddArticle(c.Request.Context(), id, req.ArticleID, common.Actor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "статья добавлена в сборник"})
}

// RemoveArticle обрабатывает DELETE /collections/:id/articles/:articleId.
func (h *CollectionHandler) RemoveArticle(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	articleID, err := common.ParseInt64Param(c, "articleId")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.collections.RemoveArticle(c.Request.Context(), id, articleID, common.Actor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
