package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/writervault/backend/internal/http/handlers/common"
	"github.com/writervault/backend/internal/http/response"
	"github.com/writervault/backend/internal/service"
)

// CategoryHandler обслуживает дерево рубрик.
// Чтение открыто всем, изменения доступны только администратору.
type CategoryHandler struct {
	categories *service.CategoryService
}

// NewCategoryHandler создаёт хэндлер рубрик.
func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type createCategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parent_id"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	OrderIndex  *int    `json:"order_index"`
	IsActive    *bool   `json:"is_active"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *int64  `json:"parent_id"`
	MoveToRoot  bool    `json:"move_to_root"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
	OrderIndex  *int    `json:"order_index"`
	IsActive    *bool   `json:"is_active"`
}

type bulkSetActiveRequest struct {
	IDs      []int64 `json:"ids" binding:"required"`
	IsActive *bool   `json:"is_active" binding:"required"`
}

// List обрабатывает GET /categories.
func (h *CategoryHandler) List(c *gin.Context) {
	onlyActive := c.Query("include_inactive") != "true"
	categories, err := h.categories.List(c.Request.Context(), onlyActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, categories)
}

// Tree обрабатывает GET /categories/tree.
func (h *CategoryHandler) Tree(c *gin.Context) {
	onlyActive := c.Query("include_inactive") != "true"
	tree, err := h.categories.GetTree(c.Request.Context(), onlyActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tree)
}

// Get обрабатывает GET /categories/:id.
func (h *CategoryHandler) Get(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	category, err := h.categories.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, category)
}

// GetBySlug обрабатывает GET /categories/slug/:slug.
func (h *CategoryHandler) GetBySlug(c *gin.Context) {
	category, err := h.categories.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, category)
}

// Path обрабатывает GET /categories/:id/path.
func (h *CategoryHandler) Path(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	path, err := h.categories.GetPath(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"path": path})
}

// Create обрабатывает POST /admin/categories.
func (h *CategoryHandler) Create(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректное тело запроса")
		return
	}

	category, err := h.categories.Create(c.Request.Context(), service.CreateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		Color:       req.Color,
		Icon:        req.Icon,
		OrderIndex:  req.OrderIndex,
		IsActive:    req.IsActive,
	}, common.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update обрабатывает PATCH /admin/categories/:id.
func (h *CategoryHandler) Update(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var req updateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректное тело запроса")
		return
	}

	category, err := h.categories.Update(c.Request.Context(), id, service.UpdateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		MoveToRoot:  req.MoveToRoot,
		Color:       req.Color,
		Icon:        req.Icon,
		OrderIndex:  req.OrderIndex,
		IsActive:    req.IsActive,
	}, common.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, category)
}

type moveCategoryRequest struct {
	ParentID *int64 `json:"parent_id"`
}

// Move обрабатывает POST /admin/categories/:id/move.
// parent_id = null переносит рубрику в корень.
func (h *CategoryHandler) Move(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var req moveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректное тело запроса")
		return
	}

	category, err := h.categories.Move(c.Request.Context(), id, req.ParentID, common.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, category)
}

// Delete обрабатывает DELETE /admin/categories/:id.
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.categories.Delete(c.Request.Context(), id, common.Actor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkSetActive обрабатывает POST /admin/categories/bulk-active.
func (h *CategoryHandler) BulkSetActive(c *gin.Context) {
	var req bulkSetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		response.BadRequest(c, "некорректное тело запроса")
		return
	}

	affected, err := h.categories.BulkSetActive(c.Request.Context(), req.IDs, *req.IsActive, common.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"affected": affected})
}

// Stats обрабатывает GET /admin/categories/stats.
func (h *CategoryHandler) Stats(c *gin.Context) {
	stats, err := h.categories.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
