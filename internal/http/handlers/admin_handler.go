package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/writervault/backend/internal/http/handlers/common"
	"github.com/writervault/backend/internal/http/response"
	"github.com/writervault/backend/internal/service"
)

// AdminHandler обслуживает административные операции над пользователями.
type AdminHandler struct {
	users *service.UserService
}

// NewAdminHandler создаёт административный хэндлер.
func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ListUsers обрабатывает GET /admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	users, total, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, users, total, limit, offset)
}

// GetUser обрабатывает GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// SetUserActive обрабатывает POST /admin/users/:id/active.
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		response.BadRequest(c, "некорректное тело запроса")
		return
	}

	if err := h.users.SetActive(c.Request.Context(), userID, *req.IsActive); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "статус пользователя обновлён"})
}

// Stats обрабатывает GET /admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.users.ContentStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// SetUserRole обрабатывает POST /admin/users/:id/role.
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректное тело запроса")
		return
	}

	user, err := h.users.SetRole(c.Request.Context(), userID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}
