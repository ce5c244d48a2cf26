// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strconv"

	"github.com/CTpeJLok/ai-chat/internal/service"

	"github.com/gin-gonic/gin"
)

// OrganizationHandler 处理组织相关的 API 请求。
type OrganizationHandler struct {
	orgService  service.OrganizationService
	docService  service.DocumentService
	chatService service.ChatService
}

// NewOrganizationHandler 创建一个新的 OrganizationHandler。
func NewOrganizationHandler(orgService service.OrganizationService, docService service.DocumentService, chatService service.ChatService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService:  orgService,
		docService:  docService,
		chatService: chatService,
	}
}

type createOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create 创建一个组织。
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	org, err := h.orgService.Create(req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "创建组织失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": org})
}

// List 返回全部组织。
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.orgService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询组织失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": orgs})
}

// Get 返回单个组织。
func (h *OrganizationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	org, err := h.orgService.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "组织不存在", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": org})
}

// Delete 删除组织，其下的文档与聊天由存储层级联清理。
func (h *OrganizationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.orgService.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "删除组织失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": nil})
}

// ListDocuments 返回组织下的全部文档。
func (h *OrganizationHandler) ListDocuments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	docs, err := h.docService.ListByOrganization(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询文档失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": docs})
}

// ListChats 返回组织下的全部聊天。
func (h *OrganizationHandler) ListChats(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	chats, err := h.chatService.ListByOrganization(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询聊天失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": chats})
}

// parseID 解析路径中的数字 ID，失败时直接写出 400 响应。
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的 ID", "data": nil})
		return 0, false
	}
	return uint(id), true
}
