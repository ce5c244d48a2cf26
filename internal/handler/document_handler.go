package handler

import (
	"fmt"
	"net/http"

	"github.com/CTpeJLok/ai-chat/internal/model"
	"github.com/CTpeJLok/ai-chat/internal/service"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 处理文档相关的 API 请求。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

type createDocumentRequest struct {
	OrganizationID uint   `json:"organizationId" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Mime           string `json:"mime" binding:"required"`
	B64            string `json:"b64" binding:"required"`
}

// Create 创建一个文档并触发入库。
// 入库失败不影响本接口的返回，调用方通过 isEmbeddingsComplete 观察进度。
func (h *DocumentHandler) Create(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	doc := &model.Document{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Mime:           req.Mime,
		B64:            req.B64,
	}
	if err := h.docService.Create(c.Request.Context(), doc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "创建文档失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": doc})
}

// Get 返回单个文档的元数据。
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	doc, err := h.docService.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "文档不存在", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": doc})
}

// Download 以原始 MIME 类型返回文档的原始字节。
func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	doc, raw, err := h.docService.Download(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "文档不存在或内容不可用", "data": nil})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	c.Data(http.StatusOK, doc.Mime, raw)
}

// Delete 删除文档并级联清理向量与原始字节。
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.docService.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "删除文档失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": nil})
}
