package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/CTpeJLok/ai-chat/internal/service"
	"github.com/CTpeJLok/ai-chat/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// ChatHandler 处理聊天相关的 API 请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type createChatRequest struct {
	OrganizationID uint `json:"organizationId" binding:"required"`
}

// Create 在指定组织下创建一个聊天。
func (h *ChatHandler) Create(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	chat, err := h.chatService.CreateChat(req.OrganizationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "创建聊天失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": chat})
}

// Get 返回单个聊天的元数据。
func (h *ChatHandler) Get(c *gin.Context) {
	chat, err := h.chatService.FindChat(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "聊天不存在", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": chat})
}

// Messages 按时间顺序返回聊天的全部历史消息。
func (h *ChatHandler) Messages(c *gin.Context) {
	msgs, err := h.chatService.History(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询历史消息失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": msgs})
}

type postMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// Message 处理一轮用户消息，以 SSE 流式返回回答。
// 每个增量是一条 data: {"text":"..."} 事件，流正常完成后以 data: [DONE] 收尾。
// 流开始前失败返回 JSON 错误；流开始后失败直接断开，不再发送结束标记。
func (h *ChatHandler) Message(c *gin.Context) {
	chatID := c.Param("id")
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求参数", "data": nil})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	writer := &sseChunkWriter{w: c.Writer}
	if err := h.chatService.StreamAnswer(c.Request.Context(), chatID, req.Text, writer); err != nil {
		if !writer.started {
			// 头部尚未提交，还能返回结构化错误
			c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "回答生成失败", "data": nil})
			return
		}
		log.Errorf("[ChatHandler] 流式回答中断, chatID: %s, error: %v", chatID, err)
		return
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}

// sseChunkWriter 把每个增量编码为一条 SSE 事件并立即刷出。
type sseChunkWriter struct {
	w       gin.ResponseWriter
	started bool
}

func (s *sseChunkWriter) WriteChunk(text string) error {
	payload, err := json.Marshal(gin.H{"text": text})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.w.Flush()
	s.started = true
	return nil
}

// HandleWebSocket 是聊天的 WebSocket 传输：每收到一条文本帧就走一轮问答，
// 增量以 {"chunk":"..."} 帧下发，完成后发送一条 completion 帧。
func (h *ChatHandler) HandleWebSocket(c *gin.Context) {
	chatID := c.Param("id")
	if _, err := h.chatService.FindChat(chatID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "聊天不存在", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("[ChatHandler] WebSocket 升级失败: %v", err)
		return
	}
	defer conn.Close()
	log.Infof("[ChatHandler] WebSocket 连接建立, chatID: %s", chatID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Infof("[ChatHandler] WebSocket 连接关闭, chatID: %s, error: %v", chatID, err)
			break
		}

		writer := &wsChunkWriter{conn: conn}
		if err := h.chatService.StreamAnswer(c.Request.Context(), chatID, string(message), writer); err != nil {
			log.Errorf("[ChatHandler] WebSocket 回答失败, chatID: %s, error: %v", chatID, err)
			errMsg, _ := json.Marshal(gin.H{"type": "error", "message": "回答生成失败"})
			if writeErr := conn.WriteMessage(websocket.TextMessage, errMsg); writeErr != nil {
				break
			}
			continue
		}

		doneMsg, _ := json.Marshal(gin.H{"type": "completion", "status": "finished"})
		if err := conn.WriteMessage(websocket.TextMessage, doneMsg); err != nil {
			break
		}
	}
}

// wsChunkWriter 把每个增量编码为一个 WebSocket 文本帧下发。
type wsChunkWriter struct {
	conn *websocket.Conn
}

func (w *wsChunkWriter) WriteChunk(text string) error {
	payload, err := json.Marshal(gin.H{"chunk": text})
	if err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}
