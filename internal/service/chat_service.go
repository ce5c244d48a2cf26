package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/CTpeJLok/ai-chat/internal/config"
	"github.com/CTpeJLok/ai-chat/internal/model"
	"github.com/CTpeJLok/ai-chat/internal/repository"
	"github.com/CTpeJLok/ai-chat/pkg/llm"
	"github.com/CTpeJLok/ai-chat/pkg/log"

	"github.com/google/uuid"
)

// 内置的系统提示：仅依据来源回答、标注来源编号、来源中没有答案时明确说明。
// 可通过 llm.prompt.rules 配置覆盖。
const defaultPromptRules = `你是一个根据给定来源回答问题的智能助手。

工作规则:
1. 只依据给出的来源回答用户的问题，不要补充来源之外的信息。
2. 如果来源中不包含答案，明确说明"根据提供的资料无法回答"。
3. 回答时标注引用的来源编号，例如 [1]、[2]。
4. 回答结构清晰：先给出简短结论，必要时再展开说明。`

const defaultNoResultText = "（本轮没有检索到任何来源）"

// ChatService 定义了聊天与流式问答编排的接口。
type ChatService interface {
	CreateChat(organizationID uint) (*model.Chat, error)
	FindChat(id string) (*model.Chat, error)
	ListByOrganization(organizationID uint) ([]*model.Chat, error)
	History(chatID string) ([]*model.Message, error)
	// StreamAnswer 处理一轮用户消息：先持久化用户消息，再检索来源，
	// 然后把模型的增量输出逐个写入 w，流正常完成后把完整回答持久化为
	// 一条 assistant 消息。流中断（上游错误或调用方断开）时丢弃已累积
	// 的缓冲，不持久化任何 assistant 消息。
	StreamAnswer(ctx context.Context, chatID string, userText string, w llm.ChunkWriter) error
}

type chatService struct {
	chatRepo  repository.ChatRepository
	retrieval RetrievalService
	llmClient llm.Client
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(chatRepo repository.ChatRepository, retrieval RetrievalService, llmClient llm.Client) ChatService {
	return &chatService{
		chatRepo:  chatRepo,
		retrieval: retrieval,
		llmClient: llmClient,
	}
}

func (s *chatService) CreateChat(organizationID uint) (*model.Chat, error) {
	chat := &model.Chat{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
	}
	if err := s.chatRepo.Create(chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *chatService) FindChat(id string) (*model.Chat, error) {
	return s.chatRepo.FindByID(id)
}

func (s *chatService) ListByOrganization(organizationID uint) ([]*model.Chat, error) {
	return s.chatRepo.FindByOrganization(organizationID)
}

func (s *chatService) History(chatID string) ([]*model.Message, error) {
	return s.chatRepo.ListMessages(chatID)
}

func (s *chatService) StreamAnswer(ctx context.Context, chatID string, userText string, w llm.ChunkWriter) error {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return fmt.Errorf("failed to find chat: %w", err)
	}

	// 1. 无论后续步骤成败，先把用户消息落库
	userMsg := &model.Message{
		ChatID: chat.ID,
		Role:   model.RoleUser,
		Text:   userText,
	}
	if err := s.chatRepo.CreateMessage(userMsg); err != nil {
		return fmt.Errorf("failed to persist user message: %w", err)
	}

	// 2. 在聊天所属组织范围内检索来源；检索失败对本轮是致命的
	sources, err := s.retrieval.Retrieve(ctx, chat.OrganizationID, userText)
	if err != nil {
		return fmt.Errorf("failed to retrieve sources: %w", err)
	}

	// 3. 组装完整消息列表并流式调用模型
	history, err := s.chatRepo.ListMessages(chat.ID)
	if err != nil {
		return fmt.Errorf("failed to load chat history: %w", err)
	}
	messages := s.composeMessages(history, sources)

	var answer strings.Builder
	tee := &teeWriter{dst: w, buf: &answer}
	if err := s.llmClient.StreamChatMessages(ctx, messages, tee); err != nil {
		// 中断的流不持久化：宁可丢弃也不保存被截断的回答
		log.Errorf("[ChatService] 流式回答中断, chatID: %s, 已丢弃 %d 字节缓冲, error: %v",
			chat.ID, answer.Len(), err)
		return err
	}

	// 4. 流正常完成后，整段回答作为一条 assistant 消息落库（允许为空）
	assistantMsg := &model.Message{
		ChatID: chat.ID,
		Role:   model.RoleAssistant,
		Text:   answer.String(),
	}
	if err := s.chatRepo.CreateMessage(assistantMsg); err != nil {
		return fmt.Errorf("failed to persist assistant message: %w", err)
	}
	log.Infof("[ChatService] 本轮回答完成并已持久化, chatID: %s, 长度: %d", chat.ID, answer.Len())
	return nil
}

// composeMessages 构建发给模型的完整消息列表：
// 一条系统规则 + 按时间顺序的全部历史消息（含刚落库的本轮用户消息），
// 检索到的来源以编号列表追加在最后一条用户消息的内容末尾，而不是单独角色。
func (s *chatService) composeMessages(history []*model.Message, sources []string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: s.promptRules()})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Text})
	}
	msgs[len(msgs)-1].Content += s.renderSources(sources)
	return msgs
}

func (s *chatService) promptRules() string {
	if rules := config.Conf.LLM.Prompt.Rules; rules != "" {
		return rules
	}
	return defaultPromptRules
}

func (s *chatService) renderSources(sources []string) string {
	var b strings.Builder
	b.WriteString("\n\n来源:\n")
	if len(sources) == 0 {
		noResult := config.Conf.LLM.Prompt.NoResultText
		if noResult == "" {
			noResult = defaultNoResultText
		}
		b.WriteString(noResult)
		b.WriteString("\n")
		return b.String()
	}
	for i, src := range sources {
		b.WriteString(fmt.Sprintf("[%d] %s\n", i+1, src))
	}
	return b.String()
}

// teeWriter 把每个增量先转发给调用方，再累积到缓冲。两个动作在同一次
// WriteChunk 内完成，保证下发的流与待持久化的全文逐字一致、顺序一致。
type teeWriter struct {
	dst llm.ChunkWriter
	buf *strings.Builder
}

func (t *teeWriter) WriteChunk(text string) error {
	if err := t.dst.WriteChunk(text); err != nil {
		return err
	}
	t.buf.WriteString(text)
	return nil
}
