package service

import (
	"context"
	"errors"
	"testing"

	"github.com/CTpeJLok/ai-chat/internal/model"
	"github.com/CTpeJLok/ai-chat/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatRepo struct {
	chats    map[string]*model.Chat
	messages []*model.Message
	nextID   uint
}

func newFakeChatRepo(chats ...*model.Chat) *fakeChatRepo {
	r := &fakeChatRepo{chats: map[string]*model.Chat{}}
	for _, c := range chats {
		r.chats[c.ID] = c
	}
	return r
}

func (r *fakeChatRepo) Create(chat *model.Chat) error { r.chats[chat.ID] = chat; return nil }

func (r *fakeChatRepo) FindByID(id string) (*model.Chat, error) {
	chat, ok := r.chats[id]
	if !ok {
		return nil, errors.New("chat not found")
	}
	return chat, nil
}

func (r *fakeChatRepo) FindByOrganization(organizationID uint) ([]*model.Chat, error) {
	return nil, nil
}

func (r *fakeChatRepo) CreateMessage(msg *model.Message) error {
	r.nextID++
	msg.ID = r.nextID
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeChatRepo) ListMessages(chatID string) ([]*model.Message, error) {
	var msgs []*model.Message
	for _, m := range r.messages {
		if m.ChatID == chatID {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

type fakeRetrieval struct {
	sources []string
	err     error
	called  bool
	orgID   uint
}

func (f *fakeRetrieval) Retrieve(ctx context.Context, organizationID uint, query string) ([]string, error) {
	f.called = true
	f.orgID = organizationID
	return f.sources, f.err
}

// fakeLLM 把配置的增量依次写给 writer，然后返回配置的错误。
type fakeLLM struct {
	chunks   []string
	err      error
	received []llm.Message
}

func (f *fakeLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, writer llm.ChunkWriter) error {
	f.received = messages
	for _, c := range f.chunks {
		if err := writer.WriteChunk(c); err != nil {
			return err
		}
	}
	return f.err
}

type chunkRecorder struct {
	chunks []string
}

func (c *chunkRecorder) WriteChunk(text string) error {
	c.chunks = append(c.chunks, text)
	return nil
}

func TestStreamAnswerSuccess(t *testing.T) {
	chatRepo := newFakeChatRepo(&model.Chat{ID: "c1", OrganizationID: 42})
	retrieval := &fakeRetrieval{sources: []string{"source one", "source two"}}
	llmClient := &fakeLLM{chunks: []string{"He", "llo", "!"}}
	svc := NewChatService(chatRepo, retrieval, llmClient)

	writer := &chunkRecorder{}
	err := svc.StreamAnswer(context.Background(), "c1", "question?", writer)
	require.NoError(t, err)

	// 增量按序转发给了调用方
	assert.Equal(t, []string{"He", "llo", "!"}, writer.chunks)

	// 用户消息与完整回答各落库一条
	require.Len(t, chatRepo.messages, 2)
	assert.Equal(t, model.RoleUser, chatRepo.messages[0].Role)
	assert.Equal(t, "question?", chatRepo.messages[0].Text)
	assert.Equal(t, model.RoleAssistant, chatRepo.messages[1].Role)
	assert.Equal(t, "Hello!", chatRepo.messages[1].Text)

	// 检索范围是聊天所属组织
	assert.Equal(t, uint(42), retrieval.orgID)
}

func TestStreamAnswerPromptLayout(t *testing.T) {
	chatRepo := newFakeChatRepo(&model.Chat{ID: "c1", OrganizationID: 1})
	// 历史里已有一轮对话
	_ = chatRepo.CreateMessage(&model.Message{ChatID: "c1", Role: model.RoleUser, Text: "earlier question"})
	_ = chatRepo.CreateMessage(&model.Message{ChatID: "c1", Role: model.RoleAssistant, Text: "earlier answer"})

	retrieval := &fakeRetrieval{sources: []string{"first source", "second source"}}
	llmClient := &fakeLLM{chunks: []string{"ok"}}
	svc := NewChatService(chatRepo, retrieval, llmClient)

	err := svc.StreamAnswer(context.Background(), "c1", "new question", &chunkRecorder{})
	require.NoError(t, err)

	msgs := llmClient.received
	// system + 两条历史 + 本轮用户消息
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Equal(t, "earlier question", msgs[1].Content)
	assert.Equal(t, model.RoleAssistant, msgs[2].Role)

	// 来源以编号列表追加在最后一条用户消息末尾，而不是单独角色
	last := msgs[len(msgs)-1]
	assert.Equal(t, model.RoleUser, last.Role)
	assert.Contains(t, last.Content, "new question")
	assert.Contains(t, last.Content, "[1] first source")
	assert.Contains(t, last.Content, "[2] second source")
	// 历史消息不携带来源
	assert.NotContains(t, msgs[1].Content, "[1]")
}

func TestStreamAnswerNoSourcesPlaceholder(t *testing.T) {
	chatRepo := newFakeChatRepo(&model.Chat{ID: "c1", OrganizationID: 1})
	retrieval := &fakeRetrieval{sources: []string{}}
	llmClient := &fakeLLM{}
	svc := NewChatService(chatRepo, retrieval, llmClient)

	err := svc.StreamAnswer(context.Background(), "c1", "question", &chunkRecorder{})
	require.NoError(t, err)

	last := llmClient.received[len(llmClient.received)-1]
	assert.Contains(t, last.Content, defaultNoResultText)
}

func TestStreamAnswerUserPersistedEvenWhenRetrievalFails(t *testing.T) {
	chatRepo := newFakeChatRepo(&model.Chat{ID: "c1", OrganizationID: 1})
	retrieval := &fakeRetrieval{err: errors.New("search down")}
	svc := NewChatService(chatRepo, retrieval, &fakeLLM{})

	err := svc.StreamAnswer(context.Background(), "c1", "question", &chunkRecorder{})
	require.Error(t, err)

	// 用户消息在检索之前已落库；assistant 消息没有
	require.Len(t, chatRepo.messages, 1)
	assert.Equal(t, model.RoleUser, chatRepo.messages[0].Role)
}

func TestStreamAnswerInterruptedStreamNotPersisted(t *testing.T) {
	chatRepo := newFakeChatRepo(&model.Chat{ID: "c1", OrganizationID: 1})
	retrieval := &fakeRetrieval{sources: []string{"src"}}
	// 部分增量送达后流中断
	llmClient := &fakeLLM{chunks: []string{"partial "}, err: llm.ErrStreamInterrupted}
	svc := NewChatService(chatRepo, retrieval, llmClient)

	writer := &chunkRecorder{}
	err := svc.StreamAnswer(context.Background(), "c1", "question", writer)
	assert.True(t, errors.Is(err, llm.ErrStreamInterrupted))

	// 调用方看到了部分增量，但被截断的回答绝不落库
	assert.Equal(t, []string{"partial "}, writer.chunks)
	require.Len(t, chatRepo.messages, 1)
	assert.Equal(t, model.RoleUser, chatRepo.messages[0].Role)
}

func TestStreamAnswerEmptyAnswerStillPersisted(t *testing.T) {
	chatRepo := newFakeChatRepo(&model.Chat{ID: "c1", OrganizationID: 1})
	retrieval := &fakeRetrieval{sources: []string{"src"}}
	// 流正常完成但没有任何增量
	svc := NewChatService(chatRepo, retrieval, &fakeLLM{})

	err := svc.StreamAnswer(context.Background(), "c1", "question", &chunkRecorder{})
	require.NoError(t, err)

	require.Len(t, chatRepo.messages, 2)
	assert.Equal(t, model.RoleAssistant, chatRepo.messages[1].Role)
	assert.Empty(t, chatRepo.messages[1].Text)
}

func TestStreamAnswerUnknownChat(t *testing.T) {
	chatRepo := newFakeChatRepo()
	retrieval := &fakeRetrieval{}
	svc := NewChatService(chatRepo, retrieval, &fakeLLM{})

	err := svc.StreamAnswer(context.Background(), "missing", "question", &chunkRecorder{})
	require.Error(t, err)
	assert.False(t, retrieval.called)
	assert.Empty(t, chatRepo.messages)
}

func TestCreateChatAssignsID(t *testing.T) {
	chatRepo := newFakeChatRepo()
	svc := NewChatService(chatRepo, &fakeRetrieval{}, &fakeLLM{})

	chat, err := svc.CreateChat(42)
	require.NoError(t, err)
	assert.NotEmpty(t, chat.ID)
	assert.Equal(t, uint(42), chat.OrganizationID)
}
