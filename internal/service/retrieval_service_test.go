package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/CTpeJLok/ai-chat/internal/model"
	"github.com/CTpeJLok/ai-chat/pkg/es"
	"github.com/CTpeJLok/ai-chat/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

type fakeEmbedder struct {
	err   error
	query string
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.query = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.5, 0.5}, nil
}

type fakeSearcher struct {
	hits  []es.Hit
	err   error
	orgID uint
	k     int
}

func (f *fakeSearcher) SearchNearest(ctx context.Context, organizationID uint, vector []float32, k int) ([]es.Hit, error) {
	f.orgID = organizationID
	f.k = k
	return f.hits, f.err
}

type fakeDocRepo struct {
	docs map[uint]*model.Document
}

func newFakeDocRepo(docs ...*model.Document) *fakeDocRepo {
	r := &fakeDocRepo{docs: map[uint]*model.Document{}}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *fakeDocRepo) Create(doc *model.Document) error { r.docs[doc.ID] = doc; return nil }

func (r *fakeDocRepo) FindByID(id uint) (*model.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, errors.New("document not found")
	}
	return doc, nil
}

func (r *fakeDocRepo) FindByIDs(ids []uint) ([]*model.Document, error) {
	var docs []*model.Document
	for _, id := range ids {
		if d, ok := r.docs[id]; ok {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (r *fakeDocRepo) FindByOrganization(organizationID uint) ([]*model.Document, error) {
	return nil, nil
}

func (r *fakeDocRepo) MarkEmbedded(id uint, text string) error { return nil }

func (r *fakeDocRepo) Delete(id uint) error { delete(r.docs, id); return nil }

func TestRetrieveRanksByBestChunkPerDocument(t *testing.T) {
	embedder := &fakeEmbedder{}
	// 文档 2 的最优块距离最小，文档 1 命中两个块但只按最优块 0.2 参与排序
	searcher := &fakeSearcher{hits: []es.Hit{
		{DocumentID: 1, ChunkID: 3, Distance: 0.9},
		{DocumentID: 2, ChunkID: 1, Distance: 0.1},
		{DocumentID: 1, ChunkID: 5, Distance: 0.2},
		{DocumentID: 3, ChunkID: 2, Distance: 0.5},
	}}
	docRepo := newFakeDocRepo(
		&model.Document{ID: 1, Text: "first\ndocument"},
		&model.Document{ID: 2, Text: "second document"},
		&model.Document{ID: 3, Text: "third document"},
	)

	svc := NewRetrievalService(embedder, searcher, docRepo)
	sources, err := svc.Retrieve(context.Background(), 42, "  what   is\nthis ")
	require.NoError(t, err)

	// 返回的是整篇文档全文（换行压成空格），不是命中的块
	assert.Equal(t, []string{"second document", "first document", "third document"}, sources)
	// 组织过滤透传到向量检索
	assert.Equal(t, uint(42), searcher.orgID)
	// 查询在向量化之前先做了同入库一致的归一化
	assert.Equal(t, "what is this", embedder.query)
}

func TestRetrieveTopFiveDocuments(t *testing.T) {
	embedder := &fakeEmbedder{}
	searcher := &fakeSearcher{}
	docRepo := newFakeDocRepo()
	for i := uint(1); i <= 7; i++ {
		searcher.hits = append(searcher.hits, es.Hit{DocumentID: i, ChunkID: 1, Distance: float64(i)})
		docRepo.Create(&model.Document{ID: i, Text: "doc"})
	}

	svc := NewRetrievalService(embedder, searcher, docRepo)
	sources, err := svc.Retrieve(context.Background(), 1, "query")
	require.NoError(t, err)
	assert.Len(t, sources, 5)
}

func TestRetrieveTieBreakByDocumentID(t *testing.T) {
	embedder := &fakeEmbedder{}
	searcher := &fakeSearcher{hits: []es.Hit{
		{DocumentID: 9, ChunkID: 1, Distance: 0.3},
		{DocumentID: 4, ChunkID: 1, Distance: 0.3},
	}}
	docRepo := newFakeDocRepo(
		&model.Document{ID: 4, Text: "doc four"},
		&model.Document{ID: 9, Text: "doc nine"},
	)

	svc := NewRetrievalService(embedder, searcher, docRepo)
	sources, err := svc.Retrieve(context.Background(), 1, "query")
	require.NoError(t, err)
	// 距离相同时按文档 ID 升序
	assert.Equal(t, []string{"doc four", "doc nine"}, sources)
}

func TestRetrieveNoHits(t *testing.T) {
	svc := NewRetrievalService(&fakeEmbedder{}, &fakeSearcher{}, newFakeDocRepo())
	sources, err := svc.Retrieve(context.Background(), 1, "query")
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestRetrieveEmbedFailureIsFatal(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding down")}
	svc := NewRetrievalService(embedder, &fakeSearcher{}, newFakeDocRepo())

	_, err := svc.Retrieve(context.Background(), 1, "query")
	require.Error(t, err)
}

func TestRetrieveSkipsVanishedDocuments(t *testing.T) {
	searcher := &fakeSearcher{hits: []es.Hit{
		{DocumentID: 1, ChunkID: 1, Distance: 0.1},
		{DocumentID: 2, ChunkID: 1, Distance: 0.2},
	}}
	// 文档 1 已从数据库消失，但索引里还有残留向量
	docRepo := newFakeDocRepo(&model.Document{ID: 2, Text: "still here"})

	svc := NewRetrievalService(&fakeEmbedder{}, searcher, docRepo)
	sources, err := svc.Retrieve(context.Background(), 1, "query")
	require.NoError(t, err)
	assert.Equal(t, []string{"still here"}, sources)
}
