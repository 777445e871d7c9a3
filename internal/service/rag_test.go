package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/corpusai/corpusd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueryLog struct {
	entries []QueryLogEntry
	err     error
}

func (l *recordingQueryLog) CreateQueryLog(ctx context.Context, entry QueryLogEntry) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	l.entries = append(l.entries, entry)
	return "log-id", nil
}

type recordingArchive struct {
	uploads map[string][]byte
	err     error
}

func (a *recordingArchive) UploadDocument(ctx context.Context, documentID, filename string, content []byte) error {
	if a.err != nil {
		return a.err
	}
	if a.uploads == nil {
		a.uploads = make(map[string][]byte)
	}
	a.uploads[documentID+"/"+filename] = content
	return nil
}

func (a *recordingArchive) DeleteDocument(ctx context.Context, documentID, filename string) error {
	if a.err != nil {
		return a.err
	}
	delete(a.uploads, documentID+"/"+filename)
	return nil
}

func (a *recordingArchive) GenerateDownloadURL(ctx context.Context, documentID, filename string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return "https://archive.example/" + documentID + "/" + filename, nil
}

type ragFixture struct {
	svc      *RAGService
	index    *MemoryIndex
	chat     *scriptedChatClient
	queryLog *recordingQueryLog
	archive  *recordingArchive
}

func newRAGFixture(t *testing.T) *ragFixture {
	t.Helper()
	store, err := NewSettingsStore(context.Background(), nil)
	require.NoError(t, err)

	f := &ragFixture{
		index:    NewMemoryIndex(),
		chat:     &scriptedChatClient{},
		queryLog: &recordingQueryLog{},
		archive:  &recordingArchive{},
	}
	f.svc = NewRAGService(f.index, NewMemoryRegistry(), store, f.chat, f.queryLog, f.archive, RAGConfig{
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
	})
	return f
}

func (f *ragFixture) addDocument(t *testing.T, content, filename string, tags []string, metadata map[string]any) *domain.Document {
	t.Helper()
	doc, err := f.svc.AddDocument(context.Background(), AddDocumentInput{
		Content:  content,
		Filename: filename,
		FileType: "txt",
		FileSize: int64(len(content)),
		Tags:     tags,
		Metadata: metadata,
	})
	require.NoError(t, err)
	return doc
}

func TestRAGService_QueryEmptyQuestion(t *testing.T) {
	f := newRAGFixture(t)

	_, err := f.svc.Query(context.Background(), QueryInput{Question: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
	assert.Empty(t, f.queryLog.entries)
}

func TestRAGService_QueryIndexNotReady(t *testing.T) {
	f := newRAGFixture(t)

	result, err := f.svc.Query(context.Background(), QueryInput{Question: "anything"})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, domain.ErrCodeIndexNotReady, result.ErrorCode)
	assert.Equal(t, answerIndexNotReady, result.Answer)
	assert.Empty(t, f.chat.requests)

	require.Len(t, f.queryLog.entries, 1)
	assert.False(t, f.queryLog.entries[0].Success)
	assert.Equal(t, domain.ErrCodeIndexNotReady, f.queryLog.entries[0].ErrorCode)
}

func TestRAGService_QueryNoRelevantResults(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "shipping takes five business days", "shipping.txt", nil, nil)

	result, err := f.svc.Query(context.Background(), QueryInput{Question: "quantum field theory"})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, domain.ErrCodeNoRelevantResults, result.ErrorCode)
	assert.Equal(t, answerNoRelevant, result.Answer)
	// The refusal is produced without any model call.
	assert.Empty(t, f.chat.requests)
}

func TestRAGService_QueryDirectSuccess(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "refund policy allows returns within thirty days", "refunds.txt", nil, nil)

	f.chat.replies = []domain.ChatMessage{
		{Role: domain.ChatRoleAssistant, Content: "Returns are accepted within thirty days."},
	}

	result, err := f.svc.Query(context.Background(), QueryInput{Question: "refund policy"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "Returns are accepted within thirty days.", result.Answer)
	assert.Equal(t, []string{"refunds.txt"}, result.Sources)
	assert.Equal(t, 1, result.ChunksRetrieved)
	assert.Equal(t, "gpt-4o-mini", result.ModelUsed)
	assert.Empty(t, result.ErrorCode)

	// The prompt carries the retrieved context and ends with the
	// question.
	require.Len(t, f.chat.requests, 1)
	prompt := f.chat.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "[Source: refunds.txt]")
	assert.True(t, strings.HasSuffix(prompt, "Question: refund policy"))

	require.Len(t, f.queryLog.entries, 1)
	assert.True(t, f.queryLog.entries[0].Success)
	assert.Equal(t, 1, f.queryLog.entries[0].ChunksRetrieved)
}

func TestRAGService_QueryModelOverride(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "refund policy allows returns", "refunds.txt", nil, nil)

	f.chat.replies = []domain.ChatMessage{
		{Role: domain.ChatRoleAssistant, Content: "answer"},
	}

	temp := float32(0.9)
	result, err := f.svc.Query(context.Background(), QueryInput{
		Question:    "refund policy",
		Model:       "gpt-4o",
		Temperature: &temp,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", result.ModelUsed)
	require.Len(t, f.chat.requests, 1)
	assert.Equal(t, "gpt-4o", f.chat.requests[0].Model)
	assert.Equal(t, float32(0.9), f.chat.requests[0].Temperature)
}

func TestRAGService_QueryGenerationFailure(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "refund policy allows returns", "refunds.txt", nil, nil)

	f.chat.err = errors.New("api unreachable")

	result, err := f.svc.Query(context.Background(), QueryInput{Question: "refund policy"})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, domain.ErrCodeGenerationFailed, result.ErrorCode)
}

func TestRAGService_QueryShortAnswerTruncated(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "refund policy allows returns", "refunds.txt", nil, nil)

	long := strings.Repeat("the policy covers many cases ", 30)
	f.chat.replies = []domain.ChatMessage{
		{Role: domain.ChatRoleAssistant, Content: long},
	}

	result, err := f.svc.Query(context.Background(), QueryInput{Question: "refund policy"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.LessOrEqual(t, len([]rune(result.Answer)), 300)
	assert.True(t, strings.HasSuffix(result.Answer, "..."))
}

func TestRAGService_QueryTagFilter(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "refund policy allows returns", "refunds.txt", []string{"policy"}, nil)
	f.addDocument(t, "refund requests go through support", "support.txt", []string{"support"}, nil)

	f.chat.replies = []domain.ChatMessage{
		{Role: domain.ChatRoleAssistant, Content: "answer"},
	}

	result, err := f.svc.Query(context.Background(), QueryInput{
		Question: "refund",
		Tags:     []string{"support"},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, []string{"support.txt"}, result.Sources)
	assert.Equal(t, 1, result.ChunksRetrieved)
}

func TestRAGService_QuerySimilarityScoresOptIn(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "refund policy allows returns", "refunds.txt", nil, nil)

	scores := domain.DefaultInstructionSettings()
	scores.ShowSimilarityScores = true
	require.NoError(t, f.svc.Settings().Update(context.Background(), scores))

	f.chat.replies = []domain.ChatMessage{
		{Role: domain.ChatRoleAssistant, Content: "answer"},
	}

	result, err := f.svc.Query(context.Background(), QueryInput{Question: "refund policy"})
	require.NoError(t, err)

	require.Len(t, result.SimilarityScores, 1)
	assert.Equal(t, "refunds.txt", result.SimilarityScores[0].Source)
	assert.Greater(t, result.SimilarityScores[0].Score, float32(0))
}

func TestRAGService_QueryAgentPath(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "refund policy allows returns within thirty days", "refunds.txt", nil, nil)

	require.NoError(t, f.svc.InitializeAgent(context.Background(), "gpt-4o", 0.5))

	// First reply searches the documents, second answers from the
	// observation.
	f.chat.replies = []domain.ChatMessage{
		{
			Role: domain.ChatRoleAssistant,
			ToolCalls: []domain.ToolCall{
				{ID: "call_1", Name: "document_search", Arguments: []byte(`{"query":"refund policy"}`)},
			},
		},
		{Role: domain.ChatRoleAssistant, Content: "Returns within thirty days."},
	}

	result, err := f.svc.Query(context.Background(), QueryInput{Question: "refund policy"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "Returns within thirty days.", result.Answer)
	// The agent keeps its initialized model, not the service default.
	assert.Equal(t, "gpt-4o", result.ModelUsed)
	// Sources come from the retrieval pass and the tool observation.
	assert.Contains(t, result.Sources, "refunds.txt")
}

func TestRAGService_InitializeAgentRequiresDocuments(t *testing.T) {
	f := newRAGFixture(t)

	err := f.svc.InitializeAgent(context.Background(), "gpt-4o", 0.5)
	assert.ErrorIs(t, err, domain.ErrAgentNotInitialized)
	assert.False(t, f.svc.AgentInitialized())
}

func TestRAGService_InitializeAgentDefaultsModel(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "content here", "a.txt", nil, nil)

	require.NoError(t, f.svc.InitializeAgent(context.Background(), "", 0))
	assert.True(t, f.svc.AgentInitialized())
}

func TestRAGService_ClearAgentMemory(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "content here", "a.txt", nil, nil)
	require.NoError(t, f.svc.InitializeAgent(context.Background(), "gpt-4o", 0.5))

	// No agent is fine too.
	f.svc.ClearAgentMemory()
	assert.True(t, f.svc.AgentInitialized())
}

func TestRAGService_SettingsUpdateRebuildsAgent(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "content here", "a.txt", nil, nil)
	require.NoError(t, f.svc.InitializeAgent(context.Background(), "gpt-4o", 0.5))

	next := domain.DefaultInstructionSettings()
	next.MaxChunks = 8
	require.NoError(t, f.svc.Settings().Update(context.Background(), next))

	// The agent survives the settings change with its model intact.
	assert.True(t, f.svc.AgentInitialized())
}

func TestRAGService_AddDocument(t *testing.T) {
	f := newRAGFixture(t)

	doc := f.addDocument(t, "refund policy allows returns", "refunds.txt", []string{"policy"}, map[string]any{"year": 2024})

	assert.Equal(t, "doc_000001", doc.ID)
	assert.Equal(t, "refunds.txt", doc.Filename)
	assert.Equal(t, 1, doc.ChunkCount)
	assert.Equal(t, "refund policy allows returns", doc.ContentPreview)
	assert.Equal(t, []string{"policy"}, doc.Tags)

	// Indexed and archived.
	n, err := f.index.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, f.archive.uploads, "doc_000001/refunds.txt")
}

func TestRAGService_AddDocumentValidation(t *testing.T) {
	f := newRAGFixture(t)

	_, err := f.svc.AddDocument(context.Background(), AddDocumentInput{Content: "  ", Filename: "a.txt"})
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)

	_, err = f.svc.AddDocument(context.Background(), AddDocumentInput{Content: "text", Filename: ""})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestRAGService_AddDocumentArchiveFailureTolerated(t *testing.T) {
	f := newRAGFixture(t)
	f.archive.err = errors.New("bucket unavailable")

	doc, err := f.svc.AddDocument(context.Background(), AddDocumentInput{
		Content:  "text content",
		Filename: "a.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "doc_000001", doc.ID)
}

func TestRAGService_DeleteDocumentKeepsIndex(t *testing.T) {
	f := newRAGFixture(t)
	doc := f.addDocument(t, "refund policy allows returns", "refunds.txt", nil, nil)

	require.NoError(t, f.svc.DeleteDocument(context.Background(), doc.ID))

	_, err := f.svc.GetDocument(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	// Vectors stay behind; only the registry record and archived
	// upload are gone.
	n, err := f.index.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotContains(t, f.archive.uploads, doc.ID+"/refunds.txt")
}

func TestRAGService_DocumentDownloadURL(t *testing.T) {
	f := newRAGFixture(t)
	doc := f.addDocument(t, "refund policy allows returns", "refunds.txt", nil, nil)

	url, err := f.svc.DocumentDownloadURL(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://archive.example/doc_000001/refunds.txt", url)

	_, err = f.svc.DocumentDownloadURL(context.Background(), "doc_999999")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestRAGService_DocumentDownloadURL_NoArchive(t *testing.T) {
	store, err := NewSettingsStore(context.Background(), nil)
	require.NoError(t, err)
	svc := NewRAGService(NewMemoryIndex(), NewMemoryRegistry(), store, &scriptedChatClient{}, nil, nil, RAGConfig{Model: "gpt-4o-mini"})

	_, err = svc.DocumentDownloadURL(context.Background(), "doc_000001")
	assert.ErrorIs(t, err, ErrNoArchive)
}

func TestRAGService_ClearAll(t *testing.T) {
	f := newRAGFixture(t)
	f.addDocument(t, "refund policy allows returns", "refunds.txt", nil, nil)
	require.NoError(t, f.svc.InitializeAgent(context.Background(), "gpt-4o", 0.5))

	require.NoError(t, f.svc.ClearAll(context.Background()))

	status, err := f.svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Ready)
	assert.Zero(t, status.DocumentCount)
	assert.Zero(t, status.ChunkCount)
	assert.False(t, status.AgentInitialized)
}

func TestRAGService_Status(t *testing.T) {
	f := newRAGFixture(t)

	status, err := f.svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Ready)
	assert.True(t, status.Degraded)
	assert.Equal(t, "gpt-4o-mini", status.Model)

	f.addDocument(t, "content here", "a.txt", nil, nil)

	status, err = f.svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Ready)
	assert.Equal(t, 1, status.DocumentCount)
	assert.Equal(t, 1, status.ChunkCount)
}

func TestRAGService_ListDocumentsInvalidCursor(t *testing.T) {
	f := newRAGFixture(t)

	_, err := f.svc.ListDocuments(context.Background(), ListDocumentsInput{Cursor: "not-base64!"})
	require.Error(t, err)
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}
