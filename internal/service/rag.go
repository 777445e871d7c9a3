package service

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/corpusai/corpusd/internal/domain"
	"github.com/corpusai/corpusd/internal/pagination"
	"github.com/corpusai/corpusd/internal/telemetry"
)

// Answer texts for the recoverable no-answer outcomes. They are
// user-visible responses, not raw error strings.
const (
	answerIndexNotReady = "I don't have any documents to search yet. Please upload documents first."
	answerNoRelevant    = "I cannot answer that from the available documents. No relevant passages matched your question and filters."
)

// QueryLogRepositoryInterface persists query logs for evaluation.
type QueryLogRepositoryInterface interface {
	CreateQueryLog(ctx context.Context, entry QueryLogEntry) (string, error)
}

// QueryLogEntry is one logged query outcome.
type QueryLogEntry struct {
	Question        string
	Success         bool
	ErrorCode       string
	ChunksRetrieved int
	Model           string
	DurationMs      int64
}

// ArchiveStorageInterface stores raw uploaded documents, typically in
// object storage.
type ArchiveStorageInterface interface {
	UploadDocument(ctx context.Context, documentID, filename string, content []byte) error
	DeleteDocument(ctx context.Context, documentID, filename string) error
	GenerateDownloadURL(ctx context.Context, documentID, filename string) (string, error)
}

// ErrNoArchive is returned when an archive operation is requested but
// no archive storage is configured.
var ErrNoArchive = domain.NewDomainError(domain.ErrCodeInvalidOperation, "no archive storage configured")

// RAGConfig controls the RAG service.
type RAGConfig struct {
	Model         string
	Temperature   float32
	MaxIterations int
	MemoryWindow  int
	Chunking      ChunkConfig
}

// RAGService is the retrieval-and-response pipeline: similarity search,
// filtering, prompt composition, generation (direct or agentic), and
// post-processing. It owns the agent lifecycle and the ingestion path.
type RAGService struct {
	index    Index
	registry RegistryInterface
	settings *SettingsStore
	chat     ChatClientInterface
	queryLog QueryLogRepositoryInterface
	archive  ArchiveStorageInterface
	cfg      RAGConfig

	agentMu sync.RWMutex
	agent   *AgentExecutor

	// ingestMu serializes writes to the index and registry. Reads
	// proceed concurrently and may miss documents added mid-flight.
	ingestMu sync.Mutex
}

// NewRAGService creates the pipeline. queryLog and archive may be nil.
func NewRAGService(
	index Index,
	registry RegistryInterface,
	settings *SettingsStore,
	chat ChatClientInterface,
	queryLog QueryLogRepositoryInterface,
	archive ArchiveStorageInterface,
	cfg RAGConfig,
) *RAGService {
	if cfg.Chunking.MaxChars <= 0 {
		cfg.Chunking = DefaultChunkConfig()
	}
	s := &RAGService{
		index:    index,
		registry: registry,
		settings: settings,
		chat:     chat,
		queryLog: queryLog,
		archive:  archive,
		cfg:      cfg,
	}

	// Settings changes apply prospectively: a live agent is rebuilt so
	// in-flight queries keep the snapshot they started with.
	settings.OnUpdate(func(domain.InstructionSettings) {
		s.rebuildAgent()
	})

	return s
}

// QueryInput is one question with optional filters. Model and
// Temperature override the service defaults for direct generation;
// agent queries keep the model the agent was initialized with.
type QueryInput struct {
	Question    string
	Tags        []string
	Metadata    map[string]any
	Model       string
	Temperature *float32
}

// Query runs the full pipeline. All failure modes are folded into the
// returned QueryResult; the error return covers only invalid input.
func (s *RAGService) Query(ctx context.Context, input QueryInput) (*domain.QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RAGService.Query", telemetry.SpanAttributes{
		Operation: "query",
	})
	defer span.End()

	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	start := time.Now()
	settings := s.settings.Get()

	result := s.runPipeline(ctx, question, input, settings)
	result.SettingsUsed = settings
	result.ProcessingSeconds = time.Since(start).Seconds()

	s.logQuery(ctx, question, result, time.Since(start))

	if !result.Success {
		telemetry.AddBreadcrumb(ctx, "query", "query failed: "+result.ErrorCode)
	}
	return result, nil
}

func (s *RAGService) runPipeline(ctx context.Context, question string, input QueryInput, settings domain.InstructionSettings) *domain.QueryResult {
	count, err := s.index.Count(ctx)
	if err != nil {
		return failedResult(domain.NewDomainErrorWithCause(domain.ErrCodeSearchFailed, "index unavailable", err), settings, "")
	}
	if count == 0 {
		return failedResult(domain.ErrIndexNotReady, settings, answerIndexNotReady)
	}

	filtering := len(input.Tags) > 0 || len(input.Metadata) > 0
	candidates, err := s.index.Search(ctx, question, candidateLimit(settings.MaxChunks, filtering))
	if err != nil {
		return failedResult(domain.NewDomainErrorWithCause(domain.ErrCodeSearchFailed, "similarity search failed", err), settings, "")
	}

	matches := filterChunks(candidates, input.Tags, input.Metadata, settings.SimilarityThreshold, settings.MaxChunks)
	if len(matches) == 0 {
		// Returning the no-answer response here, before any model
		// call, is what prevents the model from answering out of its
		// own training knowledge.
		return failedResult(domain.ErrNoRelevantResults, settings, answerNoRelevant)
	}

	answer, observations, model, genErr := s.generate(ctx, question, matches, input, settings)
	if genErr != nil {
		return failedResult(genErr, settings, "")
	}

	answer = enforceLength(answer, settings)

	sources := make([]string, 0, len(matches))
	for _, sc := range matches {
		sources = append(sources, sc.Chunk.Source)
	}
	texts := append(append([]string{}, observations...), answer)
	sources = mergeSources(dedupe(sources), extractSources(texts...))

	result := &domain.QueryResult{
		Answer:          answer,
		Success:         true,
		Sources:         sources,
		ChunksRetrieved: len(matches),
		ModelUsed:       model,
	}

	if settings.ShowSimilarityScores {
		result.SimilarityScores = scoreDetails(matches)
	}

	return result
}

// generate produces the raw answer, through the agent loop when one is
// initialized and a direct model call otherwise.
func (s *RAGService) generate(ctx context.Context, question string, matches []domain.ScoredChunk, input QueryInput, settings domain.InstructionSettings) (answer string, observations []string, model string, genErr *domain.DomainError) {
	s.agentMu.RLock()
	agent := s.agent
	s.agentMu.RUnlock()

	if agent != nil {
		tools := []Tool{
			NewDocumentSearchTool(s.index, input.Tags, input.Metadata, settings),
			NewCalculatorTool(),
			NewDocumentSummaryTool(s.index, s.chat, agent.Model()),
		}
		prompt := composePrompt(question, "", settings)
		out, err := agent.Run(ctx, prompt, tools)
		if err != nil {
			return "", nil, agent.Model(), asDomainError(err, domain.ErrCodeGenerationFailed, "agent run failed")
		}
		return out.Answer, out.Observations, agent.Model(), nil
	}

	model = s.cfg.Model
	if input.Model != "" {
		model = input.Model
	}
	temperature := s.cfg.Temperature
	if input.Temperature != nil {
		temperature = *input.Temperature
	}

	prompt := composePrompt(question, buildContextBlock(matches), settings)
	reply, err := s.chat.ChatCompletion(ctx, domain.ChatRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []domain.ChatMessage{
			{Role: domain.ChatRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", nil, model, domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailed, "model call failed", err)
	}
	return reply.Content, nil, model, nil
}

// AddDocumentInput carries one document for ingestion.
type AddDocumentInput struct {
	Content  string
	Filename string
	FileType string
	FileSize int64
	Tags     []string
	Metadata map[string]any
}

// AddDocument chunks, embeds, indexes, and registers a document.
// Ingestion is single-writer; concurrent reads see the new document
// only once indexing completes.
func (s *RAGService) AddDocument(ctx context.Context, input AddDocumentInput) (*domain.Document, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.ErrEmptyDocument
	}
	if strings.TrimSpace(input.Filename) == "" {
		return nil, domain.ErrMissingRequiredField
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "RAGService.AddDocument", telemetry.SpanAttributes{
		Operation: "add_document",
	})
	defer span.End()

	id, err := s.registry.NextID(ctx)
	if err != nil {
		return nil, err
	}

	chunks := buildChunks(input.Content, id, input.Filename, input.Tags, input.Metadata, s.cfg.Chunking)
	if err := s.index.Add(ctx, chunks); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to index document", err)
	}

	doc := &domain.Document{
		ID:             id,
		Filename:       input.Filename,
		FileType:       input.FileType,
		FileSize:       input.FileSize,
		UploadTime:     time.Now().UTC(),
		ChunkCount:     len(chunks),
		ContentPreview: domain.MakePreview(input.Content),
		Tags:           input.Tags,
		Metadata:       input.Metadata,
	}
	if err := s.registry.Create(ctx, doc); err != nil {
		span.SetError(err)
		return nil, err
	}

	if s.archive != nil {
		if err := s.archive.UploadDocument(ctx, id, input.Filename, []byte(input.Content)); err != nil {
			// Archival is best-effort; the document is already
			// indexed and registered.
			log.Printf("archive: failed to store %s: %v", id, err)
		}
	}

	return doc, nil
}

// ListDocumentsInput controls registry listing.
type ListDocumentsInput struct {
	Cursor string
	Limit  int
}

func (s *RAGService) ListDocuments(ctx context.Context, input ListDocumentsInput) (*DocumentPageResult, error) {
	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}
	return s.registry.ListWithCursor(ctx, cursor, input.Limit)
}

func (s *RAGService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.registry.GetByID(ctx, id)
}

// DocumentDownloadURL returns a presigned URL for the archived raw
// upload of a document.
func (s *RAGService) DocumentDownloadURL(ctx context.Context, id string) (string, error) {
	if s.archive == nil {
		return "", ErrNoArchive
	}
	doc, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.archive.GenerateDownloadURL(ctx, id, doc.Filename)
}

// DeleteDocument removes the registry record and the archived raw
// upload. The document's vectors stay in the index and may still
// influence search results.
func (s *RAGService) DeleteDocument(ctx context.Context, id string) error {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	doc, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}

	if s.archive != nil {
		if err := s.archive.DeleteDocument(ctx, id, doc.Filename); err != nil {
			log.Printf("archive: failed to delete %s: %v", id, err)
		}
	}
	return nil
}

// ClearAll resets the registry, the index, and the agent.
func (s *RAGService) ClearAll(ctx context.Context) error {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	if err := s.index.Reset(ctx); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to reset index", err)
	}
	if err := s.registry.DeleteAll(ctx); err != nil {
		return err
	}

	s.agentMu.Lock()
	s.agent = nil
	s.agentMu.Unlock()
	return nil
}

// InitializeAgent builds the agent executor for the given model and
// temperature. At least one document must be indexed.
func (s *RAGService) InitializeAgent(ctx context.Context, model string, temperature float32) error {
	count, err := s.index.Count(ctx)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "index unavailable", err)
	}
	if count == 0 {
		return domain.ErrAgentNotInitialized
	}

	if model == "" {
		model = s.cfg.Model
	}

	s.agentMu.Lock()
	s.agent = NewAgentExecutor(s.chat, AgentConfig{
		Model:         model,
		Temperature:   temperature,
		MaxIterations: s.cfg.MaxIterations,
		MemoryWindow:  s.cfg.MemoryWindow,
	})
	s.agentMu.Unlock()

	log.Printf("agent: initialized (model: %s, temperature: %.2f)", model, temperature)
	return nil
}

// ClearAgentMemory drops the agent's conversation memory, keeping the
// agent itself.
func (s *RAGService) ClearAgentMemory() {
	s.agentMu.RLock()
	agent := s.agent
	s.agentMu.RUnlock()
	if agent != nil {
		agent.Memory().Clear()
	}
}

// AgentInitialized reports whether an agent executor is live.
func (s *RAGService) AgentInitialized() bool {
	s.agentMu.RLock()
	defer s.agentMu.RUnlock()
	return s.agent != nil
}

// StatusOutput is the service health snapshot.
type StatusOutput struct {
	Ready            bool
	Degraded         bool
	DocumentCount    int
	ChunkCount       int
	AgentInitialized bool
	Model            string
}

// Status reports readiness, degradation, and counters.
func (s *RAGService) Status(ctx context.Context) (*StatusOutput, error) {
	chunkCount, err := s.index.Count(ctx)
	if err != nil {
		return nil, err
	}
	docCount, err := s.registry.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &StatusOutput{
		Ready:            chunkCount > 0,
		Degraded:         s.index.Degraded(),
		DocumentCount:    docCount,
		ChunkCount:       chunkCount,
		AgentInitialized: s.AgentInitialized(),
		Model:            s.cfg.Model,
	}, nil
}

// Settings exposes the settings store to transport layers.
func (s *RAGService) Settings() *SettingsStore {
	return s.settings
}

// rebuildAgent recreates a live agent with its current model and
// temperature so new settings apply to subsequent queries.
func (s *RAGService) rebuildAgent() {
	s.agentMu.Lock()
	defer s.agentMu.Unlock()
	if s.agent == nil {
		return
	}
	s.agent = NewAgentExecutor(s.chat, AgentConfig{
		Model:         s.agent.Model(),
		Temperature:   s.agent.temperature,
		MaxIterations: s.cfg.MaxIterations,
		MemoryWindow:  s.cfg.MemoryWindow,
	})
}

func (s *RAGService) logQuery(ctx context.Context, question string, result *domain.QueryResult, elapsed time.Duration) {
	if s.queryLog == nil {
		return
	}
	entry := QueryLogEntry{
		Question:        question,
		Success:         result.Success,
		ErrorCode:       result.ErrorCode,
		ChunksRetrieved: result.ChunksRetrieved,
		Model:           result.ModelUsed,
		DurationMs:      elapsed.Milliseconds(),
	}
	if _, err := s.queryLog.CreateQueryLog(ctx, entry); err != nil {
		log.Printf("query log: failed to record entry: %v", err)
	}
}

func failedResult(derr *domain.DomainError, settings domain.InstructionSettings, answer string) *domain.QueryResult {
	result := domain.FailedQueryResult(derr, settings)
	result.Answer = answer
	return &result
}

func asDomainError(err error, code, message string) *domain.DomainError {
	if derr, ok := err.(*domain.DomainError); ok {
		return derr
	}
	return domain.NewDomainErrorWithCause(code, message, err)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func scoreDetails(matches []domain.ScoredChunk) []domain.ScoreDetail {
	details := make([]domain.ScoreDetail, 0, len(matches))
	for _, sc := range matches {
		details = append(details, domain.ScoreDetail{
			Source:         sc.Chunk.Source,
			ContentPreview: domain.MakePreview(sc.Chunk.Content),
			Score:          sc.Score,
			Tags:           sc.Chunk.Tags,
			Metadata:       sc.Chunk.Metadata,
		})
	}
	return details
}
