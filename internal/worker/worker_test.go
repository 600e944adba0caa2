package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/domain/jobModel"
	"github.com/akolanti/DocMind/internal/job"
	"github.com/akolanti/DocMind/internal/rag"
	"github.com/akolanti/DocMind/internal/rag/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRagService counts calls and lets each test override single operations.
type MockRagService struct {
	ProcessedCount int32

	OnAsk       func(ctx context.Context, q string, h []commonModels.ConversationTurn, docId string) (commonModels.Answer, error)
	OnSummarize func(ctx context.Context, id string) (commonModels.Summary, error)
	OnQuestions func(ctx context.Context, id string) (commonModels.QuestionSet, error)
	OnIngest    func(ctx context.Context, req ingest.Request) (commonModels.IngestOutcome, error)
}

func (m *MockRagService) Ask(ctx context.Context, q string, h []commonModels.ConversationTurn, docId string) (commonModels.Answer, error) {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnAsk != nil {
		return m.OnAsk(ctx, q, h, docId)
	}
	return commonModels.Answer{Question: q, Answer: "mocked answer"}, nil
}

func (m *MockRagService) Summarize(ctx context.Context, id string) (commonModels.Summary, error) {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnSummarize != nil {
		return m.OnSummarize(ctx, id)
	}
	return commonModels.Summary{DocumentId: id, Summary: "- point"}, nil
}

func (m *MockRagService) SuggestQuestions(ctx context.Context, id string) (commonModels.QuestionSet, error) {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnQuestions != nil {
		return m.OnQuestions(ctx, id)
	}
	return commonModels.QuestionSet{DocumentId: id, Questions: []string{"What?"}}, nil
}

func (m *MockRagService) Ingest(ctx context.Context, req ingest.Request) (commonModels.IngestOutcome, error) {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnIngest != nil {
		return m.OnIngest(ctx, req)
	}
	return commonModels.IngestOutcome{DocumentId: "doc-new", FileName: req.FileName, Status: commonModels.StatusCompleted}, nil
}

func (m *MockRagService) Reprocess(ctx context.Context, id string) (commonModels.IngestOutcome, error) {
	atomic.AddInt32(&m.ProcessedCount, 1)
	return commonModels.IngestOutcome{DocumentId: id, Status: commonModels.StatusCompleted, ChunkCount: 4}, nil
}

func (m *MockRagService) Delete(ctx context.Context, id string) (bool, error) { return true, nil }

func (m *MockRagService) GetDocument(ctx context.Context, id string) (commonModels.Document, error) {
	return commonModels.Document{Id: id}, nil
}

func (m *MockRagService) ListDocuments(ctx context.Context, f commonModels.ListFilter) ([]commonModels.Document, commonModels.RegistryStats, error) {
	return nil, commonModels.RegistryStats{}, nil
}

func (m *MockRagService) Health(ctx context.Context) rag.HealthReport {
	return rag.HealthReport{Status: rag.HealthHealthy}
}

// MockJobStore keeps every saved state so tests can inspect the transitions.
type MockJobStore struct {
	mu        sync.Mutex
	saved     []jobModel.Job
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Id == jobId {
			return m.saved[i], true
		}
	}
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	m.saved = append(m.saved, j)
	m.mu.Unlock()
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

func (m *MockJobStore) steps(jobId string) []jobModel.InternalStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []jobModel.InternalStatus
	for _, j := range m.saved {
		if j.Id == jobId {
			out = append(out, j.CurrentStep)
		}
	}
	return out
}

type MockMessageStore struct {
	OnGetHistory func(ctx context.Context, chatId string) ([]commonModels.ConversationTurn, error)
	OnSaveChat   func(ctx context.Context, chatId string, turns ...commonModels.ConversationTurn) error
}

func (m *MockMessageStore) ValidateChatId(ctx context.Context, id string) bool { return true }

func (m *MockMessageStore) InitNewChat(ctx context.Context, id string) error { return nil }

func (m *MockMessageStore) GetMessageHistory(ctx context.Context, id string) ([]commonModels.ConversationTurn, error) {
	if m.OnGetHistory != nil {
		return m.OnGetHistory(ctx, id)
	}
	return nil, nil
}

func (m *MockMessageStore) TrySaveChat(ctx context.Context, id string, turns ...commonModels.ConversationTurn) error {
	if m.OnSaveChat != nil {
		return m.OnSaveChat(ctx, id, turns...)
	}
	return nil
}

func setup(t *testing.T, ragSvc rag.Service, messages jobModel.MessageStore) *MockJobStore {
	t.Helper()
	store := &MockJobStore{}
	if messages == nil {
		messages = &MockMessageStore{}
	}
	InitServices(&job.Service{JobStore: store, MessageStore: messages}, ragSvc)
	return store
}

func TestExecuteJob_Dispatch(t *testing.T) {
	tests := []struct {
		name  string
		job   jobModel.Job
		check func(t *testing.T, final jobModel.Job)
	}{
		{
			name: "query",
			job:  jobModel.Job{Id: "q", JobType: jobModel.JobTypeQuery, JobPayload: jobModel.JobPayload{Question: "What is attention?"}},
			check: func(t *testing.T, final jobModel.Job) {
				require.NotNil(t, final.JobPayload.Answer)
				assert.Equal(t, "mocked answer", final.JobPayload.Answer.Answer)
			},
		},
		{
			name: "summary",
			job:  jobModel.Job{Id: "s", JobType: jobModel.JobTypeSummary, JobPayload: jobModel.JobPayload{DocumentId: "doc-1"}},
			check: func(t *testing.T, final jobModel.Job) {
				require.NotNil(t, final.JobPayload.Summary)
				assert.Equal(t, "doc-1", final.JobPayload.Summary.DocumentId)
			},
		},
		{
			name: "questions",
			job:  jobModel.Job{Id: "qs", JobType: jobModel.JobTypeQuestions, JobPayload: jobModel.JobPayload{DocumentId: "doc-1"}},
			check: func(t *testing.T, final jobModel.Job) {
				require.NotNil(t, final.JobPayload.Questions)
				assert.Equal(t, []string{"What?"}, final.JobPayload.Questions.Questions)
			},
		},
		{
			name: "ingest",
			job:  jobModel.Job{Id: "i", JobType: jobModel.JobTypeIngest, JobPayload: jobModel.JobPayload{IngestFileName: "paper.pdf", IngestPath: "/tmp/paper.pdf"}},
			check: func(t *testing.T, final jobModel.Job) {
				require.NotNil(t, final.JobPayload.Ingest)
				assert.Equal(t, "paper.pdf", final.JobPayload.Ingest.FileName)
				assert.Equal(t, "doc-new", final.JobPayload.DocumentId)
			},
		},
		{
			name: "reprocess",
			job:  jobModel.Job{Id: "r", JobType: jobModel.JobTypeReprocess, JobPayload: jobModel.JobPayload{DocumentId: "doc-1"}},
			check: func(t *testing.T, final jobModel.Job) {
				require.NotNil(t, final.JobPayload.Ingest)
				assert.Equal(t, 4, final.JobPayload.Ingest.ChunkCount)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setup(t, &MockRagService{}, nil)
			executeJob(tt.job)

			final, found := store.GetJob(context.Background(), tt.job.Id)
			require.True(t, found)
			assert.Equal(t, jobModel.JobStatusComplete, final.Status)
			assert.Equal(t, jobModel.Complete, final.CurrentStep)
			assert.False(t, final.EndTime.IsZero())
			tt.check(t, final)
		})
	}
}

func TestExecuteJob_ErrorsMapToJobError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		code  int
		retry bool
	}{
		{"not found", fmt.Errorf("%w: doc-9", commonModels.ErrNotFound), 404, false},
		{"no content", fmt.Errorf("%w for summarization", commonModels.ErrNoContent), 422, false},
		{"generation", fmt.Errorf("%w: quota", commonModels.ErrGeneration), 500, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockRagService{OnSummarize: func(ctx context.Context, id string) (commonModels.Summary, error) {
				return commonModels.Summary{}, tt.err
			}}
			store := setup(t, mock, nil)
			executeJob(jobModel.Job{Id: "e", JobType: jobModel.JobTypeSummary, JobPayload: jobModel.JobPayload{DocumentId: "doc-9"}})

			final, _ := store.GetJob(context.Background(), "e")
			assert.Equal(t, jobModel.JobStatusError, final.Status)
			assert.Equal(t, jobModel.Error, final.CurrentStep)
			assert.Equal(t, tt.code, final.Error.Code)
			assert.Equal(t, tt.retry, final.Error.Retry)
			assert.Nil(t, final.JobPayload.Summary)
		})
	}
}

func TestExecuteJob_UnknownType(t *testing.T) {
	store := setup(t, &MockRagService{}, nil)
	executeJob(jobModel.Job{Id: "x", JobType: "Translate"})

	final, _ := store.GetJob(context.Background(), "x")
	assert.Equal(t, jobModel.JobStatusError, final.Status)
	assert.Equal(t, 400, final.Error.Code)
}

func TestExecuteJob_QueryUsesAndSavesHistory(t *testing.T) {
	prior := []commonModels.ConversationTurn{
		{Role: commonModels.RoleUser, Content: "Which dataset?"},
		{Role: commonModels.RoleAssistant, Content: "WMT 2014"},
	}
	var saved []commonModels.ConversationTurn
	messages := &MockMessageStore{
		OnGetHistory: func(ctx context.Context, chatId string) ([]commonModels.ConversationTurn, error) {
			assert.Equal(t, "chat-1", chatId)
			return prior, nil
		},
		OnSaveChat: func(ctx context.Context, chatId string, turns ...commonModels.ConversationTurn) error {
			saved = append(saved, turns...)
			return nil
		},
	}
	var gotHistory []commonModels.ConversationTurn
	mock := &MockRagService{OnAsk: func(ctx context.Context, q string, h []commonModels.ConversationTurn, docId string) (commonModels.Answer, error) {
		gotHistory = h
		assert.Equal(t, "doc-1", docId)
		return commonModels.Answer{Question: q, Answer: "About 4.5M sentence pairs."}, nil
	}}
	setup(t, mock, messages)

	executeJob(jobModel.Job{Id: "q", ChatId: "chat-1", JobType: jobModel.JobTypeQuery,
		JobPayload: jobModel.JobPayload{Question: "How large is it?", DocumentId: "doc-1"}})

	assert.Equal(t, prior, gotHistory)
	assert.Equal(t, []commonModels.ConversationTurn{
		{Role: commonModels.RoleUser, Content: "How large is it?"},
		{Role: commonModels.RoleAssistant, Content: "About 4.5M sentence pairs."},
	}, saved)
}

func TestExecuteJob_FailedQueryIsNotSaved(t *testing.T) {
	messages := &MockMessageStore{OnSaveChat: func(ctx context.Context, chatId string, turns ...commonModels.ConversationTurn) error {
		t.Error("chat must not be saved for a failed query")
		return nil
	}}
	mock := &MockRagService{OnAsk: func(ctx context.Context, q string, h []commonModels.ConversationTurn, docId string) (commonModels.Answer, error) {
		return commonModels.Answer{}, commonModels.ErrEmbedding
	}}
	setup(t, mock, messages)
	executeJob(jobModel.Job{Id: "q", ChatId: "chat-1", JobType: jobModel.JobTypeQuery})
}

func TestExecuteJob_StepsAreSaved(t *testing.T) {
	mock := &MockRagService{OnAsk: func(ctx context.Context, q string, h []commonModels.ConversationTurn, docId string) (commonModels.Answer, error) {
		rag.ReportStep(ctx, jobModel.EmbeddingAPICall)
		rag.ReportStep(ctx, jobModel.LLMCall)
		return commonModels.Answer{Answer: "ok"}, nil
	}}
	store := setup(t, mock, nil)
	executeJob(jobModel.Job{Id: "steps", JobType: jobModel.JobTypeQuery})

	assert.Equal(t, []jobModel.InternalStatus{
		"", jobModel.EmbeddingAPICall, jobModel.LLMCall, jobModel.Complete,
	}, store.steps("steps"))
}

func TestExecuteJob_RejectedUploadIsRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o600))

	mock := &MockRagService{OnIngest: func(ctx context.Context, req ingest.Request) (commonModels.IngestOutcome, error) {
		return commonModels.IngestOutcome{FileName: req.FileName, Status: commonModels.StatusFailed},
			fmt.Errorf("%w: not a PDF", commonModels.ErrValidation)
	}}
	store := setup(t, mock, nil)
	executeJob(jobModel.Job{Id: "bad", JobType: jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{IngestFileName: "notes.pdf", IngestPath: path}})

	final, _ := store.GetJob(context.Background(), "bad")
	assert.Equal(t, 400, final.Error.Code)
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWorkerPool_Flow(t *testing.T) {
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          &MockJobStore{},
		MessageStore:      &MockMessageStore{},
	}
	mockRag := &MockRagService{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	atomic.StoreInt64(&currentWorkerCount, 0)
	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true
		assert.Eventually(t, func() bool {
			return atomic.LoadInt64(&currentWorkerCount) >= 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Worker processes a job", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "test-1", JobType: jobModel.JobTypeQuery}
		assert.Eventually(t, func() bool {
			return atomic.LoadInt32(&mockRag.ProcessedCount) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	atomic.StoreInt64(&currentWorkerCount, 0)
	prevMin, prevIdle := minWorkerCount, idleTimeout
	t.Cleanup(func() {
		atomic.StoreInt64(&minWorkerCount, prevMin)
		idleTimeout = prevIdle
	})
	atomic.StoreInt64(&minWorkerCount, 0)
	idleTimeout = 20 * time.Millisecond

	InitServices(&job.Service{JobChannel: make(chan jobModel.Job)}, &MockRagService{})
	workerWaitGroup = &sync.WaitGroup{}
	stopWorkerChannel = make(chan bool)

	createWorker()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&currentWorkerCount) == 0
	}, time.Second, 10*time.Millisecond)
}
