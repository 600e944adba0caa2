package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocMind/internal/api"
	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/jobModel"
	"github.com/akolanti/DocMind/internal/job"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/internal/rag"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           = logger_i.NewLogger("job_handler")
)

// JobHandler queues asynchronous jobs and answers the synchronous registry reads.
type JobHandler struct {
	service  *job.Service
	rag      rag.Service
	settings config.ServerSettings
}

func InitJobHandler(jobService *job.Service, ragService rag.Service, settings config.ServerSettings) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, rag: ragService, settings: settings}
		logJH.Info("Starting job handler")
	})
}

// newJobData is what a handler collects before a job exists.
type newJobData struct {
	id           string
	chatId       string
	message      string
	isNewChat    bool
	traceId      string
	jobType      jobModel.JobType
	documentId   string
	documentName string
	documentPath string
}

func CreateNewJob(ctx context.Context, newJob newJobData) {
	log := logJH.WithTrace(ctx).With("jobId", newJob.id, "jobType", newJob.jobType)
	log.Info("Creating new job")
	// the chat must exist before a worker can append to it
	if newJob.isNewChat {
		log.Debug("Create new chat", "chatId", newJob.chatId)
		handlerInstance.initNewChat(ctx, newJob.chatId)
	}
	handlerInstance.pushToJobChannel(ctx, newJob)
}

func GetJobStatus(ctx context.Context, id string) (result jobModel.Job, isFound bool) {
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctx, id)
	}
	return result, false
}

func ValidateChatRequest(ctx context.Context, chatReq api.ChatRequest) bool {
	if handlerInstance == nil {
		return false
	}
	logJH.WithTrace(ctx).Debug("Validating chat id", "chatId", chatReq.ChatID)
	if chatReq.Message == "" {
		return false
	}
	if chatReq.ChatID == "" {
		return true
	}
	return handlerInstance.service.MessageStore.ValidateChatId(ctx, chatReq.ChatID)
}

func (h *JobHandler) pushToJobChannel(ctx context.Context, newJob newJobData) {
	_job := jobModel.Job{
		Id:          newJob.id,
		ChatId:      newJob.chatId,
		TraceId:     newJob.traceId,
		JobType:     newJob.jobType,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		JobPayload: jobModel.JobPayload{
			Question:       newJob.message,
			DocumentId:     newJob.documentId,
			IngestFileName: newJob.documentName,
			IngestPath:     newJob.documentPath,
		},
	}
	if _job.JobType.IsDocumentJob() {
		_job.CurrentStep = jobModel.IngestInit
	} else {
		_job.CurrentStep = jobModel.UserQueryInit
	}

	// queued state is visible to /status before a worker picks the job up
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		logJH.WithTrace(ctx).Error("Failed to save queued job", "jobId", _job.Id, "err", err)
	}
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //blocking send keeps the system from being overwhelmed

	// a new worker every N requests, and one per document job since those are long
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType.IsDocumentJob() {
		select {
		case h.service.DispatcherChannel <- true:
		default:
			logJH.Debug("Dispatcher busy, skipping worker signal", "requestCount", accurateCount)
		}
	}
}

func (h *JobHandler) initNewChat(ctx context.Context, chatId string) {
	if err := h.service.MessageStore.InitNewChat(ctx, chatId); err != nil {
		logJH.WithTrace(ctx).Error("Error initiating new chat", "chatId", chatId, "err", err)
	}
}
