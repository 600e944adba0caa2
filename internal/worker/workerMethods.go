package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/domain/jobModel"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/internal/rag"
	"github.com/akolanti/DocMind/internal/rag/ingest"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

func executeJob(job jobModel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.JobType)+"_"+string(job.Status), time.Since(start))
	}()

	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, timeoutFor(job.JobType))
	defer cancel()
	log := logger.WithTrace(ctx).With("jobId", job.Id, "jobType", job.JobType)
	log.Debug("Processing job")

	saveJobState(ctx, job, jobModel.JobStatusRunning)
	ctx = rag.WithStepReporter(ctx, func(step jobModel.InternalStatus) {
		job.CurrentStep = step
		saveJobState(ctx, job, jobModel.JobStatusRunning)
	})

	err := runJob(ctx, &job, log)
	job.EndTime = time.Now()
	if err != nil {
		log.Error("Job failed", "step", job.CurrentStep, "error", err)
		job.Error = jobModel.ErrorFrom(err)
		job.CurrentStep = jobModel.Error
		job.Status = jobModel.JobStatusError
		saveJobState(ctxTrace, job, jobModel.JobStatusError)
		return
	}
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	saveJobState(ctxTrace, job, jobModel.JobStatusComplete)
	log.Info("Job complete", "elapsed", time.Since(start))
}

func timeoutFor(t jobModel.JobType) time.Duration {
	if t.IsDocumentJob() {
		return config.IngestJobTimeout
	}
	return config.QueryJobTimeout
}

// runJob dispatches on the job type and stores the result on the payload.
func runJob(ctx context.Context, job *jobModel.Job, log *logger_i.Logger) error {
	p := &job.JobPayload
	switch job.JobType {
	case jobModel.JobTypeQuery:
		return processQuery(ctx, job, log)

	case jobModel.JobTypeIngest:
		out, err := _ragService.Ingest(ctx, ingest.Request{Path: p.IngestPath, FileName: p.IngestFileName})
		p.Ingest = &out
		if out.DocumentId != "" {
			p.DocumentId = out.DocumentId
		}
		if errors.Is(err, commonModels.ErrValidation) {
			// rejected uploads are never registered, so nothing else points at the file
			if rmErr := ingest.RemoveUpload(p.IngestPath); rmErr != nil {
				log.Warn("Failed to remove rejected upload", "path", p.IngestPath, "error", rmErr)
			}
		}
		return err

	case jobModel.JobTypeReprocess:
		out, err := _ragService.Reprocess(ctx, p.DocumentId)
		p.Ingest = &out
		return err

	case jobModel.JobTypeSummary:
		summary, err := _ragService.Summarize(ctx, p.DocumentId)
		if err != nil {
			return err
		}
		p.Summary = &summary
		return nil

	case jobModel.JobTypeQuestions:
		questions, err := _ragService.SuggestQuestions(ctx, p.DocumentId)
		if err != nil {
			return err
		}
		p.Questions = &questions
		return nil
	}
	return fmt.Errorf("%w: unknown job type %q", commonModels.ErrValidation, job.JobType)
}

func processQuery(ctx context.Context, job *jobModel.Job, log *logger_i.Logger) error {
	var history []commonModels.ConversationTurn
	if job.ChatId != "" {
		h, err := _jobService.MessageStore.GetMessageHistory(ctx, job.ChatId)
		if err != nil {
			log.Error("Failed to get message history", "err", err)
		}
		history = h
	}

	p := &job.JobPayload
	answer, err := _ragService.Ask(ctx, p.Question, history, p.DocumentId)
	if err != nil {
		return err
	}
	p.Answer = &answer

	if job.ChatId == "" {
		return nil
	}
	err = _jobService.MessageStore.TrySaveChat(ctx, job.ChatId,
		commonModels.ConversationTurn{Role: commonModels.RoleUser, Content: p.Question},
		commonModels.ConversationTurn{Role: commonModels.RoleAssistant, Content: answer.Answer},
	)
	if err != nil {
		log.Error("Failed to save chat history", "err", err)
	}
	return nil
}

func saveJobState(ctx context.Context, job jobModel.Job, jobStatus jobModel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.WithTrace(ctx).Error("Failed to update job state", "jobId", job.Id, "err", err)
	}
}
