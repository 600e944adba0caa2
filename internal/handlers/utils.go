package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/akolanti/DocMind/internal/adapter"
	"github.com/akolanti/DocMind/internal/adapter/utils"
	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/jobModel"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are gone, log only
		logRH.Error("Error encoding response", "err", err)
	}
}

func traceOf(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

func validateId(ctx context.Context, id string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.WithTrace(ctx).Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(ctx, id)
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.WithTrace(ctx).Warn("context error", "err", ctx.Err())
		return false
	}
	return handlerInstance != nil
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// writeServiceError maps a rag.Service error onto the same codes jobs report.
func writeServiceError(ctx context.Context, w http.ResponseWriter, id string, err error) {
	jobErr := jobModel.ErrorFrom(err)
	if jobErr.Code >= http.StatusInternalServerError {
		logRH.WithTrace(ctx).Error("Service call failed", "id", id, "err", err)
	}
	writeJsonResponse(w, jobErr.Code, adapter.BadRequest(id, jobErr.Message, jobErr.Code))
}

func getTargetDirectory() (string, string) {
	targetDir := handlerInstance.settings.UploadDir
	if !filepath.IsAbs(targetDir) {
		root, err := os.Getwd()
		if err != nil {
			return "", "Storage Error"
		}
		targetDir = filepath.Join(root, targetDir)
	}
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}

// queueJob creates the job and answers 202 with its status URL.
func queueJob(w http.ResponseWriter, request *http.Request, newJob newJobData) {
	newJob.id = utils.GetNewUUID()
	newJob.traceId = traceOf(request.Context())
	CreateNewJob(request.Context(), newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, newJob.chatId))
}
