package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/akolanti/DocMind/internal/adapter"
	"github.com/akolanti/DocMind/internal/adapter/utils"
	"github.com/akolanti/DocMind/internal/api"
	"github.com/akolanti/DocMind/internal/domain/jobModel"
	"github.com/akolanti/DocMind/internal/rag"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

var logRH = logger_i.NewLogger("request_handler")

// HealthHandler godoc
// @Summary      Composite health report
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse  "Healthy"
// @Failure      503  {object}  api.HealthResponse  "Degraded"
// @Router       /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	report := handlerInstance.rag.Health(r.Context())
	code := http.StatusOK
	if report.Status != rag.HealthHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJsonResponse(w, code, adapter.ToHealthResponse(report))
}

// ChatHandler godoc
// @Summary      Ask a question
// @Description  Accepts a question, optionally scoped to one document, and queues a query job. The chat history feeds retrieval.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest      true  "Question, optional chat ID and optional document ID"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Failure      404      {object}  api.JobResponse      "Unknown document"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if !validateContext(ctx) {
		logRH.WithTrace(ctx).Warn("Invalid Context by request", "remote", request.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the Chat handler reader", "err", err)
		}
	}(request.Body)
	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || !ValidateChatRequest(ctx, requestData) {
		logRH.WithTrace(ctx).Warn("Bad Chat Request", "error", err, "chatId", requestData.ChatID)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
		return
	}

	if requestData.DocumentId != "" {
		if _, err := handlerInstance.rag.GetDocument(ctx, requestData.DocumentId); err != nil {
			writeServiceError(ctx, w, requestData.DocumentId, err)
			return
		}
	}

	newJob := newJobData{
		chatId:     requestData.ChatID,
		message:    requestData.Message,
		jobType:    jobModel.JobTypeQuery,
		documentId: requestData.DocumentId,
	}
	if newJob.chatId == "" {
		newJob.chatId = utils.GetNewUUID()
		newJob.isNewChat = true
	}
	queueJob(w, request, newJob)
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status and, once done, the result of a job.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse   "The current status of the job"
// @Failure      404  {object}  api.JobResponse   "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(r.Context(), idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}
