package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/DocMind/internal/adapter"
	"github.com/akolanti/DocMind/internal/adapter/utils"
	"github.com/akolanti/DocMind/internal/api"
	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/data/registry"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/domain/jobModel"
)

const (
	multipartMemory = 32 << 20
	multipartSlack  = 1 << 20
)

// PostDocumentHandler godoc
// @Summary      Upload a PDF for ingestion
// @Description  Receives a file via multipart/form-data, stores it in the upload directory and queues an ingest job.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        document  formData  file    true  "The PDF to ingest"
// @Success      202  {object}  api.InitJobResponse  "Accepted"
// @Failure      400  {object}  api.JobResponse "Missing file, not a PDF or too large"
// @Failure      500  {object}  api.JobResponse "Storage error"
// @Router       /documents [post]
func PostDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	log := logRH.WithTrace(r.Context())

	maxMB := handlerInstance.settings.MaxUploadMB
	maxBytes := int64(maxMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	name := filepath.Base(fileMetadata.Filename)
	if name == "." || name == string(filepath.Separator) || !strings.EqualFold(filepath.Ext(name), config.AcceptedExtension) {
		WriteErrorResponse(w, http.StatusBadRequest, name, "Only PDF documents are accepted")
		return
	}
	if fileMetadata.Size > maxBytes {
		WriteErrorResponse(w, http.StatusBadRequest, name, fmt.Sprintf("File exceeds %d MB", maxMB))
		return
	}

	targetDir, errString := getTargetDirectory()
	if errString != "" {
		log.Error("Couldn't get target directory", "err", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, name, errString)
		return
	}

	storedPath := filepath.Join(targetDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), name))
	if err := saveUpload(fileReader, storedPath); err != nil {
		log.Error("Failed to store upload", "path", storedPath, "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, name, "Storage error")
		return
	}

	queueJob(w, r, newJobData{
		jobType:      jobModel.JobTypeIngest,
		documentName: name,
		documentPath: storedPath,
	})
}

func saveUpload(src io.Reader, path string) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// ListDocumentsHandler godoc
// @Summary      List documents
// @Tags         Documents
// @Produce      json
// @Param        status  query  string   false  "Processing status filter"
// @Param        limit   query  integer  false  "Page size"
// @Param        offset  query  integer  false  "Page offset"
// @Success      200  {object}  api.DocumentListResponse
// @Failure      400  {object}  api.JobResponse "Bad query parameters"
// @Router       /documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", err.Error())
		return
	}
	docs, stats, err := handlerInstance.rag.ListDocuments(r.Context(), filter)
	if err != nil {
		writeServiceError(r.Context(), w, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentListResponse(docs, stats, filter))
}

func parseListFilter(r *http.Request) (commonModels.ListFilter, error) {
	q := r.URL.Query()
	status, err := commonModels.ParseStatus(q.Get("status"))
	if err != nil {
		return commonModels.ListFilter{}, err
	}
	f := commonModels.ListFilter{Status: status, Limit: registry.DefaultListLimit}

	var errs []error
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("limit must be a positive integer"))
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("offset must be a non-negative integer"))
		}
		f.Offset = n
	}
	return f, errors.Join(errs...)
}

// GetDocumentHandler godoc
// @Summary      Get a document
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse
// @Failure      404  {object}  api.JobResponse "Document not found"
// @Router       /documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	doc, err := handlerInstance.rag.GetDocument(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}

// DeleteDocumentHandler godoc
// @Summary      Delete a document with its vectors and cached answers
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DeleteResponse
// @Failure      404  {object}  api.JobResponse "Document not found"
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	deleted, err := handlerInstance.rag.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, id, err)
		return
	}
	if !deleted {
		WriteErrorResponse(w, http.StatusNotFound, id, "Document not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.DeleteResponse{Id: id, Deleted: true})
}

// ReprocessDocumentHandler godoc
// @Summary      Queue a reprocess job from the stored upload
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  api.InitJobResponse
// @Failure      404  {object}  api.JobResponse "Document not found"
// @Router       /documents/{id}/reprocess [post]
func ReprocessDocumentHandler(w http.ResponseWriter, r *http.Request) {
	documentJob(w, r, jobModel.JobTypeReprocess)
}

// SummarizeDocumentHandler godoc
// @Summary      Queue a summary job
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  api.InitJobResponse
// @Failure      404  {object}  api.JobResponse "Document not found"
// @Router       /documents/{id}/summarize [post]
func SummarizeDocumentHandler(w http.ResponseWriter, r *http.Request) {
	documentJob(w, r, jobModel.JobTypeSummary)
}

// QuestionsDocumentHandler godoc
// @Summary      Queue a question-suggestion job
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  api.InitJobResponse
// @Failure      404  {object}  api.JobResponse "Document not found"
// @Router       /documents/{id}/questions [post]
func QuestionsDocumentHandler(w http.ResponseWriter, r *http.Request) {
	documentJob(w, r, jobModel.JobTypeQuestions)
}

// documentJob checks the document exists so unknown ids fail fast with 404 instead of as a failed job.
func documentJob(w http.ResponseWriter, r *http.Request, jobType jobModel.JobType) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	doc, err := handlerInstance.rag.GetDocument(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, id, err)
		return
	}
	queueJob(w, r, newJobData{jobType: jobType, documentId: doc.Id, documentName: doc.FileName})
}
