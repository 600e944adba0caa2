package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/DocMind/internal/handlers"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var (
	HealthHandler    = Wrap(handlers.HealthHandler)
	ChatHandler      = Wrap(handlers.ChatHandler)
	GetStatusHandler = Wrap(handlers.GetStatusHandler)

	PostDocumentHandler      = Wrap(handlers.PostDocumentHandler)
	ListDocumentsHandler     = Wrap(handlers.ListDocumentsHandler)
	GetDocumentHandler       = Wrap(handlers.GetDocumentHandler)
	DeleteDocumentHandler    = Wrap(handlers.DeleteDocumentHandler)
	ReprocessDocumentHandler = Wrap(handlers.ReprocessDocumentHandler)
	SummarizeDocumentHandler = Wrap(handlers.SummarizeDocumentHandler)
	QuestionsDocumentHandler = Wrap(handlers.QuestionsDocumentHandler)
)

var mwLogger = logger_i.NewLogger("middleware")

// Wrap runs trace injection, auth and rate limiting before next, and counts the response.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		defer func() {
			metrics.HttpRequestsTotal.WithLabelValues(routeLabel(r), strconv.Itoa(rec.Status)).Inc()
		}()

		re := processRequest(requestResponseStruct{req: r, writer: rec, logger: mwLogger})
		if !handleBadRequest(re) {
			return
		}
		next(rec, re.req)
	}
}

// routeLabel uses the chi pattern so ids in the path do not explode label cardinality.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	for _, step := range []func(requestResponseStruct) requestResponseStruct{injectTrace, authenticate, rateLimiter} {
		re = step(re)
		if re.badRequest.isBadRequest {
			return re
		}
	}
	return re
}
