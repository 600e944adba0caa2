package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var documentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "documents_processed_total",
	Help: "Documents run through the ingestion pipeline, labelled by final processing status",
}, []string{"status"})

var ocrPages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ocr_pages_total",
	Help: "Pages sent to OCR, labelled by whether OCR produced usable text",
}, []string{"outcome"})

var pdfClassifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pdf_classification_total",
	Help: "PDF type classifications",
}, []string{"type"})

var retrievalFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "retrieval_fallback_total",
	Help: "Queries where no chunk passed the distance threshold and the top results were used anyway",
})

var chunksStored = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chunks_stored_total",
	Help: "Chunks upserted into the vector index",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CaptureDocumentProcessed(status string) {
	documentsProcessed.WithLabelValues(status).Inc()
}

func CaptureOCRPage(usable bool) {
	outcome := "empty"
	if usable {
		outcome = "text"
	}
	ocrPages.WithLabelValues(outcome).Inc()
}

func CaptureClassification(pdfType string) {
	pdfClassifications.WithLabelValues(pdfType).Inc()
}

func CaptureRetrievalFallback() {
	retrievalFallbacks.Inc()
}

func CaptureChunksStored(n int) {
	chunksStored.Add(float64(n))
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent processing a job.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 120, 600},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls and pipeline steps.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30, 60},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
