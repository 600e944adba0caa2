package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/job"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/internal/rag"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

var (
	_jobService        *job.Service
	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	dispatcherChannel  chan bool
	currentWorkerCount int64
	logger             = logger_i.NewLogger("worker_pool")
	_ragService        rag.Service
	minWorkerCount     = config.MinWorkerCount
	idleTimeout        = config.IdleWorkerTimeout
)

func InitServices(jobService *job.Service, ragService rag.Service) {
	_jobService = jobService
	_ragService = ragService
	dispatcherChannel = jobService.DispatcherChannel
}

// InitWorkerPool starts the dispatcher, which grows the pool on every signal up to MaxWorkerCount.
func InitWorkerPool(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	stopWorkerChannel = stopWorkerChan
	workerWaitGroup = waitGroup
	logger.Info("Initializing worker pool", "min", minWorkerCount, "max", config.MaxWorkerCount)
	go dispatcher()
}

func dispatcher() {
	for range atomic.LoadInt64(&minWorkerCount) {
		createWorker()
	}
	logger.Info("Dispatcher started")
	for range dispatcherChannel {
		metrics.StartDispatcherSignalCount()
		if atomic.LoadInt64(&currentWorkerCount) < config.MaxWorkerCount {
			logger.Info("Creating new worker", "workerCount", atomic.LoadInt64(&currentWorkerCount))
			createWorker()
		}
	}
}

func createWorker() {
	workerWaitGroup.Add(1)
	atomic.AddInt64(&currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	go worker()
}

func worker() {
	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()
	for {
		select {
		case currentJob := <-_jobService.JobChannel:
			executeJob(currentJob)
			metrics.DecrementJobsInQueue()
			idle.Reset(idleTimeout)

		case <-stopWorkerChannel:
			removeWorker("stop signal received")
			return

		case <-idle.C:
			// the pool never shrinks below its floor
			if atomic.LoadInt64(&currentWorkerCount) > atomic.LoadInt64(&minWorkerCount) {
				removeWorker("idle timeout")
				return
			}
			idle.Reset(idleTimeout)
		}
	}
}

func removeWorker(reason string) {
	count := atomic.AddInt64(&currentWorkerCount, -1)
	metrics.DecrementActiveWorkerCount()
	logger.Info("Removed worker", "reason", reason, "workerCount", count)
	workerWaitGroup.Done()
}
