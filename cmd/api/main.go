// @title           DocMind API
// @version         1.0
// @description     Asynchronous ingestion, question answering and summarization over research-paper PDFs.
// @BasePath  /
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/DocMind/internal/bootstrap"
	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/data/store"
	"github.com/akolanti/DocMind/internal/domain/jobModel"
	"github.com/akolanti/DocMind/internal/handlers"
	"github.com/akolanti/DocMind/internal/job"
	"github.com/akolanti/DocMind/internal/server"
	"github.com/akolanti/DocMind/internal/worker"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

var (
	listenAddr        string
	configDir         string
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides server.listenAddr")
	flag.StringVar(&configDir, "config", "", "directory holding docmind.yaml")
	flag.Parse()

	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	settings, err := config.Load(paths...)
	if err != nil {
		logger_i.Init()
		logger_i.NewLogger("main").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	config.Use(settings)
	if listenAddr == "" {
		listenAddr = settings.Server.ListenAddr
	}

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//init buffered job channel
	jobChannel := make(chan jobModel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	jobStore, messageStore := store.GetRedisJobStore(serviceContext), store.GetRedisMessageStore(serviceContext)
	if jobStore == nil || messageStore == nil {
		logger.Warn("Redis stores are offline, jobs and chats are kept in memory")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.MessageStore = store.InitMessageStore()
	} else {
		serviceConfig.JobStore = jobStore
		serviceConfig.MessageStore = messageStore
	}
	service := job.InitJobService(serviceConfig)

	app, err := bootstrap.New(serviceContext, settings)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("closing backends", "error", err)
		}
	}()

	handlers.InitJobHandler(service, app.Service, settings.Server)

	//init worker pool
	worker.InitServices(service, app.Service)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
