package queue

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"

	"github.com/civicweb/cms/internal/config"
	"github.com/civicweb/cms/internal/database"
	"github.com/civicweb/cms/internal/email"
	"github.com/civicweb/cms/internal/filestorage"
	"github.com/civicweb/cms/internal/queue/handlers"
	"github.com/civicweb/cms/internal/telemetry"
	"github.com/civicweb/cms/internal/usecase"
)

// RedisOptFromEnv reads the REDIS_* env.
func RedisOptFromEnv() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr: net.JoinHostPort(
			config.String(config.ENV_KEY_REDIS_HOST, "localhost"),
			config.String(config.ENV_KEY_REDIS_PORT, "6379"),
		),
		Password: config.String(config.ENV_KEY_REDIS_PASSWORD, ""),
	}
}

// Worker represents a worker application with all its dependencies
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	uc       usecase.Usecase
	mail     *email.EmailProvider
	shutdown telemetry.Shutdown
	log      *slog.Logger
}

// NewWorker creates a fully configured worker with all dependencies
func NewWorker(log *slog.Logger) (*Worker, error) {
	ctx := context.Background()
	log.Info("initializing worker dependencies")

	shutdown, err := telemetry.Setup(ctx, config.String(config.ENV_KEY_SERVICE_NAME, "cms-worker"), log)
	if err != nil {
		return nil, err
	}

	gormDB, err := database.Open(log)
	if err != nil {
		return nil, err
	}
	repo, err := database.New(gormDB, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	fsp, err := filestorage.NewFromEnv(ctx, log)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to create file storage: %w", err)
	}

	mp, err := email.NewFromEnv(log)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	var mailer usecase.Mailer
	if mp != nil {
		mailer = mp
	}

	// Workers never enqueue.
	uc := usecase.New(repo, fsp, mailer, nil, log, usecase.ConfigFromEnv())

	server := asynq.NewServer(
		RedisOptFromEnv(),
		asynq.Config{
			Concurrency: config.Int(config.ENV_KEY_WORKER_CONCURRENCY, 10),
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger: newAsynqLogger(log),
		},
	)

	mux := asynq.NewServeMux()
	h := handlers.NewHandlers(uc, log)
	mux.HandleFunc(config.TASK_TYPE_SWEEP_ORPHANS, h.HandleSweepOrphans)

	log.Info("worker registered handlers", slog.Any("types", []string{config.TASK_TYPE_SWEEP_ORPHANS}))

	return &Worker{
		server:   server,
		mux:      mux,
		uc:       uc,
		mail:     mp,
		shutdown: shutdown,
		log:      log,
	}, nil
}

// Start starts the worker server
func (w *Worker) Start() error {
	w.log.Info("worker started")
	return w.server.Start(w.mux)
}

// Stop drains running tasks, queued mail and pending deletes, then closes
// the database.
func (w *Worker) Stop() {
	w.log.Info("stopping worker")
	w.server.Shutdown()

	if w.mail != nil {
		w.mail.Close()
	}
	if err := w.uc.Close(); err != nil {
		w.log.Error("close usecase failed", slog.String("err", err.Error()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.shutdown(ctx); err != nil {
		w.log.Error("telemetry shutdown failed", slog.String("err", err.Error()))
	}
}

// Scheduler enqueues periodic tasks.
type Scheduler struct {
	scheduler *asynq.Scheduler
	log       *slog.Logger
}

// NewScheduler registers the orphan sweep on SWEEP_CRON.
func NewScheduler(log *slog.Logger) (*Scheduler, error) {
	scheduler := asynq.NewScheduler(RedisOptFromEnv(), &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   newAsynqLogger(log),
	})

	spec := config.String(config.ENV_KEY_SWEEP_CRON, config.DEFAULT_SWEEP_CRON)
	entryID, err := scheduler.Register(spec,
		asynq.NewTask(config.TASK_TYPE_SWEEP_ORPHANS, nil),
		asynq.Queue("low"),
		asynq.Unique(time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("register sweep %q: %w", spec, err)
	}
	log.Info("scheduled task registered",
		slog.String("type", config.TASK_TYPE_SWEEP_ORPHANS),
		slog.String("cron", spec),
		slog.String("entry_id", entryID))

	return &Scheduler{scheduler: scheduler, log: log}, nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	s.log.Info("stopping scheduler")
	s.scheduler.Shutdown()
}
