package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"

	"github.com/civicweb/cms/internal/config"
	"github.com/civicweb/cms/internal/database"
	"github.com/civicweb/cms/internal/email"
	"github.com/civicweb/cms/internal/filestorage"
	"github.com/civicweb/cms/internal/firebase"
	"github.com/civicweb/cms/internal/queue"
	"github.com/civicweb/cms/internal/staging"
	"github.com/civicweb/cms/internal/telemetry"
	"github.com/civicweb/cms/internal/usecase"
)

// Service is the usecase surface the handlers call.
type Service interface {
	// Health returns a map of health status information.
	Health() map[string]string

	ListMediaItems(context.Context, usecase.ListMediaItemsOption) ([]usecase.MediaItem, int, error)
	GetMediaItemByID(context.Context, uuid.UUID) (usecase.MediaItem, error)
	CreateMediaItem(context.Context, usecase.MediaInput) (usecase.MediaItem, error)
	UpdateMediaItem(context.Context, uuid.UUID, usecase.MediaInput) (usecase.MediaItem, error)
	DeleteMediaItem(context.Context, uuid.UUID) error

	ListPrograms(context.Context, usecase.ListShowcasesOption) ([]usecase.Program, int, error)
	GetProgramByID(context.Context, uuid.UUID) (usecase.Program, error)
	CreateProgram(context.Context, usecase.ProgramInput) (usecase.Program, error)
	UpdateProgram(context.Context, uuid.UUID, usecase.ProgramInput) (usecase.Program, error)
	DeleteProgram(context.Context, uuid.UUID) error

	ListProjects(context.Context, usecase.ListShowcasesOption) ([]usecase.Project, int, error)
	GetProjectByID(context.Context, uuid.UUID) (usecase.Project, error)
	CreateProject(context.Context, usecase.ProjectInput) (usecase.Project, error)
	UpdateProject(context.Context, uuid.UUID, usecase.ProjectInput) (usecase.Project, error)
	DeleteProject(context.Context, uuid.UUID) error

	ListTimelineEntries(context.Context, usecase.ListShowcasesOption) ([]usecase.TimelineEntry, int, error)
	GetTimelineEntryByID(context.Context, uuid.UUID) (usecase.TimelineEntry, error)
	CreateTimelineEntry(context.Context, usecase.TimelineEntryInput) (usecase.TimelineEntry, error)
	UpdateTimelineEntry(context.Context, uuid.UUID, usecase.TimelineEntryInput) (usecase.TimelineEntry, error)
	DeleteTimelineEntry(context.Context, uuid.UUID) error

	RequestSweep(context.Context, usecase.SweepOption) (usecase.Job, error)
	ListJobs(context.Context, usecase.ListJobsOption) ([]usecase.Job, int, error)
	GetJobByID(context.Context, uuid.UUID) (usecase.Job, error)
}

var _ Service = usecase.Usecase{}

type Server struct {
	server    Service
	validator *validator.Validate
	stager    *staging.Stager
	verifier  TokenVerifier
	log       *slog.Logger
	loginPath string
	// assetsDir is served under /assets when files are stored locally.
	assetsDir string
}

func NewServer(svc Service, stager *staging.Stager, verifier TokenVerifier, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		server:    svc,
		validator: validator.New(),
		stager:    stager,
		verifier:  verifier,
		log:       log,
		loginPath: config.String(config.ENV_KEY_LOGIN_PATH, config.DEFAULT_LOGIN_PATH),
	}
}

// App is the API process: HTTP server plus the resources it must release.
type App struct {
	httpServer *http.Server
	uc         usecase.Usecase
	queue      *queue.Client
	mail       *email.EmailProvider
	shutdown   telemetry.Shutdown
	log        *slog.Logger
}

// NewApp wires every dependency from the environment.
func NewApp(log *slog.Logger) (*App, error) {
	ctx := context.Background()

	shutdown, err := telemetry.Setup(ctx, config.String(config.ENV_KEY_SERVICE_NAME, "cms-api"), log)
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

	var verifier TokenVerifier
	if keyPath := os.Getenv(config.ENV_KEY_FIREBASE_SERVICE_ACCOUNT_KEY_PATH); keyPath != "" || !config.IsLocal() {
		fb, err := firebase.New(ctx, keyPath)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		verifier = fb
	}

	qc := queue.NewClient(queue.RedisOptFromEnv(), log)
	uc := usecase.New(repo, fsp, mailer, qc, log, usecase.ConfigFromEnv())

	stagingDir := config.String(config.ENV_KEY_STAGING_DIR, config.DEFAULT_STAGING_DIR)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	stager := staging.New(log,
		staging.WithDir(stagingDir),
		staging.WithMaxBytes(config.Int64(config.ENV_KEY_MAX_UPLOAD_BYTES, config.DEFAULT_MAX_UPLOAD_BYTES)),
		staging.WithMaxImageBytes(config.Int64(config.ENV_KEY_MAX_IMAGE_BYTES, config.DEFAULT_MAX_IMAGE_BYTES)),
	)

	s := NewServer(uc, stager, verifier, log)
	if local, ok := fsp.(*filestorage.LocalStorage); ok {
		s.assetsDir = local.Root()
	}

	return &App{
		httpServer: &http.Server{
			Addr:         ":" + config.String(config.ENV_KEY_PORT, "8080"),
			Handler:      s.RegisterRoutes(),
			IdleTimeout:  time.Minute,
			ReadTimeout:  time.Minute,
			WriteTimeout: 5 * time.Minute,
		},
		uc:       uc,
		queue:    qc,
		mail:     mp,
		shutdown: shutdown,
		log:      log,
	}, nil
}

func (a *App) Addr() string {
	return a.httpServer.Addr
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not
// an error.
func (a *App) ListenAndServe() error {
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then drains pending deletes and mail
// before closing the queue client and the database.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.httpServer.Shutdown(ctx)

	if a.mail != nil {
		a.mail.Close()
	}
	if cerr := a.uc.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if cerr := a.queue.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if serr := a.shutdown(ctx); serr != nil {
		a.log.Warn("telemetry shutdown failed", slog.String("err", serr.Error()))
	}
	return err
}
