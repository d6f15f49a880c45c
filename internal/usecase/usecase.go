package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/config"
)

type Repository interface {
	Health() map[string]string
	Close() error

	ListMediaItems(context.Context, ListMediaItemsOption) ([]MediaItem, int, error)
	GetMediaItemByID(context.Context, uuid.UUID) (MediaItem, error)
	CreateMediaItem(context.Context, MediaItem) (MediaItem, error)
	UpdateMediaItem(context.Context, MediaItem) (MediaItem, error)
	DeleteMediaItem(context.Context, uuid.UUID) error

	ListPrograms(context.Context, ListShowcasesOption) ([]Program, int, error)
	GetProgramByID(context.Context, uuid.UUID) (Program, error)
	CreateProgram(context.Context, Program) (Program, error)
	UpdateProgram(context.Context, Program) (Program, error)
	DeleteProgram(context.Context, uuid.UUID) error

	ListProjects(context.Context, ListShowcasesOption) ([]Project, int, error)
	GetProjectByID(context.Context, uuid.UUID) (Project, error)
	CreateProject(context.Context, Project) (Project, error)
	UpdateProject(context.Context, Project) (Project, error)
	DeleteProject(context.Context, uuid.UUID) error

	ListTimelineEntries(context.Context, ListShowcasesOption) ([]TimelineEntry, int, error)
	GetTimelineEntryByID(context.Context, uuid.UUID) (TimelineEntry, error)
	CreateTimelineEntry(context.Context, TimelineEntry) (TimelineEntry, error)
	UpdateTimelineEntry(context.Context, TimelineEntry) (TimelineEntry, error)
	DeleteTimelineEntry(context.Context, uuid.UUID) error

	// ReferencedRemoteIDs returns every remote id any entity references.
	ReferencedRemoteIDs(context.Context) (map[string]struct{}, error)

	ListJobs(context.Context, ListJobsOption) ([]Job, int, error)
	GetJobByID(context.Context, uuid.UUID) (Job, error)
	CreateJob(context.Context, Job) (Job, error)
	UpdateJob(context.Context, Job) (Job, error)
}

// FileStorageProvider is the remote object store holding every asset.
type FileStorageProvider interface {
	asset.Store
	asset.Lister
}

type Mailer interface {
	SendEmail(context.Context, Email) error
}

// Queue enqueues background jobs. The worker process runs without one.
type Queue interface {
	EnqueueJob(ctx context.Context, jobID uuid.UUID, jobType string, payload []byte) error
}

type Config struct {
	UploadConcurrency int
	DeleteRatePerSec  int
	DeleteTimeout     time.Duration
	SweepGracePeriod  time.Duration
	SweepReportTo     []string
	MailFrom          string
}

// ConfigFromEnv reads the usecase tunables, falling back to defaults.
func ConfigFromEnv() Config {
	var to []string
	for _, addr := range strings.Split(config.String(config.ENV_KEY_SWEEP_REPORT_TO, ""), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	return Config{
		UploadConcurrency: config.Int(config.ENV_KEY_UPLOAD_CONCURRENCY, config.DEFAULT_UPLOAD_CONCURRENCY),
		DeleteRatePerSec:  config.Int(config.ENV_KEY_DELETE_RATE_PER_SEC, config.DEFAULT_DELETE_RATE_PER_SEC),
		DeleteTimeout:     config.Duration(config.ENV_KEY_REMOTE_DELETE_TIMEOUT, config.DEFAULT_REMOTE_DELETE_TIMEOUT),
		SweepGracePeriod:  config.Duration(config.ENV_KEY_SWEEP_GRACE_PERIOD, config.DEFAULT_SWEEP_GRACE_PERIOD),
		SweepReportTo:     to,
		MailFrom:          config.String(config.ENV_KEY_MAIL_FROM, ""),
	}
}

func New(
	repo Repository,
	fsp FileStorageProvider,
	mailer Mailer,
	queue Queue,
	log *slog.Logger,
	cfg Config,
) Usecase {
	if log == nil {
		log = slog.Default()
	}
	return Usecase{
		repo:   repo,
		lister: fsp,
		reconciler: asset.NewReconciler(fsp, log,
			asset.WithUploadConcurrency(cfg.UploadConcurrency),
		),
		cleaner: asset.NewCleaner(fsp, log,
			asset.WithDeleteRate(cfg.DeleteRatePerSec),
			asset.WithDeleteTimeout(cfg.DeleteTimeout),
		),
		mailer: mailer,
		queue:  queue,
		log:    log,
		cfg:    cfg,
	}
}

type Usecase struct {
	repo       Repository
	lister     asset.Lister
	reconciler *asset.Reconciler
	cleaner    *asset.Cleaner
	mailer     Mailer
	queue      Queue
	log        *slog.Logger
	cfg        Config
}

func (u Usecase) Health() map[string]string {
	return u.repo.Health()
}

// Close waits for in-flight remote deletes, then closes the repository.
func (u Usecase) Close() error {
	u.cleaner.Wait()
	return u.repo.Close()
}
