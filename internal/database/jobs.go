package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/civicweb/cms/internal/usecase"
)

type Job struct {
	ID         uuid.UUID      `gorm:"column:id;primaryKey;type:uuid"`
	Type       string         `gorm:"column:type;type:varchar(255);NOT NULL;index"`
	Status     string         `gorm:"column:status;type:varchar(255);NOT NULL;index"`
	Payload    datatypes.JSON `gorm:"column:payload"`
	Result     datatypes.JSON `gorm:"column:result"`
	Error      string         `gorm:"column:error;type:text"`
	StartedAt  *time.Time     `gorm:"column:started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

func (j *Job) BeforeCreate(*gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

func (s *service) CreateJob(ctx context.Context, job usecase.Job) (usecase.Job, error) {
	j := Job{
		Type:    job.Type,
		Status:  job.Status,
		Payload: job.Payload,
	}
	if err := s.db.WithContext(ctx).Create(&j).Error; err != nil {
		return usecase.Job{}, err
	}

	return j.ConvertToUsecase(), nil
}

func (s *service) ListJobs(ctx context.Context, opt usecase.ListJobsOption) ([]usecase.Job, int, error) {
	var (
		jobs  []Job
		ujobs []usecase.Job
		count int64
	)

	db := s.db.Model([]Job{}).WithContext(ctx)

	if opt.Types != nil {
		db = db.Where("type IN ?", opt.Types)
	}
	if opt.Statuses != nil {
		db = db.Where("status IN ?", opt.Statuses)
	}

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	db = paginate(db, opt.Skip, opt.Limit)
	db = order(db, opt.SortBy, opt.SortIn, []string{"created_at", "updated_at", "started_at", "finished_at"}, "created_at")

	if err := db.Find(&jobs).Error; err != nil {
		return nil, 0, err
	}

	for _, job := range jobs {
		ujobs = append(ujobs, job.ConvertToUsecase())
	}

	return ujobs, int(count), nil
}

// UpdateJob overwrites the job's progress columns, including cleared ones.
func (s *service) UpdateJob(ctx context.Context, job usecase.Job) (usecase.Job, error) {
	res := s.db.
		WithContext(ctx).
		Model(&Job{ID: job.ID}).
		Select("status", "result", "error", "started_at", "finished_at", "updated_at").
		Updates(Job{
			Status:     job.Status,
			Result:     job.Result,
			Error:      job.Error,
			StartedAt:  job.StartedAt,
			FinishedAt: job.FinishedAt,
			UpdatedAt:  time.Now(),
		})
	if res.Error != nil {
		return usecase.Job{}, res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.Job{}, notFound(gorm.ErrRecordNotFound, job.ID, "job")
	}

	return s.GetJobByID(ctx, job.ID)
}

func (s *service) GetJobByID(ctx context.Context, id uuid.UUID) (usecase.Job, error) {
	var job Job
	if err := s.db.
		WithContext(ctx).
		First(&job, "id = ?", id).Error; err != nil {
		return usecase.Job{}, notFound(err, id, "job")
	}

	return job.ConvertToUsecase(), nil
}

// Convert core model to usecase model
func (j Job) ConvertToUsecase() usecase.Job {
	return usecase.Job{
		ID:         j.ID,
		Type:       j.Type,
		Status:     j.Status,
		Payload:    j.Payload,
		Result:     j.Result,
		Error:      j.Error,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}
