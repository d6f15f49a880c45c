package database

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicweb/cms/internal/usecase"
)

type Program struct {
	ID        uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	Title     string    `gorm:"column:title;type:varchar(255);not null"`
	Summary   string    `gorm:"column:summary;type:text"`
	Body      string    `gorm:"column:body;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	Assets []Asset `gorm:"polymorphic:Owner;polymorphicValue:programs"`
}

func (Program) TableName() string {
	return "programs"
}

type Project struct {
	ID        uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	Title     string    `gorm:"column:title;type:varchar(255);not null"`
	Summary   string    `gorm:"column:summary;type:text"`
	Status    string    `gorm:"column:status;type:varchar(20);not null;index;check:status IN ('planned', 'active', 'completed');default:'planned'"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	Assets []Asset `gorm:"polymorphic:Owner;polymorphicValue:projects"`
}

func (Project) TableName() string {
	return "projects"
}

type TimelineEntry struct {
	ID          uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	Title       string    `gorm:"column:title;type:varchar(255);not null"`
	Description string    `gorm:"column:description;type:text"`
	OccurredOn  time.Time `gorm:"column:occurred_on;type:date;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`

	Assets []Asset `gorm:"polymorphic:Owner;polymorphicValue:timeline_entries"`
}

func (TimelineEntry) TableName() string {
	return "timeline_entries"
}

func (p *Program) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (e *TimelineEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func titleLike(db *gorm.DB, title string) *gorm.DB {
	if title == "" {
		return db
	}
	return db.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(title)+"%")
}

// saveShowcase writes an entity row and its assets in one transaction.
// columns limits an update to the scalar columns the entity owns; a nil
// columns creates the row.
func (s *service) saveShowcase(ctx context.Context, ownerType string, id uuid.UUID, row any, sc usecase.Showcase, columns []string) error {
	rows, err := showcaseAssets(sc)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if columns == nil {
			if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
				return err
			}
		} else {
			res := tx.Model(row).Select(append(columns, "updated_at")).Updates(row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return replaceAssets(tx, ownerType, id, rows)
	})
}

func (s *service) deleteShowcase(ctx context.Context, ownerType string, id uuid.UUID, model any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteAssets(tx, ownerType, id); err != nil {
			return err
		}
		return tx.Delete(model, "id = ?", id).Error
	})
}

func (s *service) ListPrograms(ctx context.Context, opt usecase.ListShowcasesOption) ([]usecase.Program, int, error) {
	var (
		programs  []Program
		uprograms []usecase.Program
		count     int64
	)

	db := titleLike(s.db.Model([]Program{}).WithContext(ctx), opt.Title)
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	db = paginate(db, opt.Skip, opt.Limit)
	db = order(db, opt.SortBy, opt.SortIn, []string{"created_at", "updated_at", "title"}, "created_at")
	if err := db.Preload("Assets", orderedAssets).Find(&programs).Error; err != nil {
		return nil, 0, err
	}

	for _, p := range programs {
		uprograms = append(uprograms, p.ConvertToUsecase())
	}
	return uprograms, int(count), nil
}

func (s *service) GetProgramByID(ctx context.Context, id uuid.UUID) (usecase.Program, error) {
	var p Program
	err := s.db.WithContext(ctx).Preload("Assets", orderedAssets).First(&p, "id = ?", id).Error
	if err != nil {
		return usecase.Program{}, notFound(err, id, "program")
	}
	return p.ConvertToUsecase(), nil
}

func (s *service) CreateProgram(ctx context.Context, up usecase.Program) (usecase.Program, error) {
	p := Program{ID: uuid.New(), Title: up.Title, Summary: up.Summary, Body: up.Body}
	if err := s.saveShowcase(ctx, ownerProgram, p.ID, &p, up.Showcase, nil); err != nil {
		return usecase.Program{}, err
	}
	return s.GetProgramByID(ctx, p.ID)
}

func (s *service) UpdateProgram(ctx context.Context, up usecase.Program) (usecase.Program, error) {
	p := Program{ID: up.ID, Title: up.Title, Summary: up.Summary, Body: up.Body, UpdatedAt: time.Now()}
	err := s.saveShowcase(ctx, ownerProgram, p.ID, &p, up.Showcase, []string{"title", "summary", "body"})
	if err != nil {
		return usecase.Program{}, notFound(err, p.ID, "program")
	}
	return s.GetProgramByID(ctx, p.ID)
}

func (s *service) DeleteProgram(ctx context.Context, id uuid.UUID) error {
	return s.deleteShowcase(ctx, ownerProgram, id, &Program{})
}

func (p Program) ConvertToUsecase() usecase.Program {
	return usecase.Program{
		ID:        p.ID,
		Title:     p.Title,
		Summary:   p.Summary,
		Body:      p.Body,
		Showcase:  showcase(p.Assets),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (s *service) ListProjects(ctx context.Context, opt usecase.ListShowcasesOption) ([]usecase.Project, int, error) {
	var (
		projects  []Project
		uprojects []usecase.Project
		count     int64
	)

	db := titleLike(s.db.Model([]Project{}).WithContext(ctx), opt.Title)
	if opt.Status != "" {
		db = db.Where("status = ?", opt.Status)
	}
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	db = paginate(db, opt.Skip, opt.Limit)
	db = order(db, opt.SortBy, opt.SortIn, []string{"created_at", "updated_at", "title", "status"}, "created_at")
	if err := db.Preload("Assets", orderedAssets).Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	for _, p := range projects {
		uprojects = append(uprojects, p.ConvertToUsecase())
	}
	return uprojects, int(count), nil
}

func (s *service) GetProjectByID(ctx context.Context, id uuid.UUID) (usecase.Project, error) {
	var p Project
	err := s.db.WithContext(ctx).Preload("Assets", orderedAssets).First(&p, "id = ?", id).Error
	if err != nil {
		return usecase.Project{}, notFound(err, id, "project")
	}
	return p.ConvertToUsecase(), nil
}

func (s *service) CreateProject(ctx context.Context, up usecase.Project) (usecase.Project, error) {
	p := Project{ID: uuid.New(), Title: up.Title, Summary: up.Summary, Status: up.Status}
	if err := s.saveShowcase(ctx, ownerProject, p.ID, &p, up.Showcase, nil); err != nil {
		return usecase.Project{}, err
	}
	return s.GetProjectByID(ctx, p.ID)
}

func (s *service) UpdateProject(ctx context.Context, up usecase.Project) (usecase.Project, error) {
	p := Project{ID: up.ID, Title: up.Title, Summary: up.Summary, Status: up.Status, UpdatedAt: time.Now()}
	err := s.saveShowcase(ctx, ownerProject, p.ID, &p, up.Showcase, []string{"title", "summary", "status"})
	if err != nil {
		return usecase.Project{}, notFound(err, p.ID, "project")
	}
	return s.GetProjectByID(ctx, p.ID)
}

func (s *service) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return s.deleteShowcase(ctx, ownerProject, id, &Project{})
}

func (p Project) ConvertToUsecase() usecase.Project {
	return usecase.Project{
		ID:        p.ID,
		Title:     p.Title,
		Summary:   p.Summary,
		Status:    p.Status,
		Showcase:  showcase(p.Assets),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (s *service) ListTimelineEntries(ctx context.Context, opt usecase.ListShowcasesOption) ([]usecase.TimelineEntry, int, error) {
	var (
		entries  []TimelineEntry
		uentries []usecase.TimelineEntry
		count    int64
	)

	db := titleLike(s.db.Model([]TimelineEntry{}).WithContext(ctx), opt.Title)
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	db = paginate(db, opt.Skip, opt.Limit)
	db = order(db, opt.SortBy, opt.SortIn, []string{"occurred_on", "created_at", "updated_at", "title"}, "occurred_on")
	if err := db.Preload("Assets", orderedAssets).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	for _, e := range entries {
		uentries = append(uentries, e.ConvertToUsecase())
	}
	return uentries, int(count), nil
}

func (s *service) GetTimelineEntryByID(ctx context.Context, id uuid.UUID) (usecase.TimelineEntry, error) {
	var e TimelineEntry
	err := s.db.WithContext(ctx).Preload("Assets", orderedAssets).First(&e, "id = ?", id).Error
	if err != nil {
		return usecase.TimelineEntry{}, notFound(err, id, "timeline_entry")
	}
	return e.ConvertToUsecase(), nil
}

func (s *service) CreateTimelineEntry(ctx context.Context, ue usecase.TimelineEntry) (usecase.TimelineEntry, error) {
	e := TimelineEntry{ID: uuid.New(), Title: ue.Title, Description: ue.Description, OccurredOn: ue.OccurredOn}
	if err := s.saveShowcase(ctx, ownerTimelineEntry, e.ID, &e, ue.Showcase, nil); err != nil {
		return usecase.TimelineEntry{}, err
	}
	return s.GetTimelineEntryByID(ctx, e.ID)
}

func (s *service) UpdateTimelineEntry(ctx context.Context, ue usecase.TimelineEntry) (usecase.TimelineEntry, error) {
	e := TimelineEntry{
		ID:          ue.ID,
		Title:       ue.Title,
		Description: ue.Description,
		OccurredOn:  ue.OccurredOn,
		UpdatedAt:   time.Now(),
	}
	err := s.saveShowcase(ctx, ownerTimelineEntry, e.ID, &e, ue.Showcase, []string{"title", "description", "occurred_on"})
	if err != nil {
		return usecase.TimelineEntry{}, notFound(err, e.ID, "timeline_entry")
	}
	return s.GetTimelineEntryByID(ctx, e.ID)
}

func (s *service) DeleteTimelineEntry(ctx context.Context, id uuid.UUID) error {
	return s.deleteShowcase(ctx, ownerTimelineEntry, id, &TimelineEntry{})
}

func (e TimelineEntry) ConvertToUsecase() usecase.TimelineEntry {
	return usecase.TimelineEntry{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		OccurredOn:  e.OccurredOn.UTC(),
		Showcase:    showcase(e.Assets),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// ReferencedRemoteIDs returns the remote id of every asset row.
func (s *service) ReferencedRemoteIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	if err := s.db.
		WithContext(ctx).
		Model(&Asset{}).
		Distinct().
		Pluck("remote_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}
