package database

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/usecase"
)

type MediaItem struct {
	ID          uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	Title       string    `gorm:"column:title;type:varchar(255);not null"`
	Description string    `gorm:"column:description;type:text"`
	Type        string    `gorm:"column:type;type:varchar(20);not null;index"`
	SourceMode  string    `gorm:"column:source_mode;type:varchar(20)"`
	ExternalURL string    `gorm:"column:external_url;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`

	Assets []Asset `gorm:"polymorphic:Owner;polymorphicValue:media_items"`
}

func (MediaItem) TableName() string {
	return "media_items"
}

func (m *MediaItem) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (s *service) ListMediaItems(ctx context.Context, opt usecase.ListMediaItemsOption) ([]usecase.MediaItem, int, error) {
	var (
		items  []MediaItem
		uitems []usecase.MediaItem
		count  int64
	)

	db := s.db.Model([]MediaItem{}).WithContext(ctx)

	if opt.Title != "" {
		db = db.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(opt.Title)+"%")
	}
	if opt.Type != "" {
		db = db.Where("type = ?", opt.Type)
	}

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	db = paginate(db, opt.Skip, opt.Limit)
	db = order(db, opt.SortBy, opt.SortIn, []string{"created_at", "updated_at", "title", "type"}, "created_at")

	if err := db.Preload("Assets", orderedAssets).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	for _, m := range items {
		uitems = append(uitems, m.ConvertToUsecase())
	}
	return uitems, int(count), nil
}

func (s *service) GetMediaItemByID(ctx context.Context, id uuid.UUID) (usecase.MediaItem, error) {
	var m MediaItem
	err := s.db.
		WithContext(ctx).
		Preload("Assets", orderedAssets).
		First(&m, "id = ?", id).Error
	if err != nil {
		return usecase.MediaItem{}, notFound(err, id, "media")
	}
	return m.ConvertToUsecase(), nil
}

func (s *service) CreateMediaItem(ctx context.Context, um usecase.MediaItem) (usecase.MediaItem, error) {
	rows, err := primaryAssets(um.Primary, roleFile)
	if err != nil {
		return usecase.MediaItem{}, err
	}
	m := mediaItemFromUsecase(um)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			return err
		}
		return replaceAssets(tx, ownerMediaItem, m.ID, rows)
	})
	if err != nil {
		return usecase.MediaItem{}, err
	}
	return s.GetMediaItemByID(ctx, m.ID)
}

func (s *service) UpdateMediaItem(ctx context.Context, um usecase.MediaItem) (usecase.MediaItem, error) {
	rows, err := primaryAssets(um.Primary, roleFile)
	if err != nil {
		return usecase.MediaItem{}, err
	}
	m := mediaItemFromUsecase(um)
	m.UpdatedAt = time.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&MediaItem{ID: m.ID}).
			Select("title", "description", "type", "source_mode", "external_url", "updated_at").
			Updates(&m)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return replaceAssets(tx, ownerMediaItem, m.ID, rows)
	})
	if err != nil {
		return usecase.MediaItem{}, notFound(err, m.ID, "media")
	}
	return s.GetMediaItemByID(ctx, m.ID)
}

func (s *service) DeleteMediaItem(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteAssets(tx, ownerMediaItem, id); err != nil {
			return err
		}
		return tx.Delete(&MediaItem{}, "id = ?", id).Error
	})
}

func mediaItemFromUsecase(m usecase.MediaItem) MediaItem {
	return MediaItem{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Type:        string(m.Type),
		SourceMode:  string(m.Primary.Mode),
		ExternalURL: m.Primary.ExternalURL,
	}
}

// Convert core model to usecase model
func (m MediaItem) ConvertToUsecase() usecase.MediaItem {
	return usecase.MediaItem{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Type:        asset.Kind(m.Type),
		Primary:     primarySlot(asset.SourceMode(m.SourceMode), m.ExternalURL, m.Assets, roleFile),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func paginate(db *gorm.DB, skip, limit int) *gorm.DB {
	if limit > 0 {
		db = db.Limit(limit)
	}
	if skip > 0 {
		db = db.Offset(skip)
	}
	return db
}

// order applies sortBy when it is one of sortable, else def. Descending
// unless sortIn is ASC.
func order(db *gorm.DB, sortBy, sortIn string, sortable []string, def string) *gorm.DB {
	if !slices.Contains(sortable, sortBy) {
		sortBy = def
	}
	return db.Order(clause.OrderByColumn{
		Column: clause.Column{Name: sortBy},
		Desc:   !strings.EqualFold(sortIn, "ASC"),
	})
}
