package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/civicweb/cms/internal/asset"
	"github.com/civicweb/cms/internal/usecase"
)

// Owner types, one per entity table holding assets.
const (
	ownerMediaItem     = "media_items"
	ownerProgram       = "programs"
	ownerProject       = "projects"
	ownerTimelineEntry = "timeline_entries"
)

// Asset roles.
const (
	roleFile      = "file"
	roleThumbnail = "thumbnail"
	roleCover     = "cover"
	roleGallery   = "gallery"
)

// Asset is one stored object referenced by an entity. The rows of an
// entity are replaced as a whole on every write.
type Asset struct {
	ID        uuid.UUID                    `gorm:"column:id;primaryKey;type:uuid"`
	OwnerType string                       `gorm:"column:owner_type;type:varchar(50);not null;index:idx_assets_owner"`
	OwnerID   uuid.UUID                    `gorm:"column:owner_id;type:uuid;not null;index:idx_assets_owner"`
	Role      string                       `gorm:"column:role;type:varchar(20);not null"`
	Position  int                          `gorm:"column:position;type:int;default:0"`
	Kind      string                       `gorm:"column:kind;type:varchar(20);not null"`
	URL       string                       `gorm:"column:url;type:text;not null"`
	RemoteID  string                       `gorm:"column:remote_id;type:varchar(512);not null;index"`
	Palette   datatypes.JSONType[[]string] `gorm:"column:palette"`
	CreatedAt time.Time                    `gorm:"column:created_at"`
}

func (Asset) TableName() string {
	return "assets"
}

func (a *Asset) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func newAsset(role string, pos int, ref asset.Reference) (Asset, error) {
	if !ref.Complete() {
		return Asset{}, fmt.Errorf("refusing to persist incomplete %s reference %q", role, ref.RemoteID)
	}
	return Asset{
		Role:     role,
		Position: pos,
		Kind:     string(ref.Kind),
		URL:      ref.URL,
		RemoteID: ref.RemoteID,
		Palette:  datatypes.NewJSONType(ref.Palette),
	}, nil
}

func (a Asset) ConvertToUsecase() asset.Reference {
	return asset.Reference{
		URL:      a.URL,
		RemoteID: a.RemoteID,
		Kind:     asset.Kind(a.Kind),
		Palette:  a.Palette.Data(),
	}
}

// primaryAssets flattens a primary slot into rows, the file under fileRole.
func primaryAssets(slot asset.PrimarySlot, fileRole string) ([]Asset, error) {
	var rows []Asset
	if slot.File != nil {
		a, err := newAsset(fileRole, 0, *slot.File)
		if err != nil {
			return nil, err
		}
		rows = append(rows, a)
	}
	if slot.Thumbnail != nil {
		a, err := newAsset(roleThumbnail, 0, *slot.Thumbnail)
		if err != nil {
			return nil, err
		}
		rows = append(rows, a)
	}
	return rows, nil
}

func showcaseAssets(s usecase.Showcase) ([]Asset, error) {
	rows, err := primaryAssets(s.Cover, roleCover)
	if err != nil {
		return nil, err
	}
	for i, ref := range s.Gallery {
		a, err := newAsset(roleGallery, i, ref)
		if err != nil {
			return nil, err
		}
		rows = append(rows, a)
	}
	return rows, nil
}

// primarySlot rebuilds a slot from rows. mode and link come from the
// owning entity.
func primarySlot(mode asset.SourceMode, link string, rows []Asset, fileRole string) asset.PrimarySlot {
	slot := asset.PrimarySlot{Mode: mode, ExternalURL: link}
	for _, a := range rows {
		ref := a.ConvertToUsecase()
		switch a.Role {
		case fileRole:
			slot.File = &ref
		case roleThumbnail:
			slot.Thumbnail = &ref
		}
	}
	return slot
}

func showcase(rows []Asset) usecase.Showcase {
	var s usecase.Showcase
	s.Cover = primarySlot("", "", rows, roleCover)
	if s.Cover.File != nil {
		s.Cover.Mode = asset.ModeUpload
	}
	for _, a := range rows {
		if a.Role == roleGallery {
			s.Gallery = append(s.Gallery, a.ConvertToUsecase())
		}
	}
	return s
}

// replaceAssets swaps the owner's rows for rows inside tx.
func replaceAssets(tx *gorm.DB, ownerType string, ownerID uuid.UUID, rows []Asset) error {
	if err := tx.
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Delete(&Asset{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].ID = uuid.Nil
		rows[i].OwnerType = ownerType
		rows[i].OwnerID = ownerID
	}
	return tx.Create(&rows).Error
}

func deleteAssets(tx *gorm.DB, ownerType string, ownerID uuid.UUID) error {
	return tx.
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Delete(&Asset{}).Error
}

func orderedAssets(db *gorm.DB) *gorm.DB {
	return db.Order("role").Order("position")
}
