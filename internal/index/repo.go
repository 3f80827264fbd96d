package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vannot/vannot/internal/geo"
	"github.com/vannot/vannot/pkg/core"
)

// Repository persists video and object rows.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewRepository creates a repository on an already-migrated database.
func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// ReplaceVideo upserts the video row and replaces its object rows with the
// given list. The container on disk is authoritative, so rows are rebuilt
// wholesale rather than diffed.
func (r *Repository) ReplaceVideo(rec VideoRecord, objects []core.AnnotatedObject) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing VideoRecord
		err := tx.Where("video_id = ?", rec.VideoID).First(&existing).Error
		switch {
		case err == nil:
			existing.Name = rec.Name
			existing.FileName = rec.FileName
			existing.ObjectCount = rec.ObjectCount
			existing.AnnotatedAt = rec.AnnotatedAt
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("updating video row: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("creating video row: %w", err)
			}
		default:
			return fmt.Errorf("looking up video row: %w", err)
		}

		if err := tx.Unscoped().Where("video_id = ?", rec.VideoID).
			Delete(&ObjectRecord{}).Error; err != nil {
			return fmt.Errorf("clearing object rows: %w", err)
		}

		rows := make([]ObjectRecord, 0, len(objects))
		for _, obj := range objects {
			rows = append(rows, r.toRow(rec.VideoID, obj))
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("creating object rows: %w", err)
		}
		return nil
	})
}

func (r *Repository) toRow(videoID string, obj core.AnnotatedObject) ObjectRecord {
	row := ObjectRecord{
		VideoID:        videoID,
		Name:           obj.Name,
		TemporalMarker: obj.TemporalMarker,
		Code:           obj.Code,
		Category:       obj.Category,
		Domain:         obj.Domain,
		Info:           obj.Info,
		DerivedLink:    obj.DerivedLink,
	}
	if b, err := geo.BoundsOf(obj.Geometry); err == nil {
		row.MinX, row.MinY, row.MaxX, row.MaxY = b.MinX, b.MinY, b.MaxX, b.MaxY
	}
	if len(obj.Polygon) > 0 && json.Valid(obj.Polygon) {
		row.Polygon = datatypes.JSON(obj.Polygon)
	}
	return row
}

// DeleteVideo removes the video row and its object rows.
func (r *Repository) DeleteVideo(videoID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("video_id = ?", videoID).
			Delete(&ObjectRecord{}).Error; err != nil {
			return fmt.Errorf("deleting object rows: %w", err)
		}
		if err := tx.Unscoped().Where("video_id = ?", videoID).
			Delete(&VideoRecord{}).Error; err != nil {
			return fmt.Errorf("deleting video row: %w", err)
		}
		return nil
	})
}

// ListVideos returns all indexed videos, newest first.
func (r *Repository) ListVideos() ([]VideoRecord, error) {
	var videos []VideoRecord
	if err := r.db.Order("annotated_at DESC").Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("listing videos: %w", err)
	}
	return videos, nil
}

// FindObjects returns object rows matching the name fragment across all
// videos, ordered by video then temporal marker.
func (r *Repository) FindObjects(nameLike string) ([]ObjectRecord, error) {
	var rows []ObjectRecord
	q := r.db.Order("video_id, temporal_marker")
	if nameLike != "" {
		q = q.Where("name LIKE ?", "%"+nameLike+"%")
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("finding objects: %w", err)
	}
	return rows, nil
}
