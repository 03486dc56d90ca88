package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kairan-app/kairan/models"
	"gorm.io/gorm"
)

// BroadcastMessageRepositoryImpl implements BroadcastMessageRepository
type BroadcastMessageRepositoryImpl struct {
	*BaseRepository[models.BroadcastMessage, models.BroadcastMessageFilter]
}

func NewBroadcastMessageRepository(db *gorm.DB) BroadcastMessageRepository {
	return &BroadcastMessageRepositoryImpl{BaseRepository: NewBaseRepository[models.BroadcastMessage, models.BroadcastMessageFilter](db)}
}

func (r *BroadcastMessageRepositoryImpl) Update(ctx context.Context, message *models.BroadcastMessage) error {
	db := r.getDB(ctx)
	return db.Save(message).Error
}

// ListRecent returns broadcast messages created after the given instant,
// newest first. Used by the reaction resolver's bounded search window.
func (r *BroadcastMessageRepositoryImpl) ListRecent(ctx context.Context, since time.Time, limit int) ([]*models.BroadcastMessage, error) {
	filter := models.BroadcastMessageFilter{CreatedAfter: &since}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, 0)
}

// Latest returns the most recently created broadcast, or nil when none exist
func (r *BroadcastMessageRepositoryImpl) Latest(ctx context.Context) (*models.BroadcastMessage, error) {
	db := r.getDB(ctx)
	var row models.BroadcastMessage
	if err := db.Order("created_at DESC").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *BroadcastMessageRepositoryImpl) applyFilter(db *gorm.DB, f models.BroadcastMessageFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.SenderID != nil {
		db = db.Where("sender_id = ?", *f.SenderID)
	}
	if f.ProcessingStatus != nil {
		db = db.Where("processing_status = ?", *f.ProcessingStatus)
	}
	if f.DeliveryStatus != nil {
		db = db.Where("delivery_status = ?", *f.DeliveryStatus)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *BroadcastMessageRepositoryImpl) ByFilter(ctx context.Context, filter models.BroadcastMessageFilter, orderBy string, limit, offset int) ([]*models.BroadcastMessage, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.BroadcastMessage{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.BroadcastMessage
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BroadcastMessageRepositoryImpl) Count(ctx context.Context, filter models.BroadcastMessageFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.BroadcastMessage{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *BroadcastMessageRepositoryImpl) Exists(ctx context.Context, filter models.BroadcastMessageFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
