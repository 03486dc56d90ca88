package repository

import (
	"context"

	"github.com/kairan-app/kairan/models"
	"gorm.io/gorm"
)

// DeliveryLogRepositoryImpl implements DeliveryLogRepository
type DeliveryLogRepositoryImpl struct {
	*BaseRepository[models.DeliveryLog, models.DeliveryLogFilter]
}

func NewDeliveryLogRepository(db *gorm.DB) DeliveryLogRepository {
	return &DeliveryLogRepositoryImpl{BaseRepository: NewBaseRepository[models.DeliveryLog, models.DeliveryLogFilter](db)}
}

func (r *DeliveryLogRepositoryImpl) ListByMessage(ctx context.Context, messageID uint) ([]*models.DeliveryLog, error) {
	filter := models.DeliveryLogFilter{MessageID: &messageID}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

func (r *DeliveryLogRepositoryImpl) applyFilter(db *gorm.DB, f models.DeliveryLogFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.MessageID != nil {
		db = db.Where("message_id = ?", *f.MessageID)
	}
	if f.RecipientID != nil {
		db = db.Where("recipient_id = ?", *f.RecipientID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *DeliveryLogRepositoryImpl) ByFilter(ctx context.Context, filter models.DeliveryLogFilter, orderBy string, limit, offset int) ([]*models.DeliveryLog, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DeliveryLog{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.DeliveryLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *DeliveryLogRepositoryImpl) Count(ctx context.Context, filter models.DeliveryLogFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DeliveryLog{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DeliveryLogRepositoryImpl) Exists(ctx context.Context, filter models.DeliveryLogFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
