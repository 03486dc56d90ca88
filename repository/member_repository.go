package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kairan-app/kairan/models"
	"gorm.io/gorm"
)

// MemberRepositoryImpl implements MemberRepository
type MemberRepositoryImpl struct {
	*BaseRepository[models.Member, models.MemberFilter]
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &MemberRepositoryImpl{BaseRepository: NewBaseRepository[models.Member, models.MemberFilter](db)}
}

func (r *MemberRepositoryImpl) ByPhone(ctx context.Context, phone string) (*models.Member, error) {
	db := r.getDB(ctx)
	var row models.Member
	if err := db.Where("phone = ?", phone).Last(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *MemberRepositoryImpl) ListActive(ctx context.Context) ([]*models.Member, error) {
	filter := models.MemberFilter{IsActive: boolPtr(true)}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// RecordActivity bumps the activity timestamp and message counter in one update
func (r *MemberRepositoryImpl) RecordActivity(ctx context.Context, memberID uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Member{}).
		Where("id = ?", memberID).
		Updates(map[string]any{
			"last_active_at": at,
			"message_count":  gorm.Expr("message_count + 1"),
			"updated_at":     at,
		}).Error
}

func (r *MemberRepositoryImpl) Update(ctx context.Context, member *models.Member) error {
	db := r.getDB(ctx)
	return db.Save(member).Error
}

func (r *MemberRepositoryImpl) Delete(ctx context.Context, memberID uint) error {
	db := r.getDB(ctx)
	return db.Delete(&models.Member{}, memberID).Error
}

func (r *MemberRepositoryImpl) applyFilter(db *gorm.DB, f models.MemberFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.Phone != nil {
		db = db.Where("phone = ?", *f.Phone)
	}
	if f.IsAdmin != nil {
		db = db.Where("is_admin = ?", *f.IsAdmin)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.GroupRef != nil {
		db = db.Where("? = ANY(group_refs)", *f.GroupRef)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *MemberRepositoryImpl) ByFilter(ctx context.Context, filter models.MemberFilter, orderBy string, limit, offset int) ([]*models.Member, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Member{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Member
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MemberRepositoryImpl) Count(ctx context.Context, filter models.MemberFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Member{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *MemberRepositoryImpl) Exists(ctx context.Context, filter models.MemberFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func boolPtr(b bool) *bool { return &b }
