package repository

import (
	"context"
	"errors"

	"github.com/kairan-app/kairan/models"
	"gorm.io/gorm"
)

// MessageReactionRepositoryImpl implements MessageReactionRepository
type MessageReactionRepositoryImpl struct {
	*BaseRepository[models.MessageReaction, models.MessageReactionFilter]
}

func NewMessageReactionRepository(db *gorm.DB) MessageReactionRepository {
	return &MessageReactionRepositoryImpl{BaseRepository: NewBaseRepository[models.MessageReaction, models.MessageReactionFilter](db)}
}

// ByDedupeKey looks up the unique reaction row for (message, reactor, type).
// Returns nil when no such row exists.
func (r *MessageReactionRepositoryImpl) ByDedupeKey(ctx context.Context, messageID uint, reactorPhone string, reactionType models.ReactionType) (*models.MessageReaction, error) {
	db := r.getDB(ctx)
	var row models.MessageReaction
	err := db.Where("message_id = ? AND reactor_phone = ? AND reaction_type = ?", messageID, reactorPhone, reactionType).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *MessageReactionRepositoryImpl) ListUnprocessed(ctx context.Context) ([]*models.MessageReaction, error) {
	filter := models.MessageReactionFilter{Processed: falsePtr()}
	return r.ByFilter(ctx, filter, "created_at ASC", 0, 0)
}

func (r *MessageReactionRepositoryImpl) CountUnprocessed(ctx context.Context) (int64, error) {
	return r.Count(ctx, models.MessageReactionFilter{Processed: falsePtr()})
}

// MarkProcessed flips the processed and included_in_summary flags for the
// given rows. Callers invoke this before sending a digest so a delivery
// failure cannot double-report the same reactions later.
func (r *MessageReactionRepositoryImpl) MarkProcessed(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	db := r.getDB(ctx)
	return db.Model(&models.MessageReaction{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"processed":           true,
			"included_in_summary": true,
		}).Error
}

func (r *MessageReactionRepositoryImpl) applyFilter(db *gorm.DB, f models.MessageReactionFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.MessageID != nil {
		db = db.Where("message_id = ?", *f.MessageID)
	}
	if f.ReactorPhone != nil {
		db = db.Where("reactor_phone = ?", *f.ReactorPhone)
	}
	if f.ReactionType != nil {
		db = db.Where("reaction_type = ?", *f.ReactionType)
	}
	if f.Method != nil {
		db = db.Where("resolution_method = ?", *f.Method)
	}
	if f.Processed != nil {
		db = db.Where("processed = ?", *f.Processed)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *MessageReactionRepositoryImpl) ByFilter(ctx context.Context, filter models.MessageReactionFilter, orderBy string, limit, offset int) ([]*models.MessageReaction, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.MessageReaction{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.MessageReaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MessageReactionRepositoryImpl) Count(ctx context.Context, filter models.MessageReactionFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.MessageReaction{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *MessageReactionRepositoryImpl) Exists(ctx context.Context, filter models.MessageReactionFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func falsePtr() *bool { f := false; return &f }
