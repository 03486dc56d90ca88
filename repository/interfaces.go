// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/kairan-app/kairan/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// MemberRepository defines operations for group members
type MemberRepository interface {
	Repository[models.Member, models.MemberFilter]
	ByPhone(ctx context.Context, phone string) (*models.Member, error)
	ListActive(ctx context.Context) ([]*models.Member, error)
	RecordActivity(ctx context.Context, memberID uint, at time.Time) error
	Update(ctx context.Context, member *models.Member) error
	Delete(ctx context.Context, memberID uint) error
}

// BroadcastMessageRepository defines operations for broadcast messages
type BroadcastMessageRepository interface {
	Repository[models.BroadcastMessage, models.BroadcastMessageFilter]
	Update(ctx context.Context, message *models.BroadcastMessage) error
	ListRecent(ctx context.Context, since time.Time, limit int) ([]*models.BroadcastMessage, error)
	Latest(ctx context.Context) (*models.BroadcastMessage, error)
}

// DeliveryLogRepository defines operations for delivery logs
type DeliveryLogRepository interface {
	Repository[models.DeliveryLog, models.DeliveryLogFilter]
	ListByMessage(ctx context.Context, messageID uint) ([]*models.DeliveryLog, error)
}

// MessageReactionRepository defines operations for message reactions
type MessageReactionRepository interface {
	Repository[models.MessageReaction, models.MessageReactionFilter]
	ByDedupeKey(ctx context.Context, messageID uint, reactorPhone string, reactionType models.ReactionType) (*models.MessageReaction, error)
	ListUnprocessed(ctx context.Context) ([]*models.MessageReaction, error)
	CountUnprocessed(ctx context.Context) (int64, error)
	MarkProcessed(ctx context.Context, ids []uint) error
}
